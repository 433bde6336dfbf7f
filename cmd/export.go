package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/redcorridor/intel-cli/internal/model"
	"github.com/redcorridor/intel-cli/internal/query"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the registry to an XLSX workbook",
	Long:  "Writes three sheets: resolved persons, clustered incidents, and the person-incident matrix.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEngine(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer env.Close()

		people := env.Query.PeopleByIncidentCount()
		var incidents []*model.Incident
		incidents = append(incidents, env.Query.IncidentsByType(model.MentionCriminalActivity)...)
		incidents = append(incidents, env.Query.IncidentsByType(model.MentionPoliceEncounter)...)

		f := xlsx.NewFile()
		if err := writePeopleSheet(f, people); err != nil {
			return err
		}
		if err := writeIncidentsSheet(f, incidents); err != nil {
			return err
		}
		if err := writeMatrixSheet(f, people, incidents); err != nil {
			return err
		}

		if err := f.Save(exportOut); err != nil {
			return eris.Wrapf(err, "export: save %s", exportOut)
		}

		fmt.Fprintf(os.Stdout, "Wrote %d persons and %d incidents to %s.\n",
			len(people), len(incidents), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "registry.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}

func writePeopleSheet(f *xlsx.File, people []query.PersonSummary) error {
	sheet, err := f.AddSheet("People")
	if err != nil {
		return eris.Wrap(err, "export: add people sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Person ID", "Canonical Name", "Aliases", "Involvement", "Group", "Area", "Bounty", "Incidents", "Reports", "Ambiguous With"} {
		header.AddCell().Value = h
	}

	for _, ps := range people {
		p := ps.Person
		row := sheet.AddRow()
		row.AddCell().Value = p.ID
		row.AddCell().Value = p.CanonicalName
		row.AddCell().Value = strings.Join(p.Aliases, ", ")
		row.AddCell().Value = string(p.Involvement)
		row.AddCell().Value = p.Group
		row.AddCell().Value = p.Area
		row.AddCell().Value = p.Bounty
		row.AddCell().SetInt(ps.IncidentCount)
		row.AddCell().SetInt(len(p.SourceReports))
		row.AddCell().Value = strings.Join(p.AmbiguousWith, ", ")
	}
	return nil
}

func writeIncidentsSheet(f *xlsx.File, incidents []*model.Incident) error {
	sheet, err := f.AddSheet("Incidents")
	if err != nil {
		return eris.Wrap(err, "export: add incidents sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Incident ID", "Type", "Description", "Frequency", "Years", "Locations", "People", "Last Mentioned"} {
		header.AddCell().Value = h
	}

	for _, in := range incidents {
		names := make([]string, 0, len(in.People))
		for _, ref := range in.People {
			names = append(names, ref.Name)
		}

		row := sheet.AddRow()
		row.AddCell().Value = in.ID
		row.AddCell().Value = string(in.Type)
		row.AddCell().Value = in.Name
		row.AddCell().SetInt(in.Frequency)
		row.AddCell().Value = strings.Join(in.Years, ", ")
		row.AddCell().Value = strings.Join(in.Locations, "; ")
		row.AddCell().Value = strings.Join(names, "; ")
		row.AddCell().Value = in.LastMentioned.Format("2006-01-02")
	}
	return nil
}

// writeMatrixSheet writes persons as rows and incidents as columns, with
// an "x" where the person is on the incident.
func writeMatrixSheet(f *xlsx.File, people []query.PersonSummary, incidents []*model.Incident) error {
	sheet, err := f.AddSheet("Matrix")
	if err != nil {
		return eris.Wrap(err, "export: add matrix sheet")
	}

	header := sheet.AddRow()
	header.AddCell().Value = "Person"
	for _, in := range incidents {
		header.AddCell().Value = truncateID(in.ID)
	}

	for _, ps := range people {
		row := sheet.AddRow()
		row.AddCell().Value = ps.Person.CanonicalName
		for _, in := range incidents {
			cell := row.AddCell()
			if in.Involves(ps.Person.ID) {
				cell.Value = "x"
			}
		}
	}
	return nil
}

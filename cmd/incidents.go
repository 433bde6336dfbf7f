package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/redcorridor/intel-cli/internal/model"
	"github.com/redcorridor/intel-cli/internal/query"
)

var incidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "Inspect the clustered incident registry",
}

// -- incidents list --

var incidentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List incidents of one type, most frequent first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEngine(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer env.Close()

		typ, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		mt := model.MentionType(typ)
		if !mt.Valid() {
			return eris.Errorf("unknown incident type %q", typ)
		}

		incidents := env.Query.IncidentsByType(mt)
		if limit > 0 && len(incidents) > limit {
			incidents = incidents[:limit]
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(incidents)
		}

		if len(incidents) == 0 {
			fmt.Fprintf(os.Stderr, "No incidents of type %s.\n", mt)
			return nil
		}
		formatIncidentsList(os.Stdout, incidents)
		return nil
	},
}

// -- incidents show --

var incidentsShowCmd = &cobra.Command{
	Use:   "show <incident-id>",
	Short: "Show one incident with each person's other incidents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer env.Close()

		incident, err := findIncident(env, args[0])
		if err != nil {
			return err
		}

		// Cross-reference: for every person on the incident, the incidents
		// they appear in beyond this one.
		type personView struct {
			model.PersonRef
			OtherIncidentIDs []string `json:"other_incident_ids,omitempty"`
		}
		view := struct {
			*model.Incident
			People []personView `json:"people_involved,omitempty"`
		}{Incident: incident}

		snap := env.Store.Snapshot()
		for _, ref := range incident.People {
			pv := personView{PersonRef: ref}
			if p, ok := snap.Person(ref.PersonID); ok {
				pv.OtherIncidentIDs = query.OtherIncidents(p, incident.ID)
			}
			view.People = append(view.People, pv)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	},
}

func init() {
	incidentsListCmd.Flags().String("type", string(model.MentionCriminalActivity), "incident type (criminal_activity, police_encounter)")
	incidentsListCmd.Flags().Int("limit", 50, "max number of incidents to display")
	incidentsListCmd.Flags().Bool("json", false, "emit JSON instead of a table")

	incidentsCmd.AddCommand(incidentsListCmd)
	incidentsCmd.AddCommand(incidentsShowCmd)
	rootCmd.AddCommand(incidentsCmd)
}

// findIncident looks an incident up by full ID or unique ID prefix.
func findIncident(env *engine, id string) (*model.Incident, error) {
	snap := env.Store.Snapshot()
	if in, ok := snap.Incident(id); ok {
		return in, nil
	}

	var match *model.Incident
	for _, in := range snap.Incidents() {
		if strings.HasPrefix(in.ID, id) {
			if match != nil {
				return nil, eris.Errorf("incident ID prefix %q is ambiguous", id)
			}
			match = in
		}
	}
	if match == nil {
		return nil, eris.Errorf("no incident with ID %q", id)
	}
	return match, nil
}

// formatIncidentsList writes a tabular incident listing to w.
func formatIncidentsList(out io.Writer, incidents []*model.Incident) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDESCRIPTION\tFREQ\tYEARS\tLOCATIONS\tPEOPLE\tLAST_MENTIONED")

	for _, in := range incidents {
		desc := in.Name
		if len(desc) > 40 {
			desc = desc[:37] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%d\t%s\n",
			truncateID(in.ID),
			desc,
			in.Frequency,
			strings.Join(in.Years, ","),
			strings.Join(in.Locations, "; "),
			len(in.People),
			in.LastMentioned.Format("2006-01-02"),
		)
	}
	_ = w.Flush()
}

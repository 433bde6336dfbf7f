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

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "Inspect the resolved person registry",
}

// -- people list --

var peopleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List resolved persons, most incidents first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEngine(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer env.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		people := env.Query.PeopleByIncidentCount()
		if limit > 0 && len(people) > limit {
			people = people[:limit]
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(people)
		}

		if len(people) == 0 {
			fmt.Fprintln(os.Stderr, "Registry is empty.")
			return nil
		}
		formatPeopleList(os.Stdout, people)
		return nil
	},
}

// -- people show --

var peopleShowCmd = &cobra.Command{
	Use:   "show <person-id>",
	Short: "Show full details of one person",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer env.Close()

		person, err := findPerson(env, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(person)
	},
}

func init() {
	peopleListCmd.Flags().Int("limit", 50, "max number of persons to display")
	peopleListCmd.Flags().Bool("json", false, "emit JSON instead of a table")

	peopleCmd.AddCommand(peopleListCmd)
	peopleCmd.AddCommand(peopleShowCmd)
	rootCmd.AddCommand(peopleCmd)
}

// findPerson looks a person up by full ID or unique ID prefix.
func findPerson(env *engine, id string) (*model.Person, error) {
	snap := env.Store.Snapshot()
	if p, ok := snap.Person(id); ok {
		return p, nil
	}

	var match *model.Person
	for _, p := range snap.Persons() {
		if strings.HasPrefix(p.ID, id) {
			if match != nil {
				return nil, eris.Errorf("person ID prefix %q is ambiguous", id)
			}
			match = p
		}
	}
	if match == nil {
		return nil, eris.Errorf("no person with ID %q", id)
	}
	return match, nil
}

// formatPeopleList writes a tabular person listing to w.
func formatPeopleList(out io.Writer, people []query.PersonSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tALIASES\tINVOLVEMENT\tGROUP\tAREA\tINCIDENTS\tREPORTS\tFLAGS")

	for _, ps := range people {
		p := ps.Person

		flags := ""
		if len(p.AmbiguousWith) > 0 {
			flags = fmt.Sprintf("ambiguous(%d)", len(p.AmbiguousWith))
		}

		name := p.CanonicalName
		if len(name) > 30 {
			name = name[:27] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%d\t%d\t%s\n",
			truncateID(p.ID),
			name,
			len(p.Aliases),
			p.Involvement,
			p.Group,
			p.Area,
			ps.IncidentCount,
			len(p.SourceReports),
			flags,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

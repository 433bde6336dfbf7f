package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/redcorridor/intel-cli/internal/query"
)

var rollupCmd = &cobra.Command{
	Use:   "rollup",
	Short: "Aggregate the registry by area committee",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEngine(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer env.Close()

		asJSON, _ := cmd.Flags().GetBool("json")

		rollup := env.Query.AreaCommitteeRollup()

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rollup)
		}

		if len(rollup) == 0 {
			fmt.Fprintln(os.Stderr, "Registry is empty.")
			return nil
		}
		formatRollup(os.Stdout, rollup)
		return nil
	},
}

func init() {
	rollupCmd.Flags().Bool("json", false, "emit JSON instead of a table")
	rootCmd.AddCommand(rollupCmd)
}

// formatRollup writes the area committee table to w.
func formatRollup(out io.Writer, rollup []query.AreaRollup) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "AREA_COMMITTEE\tPERSONS\tINCIDENTS\tYEARS")

	for _, r := range rollup {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\n",
			r.Area, r.PersonCount, r.IncidentCount, strings.Join(r.Years, ","))
	}
	_ = w.Flush()
}

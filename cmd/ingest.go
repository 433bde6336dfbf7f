package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/redcorridor/intel-cli/internal/adapter"
	"github.com/redcorridor/intel-cli/internal/ingest"
	"github.com/redcorridor/intel-cli/internal/model"
	"github.com/redcorridor/intel-cli/pkg/extractor"
)

var ingestPDF bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <file|dir>...",
	Short: "Ingest extraction records into the registry",
	Long:  "Reads extraction JSON files (or, with --pdf, sends PDFs to the extraction service first), resolves persons and incidents, and commits them to the registry. Already-processed reports are skipped.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		files, err := collectFiles(args, ingestPDF)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Fprintln(os.Stderr, "No input files found.")
			return nil
		}

		var client extractor.Client
		if ingestPDF {
			client = extractor.NewClient(cfg.Extractor.BaseURL,
				extractor.WithRateLimit(cfg.Extractor.RequestsPerMinute))
		}

		// Parse concurrently; the slice keeps arrival order so commits
		// below stay deterministic.
		records := make([]*model.ExtractionRecord, len(files))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(8)
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				rec, err := loadRecord(gctx, client, path)
				if err != nil {
					return eris.Wrapf(err, "ingest %s", path)
				}
				records[i] = rec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		results := make([]*ingest.Result, 0, len(records))
		for _, rec := range records {
			res, err := env.Pipeline.IngestRecord(ctx, rec)
			if err != nil {
				return eris.Wrapf(err, "ingest report %s", rec.ReportID)
			}
			results = append(results, res)
		}

		formatIngestResults(os.Stdout, results)
		return nil
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestPDF, "pdf", false, "treat inputs as PDFs and run them through the extraction service")
	rootCmd.AddCommand(ingestCmd)
}

// collectFiles expands directories into their matching files, keeping
// the argument order and sorting within each directory.
func collectFiles(args []string, pdf bool) ([]string, error) {
	ext := ".json"
	if pdf {
		ext = ".pdf"
	}

	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, eris.Wrapf(err, "stat %s", arg)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ext) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, eris.Wrapf(err, "walk %s", arg)
		}
	}
	return files, nil
}

// loadRecord turns one input file into a canonical extraction record.
// The report ID is the file name without extension, which makes
// re-ingesting the same file a no-op.
func loadRecord(ctx context.Context, client extractor.Client, path string) (*model.ExtractionRecord, error) {
	base := filepath.Base(path)
	reportID := strings.TrimSuffix(base, filepath.Ext(base))

	var raw map[string]any
	if client != nil {
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "open %s", path)
		}
		defer f.Close() //nolint:errcheck

		result, err := client.ProcessPDF(ctx, base, f)
		if err != nil {
			return nil, err
		}
		zap.L().Info("pdf extracted",
			zap.String("report_id", reportID),
			zap.Int("raw_text_length", result.RawTextLength),
		)
		raw = result.Data
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", path)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, eris.Wrapf(err, "decode %s", path)
		}
	}

	return adapter.ParseRecord(reportID, base, time.Now().UTC(), raw)
}

// formatIngestResults writes a per-report summary table to w.
func formatIngestResults(out io.Writer, results []*ingest.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "REPORT\tMENTIONS\tDUPLICATES\tNEW_PERSONS\tNEW_INCIDENTS\tAMBIGUOUS")

	var mentions, dups, persons, incidents, ambiguous int
	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n",
			r.ReportID, r.Mentions, r.Duplicates, r.PersonsCreated, r.IncidentsCreated, r.Ambiguous)
		mentions += r.Mentions
		dups += r.Duplicates
		persons += r.PersonsCreated
		incidents += r.IncidentsCreated
		ambiguous += r.Ambiguous
	}
	if len(results) > 1 {
		_, _ = fmt.Fprintf(w, "TOTAL\t%d\t%d\t%d\t%d\t%d\n", mentions, dups, persons, incidents, ambiguous)
	}
	_ = w.Flush()
}

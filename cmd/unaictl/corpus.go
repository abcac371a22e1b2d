package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/unai-app/unai/internal/corpus"
	"github.com/unai-app/unai/internal/detector"
)

func newCorpusCmd(opts *globalOptions) *cobra.Command {
	config := corpus.DefaultConfig()
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "corpus <file>",
		Short: "Score a labelled corpus (CSV, Parquet or JSONL)",
		Long: `Score every record of a corpus file and aggregate the results by
language, label and pattern. Records need a text column; language and
label are optional.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := opts.logger(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()

			c, err := opts.catalog(cmd, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d := detector.New(c, log.WithComponent("detector").Logger)
			evaluator := corpus.NewEvaluator(d, config, log.WithComponent("corpus").Logger)
			report, err := evaluator.EvaluateFile(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printCorpusReport(out, report)
			return nil
		},
	}

	cmd.Flags().IntVar(&config.BatchSize, "batch-size", config.BatchSize, "Records read per batch")
	cmd.Flags().IntVar(&config.WorkerCount, "workers", config.WorkerCount, "Concurrent scoring workers")
	cmd.Flags().Int64Var(&config.MaxRecords, "max-records", 0, "Stop after this many records (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func printCorpusReport(w io.Writer, report *corpus.Report) {
	colorCyan.Fprintf(w, "%s", report.File)
	colorFaint.Fprintf(w, " (%s) %d records, %d skipped in %s\n",
		report.Format, report.TotalRecords, report.Skipped, report.Duration.Round(time.Millisecond))
	printSeparator(w)

	printGroups(w, "Language", report.Languages)
	if len(report.Labels) > 0 {
		fmt.Fprintln(w)
		printGroups(w, "Label", report.Labels)
	}

	if len(report.Patterns) > 0 {
		fmt.Fprintln(w)
		patterns := make([]*corpus.PatternStats, 0, len(report.Patterns))
		for _, p := range report.Patterns {
			patterns = append(patterns, p)
		}
		sort.Slice(patterns, func(i, j int) bool {
			if patterns[i].Occurrences != patterns[j].Occurrences {
				return patterns[i].Occurrences > patterns[j].Occurrences
			}
			return patterns[i].ID < patterns[j].ID
		})

		table := newTable(w, "Pattern", "Lang", "Severity", "Occurrences", "Records")
		for _, p := range patterns {
			var records int64
			for _, n := range p.Records {
				records += n
			}
			table.Append([]string{p.ID, p.Language, p.Severity,
				fmt.Sprintf("%d", p.Occurrences), fmt.Sprintf("%d", records)})
		}
		table.Render()
	}

	if hits := report.CrossLanguageHits(); len(hits) > 0 {
		fmt.Fprintln(w)
		colorYellow.Fprintln(w, "Patterns firing outside their language")
		table := newTable(w, "Pattern", "Pattern lang", "Record lang", "Records")
		for _, h := range hits {
			table.Append([]string{h.PatternID, h.PatternLanguage, h.RecordLanguage, fmt.Sprintf("%d", h.Records)})
		}
		table.Render()
	}
}

func printGroups(w io.Writer, title string, groups map[string]*corpus.GroupStats) {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	table := newTable(w, title, "Records", "Flagged", "Mean score", "0-19", "20-39", "40-59", "60-79", "80-100")
	for _, name := range names {
		g := groups[name]
		row := []string{
			name,
			fmt.Sprintf("%d", g.Records),
			fmt.Sprintf("%d", g.Flagged),
			scoreColor(int(g.MeanScore)).Sprintf("%.1f", g.MeanScore),
		}
		for _, n := range g.Histogram {
			row = append(row, fmt.Sprintf("%d", n))
		}
		table.Append(row)
	}
	table.Render()
}

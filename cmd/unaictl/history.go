package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/unai-app/unai/internal/history"
)

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent rewrites and aggregate score statistics",
		Long: `Read the rewrite history database configured in the history section
of the config file. The database does not need history.enabled to be set,
only a driver and database_url.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 || limit > 100 {
				return fmt.Errorf("limit must be between 1 and 100")
			}

			cfg, err := opts.config()
			if err != nil {
				return err
			}
			log, err := opts.logger(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()

			store, err := history.Open(&history.Config{
				Driver:          cfg.History.Driver,
				DatabaseURL:     cfg.History.DatabaseURL,
				MaxOpenConns:    cfg.History.MaxOpenConns,
				MaxIdleConns:    cfg.History.MaxIdleConns,
				ConnMaxLifetime: cfg.History.ConnMaxLifetime,
			}, log.WithComponent("history").Logger)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			records, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			stats, err := store.Stats(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{"records": records, "stats": stats})
			}
			printHistory(out, records, stats)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of records to show (1-100)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records and stats as JSON")
	return cmd
}

func printHistory(w io.Writer, records []history.Record, stats *history.Stats) {
	fmt.Fprintf(w, "Rewrites: %d", stats.TotalRewrites)
	if stats.FailedRewrites > 0 {
		colorRed.Fprintf(w, " (%d failed)", stats.FailedRewrites)
	}
	fmt.Fprintf(w, "\nMean score: %.1f -> %.1f, ", stats.AvgOriginalScore, stats.AvgNewScore)
	colorGreen.Fprintf(w, "reduction %.1f\n", stats.AvgReduction)
	printSeparator(w)

	if len(records) == 0 {
		colorFaint.Fprintln(w, "No rewrites recorded")
		return
	}

	table := newTable(w, "ID", "When", "Mode", "Chars", "Score", "Patterns left", "Request")
	for _, r := range records {
		score := fmt.Sprintf("%d -> %d", r.OriginalScore, r.NewScore)
		if r.RewriteFailed {
			score = colorRed.Sprint(score + " failed")
		}
		table.Append([]string{
			fmt.Sprintf("%d", r.ID),
			r.CreatedAt.Local().Format(time.DateTime),
			r.Mode,
			fmt.Sprintf("%d", r.Characters),
			score,
			fmt.Sprintf("%d/%d", r.PatternsRemaining, r.PatternsFound),
			r.RequestID,
		})
	}
	table.Render()
}

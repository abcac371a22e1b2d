package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/unai-app/unai/internal/detector"
)

type scanResult struct {
	Source     string               `json:"source"`
	Score      int                  `json:"score"`
	RawScore   int                  `json:"rawScore"`
	Characters int                  `json:"characters"`
	Patterns   []detector.Finding   `json:"patterns"`
	Highlights []detector.Highlight `json:"highlights,omitempty"`
}

func newScanCmd(opts *globalOptions) *cobra.Command {
	var (
		asJSON    bool
		highlight bool
		failAt    int
	)

	cmd := &cobra.Command{
		Use:   "scan [file|-]",
		Short: "Score a text file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := "-"
			if len(args) == 1 {
				source = args[0]
			}

			text, err := readSource(cmd.InOrStdin(), source)
			if err != nil {
				return err
			}

			log, err := opts.logger(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()

			c, err := opts.catalog(cmd, log)
			if err != nil {
				return err
			}

			d := detector.New(c, log.WithComponent("detector").Logger)
			analysis := d.Analyze(text)
			result := scanResult{
				Source:     source,
				Score:      analysis.Score,
				RawScore:   analysis.RawScore,
				Characters: analysis.Characters,
				Patterns:   detector.Summarize(analysis.Matches),
			}
			if highlight {
				result.Highlights = d.Highlight(text)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				printScan(out, result, text)
			}

			if failAt > 0 && result.Score >= failAt {
				return fmt.Errorf("score %d reached threshold %d", result.Score, failAt)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&highlight, "highlight", false, "Show where each pattern occurs")
	cmd.Flags().IntVar(&failAt, "fail-at", 0, "Exit non-zero when the score reaches this value")
	return cmd
}

func readSource(stdin io.Reader, source string) (string, error) {
	if source == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", source, err)
	}
	return string(data), nil
}

func printScan(w io.Writer, result scanResult, text string) {
	fmt.Fprintf(w, "AI score: ")
	scoreColor(result.Score).Fprintf(w, "%d", result.Score)
	colorFaint.Fprintf(w, "  (raw %d over %d characters)\n", result.RawScore, result.Characters)
	printSeparator(w)

	if len(result.Patterns) == 0 {
		colorGreen.Fprintln(w, "No AI writing patterns detected")
		return
	}

	table := newTable(w, "ID", "Severity", "Category", "Count", "Pattern")
	for _, f := range result.Patterns {
		table.Append([]string{f.ID, severityColor(f.Severity).Sprint(f.Severity), f.Category, itoa(f.Count), f.Description})
	}
	table.Render()

	if len(result.Highlights) > 0 {
		printSeparator(w)
		runes := []rune(text)
		for _, h := range result.Highlights {
			colorCyan.Fprintf(w, "%-6s", h.PatternID)
			fmt.Fprintf(w, " [%d:%d] %s\n", h.Start, h.End, string(runes[h.Start:h.End]))
		}
	}
}

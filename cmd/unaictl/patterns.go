package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unai-app/unai/internal/catalog"
)

func newPatternsCmd(opts *globalOptions) *cobra.Command {
	var (
		language string
		severity string
		export   string
	)

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "List the pattern catalog",
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

			out := cmd.OutOrStdout()
			if export != "" {
				data, err := catalog.Export(c, catalog.Format(strings.ToLower(export)))
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			var lang catalog.Language
			if language != "" {
				if lang, err = catalog.ParseLanguage(language); err != nil {
					return err
				}
			}
			var sev catalog.Severity
			if severity != "" {
				if sev, err = catalog.ParseSeverity(severity); err != nil {
					return err
				}
			}

			table := newTable(out, "ID", "Lang", "Severity", "Category", "Rule", "Alternatives")
			shown := 0
			for _, p := range c.Patterns() {
				if (lang != "" && p.Language != lang) || (sev != "" && p.Severity != sev) {
					continue
				}
				table.Append([]string{
					p.ID,
					string(p.Language),
					severityColor(p.Severity).Sprint(p.Severity),
					p.Category,
					p.Rule,
					strings.Join(p.Alternatives, " / "),
				})
				shown++
			}
			table.Render()

			colorFaint.Fprintf(out, "%d of %d patterns", shown, c.Len())
			if fb := c.Fallbacks(); len(fb) > 0 {
				colorYellow.Fprintf(out, ", %d matched literally", len(fb))
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&language, "language", "", "Only show zh, en or both")
	cmd.Flags().StringVar(&severity, "severity", "", "Only show high, medium or low")
	cmd.Flags().StringVar(&export, "export", "", "Write the catalog as json, yaml or toml instead of a table")
	return cmd
}

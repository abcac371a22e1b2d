package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/unai-app/unai/internal/catalog"
	"github.com/unai-app/unai/internal/config"
	"github.com/unai-app/unai/internal/logger"
)

var version = "0.1.0"

var (
	colorRed    = color.New(color.FgRed, color.Bold)
	colorYellow = color.New(color.FgYellow, color.Bold)
	colorGreen  = color.New(color.FgGreen, color.Bold)
	colorCyan   = color.New(color.FgCyan)
	colorFaint  = color.New(color.Faint)
)

type globalOptions struct {
	configPath  string
	logLevel    string
	catalogName string
	catalogFile string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		colorRed.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "unaictl",
		Short: "Detect and score AI writing clichés in Chinese and English text",
		Long: `unaictl scores text for formulaic AI phrasing using the same pattern
catalog as the UnAI server.

Examples:
  unaictl scan essay.txt
  cat reply.md | unaictl scan -
  unaictl patterns --language zh --severity high
  unaictl corpus samples.parquet --workers 8
  unaictl history --config unai.yaml --limit 10`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.catalogName, "catalog", "full", "Pattern catalog (full or compact)")
	flags.StringVar(&opts.catalogFile, "catalog-file", "", "Load patterns from a YAML, JSON or TOML file")

	root.AddCommand(
		newScanCmd(opts),
		newPatternsCmd(opts),
		newCorpusCmd(opts),
		newHistoryCmd(opts),
	)
	return root
}

// logger writes to stderr so command output stays parseable
func (o *globalOptions) logger(cmd *cobra.Command) (*logger.Logger, error) {
	return logger.New(logger.Config{Level: o.logLevel, Format: "console", Output: cmd.ErrOrStderr()})
}

func (o *globalOptions) config() (*config.Config, error) {
	if o.configPath == "" {
		return config.GetDefaults(), nil
	}
	return config.Load(o.configPath)
}

// catalog resolves the pattern catalog. Explicit flags win over the
// detection section of the config file.
func (o *globalOptions) catalog(cmd *cobra.Command, log *logger.Logger) (*catalog.Catalog, error) {
	name, file := o.catalogName, o.catalogFile
	catalogOpts := []catalog.Option{catalog.WithLogger(log.WithComponent("catalog").Logger)}

	if o.configPath != "" {
		cfg, err := o.config()
		if err != nil {
			return nil, err
		}
		if !cmd.Flags().Changed("catalog") && cfg.Detection.Catalog != "" {
			name = cfg.Detection.Catalog
		}
		if !cmd.Flags().Changed("catalog-file") {
			file = cfg.Detection.CatalogFile
		}
		if cfg.Detection.MatchTimeout > 0 {
			catalogOpts = append(catalogOpts, catalog.WithMatchTimeout(cfg.Detection.MatchTimeout))
		}
	}
	return catalog.Load(name, file, catalogOpts...)
}

// scoreColor follows the dashboard: red from 70, yellow from 40
func scoreColor(score int) *color.Color {
	switch {
	case score >= 70:
		return colorRed
	case score >= 40:
		return colorYellow
	default:
		return colorGreen
	}
}

func severityColor(sev catalog.Severity) *color.Color {
	switch sev {
	case catalog.SeverityHigh:
		return colorRed
	case catalog.SeverityMedium:
		return colorYellow
	default:
		return colorFaint
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetRowLine(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func printSeparator(w io.Writer) {
	colorFaint.Fprintln(w, "────────────────────────────────────────────────────────────")
}

func itoa(n int) string { return fmt.Sprintf("%d", n) }

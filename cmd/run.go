package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	cfgpkg "github.com/KaramelBytes/incidentlens/internal/config"
	"github.com/KaramelBytes/incidentlens/internal/export"
	"github.com/KaramelBytes/incidentlens/internal/filter"
	"github.com/KaramelBytes/incidentlens/internal/loader"
	"github.com/KaramelBytes/incidentlens/internal/pipeline"
	"github.com/KaramelBytes/incidentlens/internal/report"
	"github.com/KaramelBytes/incidentlens/internal/utils"
	"github.com/spf13/cobra"
)

var (
	runOutputPath string
	runViewsDir   string
	runSummary    string
	runSheetName  string
	runSheetIndex int
	runDelimiter  string
	runDecimal    string
	runThousands  string
	runEncoding   string
	runTopN       int
	runWorkers    int
	runNoViews    bool
	runStrict     bool
)

var runPipelineCmd = &cobra.Command{
	Use:   "run [input]",
	Short: "Clean an incident table and compute the view catalog",
	Long: `Run loads a CSV/TSV or XLSX file, cleans it, and writes:
  - the cleaned table (--output, .xlsx or .csv)
  - one JSON document per view plus manifest.json (--views-dir)
  - a text summary (--summary, '-' for stdout)

The input defaults to input_path from config.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		conf := *c
		if err := applyRunFlags(cmd, &conf); err != nil {
			return err
		}
		input := conf.InputPath
		if len(args) == 1 {
			input = args[0]
		}
		if input == "" {
			return fmt.Errorf("no input file: pass one or set input_path")
		}
		log := newLogger(cmd, &conf)

		lopt, err := loaderOptions(&conf)
		if err != nil {
			return err
		}
		raw, err := loader.Load(input, lopt)
		if err != nil {
			return fmt.Errorf("load %s: %w", input, err)
		}
		log.Info("input loaded", slog.String("path", input), slog.Int("rows", raw.Len()), slog.Int("columns", raw.Width()))

		popt := pipeline.DefaultOptions()
		popt.TopN = conf.TopN
		popt.TopCategories = conf.TopCategories
		popt.AgeRange = filter.AgeRange{Min: conf.AgeMin, Max: conf.AgeMax}
		popt.Workers = conf.Workers
		popt.Logger = log
		res, err := pipeline.Run(raw, popt)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if conf.OutputPath != "" {
			if err := export.WriteTable(conf.OutputPath, res.Cleaned); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote cleaned table (%d rows) to %s\n", res.Cleaned.Len(), conf.OutputPath)
		}
		if !runNoViews && conf.ViewsDir != "" {
			m, err := export.WriteViews(conf.ViewsDir, res.Catalog, res.Diagnostics)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote %d views to %s\n", len(m.Views), conf.ViewsDir)
		}

		md := report.Markdown{Source: filepath.Base(input), Diagnostics: &res.Diagnostics}
		switch conf.SummaryPath {
		case "":
		case "-":
			if err := md.Render(out, res.Catalog, conf.Style); err != nil {
				return fmt.Errorf("render summary: %w", err)
			}
		default:
			if err := utils.SafeWriteFile(conf.SummaryPath, []byte(md.String(res.Catalog, conf.Style))); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			fmt.Fprintf(out, "✓ Wrote summary to %s\n", conf.SummaryPath)
		}

		for _, w := range res.Diagnostics.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %s\n", w)
		}
		if err := res.Err(); err != nil {
			if runStrict {
				return fmt.Errorf("%d views failed: %w", len(res.Catalog.Failed()), err)
			}
			var lines []string
			for _, id := range res.Catalog.Failed() {
				lines = append(lines, res.Catalog.Err(id).Error())
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %d views skipped:\n  %s\n", len(lines), strings.Join(lines, "\n  "))
		}
		return nil
	},
}

// applyRunFlags copies explicitly set flags over the configuration and
// validates the result.
func applyRunFlags(cmd *cobra.Command, c *cfgpkg.Global) error {
	f := cmd.Flags()
	set := func(name, key, val string) error {
		if !f.Changed(name) {
			return nil
		}
		if err := c.Set(key, val); err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
		return nil
	}
	return errors.Join(
		set("output", "output_path", runOutputPath),
		set("views-dir", "views_dir", runViewsDir),
		set("summary", "summary_path", runSummary),
		set("sheet", "sheet_name", runSheetName),
		set("sheet-index", "sheet_index", fmt.Sprint(runSheetIndex)),
		set("delimiter", "delimiter", runDelimiter),
		set("top-n", "top_n", fmt.Sprint(runTopN)),
		set("workers", "workers", fmt.Sprint(runWorkers)),
	)
}

func loaderOptions(c *cfgpkg.Global) (loader.Options, error) {
	opt := loader.Options{Encoding: runEncoding, Sheet: c.SheetName, SheetIndex: c.SheetIndex}
	d, err := cfgpkg.ParseDelimiter(c.Delimiter)
	if err != nil {
		return opt, err
	}
	opt.Delimiter = d
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(runDecimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", runDecimal)
	}
	switch strings.ToLower(strings.TrimSpace(runThousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", runThousands)
	}
	return opt, nil
}

func init() {
	rootCmd.AddCommand(runPipelineCmd)
	runPipelineCmd.Flags().StringVarP(&runOutputPath, "output", "o", "", "cleaned table path (.xlsx or .csv)")
	runPipelineCmd.Flags().StringVar(&runViewsDir, "views-dir", "", "directory for view JSON documents")
	runPipelineCmd.Flags().StringVar(&runSummary, "summary", "", "summary path ('-' for stdout)")
	runPipelineCmd.Flags().StringVar(&runSheetName, "sheet", "", "XLSX: sheet name to load")
	runPipelineCmd.Flags().IntVar(&runSheetIndex, "sheet-index", 0, "XLSX: 1-based sheet index (used if --sheet not provided)")
	runPipelineCmd.Flags().StringVar(&runDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | '|' | 'tab' (sniffed if omitted)")
	runPipelineCmd.Flags().StringVar(&runDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	runPipelineCmd.Flags().StringVar(&runThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	runPipelineCmd.Flags().StringVar(&runEncoding, "encoding", "", "CSV text encoding: utf-8 | utf-16 | latin1 | windows-1252 (BOM aware if omitted)")
	runPipelineCmd.Flags().IntVar(&runTopN, "top-n", 10, "entries kept by ranking views")
	runPipelineCmd.Flags().IntVar(&runWorkers, "workers", 4, "views computed concurrently")
	runPipelineCmd.Flags().BoolVar(&runNoViews, "no-views", false, "skip writing view documents")
	runPipelineCmd.Flags().BoolVar(&runStrict, "strict", false, "exit non-zero when any view could not be produced")
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TFMV/scour/pipeline"
	"github.com/TFMV/scour/pkg/convert"
	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/strategy"
	"github.com/TFMV/scour/pkg/suggest"
	"github.com/TFMV/scour/pkg/writers"
	"github.com/TFMV/scour/report"
)

// CleanOptions represents the options for the clean command.
type CleanOptions struct {
	Input           InputOptions
	OutputPath      string
	OutputType      string
	OutputTable     string
	ReportPath      string
	HTMLPath        string
	SuggestionsPath string
	Quiet           bool
}

func newCleanCommand(g *GlobalOptions) *cobra.Command {
	options := &CleanOptions{}

	cmd := &cobra.Command{
		Use:   "clean [flags] INPUT",
		Short: "Assess, clean and report on a dataset",
		Long: `The clean command profiles INPUT, scores its quality, selects a cleaning
strategy for every issue found and applies the plan. The cleaned dataset is
written to --output and a quality report comparing the dataset before and
after cleaning is written to --report (JSON) and --html.

Strategies are chosen in this order: overrides from the configuration file,
then suggestions from --suggestions (JSON or YAML), then built-in heuristics.

A workbook read without --sheet is cleaned sheet by sheet; an Excel output
then carries every cleaned sheet plus a Summary sheet comparing them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.load(); err != nil {
				return err
			}
			return runClean(cmd, g, options, args[0])
		},
	}

	options.Input.addFlags(cmd)
	cmd.Flags().StringVarP(&options.OutputPath, "output", "o", "", "Path (or connection string) for the cleaned dataset")
	cmd.Flags().StringVar(&options.OutputType, "output-type", "", "Output type; guessed from the extension when empty")
	cmd.Flags().StringVar(&options.OutputTable, "output-table", "", "Destination table for database outputs (defaults to the dataset name)")
	cmd.Flags().StringVarP(&options.ReportPath, "report", "r", "", "Path for the JSON quality report")
	cmd.Flags().StringVar(&options.HTMLPath, "html", "", "Path for the HTML quality report")
	cmd.Flags().StringVarP(&options.SuggestionsPath, "suggestions", "s", "", "JSON or YAML file of per-column strategy suggestions")
	cmd.Flags().BoolVarP(&options.Quiet, "quiet", "q", false, "Hide the progress spinner and the summary")

	return cmd
}

func runClean(cmd *cobra.Command, g *GlobalOptions, options *CleanOptions, input string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	engine, err := g.engine()
	if err != nil {
		return err
	}

	var sp *spinner.Spinner
	if !options.Quiet {
		sp = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		sp.Suffix = " Loading " + input
		sp.Start()
		defer sp.Stop()
	}
	progress := func(msg string) {
		if sp != nil {
			sp.Lock()
			sp.Suffix = " " + msg
			sp.Unlock()
		}
	}

	datasets, err := options.Input.load(ctx, input)
	if err != nil {
		return err
	}

	progress("Looking up suggestions")
	suggestions, err := lookupSuggestions(ctx, g, engine, options, datasets)
	if err != nil {
		return err
	}

	progress("Cleaning")
	var results []*pipeline.Result
	var comparison []pipeline.SheetComparison
	if len(datasets) == 1 {
		res, err := engine.Run(datasets[0], suggestions[datasets[0].Name])
		if err != nil {
			return err
		}
		results = []*pipeline.Result{res}
	} else {
		wb, err := engine.RunSheets(datasets, suggestions)
		if err != nil {
			return err
		}
		results, comparison = wb.Sheets, wb.Comparison
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if options.OutputPath != "" {
		progress("Writing " + options.OutputPath)
		if err := writeOutputs(ctx, options, results, comparison); err != nil {
			return err
		}
	}

	multi := len(results) > 1
	for _, res := range results {
		jsonPath := sheetPath(options.ReportPath, res.Report.Dataset, multi)
		htmlPath := sheetPath(options.HTMLPath, res.Report.Dataset, multi)
		if err := report.SaveReports(res.Report, jsonPath, htmlPath); err != nil {
			return err
		}
	}

	if sp != nil {
		sp.Stop()
	}
	if options.Quiet {
		return nil
	}
	w := cmd.OutOrStdout()
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := report.WriteSummary(w, res.Report); err != nil {
			return err
		}
	}
	if multi {
		return printComparison(w, comparison)
	}
	return nil
}

// lookupSuggestions consults the suggestions file once per dataset. The
// lookup is bounded by the configured timeout and never fails the run.
func lookupSuggestions(ctx context.Context, g *GlobalOptions, engine *pipeline.Engine, options *CleanOptions, datasets []*core.Dataset) (map[string]strategy.Suggestions, error) {
	path := options.SuggestionsPath
	if path == "" {
		path = g.cfg.Suggestions.File
	}
	out := make(map[string]strategy.Suggestions, len(datasets))
	if path == "" {
		return out, nil
	}
	provider := suggest.FileProvider{Path: path}
	for _, ds := range datasets {
		profiles, _, err := engine.Profile(ds)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ds.Name, err)
		}
		logger := g.logger.With(zap.String("dataset", ds.Name))
		out[ds.Name] = suggest.Lookup(ctx, provider, g.cfg.Suggestions.Timeout, profiles, logger)
	}
	return out, nil
}

func writeOutputs(ctx context.Context, options *CleanOptions, results []*pipeline.Result, comparison []pipeline.SheetComparison) error {
	typ := options.OutputType
	if typ == "" {
		typ = writers.TypeFromPath(options.OutputPath)
	}
	if typ == "" {
		return fmt.Errorf("cannot guess the type of %s; use --output-type", options.OutputPath)
	}

	if typ == "xlsx" {
		return writeWorkbook(options.OutputPath, results, comparison)
	}

	multi := len(results) > 1
	for _, res := range results {
		wc := core.WriterConfig{Type: typ, Path: sheetPath(options.OutputPath, res.Cleaned.Name, multi)}
		if isDatabase(typ) {
			wc.Path = options.OutputPath
			if !multi {
				wc.Table = options.OutputTable
			}
		}
		if err := writers.Save(ctx, wc, res.Cleaned); err != nil {
			return fmt.Errorf("failed to write %s: %w", res.Cleaned.Name, err)
		}
	}
	return nil
}

// writeWorkbook writes every cleaned dataset to its own sheet, followed by a
// Summary sheet.
func writeWorkbook(path string, results []*pipeline.Result, comparison []pipeline.SheetComparison) error {
	wb, err := writers.NewWorkbook()
	if err != nil {
		return err
	}
	for _, res := range results {
		rec := convert.ToRecord(res.Cleaned, convert.Options{})
		err := wb.AppendRecord(res.Cleaned.Name, rec)
		rec.Release()
		if err != nil {
			return err
		}
	}

	summary := "Summary"
	if slices.Contains(wb.Sheets(), summary) {
		summary = "Scour Summary"
	}
	if len(results) == 1 {
		header, rows := report.SummaryRows(results[0].Report)
		err = wb.AppendRows(summary, header, rows)
	} else {
		header, rows := comparisonRows(comparison)
		err = wb.AppendRows(summary, header, rows)
	}
	if err != nil {
		return err
	}
	return wb.SaveAs(path)
}

func comparisonRows(comparison []pipeline.SheetComparison) ([]string, [][]any) {
	header := []string{"sheet", "rows_before", "rows_after", "columns_before", "columns_after",
		"pre_score", "post_score", "score_delta", "issues", "resolved"}
	rows := make([][]any, len(comparison))
	for i, c := range comparison {
		rows[i] = []any{c.Sheet, c.RowsBefore, c.RowsAfter, c.ColumnsBefore, c.ColumnsAfter,
			c.PreScore, c.PostScore, c.ScoreDelta, c.Issues, c.Resolved}
	}
	return header, rows
}

func printComparison(w io.Writer, comparison []pipeline.SheetComparison) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nSHEET\tROWS\tCOLUMNS\tSCORE\tRESOLVED")
	for _, c := range comparison {
		fmt.Fprintf(tw, "%s\t%d -> %d\t%d -> %d\t%.1f%% -> %.1f%%\t%d/%d\n",
			c.Sheet, c.RowsBefore, c.RowsAfter, c.ColumnsBefore, c.ColumnsAfter,
			c.PreScore*100, c.PostScore*100, c.Resolved, c.Issues)
	}
	return tw.Flush()
}

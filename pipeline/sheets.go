package pipeline

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/strategy"
)

// SheetComparison summarises one sheet of a workbook run.
type SheetComparison struct {
	Sheet         string  `json:"sheet"`
	RowsBefore    int     `json:"rows_before"`
	RowsAfter     int     `json:"rows_after"`
	ColumnsBefore int     `json:"columns_before"`
	ColumnsAfter  int     `json:"columns_after"`
	PreScore      float64 `json:"pre_score"`
	PostScore     float64 `json:"post_score"`
	ScoreDelta    float64 `json:"score_delta"`
	Issues        int     `json:"issues"`
	Resolved      int     `json:"resolved"`
}

// WorkbookResult holds the per-sheet results in sheet order.
type WorkbookResult struct {
	Sheets     []*Result         `json:"sheets"`
	Comparison []SheetComparison `json:"comparison"`
}

// Cleaned returns the cleaned sheets in order.
func (w *WorkbookResult) Cleaned() []*core.Dataset {
	out := make([]*core.Dataset, len(w.Sheets))
	for i, r := range w.Sheets {
		out[i] = r.Cleaned
	}
	return out
}

// RunSheets cleans each sheet independently. suggestions is keyed by sheet
// name; a sheet without an entry is cleaned with heuristics only. The first
// fatal error aborts the whole workbook.
func (e *Engine) RunSheets(sheets []*core.Dataset, suggestions map[string]strategy.Suggestions) (*WorkbookResult, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", core.ErrMalformedInput)
	}

	results := make([]*Result, len(sheets))
	var g errgroup.Group
	g.SetLimit(e.workers())
	for i, sheet := range sheets {
		g.Go(func() error {
			if sheet == nil {
				return fmt.Errorf("%w: sheet %d is nil", core.ErrMalformedInput, i)
			}
			res, err := e.Run(sheet, suggestions[sheet.Name])
			if err != nil {
				return fmt.Errorf("sheet %q: %w", sheet.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &WorkbookResult{Sheets: results, Comparison: make([]SheetComparison, len(results))}
	for i, r := range results {
		out.Comparison[i] = SheetComparison{
			Sheet:         r.Report.Dataset,
			RowsBefore:    r.Report.Summary.RowsBefore,
			RowsAfter:     r.Report.Summary.RowsAfter,
			ColumnsBefore: r.Report.Summary.ColumnsBefore,
			ColumnsAfter:  r.Report.Summary.ColumnsAfter,
			PreScore:      r.Report.PreScore,
			PostScore:     r.Report.PostScore,
			ScoreDelta:    r.Report.ScoreDelta(),
			Issues:        len(r.Assessment.Issues),
			Resolved:      len(r.Report.IssuesResolved),
		}
	}
	return out, nil
}

func (e *Engine) workers() int {
	if e.cfg.Profile.Workers > 0 {
		return e.cfg.Profile.Workers
	}
	return 1
}

// Package clean applies remediation strategies to a dataset and records a change log.
package clean

import (
	"errors"
	"fmt"
	"sort"

	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/profile"
	"github.com/TFMV/scour/pkg/quality"
	"github.com/TFMV/scour/pkg/strategy"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Config controls action preconditions.
type Config struct {
	// MinParseRatio is the share of non-missing values that must parse for CoerceType to apply.
	MinParseRatio float64
}

// DefaultConfig returns the default cleaner configuration.
func DefaultConfig() Config {
	return Config{MinParseRatio: 0.95}
}

// Cleaner applies strategies in a fixed order.
type Cleaner struct {
	cfg      Config
	profiler *profile.Profiler
	logger   *zap.Logger
}

// New creates a cleaner. The profiler supplies missing-value detection and parsing.
func New(cfg Config, profiler *profile.Profiler, logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{cfg: cfg, profiler: profiler, logger: logger}
}

type step struct {
	strategy strategy.Strategy
	action   strategy.Action
}

// errPrecondition marks an action that cannot be applied to the actual data.
var errPrecondition = errors.New("precondition failed")

func precondition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errPrecondition, fmt.Sprintf(format, args...))
}

// Apply runs the strategies against a copy of ds. The input is never mutated.
// Order: dataset-level and key-column row drops, then per column in original
// column order: column drop, coercion, imputation, outlier treatment, text
// normalization, downcast.
func (c *Cleaner) Apply(ds *core.Dataset, strategies []strategy.Strategy) (*core.Dataset, ChangeLog, error) {
	if err := ds.Validate(); err != nil {
		return nil, nil, err
	}

	out := ds.Clone()
	steps := schedule(ds, strategies)
	log := make(ChangeLog, 0, len(steps))
	dedup := -1
	for _, s := range steps {
		entry, err := c.run(out, s)
		if err != nil {
			return nil, nil, err
		}
		if dedup < 0 && isRowDedup(s) && entry.Warning == "" {
			dedup = len(log)
		}
		log = append(log, entry)
	}
	if dedup >= 0 {
		if err := c.dedupAgain(out, &log[dedup]); err != nil {
			return nil, nil, err
		}
	}
	return out, log, nil
}

func isRowDedup(s step) bool {
	return s.action.Kind == strategy.DropRows && s.strategy.IssueKind == quality.DuplicateRows
}

// dedupAgain removes rows that became identical during the per-column phase
// and charges them to the duplicate-row entry e.
func (c *Cleaner) dedupAgain(ds *core.Dataset, e *ChangeLogEntry) error {
	rows, cols := ds.NumRows(), ds.NumCols()
	removed := ds.KeepRows(firstOccurrences(ds))
	if removed == 0 {
		return nil
	}
	e.RowsAffected += removed
	e.RowsRemoved += removed
	e.After = c.summarize(ds, nil)
	c.logger.Debug("rows collided after cleaning", zap.Int("rows_removed", removed))
	return checkShape(ds, rows-removed, cols, ChangeLogEntry{Action: e.Action})
}

func schedule(ds *core.Dataset, strategies []strategy.Strategy) []step {
	position := make(map[string]int, ds.NumCols())
	for i, name := range ds.ColumnNames() {
		position[name] = i
	}

	type keyed struct {
		step
		phase, column, category, seq int
		name                         string
	}
	var all []keyed
	seq := 0
	for _, st := range strategies {
		for _, a := range st.Actions {
			k := keyed{step: step{strategy: st, action: a}, seq: seq, name: st.Column}
			seq++

			k.phase = 1
			if a.Kind == strategy.DropRows &&
				(st.IssueKind == quality.DuplicateRows || st.IssueKind == quality.DuplicateColumnValues) {
				k.phase = 0
			}

			switch pos, ok := position[st.Column]; {
			case st.Column == "":
				k.column = -1
			case ok:
				k.column = pos
			default:
				k.column = ds.NumCols()
			}

			k.category = int(a.Kind.Category())
			if a.Kind == strategy.DropRows && k.phase == 1 {
				k.category = int(strategy.CategoryImpute)
			}
			all = append(all, k)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		switch {
		case a.phase != b.phase:
			return a.phase < b.phase
		case a.column != b.column:
			return a.column < b.column
		case a.name != b.name:
			return a.name < b.name
		case a.category != b.category:
			return a.category < b.category
		}
		return a.seq < b.seq
	})

	steps := make([]step, len(all))
	for i, k := range all {
		steps[i] = k.step
	}
	return steps
}

type handler func(c *Cleaner, ds *core.Dataset, col *core.Column, s step, e *ChangeLogEntry) error

var handlers = map[strategy.ActionKind]handler{
	strategy.DropRows:           (*Cleaner).dropRows,
	strategy.DropColumn:         (*Cleaner).dropColumn,
	strategy.ImputeMean:         (*Cleaner).impute,
	strategy.ImputeMedian:       (*Cleaner).impute,
	strategy.ImputeMode:         (*Cleaner).impute,
	strategy.ImputeConstant:     (*Cleaner).impute,
	strategy.ImputeForwardFill:  (*Cleaner).fill,
	strategy.ImputeBackwardFill: (*Cleaner).fill,
	strategy.CoerceType:         (*Cleaner).coerce,
	strategy.CapOutliers:        (*Cleaner).capOutliers,
	strategy.RemoveOutlierRows:  (*Cleaner).removeOutlierRows,
	strategy.TrimWhitespace:     (*Cleaner).trimWhitespace,
	strategy.NormalizeCase:      (*Cleaner).normalizeCase,
	strategy.Downcast:           (*Cleaner).downcast,
}

func (c *Cleaner) run(ds *core.Dataset, s step) (ChangeLogEntry, error) {
	e := ChangeLogEntry{
		Column:    s.strategy.Column,
		IssueKind: s.strategy.IssueKind,
		Action:    s.action,
		Source:    s.strategy.Source,
	}

	h, ok := handlers[s.action.Kind]
	if !ok {
		return e, fmt.Errorf("%w: no handler for action %q", core.ErrInvariantViolation, s.action.Kind)
	}

	var col *core.Column
	if s.strategy.Column != "" {
		if col, _ = ds.Column(s.strategy.Column); col == nil {
			e.Before = c.summarize(ds, nil)
			e.After = e.Before
			e.Warning = fmt.Sprintf("%s skipped: column %q not found", s.action, s.strategy.Column)
			c.logger.Warn("action skipped", zap.String("column", e.Column), zap.String("action", s.action.String()))
			return e, nil
		}
	}

	rows, cols := ds.NumRows(), ds.NumCols()
	e.Before = c.summarize(ds, col)

	err := h(c, ds, col, s, &e)
	switch {
	case errors.Is(err, errPrecondition):
		e.RowsAffected, e.RowsRemoved = 0, 0
		e.Warning = fmt.Sprintf("%s not applied: %v", s.action, err)
		c.logger.Warn("action downgraded to no-op",
			zap.String("column", e.Column),
			zap.String("action", s.action.String()),
			zap.Error(err))
	case err != nil:
		return e, err
	}

	if e.ColumnRemoved {
		e.After = c.summarize(ds, nil)
	} else {
		e.After = c.summarize(ds, col)
	}

	if err := checkShape(ds, rows-e.RowsRemoved, cols, e); err != nil {
		return e, err
	}

	c.logger.Debug("action applied",
		zap.String("column", e.Column),
		zap.String("action", s.action.String()),
		zap.Int("rows_affected", e.RowsAffected))
	return e, nil
}

// checkShape verifies that the action changed the shape exactly as recorded.
func checkShape(ds *core.Dataset, wantRows, cols int, e ChangeLogEntry) error {
	wantCols := cols
	if e.ColumnRemoved {
		wantCols--
	}
	if ds.NumCols() != wantCols {
		return fmt.Errorf("%w: %s left %d columns, expected %d", core.ErrInvariantViolation, e.Action, ds.NumCols(), wantCols)
	}
	for _, col := range ds.Columns {
		if col.Len() != wantRows {
			return fmt.Errorf("%w: %s left column %q with %d rows, expected %d",
				core.ErrInvariantViolation, e.Action, col.Name, col.Len(), wantRows)
		}
	}
	return nil
}

func (c *Cleaner) summarize(ds *core.Dataset, col *core.Column) Summary {
	if col == nil {
		distinct := make(map[string]struct{}, ds.NumRows())
		for i := 0; i < ds.NumRows(); i++ {
			distinct[ds.RowKey(i)] = struct{}{}
		}
		return Summary{Rows: ds.NumRows(), Columns: ds.NumCols(), Distinct: len(distinct)}
	}

	s := Summary{Rows: col.Len(), Type: col.Type, Storage: col.Storage}
	distinct := make(map[string]struct{})
	var nums []float64
	numeric := col.Type == core.TypeNumeric
	for _, v := range col.Values {
		if c.profiler.IsMissing(v) {
			s.Missing++
			continue
		}
		distinct[v.Str] = struct{}{}
		if !numeric {
			continue
		}
		if f, ok := c.profiler.ParseNumber(v.Str); ok {
			nums = append(nums, f)
		}
	}
	s.Distinct = len(distinct)
	if len(nums) > 0 {
		lo, hi := floats.Min(nums), floats.Max(nums)
		s.Min, s.Max = &lo, &hi
	}
	return s
}

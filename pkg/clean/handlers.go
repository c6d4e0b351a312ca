package clean

import (
	"math"
	"sort"
	"strings"

	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/profile"
	"github.com/TFMV/scour/pkg/quality"
	"github.com/TFMV/scour/pkg/strategy"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func (c *Cleaner) dropRows(ds *core.Dataset, col *core.Column, s step, e *ChangeLogEntry) error {
	keep := make([]bool, ds.NumRows())
	switch s.strategy.IssueKind {
	case quality.DuplicateRows:
		keep = firstOccurrences(ds)
	case quality.DuplicateColumnValues:
		if col == nil {
			return precondition("no key column")
		}
		seen := make(map[string]struct{}, len(keep))
		for i, v := range col.Values {
			if c.profiler.IsMissing(v) {
				keep[i] = true
				continue
			}
			_, dup := seen[v.Str]
			keep[i] = !dup
			seen[v.Str] = struct{}{}
		}
	case quality.MissingValues:
		if col == nil {
			return precondition("no column to test for missing values")
		}
		for i, v := range col.Values {
			keep[i] = !c.profiler.IsGap(col.Type, v)
		}
	default:
		return precondition("DropRows does not apply to %s", s.strategy.IssueKind)
	}

	removed := ds.KeepRows(keep)
	e.RowsAffected, e.RowsRemoved = removed, removed
	return nil
}

// firstOccurrences marks the first row of every group of identical rows.
func firstOccurrences(ds *core.Dataset) []bool {
	keep := make([]bool, ds.NumRows())
	seen := make(map[string]struct{}, len(keep))
	for i := range keep {
		key := ds.RowKey(i)
		_, dup := seen[key]
		keep[i] = !dup
		seen[key] = struct{}{}
	}
	return keep
}

func (c *Cleaner) dropColumn(ds *core.Dataset, col *core.Column, _ step, e *ChangeLogEntry) error {
	if col == nil {
		return precondition("DropColumn needs a column")
	}
	e.RowsAffected = col.Len()
	e.ColumnRemoved = ds.DropColumn(col.Name)
	return nil
}

// gaps returns the positions that need filling.
func (c *Cleaner) gaps(col *core.Column) []int {
	var out []int
	for i, v := range col.Values {
		if c.profiler.IsGap(col.Type, v) {
			out = append(out, i)
		}
	}
	return out
}

// impute fills gaps with a single value computed before any cell is written.
func (c *Cleaner) impute(_ *core.Dataset, col *core.Column, s step, e *ChangeLogEntry) error {
	holes := c.gaps(col)
	fill, err := c.statistic(col, s.action)
	if err != nil {
		if len(holes) == 0 {
			return nil
		}
		return err
	}
	e.Before.Fill = fill
	for _, i := range holes {
		col.Values[i] = core.Text(fill)
	}
	e.RowsAffected = len(holes)
	c.fitStorage(col)
	return nil
}

func (c *Cleaner) statistic(col *core.Column, a strategy.Action) (string, error) {
	switch a.Kind {
	case strategy.ImputeConstant:
		canon, ok := c.profiler.Canonical(col.Type, a.Value)
		if !ok {
			return "", precondition("constant %q is not a valid %s", a.Value, col.Type)
		}
		return canon, nil

	case strategy.ImputeMode:
		counts := make(map[string]int)
		for _, v := range col.Values {
			if !c.profiler.IsGap(col.Type, v) {
				counts[v.Str]++
			}
		}
		if len(counts) == 0 {
			return "", precondition("no values to take the mode of")
		}
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		best := keys[0]
		for _, k := range keys[1:] {
			if counts[k] > counts[best] {
				best = k
			}
		}
		return best, nil
	}

	values := make([]float64, 0, col.Len())
	for _, v := range col.Values {
		if c.profiler.IsGap(col.Type, v) {
			continue
		}
		f, ok := c.profiler.ParseNumber(v.Str)
		if !ok {
			return "", precondition("value %q is not numeric", v.Str)
		}
		values = append(values, f)
	}
	if len(values) == 0 {
		return "", precondition("no numeric values to compute %s", a.Kind)
	}
	if a.Kind == strategy.ImputeMean {
		return core.FormatNumber(stat.Mean(values, nil)), nil
	}
	sort.Float64s(values)
	return core.FormatNumber(profile.Quantile(values, 0.5)), nil
}

// fill propagates the last valid value forward, or the next one backward.
// Gaps with no valid neighbour in the fill direction stay as they are.
func (c *Cleaner) fill(_ *core.Dataset, col *core.Column, s step, e *ChangeLogEntry) error {
	n := col.Len()
	idx := func(k int) int { return k }
	if s.action.Kind == strategy.ImputeBackwardFill {
		idx = func(k int) int { return n - 1 - k }
	}

	var last *core.Value
	for k := 0; k < n; k++ {
		i := idx(k)
		v := col.Values[i]
		if !c.profiler.IsGap(col.Type, v) {
			last = &v
			continue
		}
		if last != nil {
			col.Values[i] = *last
			e.RowsAffected++
		}
	}
	if last == nil && e.RowsAffected == 0 && len(c.gaps(col)) > 0 {
		return precondition("no valid value to propagate")
	}
	return nil
}

// coerce rewrites values into the canonical form of the target type.
// Missing and unparseable cells become null.
func (c *Cleaner) coerce(_ *core.Dataset, col *core.Column, s step, e *ChangeLogEntry) error {
	target := s.action.Target
	if target == core.TypeUnknown || target == "" {
		return precondition("no target type")
	}

	if !target.Textual() {
		var present, valid int
		for _, v := range col.Values {
			if c.profiler.IsMissing(v) {
				continue
			}
			present++
			if c.profiler.Valid(target, v.Str) {
				valid++
			}
		}
		if present > 0 && float64(valid) < c.cfg.MinParseRatio*float64(present) {
			return precondition("only %d of %d values parse as %s", valid, present, target)
		}
	}

	for i, v := range col.Values {
		if v.Null {
			continue
		}
		if c.profiler.IsMissing(v) {
			col.Values[i] = core.NullValue()
			e.RowsAffected++
			continue
		}
		canon, ok := c.profiler.Canonical(target, v.Str)
		switch {
		case !ok:
			col.Values[i] = core.NullValue()
			e.RowsAffected++
		case canon != v.Str:
			col.Values[i] = core.Text(canon)
			e.RowsAffected++
		}
	}

	col.Type = target
	switch target {
	case core.TypeNumeric:
		if col.Storage.Width() == 0 || col.Storage == core.StorageBool || col.Storage == core.StorageTimestamp {
			col.Storage = core.StorageFloat64
		}
		c.fitStorage(col)
	case core.TypeDatetime:
		col.Storage = core.StorageTimestamp
	case core.TypeBoolean:
		col.Storage = core.StorageBool
	case core.TypeCategorical:
		if col.Storage != core.StorageDictionary {
			col.Storage = core.StorageString
		}
	default:
		col.Storage = core.StorageString
	}
	return nil
}

func (c *Cleaner) bounds(s step) (float64, float64, error) {
	b := s.action.Bounds
	if b == nil {
		return 0, 0, precondition("no bounds")
	}
	if b.Lower > b.Upper {
		return 0, 0, precondition("lower bound exceeds upper bound")
	}
	return b.Lower, b.Upper, nil
}

// numericCells parses every non-gap cell, failing when none is numeric.
func (c *Cleaner) numericCells(col *core.Column) (map[int]float64, error) {
	cells := make(map[int]float64)
	present := 0
	for i, v := range col.Values {
		if c.profiler.IsGap(col.Type, v) {
			continue
		}
		present++
		if f, ok := c.profiler.ParseNumber(v.Str); ok {
			cells[i] = f
		}
	}
	if present > 0 && len(cells) == 0 {
		return nil, precondition("column %q holds no numeric values", col.Name)
	}
	return cells, nil
}

func (c *Cleaner) capOutliers(_ *core.Dataset, col *core.Column, s step, e *ChangeLogEntry) error {
	lo, hi, err := c.bounds(s)
	if err != nil {
		return err
	}
	cells, err := c.numericCells(col)
	if err != nil {
		return err
	}
	for i := range col.Values {
		f, ok := cells[i]
		if !ok {
			continue
		}
		switch {
		case f < lo:
			col.Values[i] = core.Text(core.FormatNumber(lo))
		case f > hi:
			col.Values[i] = core.Text(core.FormatNumber(hi))
		default:
			continue
		}
		e.RowsAffected++
	}
	c.fitStorage(col)
	return nil
}

func (c *Cleaner) removeOutlierRows(ds *core.Dataset, col *core.Column, s step, e *ChangeLogEntry) error {
	lo, hi, err := c.bounds(s)
	if err != nil {
		return err
	}
	cells, err := c.numericCells(col)
	if err != nil {
		return err
	}
	keep := make([]bool, col.Len())
	for i := range keep {
		f, ok := cells[i]
		keep[i] = !ok || (f >= lo && f <= hi)
	}
	removed := ds.KeepRows(keep)
	e.RowsAffected, e.RowsRemoved = removed, removed
	return nil
}

func (c *Cleaner) trimWhitespace(_ *core.Dataset, col *core.Column, _ step, e *ChangeLogEntry) error {
	for i, v := range col.Values {
		if v.Null {
			continue
		}
		if t := strings.TrimSpace(v.Str); t != v.Str {
			col.Values[i] = core.Text(t)
			e.RowsAffected++
		}
	}
	return nil
}

func (c *Cleaner) normalizeCase(_ *core.Dataset, col *core.Column, s step, e *ChangeLogEntry) error {
	var conv func(string) string
	switch s.action.Case {
	case strategy.CaseLower, "":
		conv = strings.ToLower
	case strategy.CaseUpper:
		conv = strings.ToUpper
	case strategy.CaseTitle:
		conv = cases.Title(language.Und).String
	default:
		return precondition("unsupported case %q", s.action.Case)
	}
	for i, v := range col.Values {
		if c.profiler.IsMissing(v) {
			continue
		}
		if n := conv(v.Str); n != v.Str {
			col.Values[i] = core.Text(n)
			e.RowsAffected++
		}
	}
	return nil
}

// downcast switches the column to the narrowest storage that holds its current values.
func (c *Cleaner) downcast(_ *core.Dataset, col *core.Column, _ step, e *ChangeLogEntry) error {
	cp := c.profiler.ProfileColumn(col)
	if cp.OptimalStorage == cp.Storage || cp.OptimalBytes >= cp.EstimatedBytes {
		return nil
	}
	col.Storage = cp.OptimalStorage
	e.RowsAffected = cp.NonMissingCount
	return nil
}

// fitStorage widens a numeric storage class that can no longer hold the column's values.
func (c *Cleaner) fitStorage(col *core.Column) {
	switch col.Storage {
	case core.StorageString, core.StorageDictionary, core.StorageBool, core.StorageTimestamp, "":
		return
	}
	var nums []float64
	integral, fits32 := true, true
	for _, v := range col.Values {
		if c.profiler.IsMissing(v) {
			continue
		}
		f, ok := c.profiler.ParseNumber(v.Str)
		if !ok {
			continue
		}
		nums = append(nums, f)
		integral = integral && core.IsIntegral(f)
		fits32 = fits32 && float64(float32(f)) == f
	}
	if len(nums) == 0 {
		return
	}
	lo, hi := floats.Min(nums), floats.Max(nums)

	switch col.Storage {
	case core.StorageFloat64:
		return
	case core.StorageFloat32:
		if !fits32 {
			col.Storage = core.StorageFloat64
		}
		return
	}
	if !integral {
		col.Storage = core.StorageFloat64
		return
	}
	if r, ok := integerRanges[col.Storage]; ok && (lo < r[0] || hi > r[1]) {
		col.Storage = profile.IntegerStorage(lo, hi)
	}
}

var integerRanges = map[core.Storage][2]float64{
	core.StorageInt8:   {math.MinInt8, math.MaxInt8},
	core.StorageInt16:  {math.MinInt16, math.MaxInt16},
	core.StorageInt32:  {math.MinInt32, math.MaxInt32},
	core.StorageInt64:  {math.MinInt64, math.MaxInt64},
	core.StorageUint8:  {0, math.MaxUint8},
	core.StorageUint16: {0, math.MaxUint16},
	core.StorageUint32: {0, math.MaxUint32},
}

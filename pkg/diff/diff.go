// Package diff computes column-level differences between the profiles of a
// dataset before and after cleaning.
package diff

import (
	"math"

	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/profile"
)

// Status classifies a column's fate.
type Status string

const (
	Unchanged Status = "unchanged"
	Changed   Status = "changed"
	Dropped   Status = "dropped"
)

// Pair holds one measurement before and after cleaning.
type Pair[T comparable] struct {
	Before T `json:"before"`
	After  T `json:"after"`
}

// Changed reports whether the measurement moved.
func (p Pair[T]) Changed() bool { return p.Before != p.After }

// ColumnDelta compares a column's pre-clean and post-clean profiles.
type ColumnDelta struct {
	Column string `json:"column"`
	Status Status `json:"status"`

	Type          Pair[core.LogicalType] `json:"type"`
	Storage       Pair[core.Storage]     `json:"storage"`
	Missing       Pair[int]              `json:"missing"`
	Unique        Pair[int]              `json:"unique"`
	Nonconforming Pair[int]              `json:"nonconforming"`
	Outliers      Pair[int]              `json:"outliers"`
	Inconsistent  Pair[int]              `json:"inconsistent"`
	Bytes         Pair[int64]            `json:"bytes"`

	// Mean is set for numeric columns present on both sides.
	Mean *Pair[float64] `json:"mean,omitempty"`
}

// Summary provides a summary of the differences between the two profiles.
type Summary struct {
	// RowsBefore is the number of rows before cleaning.
	RowsBefore int `json:"rows_before"`

	// RowsAfter is the number of rows after cleaning.
	RowsAfter int `json:"rows_after"`

	// ColumnsBefore is the number of columns before cleaning.
	ColumnsBefore int `json:"columns_before"`

	// ColumnsAfter is the number of columns after cleaning.
	ColumnsAfter int `json:"columns_after"`

	// ColumnsChanged is the number of surviving columns with any change.
	ColumnsChanged int `json:"columns_changed"`

	// Memory is the estimated footprint of the whole dataset.
	Memory Pair[int64] `json:"memory"`
}

// Columns pairs pre and post profiles by name. The result follows the
// pre-clean column order; columns absent after cleaning are Dropped.
func Columns(pre, post []profile.ColumnProfile) []ColumnDelta {
	after := make(map[string]*profile.ColumnProfile, len(post))
	for i := range post {
		after[post[i].Name] = &post[i]
	}

	deltas := make([]ColumnDelta, 0, len(pre))
	for i := range pre {
		b := &pre[i]
		a, ok := after[b.Name]
		if !ok {
			deltas = append(deltas, ColumnDelta{
				Column:        b.Name,
				Status:        Dropped,
				Type:          Pair[core.LogicalType]{Before: b.EffectiveType()},
				Storage:       Pair[core.Storage]{Before: b.Storage},
				Missing:       Pair[int]{Before: b.MissingCount},
				Unique:        Pair[int]{Before: b.UniqueCount},
				Nonconforming: Pair[int]{Before: b.NonconformingCount},
				Outliers:      Pair[int]{Before: len(b.OutlierIndices)},
				Inconsistent:  Pair[int]{Before: b.InconsistentCount},
				Bytes:         Pair[int64]{Before: b.EstimatedBytes},
			})
			continue
		}
		d := ColumnDelta{
			Column:        b.Name,
			Type:          Pair[core.LogicalType]{b.EffectiveType(), a.EffectiveType()},
			Storage:       Pair[core.Storage]{b.Storage, a.Storage},
			Missing:       Pair[int]{b.MissingCount, a.MissingCount},
			Unique:        Pair[int]{b.UniqueCount, a.UniqueCount},
			Nonconforming: Pair[int]{b.NonconformingCount, a.NonconformingCount},
			Outliers:      Pair[int]{len(b.OutlierIndices), len(a.OutlierIndices)},
			Inconsistent:  Pair[int]{b.InconsistentCount, a.InconsistentCount},
			Bytes:         Pair[int64]{b.EstimatedBytes, a.EstimatedBytes},
		}
		if b.Mean != nil && a.Mean != nil {
			d.Mean = &Pair[float64]{*b.Mean, *a.Mean}
		}
		d.Status = Unchanged
		if d.changed() {
			d.Status = Changed
		}
		deltas = append(deltas, d)
	}
	return deltas
}

func (d ColumnDelta) changed() bool {
	if d.Type.Changed() || d.Storage.Changed() || d.Missing.Changed() || d.Unique.Changed() ||
		d.Nonconforming.Changed() || d.Outliers.Changed() || d.Inconsistent.Changed() || d.Bytes.Changed() {
		return true
	}
	return d.Mean != nil && !floatEqual(d.Mean.Before, d.Mean.After, 1e-9)
}

// Summarize totals the deltas for datasets of rowsBefore and rowsAfter rows.
func Summarize(deltas []ColumnDelta, rowsBefore, rowsAfter int) Summary {
	s := Summary{RowsBefore: rowsBefore, RowsAfter: rowsAfter, ColumnsBefore: len(deltas)}
	for _, d := range deltas {
		s.Memory.Before += d.Bytes.Before
		if d.Status == Dropped {
			continue
		}
		s.ColumnsAfter++
		s.Memory.After += d.Bytes.After
		if d.Status == Changed {
			s.ColumnsChanged++
		}
	}
	return s
}

// floatEqual compares two floats with a relative tolerance.
func floatEqual(a, b, tolerance float64) bool {
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	if a == 0 || b == 0 {
		return diff < tolerance
	}
	return diff/math.Max(math.Abs(a), math.Abs(b)) < tolerance
}

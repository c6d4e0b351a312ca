package clean

import (
	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/quality"
	"github.com/TFMV/scour/pkg/strategy"
)

// Summary describes a column, or the dataset for dataset-scoped actions,
// immediately before or after an action.
type Summary struct {
	Rows     int              `json:"rows"`
	Columns  int              `json:"columns,omitempty"`
	Missing  int              `json:"missing"`
	Distinct int              `json:"distinct"`
	Type     core.LogicalType `json:"type,omitempty"`
	Storage  core.Storage     `json:"storage,omitempty"`
	Min      *float64         `json:"min,omitempty"`
	Max      *float64         `json:"max,omitempty"`

	// Fill is the statistic or constant an imputation wrote.
	Fill string `json:"fill,omitempty"`
}

// ChangeLogEntry records one attempted action.
type ChangeLogEntry struct {
	Column        string            `json:"column,omitempty"`
	IssueKind     quality.IssueKind `json:"issue_kind"`
	Action        strategy.Action   `json:"action"`
	Source        strategy.Source   `json:"source"`
	RowsAffected  int               `json:"rows_affected"`
	RowsRemoved   int               `json:"rows_removed,omitempty"`
	ColumnRemoved bool              `json:"column_removed,omitempty"`
	Before        Summary           `json:"before"`
	After         Summary           `json:"after"`
	Warning       string            `json:"warning,omitempty"`
}

// ChangeLog is the ordered audit trail of a cleaning run.
type ChangeLog []ChangeLogEntry

// RowsRemoved sums the rows removed by row-dropping actions.
func (l ChangeLog) RowsRemoved() int {
	n := 0
	for _, e := range l {
		n += e.RowsRemoved
	}
	return n
}

// ColumnsDropped lists the columns removed by DropColumn actions.
func (l ChangeLog) ColumnsDropped() []string {
	var cols []string
	for _, e := range l {
		if e.ColumnRemoved {
			cols = append(cols, e.Column)
		}
	}
	return cols
}

// Warnings returns the log's precondition warnings.
func (l ChangeLog) Warnings() []core.Warning {
	var out []core.Warning
	for _, e := range l {
		if e.Warning != "" {
			out = append(out, core.Warning{Stage: core.StageClean, Column: e.Column, Message: e.Warning})
		}
	}
	return out
}

// Effective returns the entries that changed at least one row.
func (l ChangeLog) Effective() ChangeLog {
	var out ChangeLog
	for _, e := range l {
		if e.RowsAffected > 0 {
			out = append(out, e)
		}
	}
	return out
}

// Package quality scores dataset profiles and ranks data-quality issues.
package quality

import "sort"

// IssueKind classifies a data-quality problem.
type IssueKind string

const (
	MissingValues         IssueKind = "MissingValues"
	DuplicateRows         IssueKind = "DuplicateRows"
	DuplicateColumnValues IssueKind = "DuplicateColumnValues"
	TypeMismatch          IssueKind = "TypeMismatch"
	Outliers              IssueKind = "Outliers"
	TextInconsistency     IssueKind = "TextInconsistency"
	HighCardinality       IssueKind = "HighCardinality"
	MemoryInefficiency    IssueKind = "MemoryInefficiency"
)

// IssueKinds lists every kind in tie-break order.
var IssueKinds = []IssueKind{
	MissingValues, DuplicateRows, DuplicateColumnValues, TypeMismatch,
	Outliers, TextInconsistency, HighCardinality, MemoryInefficiency,
}

func (k IssueKind) rank() int {
	for i, kind := range IssueKinds {
		if kind == k {
			return i
		}
	}
	return len(IssueKinds)
}

// Issue is a detected problem. Column is empty for dataset-scoped issues.
type Issue struct {
	Kind         IssueKind `json:"kind"`
	Column       string    `json:"column,omitempty"`
	Severity     float64   `json:"severity"`
	AffectedRows int       `json:"affected_rows"`
}

// Key identifies the (kind, column) pair an issue belongs to.
func (i Issue) Key() IssueKey {
	return IssueKey{Kind: i.Kind, Column: i.Column}
}

// IssueKey is the identity of an issue across profiling passes.
type IssueKey struct {
	Kind   IssueKind
	Column string
}

// SortIssues orders issues by severity descending, then affected rows
// descending, then column name ascending, then kind.
func SortIssues(issues []Issue) {
	sort.SliceStable(issues, func(a, b int) bool {
		x, y := issues[a], issues[b]
		if x.Severity != y.Severity {
			return x.Severity > y.Severity
		}
		if x.AffectedRows != y.AffectedRows {
			return x.AffectedRows > y.AffectedRows
		}
		if x.Column != y.Column {
			return x.Column < y.Column
		}
		return x.Kind.rank() < y.Kind.rank()
	})
}

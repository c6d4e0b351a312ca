package quality

import (
	"slices"

	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/profile"
)

// Components are the per-dimension scores that make up the overall score.
type Components struct {
	Completeness  float64 `json:"completeness"`
	Uniqueness    float64 `json:"uniqueness"`
	Consistency   float64 `json:"consistency"`
	DuplicateRows float64 `json:"duplicate_rows"`
}

// Assessment is the result of scoring a dataset.
type Assessment struct {
	Score      float64    `json:"score"`
	Components Components `json:"components"`
	Issues     []Issue    `json:"issues"`
}

// Scorer aggregates column profiles into a score and a ranked list of issues.
type Scorer struct {
	weights    Weights
	thresholds Thresholds
}

// NewScorer creates a scorer.
func NewScorer(weights Weights, thresholds Thresholds) *Scorer {
	return &Scorer{weights: weights, thresholds: thresholds}
}

// Score computes the overall quality score and the ranked issue list.
func (s *Scorer) Score(profiles []profile.ColumnProfile, ds *core.Dataset) Assessment {
	rows := ds.NumRows()
	issues := make([]Issue, 0)

	dupRows := len(DuplicateRowIndices(ds))
	if dupRows > 0 {
		issues = append(issues, Issue{
			Kind:         DuplicateRows,
			Severity:     fraction(dupRows, rows),
			AffectedRows: dupRows,
		})
	}

	var completeness, uniqueness, consistency float64
	for _, cp := range profiles {
		colIssues := s.columnIssues(cp)
		issues = append(issues, colIssues...)

		completeness += 1 - fraction(cp.MissingCount, cp.RowCount)
		consistency += 1 - fraction(cp.NonconformingCount, cp.RowCount)
		penalty := 0.0
		for _, issue := range colIssues {
			if issue.Kind == DuplicateColumnValues {
				penalty = issue.Severity
			}
		}
		uniqueness += 1 - penalty
	}

	comp := Components{Completeness: 1, Uniqueness: 1, Consistency: 1, DuplicateRows: 1 - fraction(dupRows, rows)}
	if n := float64(len(profiles)); n > 0 {
		comp.Completeness = completeness / n
		comp.Uniqueness = uniqueness / n
		comp.Consistency = consistency / n
	}

	SortIssues(issues)
	return Assessment{
		Score:      s.overall(comp),
		Components: comp,
		Issues:     issues,
	}
}

func (s *Scorer) overall(c Components) float64 {
	w := s.weights
	total := w.total()
	if total == 0 {
		return 1
	}
	score := (w.Completeness*c.Completeness +
		w.Uniqueness*c.Uniqueness +
		w.Consistency*c.Consistency +
		w.DuplicateRows*c.DuplicateRows) / total
	return clamp(score)
}

func (s *Scorer) columnIssues(cp profile.ColumnProfile) []Issue {
	var issues []Issue
	add := func(kind IssueKind, severity float64, affected int) {
		if severity > 0 {
			issues = append(issues, Issue{Kind: kind, Column: cp.Name, Severity: clamp(severity), AffectedRows: affected})
		}
	}
	effective := cp.EffectiveType()

	add(MissingValues, fraction(cp.MissingCount, cp.RowCount), cp.MissingCount)

	if cp.DuplicateValueCount > 0 {
		unique := fraction(cp.UniqueCount, cp.NonMissingCount)
		key := slices.Contains(s.thresholds.KeyColumns, cp.Name)
		if key || (effective != core.TypeNumeric && unique >= s.thresholds.NearUniqueRatio) {
			add(DuplicateColumnValues, fraction(cp.DuplicateValueCount, cp.NonMissingCount), cp.DuplicateValueCount)
		}
	}

	if cp.InferredType != core.TypeUnknown {
		severity := 0.0
		switch effective {
		case core.TypeNumeric, core.TypeDatetime, core.TypeBoolean:
			severity = fraction(cp.NonconformingCount, cp.NonMissingCount)
		}
		if cp.DeclaredType == core.TypeUnknown && severity < s.thresholds.UndeclaredTypeSeverity {
			severity = s.thresholds.UndeclaredTypeSeverity
		}
		add(TypeMismatch, severity, cp.NonconformingCount)
	}

	add(Outliers, fraction(len(cp.OutlierIndices), cp.NonMissingCount), len(cp.OutlierIndices))

	if effective.Textual() {
		add(TextInconsistency, fraction(cp.InconsistentCount, cp.NonMissingCount), cp.InconsistentCount)
	}

	if cp.DeclaredType == core.TypeCategorical && cp.NonMissingCount >= s.thresholds.HighCardinalityMinRows {
		unique := fraction(cp.UniqueCount, cp.NonMissingCount)
		if unique > s.thresholds.HighCardinalityRatio {
			add(HighCardinality, unique, cp.NonMissingCount)
		}
	}

	if cp.OptimalStorage != cp.Storage && cp.EstimatedBytes > 0 && cp.OptimalBytes < cp.EstimatedBytes {
		add(MemoryInefficiency, 1-float64(cp.OptimalBytes)/float64(cp.EstimatedBytes), cp.NonMissingCount)
	}

	return issues
}

// DuplicateRowIndices returns the positions of rows identical to an earlier row.
func DuplicateRowIndices(ds *core.Dataset) []int {
	var dups []int
	seen := make(map[string]struct{}, ds.NumRows())
	for i := 0; i < ds.NumRows(); i++ {
		key := ds.RowKey(i)
		if _, ok := seen[key]; ok {
			dups = append(dups, i)
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}

func fraction(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Package strategy maps data-quality issues to remediation actions.
package strategy

import (
	"fmt"
	"strings"

	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/quality"
)

// ActionKind is the closed set of cleaning actions.
type ActionKind string

const (
	DropRows           ActionKind = "DropRows"
	DropColumn         ActionKind = "DropColumn"
	ImputeMean         ActionKind = "ImputeMean"
	ImputeMedian       ActionKind = "ImputeMedian"
	ImputeMode         ActionKind = "ImputeMode"
	ImputeForwardFill  ActionKind = "ImputeForwardFill"
	ImputeBackwardFill ActionKind = "ImputeBackwardFill"
	ImputeConstant     ActionKind = "ImputeConstant"
	CoerceType         ActionKind = "CoerceType"
	CapOutliers        ActionKind = "CapOutliers"
	RemoveOutlierRows  ActionKind = "RemoveOutlierRows"
	TrimWhitespace     ActionKind = "TrimWhitespace"
	NormalizeCase      ActionKind = "NormalizeCase"
	Downcast           ActionKind = "Downcast"
)

// ActionKinds lists the full action vocabulary.
var ActionKinds = []ActionKind{
	DropRows, DropColumn,
	ImputeMean, ImputeMedian, ImputeMode, ImputeForwardFill, ImputeBackwardFill, ImputeConstant,
	CoerceType, CapOutliers, RemoveOutlierRows, TrimWhitespace, NormalizeCase, Downcast,
}

// Category groups actions by their position in the application order.
type Category int

const (
	CategoryRowDrop Category = iota
	CategoryColumnDrop
	CategoryCoerce
	CategoryImpute
	CategoryOutlier
	CategoryText
	CategoryDowncast
)

// Category returns the application category of the action kind.
func (k ActionKind) Category() Category {
	switch k {
	case DropRows:
		return CategoryRowDrop
	case DropColumn:
		return CategoryColumnDrop
	case CoerceType:
		return CategoryCoerce
	case CapOutliers, RemoveOutlierRows:
		return CategoryOutlier
	case TrimWhitespace, NormalizeCase:
		return CategoryText
	case Downcast:
		return CategoryDowncast
	}
	return CategoryImpute
}

// Addresses returns the issue kinds an action can remediate.
func (k ActionKind) Addresses() []quality.IssueKind {
	switch k {
	case DropRows:
		return []quality.IssueKind{quality.DuplicateRows, quality.DuplicateColumnValues, quality.MissingValues}
	case DropColumn:
		return quality.IssueKinds
	case CoerceType:
		return []quality.IssueKind{quality.TypeMismatch, quality.HighCardinality}
	case CapOutliers, RemoveOutlierRows:
		return []quality.IssueKind{quality.Outliers}
	case TrimWhitespace, NormalizeCase:
		return []quality.IssueKind{quality.TextInconsistency}
	case Downcast:
		return []quality.IssueKind{quality.MemoryInefficiency}
	}
	return []quality.IssueKind{quality.MissingValues}
}

// ParseActionKind resolves an action name, ignoring case, spaces, dashes and underscores.
func ParseActionKind(name string) (ActionKind, bool) {
	norm := normalizeName(name)
	for _, k := range ActionKinds {
		if normalizeName(string(k)) == norm {
			return k, true
		}
	}
	return "", false
}

func normalizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

// TextCase is the target case of NormalizeCase.
type TextCase string

const (
	CaseLower TextCase = "lower"
	CaseUpper TextCase = "upper"
	CaseTitle TextCase = "title"
)

// Bounds are the inclusive limits used by outlier actions.
type Bounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Action is a tagged variant: Kind selects which of the parameter fields apply.
type Action struct {
	Kind ActionKind `json:"kind"`

	// Value is the fill value of ImputeConstant.
	Value string `json:"value,omitempty"`

	// Target is the type of CoerceType.
	Target core.LogicalType `json:"target,omitempty"`

	// Bounds are the limits of CapOutliers and RemoveOutlierRows.
	Bounds *Bounds `json:"bounds,omitempty"`

	// Case is the target case of NormalizeCase.
	Case TextCase `json:"case,omitempty"`
}

// String renders the action with its parameters.
func (a Action) String() string {
	switch a.Kind {
	case ImputeConstant:
		return fmt.Sprintf("%s(%q)", a.Kind, a.Value)
	case CoerceType:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Target)
	case CapOutliers, RemoveOutlierRows:
		if a.Bounds != nil {
			return fmt.Sprintf("%s(%s, %s)", a.Kind, core.FormatNumber(a.Bounds.Lower), core.FormatNumber(a.Bounds.Upper))
		}
	case NormalizeCase:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Case)
	}
	return string(a.Kind)
}

// Source records where a strategy came from.
type Source string

const (
	SourceHeuristic  Source = "Heuristic"
	SourceSuggestion Source = "ExternalSuggestion"
	SourceOverride   Source = "UserOverride"
)

// Strategy is the remediation chosen for one (issue kind, column) pair.
// Most strategies carry one action; TextInconsistency may carry a trim and a case normalization.
type Strategy struct {
	IssueKind quality.IssueKind `json:"issue_kind"`
	Column    string            `json:"column,omitempty"`
	Actions   []Action          `json:"actions"`
	Source    Source            `json:"source"`
}

// Key returns the (issue kind, column) identity of the strategy.
func (s Strategy) Key() quality.IssueKey {
	return quality.IssueKey{Kind: s.IssueKind, Column: s.Column}
}

// String renders the strategy for logs.
func (s Strategy) String() string {
	names := make([]string, len(s.Actions))
	for i, a := range s.Actions {
		names[i] = a.String()
	}
	target := s.Column
	if target == "" {
		target = "<dataset>"
	}
	return fmt.Sprintf("%s %s: %s [%s]", s.IssueKind, target, strings.Join(names, " + "), s.Source)
}

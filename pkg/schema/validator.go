package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TFMV/scour/pkg/core"
)

// ValidationRule checks a dataset against a structural expectation.
type ValidationRule interface {
	// Validate returns the problems found, empty when the dataset conforms.
	Validate(ds *core.Dataset) []string

	// Name returns the human-readable name of the rule.
	Name() string
}

// ValidationResult represents the result of validating a dataset.
type ValidationResult struct {
	// Valid is false when any rule reported an error.
	Valid bool

	// Errors contains validation errors grouped by rule name.
	Errors map[string][]string

	// Warnings contains validation warnings grouped by rule name.
	Warnings map[string][]string
}

// String renders the result one problem per line, rules in name order.
func (r ValidationResult) String() string {
	var b strings.Builder
	for _, group := range []struct {
		label string
		m     map[string][]string
	}{{"error", r.Errors}, {"warning", r.Warnings}} {
		names := make([]string, 0, len(group.m))
		for name := range group.m {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, msg := range group.m[name] {
				fmt.Fprintf(&b, "%s [%s]: %s\n", group.label, name, msg)
			}
		}
	}
	return b.String()
}

// RequiredColumnsRule fails when a listed column is absent.
type RequiredColumnsRule struct {
	Columns []string
}

// Validate implements ValidationRule.
func (r *RequiredColumnsRule) Validate(ds *core.Dataset) []string {
	var missing []string
	for _, name := range r.Columns {
		if col, _ := ds.Column(name); col == nil {
			missing = append(missing, fmt.Sprintf("required column %q is missing", name))
		}
	}
	return missing
}

// Name implements ValidationRule.
func (r *RequiredColumnsRule) Name() string { return "RequiredColumns" }

// DeclaredTypesRule reports declarations that name no column of the dataset.
type DeclaredTypesRule struct {
	Types map[string]core.LogicalType
}

// Validate implements ValidationRule.
func (r *DeclaredTypesRule) Validate(ds *core.Dataset) []string {
	var unknown []string
	for name := range r.Types {
		if col, _ := ds.Column(name); col == nil {
			unknown = append(unknown, fmt.Sprintf("type declared for unknown column %q", name))
		}
	}
	sort.Strings(unknown)
	return unknown
}

// Name implements ValidationRule.
func (r *DeclaredTypesRule) Name() string { return "DeclaredTypes" }

// Validator runs error rules and warning rules.
type Validator struct {
	errorRules   []ValidationRule
	warningRules []ValidationRule
}

// NewValidator creates a validator for the given required columns and type declarations.
func NewValidator(required []string, declared map[string]core.LogicalType) *Validator {
	v := &Validator{}
	if len(required) > 0 {
		v.errorRules = append(v.errorRules, &RequiredColumnsRule{Columns: required})
	}
	if len(declared) > 0 {
		v.warningRules = append(v.warningRules, &DeclaredTypesRule{Types: declared})
	}
	return v
}

// Validate checks ds against every rule.
func (v *Validator) Validate(ds *core.Dataset) ValidationResult {
	result := ValidationResult{Valid: true, Errors: map[string][]string{}, Warnings: map[string][]string{}}
	for _, rule := range v.errorRules {
		if msgs := rule.Validate(ds); len(msgs) > 0 {
			result.Errors[rule.Name()] = msgs
			result.Valid = false
		}
	}
	for _, rule := range v.warningRules {
		if msgs := rule.Validate(ds); len(msgs) > 0 {
			result.Warnings[rule.Name()] = msgs
		}
	}
	return result
}

// Declare returns a copy of ds with the declared logical types applied.
func Declare(ds *core.Dataset, declared map[string]core.LogicalType) *core.Dataset {
	out := ds.Clone()
	for _, col := range out.Columns {
		if t, ok := declared[col.Name]; ok {
			col.Type = t
		}
	}
	return out
}

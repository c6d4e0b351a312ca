package strategy

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/profile"
	"github.com/TFMV/scour/pkg/quality"
	"go.uber.org/zap"
)

// Config controls the heuristic table.
type Config struct {
	// DropColumnMissingRatio is the missing fraction from which a column is dropped instead of imputed.
	DropColumnMissingRatio float64

	// TextFill is the constant used to impute free-text columns.
	TextFill string

	// KeyColumns are deduplicated on their own values.
	KeyColumns []string

	// Overrides are user-configured strategies that take precedence over suggestions.
	Overrides Suggestions
}

// DefaultConfig returns the default selector configuration.
func DefaultConfig() Config {
	return Config{
		DropColumnMissingRatio: 0.9,
		TextFill:               "Unknown",
	}
}

// Plan is the selector output: strategies in issue rank order plus the
// warnings raised while validating suggestions.
type Plan struct {
	Strategies []Strategy     `json:"strategies"`
	Warnings   []core.Warning `json:"warnings"`
}

// Selector chooses one strategy per (issue kind, column).
type Selector struct {
	cfg      Config
	profiler *profile.Profiler
	logger   *zap.Logger
}

// NewSelector creates a selector. The profiler validates constant fill values.
func NewSelector(cfg Config, profiler *profile.Profiler, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{cfg: cfg, profiler: profiler, logger: logger}
}

// Select maps issues to strategies. Precedence is UserOverride, then
// ExternalSuggestion, then Heuristic. Invalid hints are rejected with a warning.
func (s *Selector) Select(issues []quality.Issue, profiles []profile.ColumnProfile, suggestions Suggestions) Plan {
	byName := make(map[string]*profile.ColumnProfile, len(profiles))
	for i := range profiles {
		byName[profiles[i].Name] = &profiles[i]
	}

	plan := Plan{Strategies: []Strategy{}, Warnings: []core.Warning{}}
	chosen := make(map[quality.IssueKey]Strategy)
	seen := make(map[quality.IssueKey]bool, len(issues))
	order := make([]quality.IssueKey, 0, len(issues))
	for _, issue := range issues {
		key := issue.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		order = append(order, key)
		if st, ok := s.heuristic(issue, byName[issue.Column]); ok {
			chosen[key] = st
		}
	}

	s.applyHints(SourceSuggestion, suggestions, issues, byName, chosen, &plan)
	s.applyHints(SourceOverride, s.cfg.Overrides, issues, byName, chosen, &plan)
	s.suppressDropped(order, chosen, &plan)

	for _, key := range order {
		if st, ok := chosen[key]; ok {
			plan.Strategies = append(plan.Strategies, st)
		}
	}
	return plan
}

func (s *Selector) heuristic(issue quality.Issue, cp *profile.ColumnProfile) (Strategy, bool) {
	st := Strategy{IssueKind: issue.Kind, Column: issue.Column, Source: SourceHeuristic}
	with := func(actions ...Action) (Strategy, bool) {
		st.Actions = actions
		return st, true
	}

	if issue.Kind == quality.DuplicateRows {
		return with(Action{Kind: DropRows})
	}
	if cp == nil {
		return Strategy{}, false
	}
	effective := cp.EffectiveType()

	switch issue.Kind {
	case quality.MissingValues:
		if effective == core.TypeUnknown || issue.Severity >= s.cfg.DropColumnMissingRatio {
			return with(Action{Kind: DropColumn})
		}
		if fill, ok := s.fill(effective); ok {
			return with(fill)
		}

	case quality.DuplicateColumnValues:
		if slices.Contains(s.cfg.KeyColumns, cp.Name) {
			return with(Action{Kind: DropRows})
		}

	case quality.TypeMismatch:
		if effective == core.TypeUnknown {
			break
		}
		actions := []Action{{Kind: CoerceType, Target: effective}}
		if effective.Textual() {
			return with(actions...)
		}
		// Coercion nulls invalid values. A column without missing values has
		// no MissingValues strategy to fill them.
		if cp.InvalidCount > 0 && cp.MissingCount == 0 {
			if fill, ok := s.fill(effective); ok {
				actions = append(actions, fill)
			}
		}
		// Storage is only analysed once sentinels and invalid values are gone.
		return with(append(actions, Action{Kind: Downcast})...)

	case quality.Outliers:
		if cp.LowerFence != nil && cp.UpperFence != nil {
			return with(Action{Kind: CapOutliers, Bounds: &Bounds{Lower: *cp.LowerFence, Upper: *cp.UpperFence}})
		}

	case quality.TextInconsistency:
		var actions []Action
		if cp.PaddedCount > 0 {
			actions = append(actions, Action{Kind: TrimWhitespace})
		}
		if cp.CaseVariantCount > 0 {
			actions = append(actions, Action{Kind: NormalizeCase, Case: CaseLower})
		}
		if len(actions) > 0 {
			return with(actions...)
		}

	case quality.HighCardinality:
		return with(Action{Kind: CoerceType, Target: core.TypeText})

	case quality.MemoryInefficiency:
		return with(Action{Kind: Downcast})
	}
	return Strategy{}, false
}

// fill returns the imputation used for missing values of type t.
func (s *Selector) fill(t core.LogicalType) (Action, bool) {
	switch t {
	case core.TypeNumeric:
		return Action{Kind: ImputeMedian}, true
	case core.TypeCategorical, core.TypeBoolean:
		return Action{Kind: ImputeMode}, true
	case core.TypeDatetime:
		return Action{Kind: ImputeForwardFill}, true
	case core.TypeText:
		return Action{Kind: ImputeConstant, Value: s.cfg.TextFill}, true
	}
	return Action{}, false
}

func (s *Selector) applyHints(
	source Source,
	hints Suggestions,
	issues []quality.Issue,
	byName map[string]*profile.ColumnProfile,
	chosen map[quality.IssueKey]Strategy,
	plan *Plan,
) {
	columns := make([]string, 0, len(hints))
	for col := range hints {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	for _, col := range columns {
		hint := hints[col]
		scope := col
		var cp *profile.ColumnProfile
		if col == DatasetScope {
			scope = ""
		} else if cp = byName[col]; cp == nil {
			s.reject(source, col, hint, invalid("column does not exist"), chosen, plan)
			continue
		}

		action, err := s.parseAction(hint, cp)
		if err != nil {
			s.reject(source, col, hint, err, chosen, plan)
			continue
		}

		var target *quality.Issue
		addressed := action.Kind.Addresses()
		for i := range issues {
			if issues[i].Column == scope && slices.Contains(addressed, issues[i].Kind) {
				target = &issues[i]
				break
			}
		}
		if target == nil {
			s.reject(source, col, hint, invalid("no detected issue on %q is addressed by %s", col, action.Kind), chosen, plan)
			continue
		}

		chosen[target.Key()] = Strategy{
			IssueKind: target.Kind,
			Column:    scope,
			Actions:   []Action{action},
			Source:    source,
		}
		s.logger.Debug("accepted hint",
			zap.String("source", string(source)),
			zap.String("column", col),
			zap.String("action", action.String()),
			zap.String("issue", string(target.Kind)))
	}
}

func (s *Selector) reject(source Source, col string, hint Suggestion, err error, chosen map[quality.IssueKey]Strategy, plan *Plan) {
	scope := col
	if col == DatasetScope {
		scope = ""
	}
	var fallback []string
	for _, st := range chosen {
		if st.Column == scope {
			fallback = append(fallback, st.String())
		}
	}
	sort.Strings(fallback)

	msg := fmt.Sprintf("rejected %s %q: %v", source, hint.Action, err)
	if len(fallback) > 0 {
		msg += "; keeping " + strings.Join(fallback, ", ")
	} else {
		msg += "; no strategy applies"
	}
	plan.Warnings = append(plan.Warnings, core.Warning{Stage: core.StageSelect, Column: col, Message: msg})
	s.logger.Warn("rejected hint", zap.String("source", string(source)), zap.String("column", col), zap.Error(err))
}

// suppressDropped removes every other strategy of a column that is being dropped.
func (s *Selector) suppressDropped(order []quality.IssueKey, chosen map[quality.IssueKey]Strategy, plan *Plan) {
	dropped := make(map[string]bool)
	for _, key := range order {
		st, ok := chosen[key]
		if !ok || st.Column == "" {
			continue
		}
		for _, a := range st.Actions {
			if a.Kind == DropColumn {
				dropped[st.Column] = true
			}
		}
	}
	for _, key := range order {
		st, ok := chosen[key]
		if !ok || !dropped[st.Column] || hasAction(st, DropColumn) {
			continue
		}
		delete(chosen, key)
		plan.Warnings = append(plan.Warnings, core.Warning{
			Stage:   core.StageSelect,
			Column:  st.Column,
			Message: fmt.Sprintf("skipped %s because the column is dropped", st),
		})
	}
}

func hasAction(st Strategy, kind ActionKind) bool {
	for _, a := range st.Actions {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

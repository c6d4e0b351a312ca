package strategy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/profile"
)

// DatasetScope is the suggestion key addressing dataset-level issues.
const DatasetScope = "*"

// ErrInvalidSuggestion is wrapped by every suggestion validation failure.
var ErrInvalidSuggestion = errors.New("invalid suggestion")

// Suggestion is a proposed action with untyped parameters, as received from an
// external advisor or from user configuration.
type Suggestion struct {
	Action string         `json:"action" yaml:"action" mapstructure:"action"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`
}

// Suggestions maps a column name, or DatasetScope, to one suggestion.
type Suggestions map[string]Suggestion

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSuggestion, fmt.Sprintf(format, args...))
}

// parseAction validates a suggestion against the action vocabulary and the
// column's profile. cp is nil for dataset-scoped suggestions.
func (s *Selector) parseAction(sug Suggestion, cp *profile.ColumnProfile) (Action, error) {
	kind, ok := ParseActionKind(sug.Action)
	if !ok {
		return Action{}, invalid("unrecognized action %q", sug.Action)
	}
	action := Action{Kind: kind}
	if cp == nil {
		if kind != DropRows {
			return Action{}, invalid("%s cannot be applied to the whole dataset", kind)
		}
		return action, nil
	}

	effective := cp.EffectiveType()
	switch kind {
	case ImputeMean, ImputeMedian:
		if effective != core.TypeNumeric {
			return Action{}, invalid("%s requires a numeric column, %q is %s", kind, cp.Name, effective)
		}

	case ImputeConstant:
		raw, ok := param(sug.Params, "value", "fill", "constant")
		if !ok {
			return Action{}, invalid("%s requires a value parameter", kind)
		}
		value, err := scalarString(raw)
		if err != nil {
			return Action{}, invalid("%s value: %v", kind, err)
		}
		canon, ok := s.profiler.Canonical(effective, value)
		if !ok {
			return Action{}, invalid("%s value %q is not a valid %s", kind, value, effective)
		}
		action.Value = canon

	case CoerceType:
		raw, ok := param(sug.Params, "type", "target_type", "target")
		if !ok {
			return Action{}, invalid("%s requires a type parameter", kind)
		}
		name, err := scalarString(raw)
		if err != nil {
			return Action{}, invalid("%s type: %v", kind, err)
		}
		target, err := core.ParseLogicalType(name)
		if err != nil || target == core.TypeUnknown {
			return Action{}, invalid("%s target %q is not a concrete type", kind, name)
		}
		action.Target = target

	case CapOutliers, RemoveOutlierRows:
		if effective != core.TypeNumeric {
			return Action{}, invalid("%s requires a numeric column, %q is %s", kind, cp.Name, effective)
		}
		bounds, err := parseBounds(sug.Params, cp)
		if err != nil {
			return Action{}, invalid("%s: %v", kind, err)
		}
		action.Bounds = bounds

	case NormalizeCase:
		action.Case = CaseLower
		if raw, ok := param(sug.Params, "case"); ok {
			name, err := scalarString(raw)
			if err != nil {
				return Action{}, invalid("%s case: %v", kind, err)
			}
			switch c := TextCase(strings.ToLower(name)); c {
			case CaseLower, CaseUpper, CaseTitle:
				action.Case = c
			default:
				return Action{}, invalid("%s case %q must be lower, upper or title", kind, name)
			}
		}
	}
	return action, nil
}

// parseBounds reads lower/upper, defaulting each to the profile's IQR fence.
func parseBounds(params map[string]any, cp *profile.ColumnProfile) (*Bounds, error) {
	var b Bounds
	for _, side := range []struct {
		name  string
		dst   *float64
		fence *float64
	}{
		{"lower", &b.Lower, cp.LowerFence},
		{"upper", &b.Upper, cp.UpperFence},
	} {
		raw, ok := param(params, side.name)
		if !ok {
			if side.fence == nil {
				return nil, fmt.Errorf("no %s bound given and no fence computed for %q", side.name, cp.Name)
			}
			*side.dst = *side.fence
			continue
		}
		f, err := scalarNumber(raw)
		if err != nil {
			return nil, fmt.Errorf("%s bound: %w", side.name, err)
		}
		*side.dst = f
	}
	if b.Lower > b.Upper {
		return nil, fmt.Errorf("lower bound %s exceeds upper bound %s", core.FormatNumber(b.Lower), core.FormatNumber(b.Upper))
	}
	return &b, nil
}

func param(params map[string]any, names ...string) (any, bool) {
	for _, n := range names {
		if v, ok := params[n]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func scalarString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return core.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return core.FormatNumber(x), nil
	}
	return "", fmt.Errorf("unsupported parameter type %T", v)
}

func scalarNumber(v any) (float64, error) {
	switch x := v.(type) {
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", x)
		}
		return f, nil
	}
	return 0, fmt.Errorf("unsupported parameter type %T", v)
}

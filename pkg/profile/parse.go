package profile

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/TFMV/scour/pkg/core"
)

// IsMissing reports whether a cell counts as missing: the null marker,
// an empty or whitespace-only string, or a configured sentinel.
func (p *Profiler) IsMissing(v core.Value) bool {
	if v.Null {
		return true
	}
	s := strings.TrimSpace(v.Str)
	if s == "" {
		return true
	}
	_, ok := p.sentinels[s]
	return ok
}

// ParseNumber parses a finite number.
func (p *Profiler) ParseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseTime parses a datetime against the configured layouts.
func (p *Profiler) ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range p.cfg.DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseBool parses a boolean token.
func (p *Profiler) ParseBool(s string) (bool, bool) {
	tok := strings.ToLower(strings.TrimSpace(s))
	if _, ok := p.trueTokens[tok]; ok {
		return true, true
	}
	if _, ok := p.falseTokens[tok]; ok {
		return false, true
	}
	return false, false
}

// Canonical parses s as the given type and returns its canonical form.
// Textual and unknown types return s unchanged.
func (p *Profiler) Canonical(typ core.LogicalType, s string) (string, bool) {
	switch typ {
	case core.TypeNumeric:
		if f, ok := p.ParseNumber(s); ok {
			return core.FormatNumber(f), true
		}
		return "", false
	case core.TypeDatetime:
		if t, ok := p.ParseTime(s); ok {
			return core.FormatTime(t), true
		}
		return "", false
	case core.TypeBoolean:
		if b, ok := p.ParseBool(s); ok {
			return core.FormatBool(b), true
		}
		return "", false
	}
	return s, true
}

// Valid reports whether s parses as the given type.
func (p *Profiler) Valid(typ core.LogicalType, s string) bool {
	_, ok := p.Canonical(typ, s)
	return ok
}

// IsGap reports whether a cell needs filling: missing, or unparseable for the column's type.
func (p *Profiler) IsGap(typ core.LogicalType, v core.Value) bool {
	if p.IsMissing(v) {
		return true
	}
	return !p.Valid(typ, v.Str)
}

func tokenSet(tokens []string, fold bool) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if fold {
			t = strings.ToLower(t)
		}
		set[t] = struct{}{}
	}
	return set
}

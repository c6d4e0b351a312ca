package core

import (
	"math"
	"strconv"
	"time"
)

// DateLayout and TimestampLayout are the canonical datetime forms.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = time.RFC3339
)

// FormatNumber renders a number in its canonical shortest form.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatTime renders a time canonically: a bare date at UTC midnight, RFC 3339 otherwise.
func FormatTime(t time.Time) string {
	if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(DateLayout)
	}
	return t.Format(TimestampLayout)
}

// FormatBool renders a boolean canonically.
func FormatBool(b bool) string {
	return strconv.FormatBool(b)
}

// ParseCanonicalTime parses a value produced by FormatTime.
func ParseCanonicalTime(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(TimestampLayout, s)
}

// IsIntegral reports whether f has no fractional part.
func IsIntegral(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f)
}

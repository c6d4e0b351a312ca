package core

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput is returned when a dataset violates its structural invariants.
	ErrMalformedInput = errors.New("malformed input")

	// ErrInvariantViolation signals an internal defect, such as an unexplained change in row count.
	ErrInvariantViolation = errors.New("internal invariant violation")
)

// Stage names attached to warnings.
const (
	StageSelect = "select"
	StageClean  = "clean"
	StageSchema = "schema"
)

// Warning is a recovered, non-fatal condition surfaced with the report.
type Warning struct {
	Stage   string `json:"stage"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

// String implements fmt.Stringer.
func (w Warning) String() string {
	if w.Column == "" {
		return fmt.Sprintf("[%s] %s", w.Stage, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Stage, w.Column, w.Message)
}

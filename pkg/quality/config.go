package quality

// Weights are the fixed component weights of the overall score.
type Weights struct {
	Completeness  float64 `json:"completeness"`
	Uniqueness    float64 `json:"uniqueness"`
	Consistency   float64 `json:"consistency"`
	DuplicateRows float64 `json:"duplicate_rows"`
}

// DefaultWeights returns the default score weights.
func DefaultWeights() Weights {
	return Weights{
		Completeness:  0.40,
		Uniqueness:    0.15,
		Consistency:   0.25,
		DuplicateRows: 0.20,
	}
}

func (w Weights) total() float64 {
	return w.Completeness + w.Uniqueness + w.Consistency + w.DuplicateRows
}

// Thresholds control issue detection.
type Thresholds struct {
	// NearUniqueRatio is the unique / non-missing ratio from which repeated values
	// in a non-numeric column are reported as DuplicateColumnValues.
	NearUniqueRatio float64

	// KeyColumns are expected to be unique; any repeated value is an issue.
	KeyColumns []string

	// HighCardinalityRatio is the unique / non-missing ratio above which a
	// column declared categorical is reported as HighCardinality.
	HighCardinalityRatio float64

	// HighCardinalityMinRows is the minimum non-missing count for HighCardinality.
	HighCardinalityMinRows int

	// UndeclaredTypeSeverity is the minimum TypeMismatch severity of a column
	// whose type was not declared by the source.
	UndeclaredTypeSeverity float64
}

// DefaultThresholds returns the default detection thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		NearUniqueRatio:        0.95,
		HighCardinalityRatio:   0.5,
		HighCardinalityMinRows: 10,
		UndeclaredTypeSeverity: 0.01,
	}
}

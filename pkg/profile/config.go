package profile

import (
	"runtime"
	"time"
)

// Config holds the detection thresholds and token sets used by the profiler.
// It is passed by value and never mutated after construction.
type Config struct {
	// Sentinels are cell contents treated as missing, compared after trimming.
	Sentinels []string

	// NumericRatio is the share of non-missing values that must parse as numbers.
	NumericRatio float64

	// DatetimeRatio is the share of non-missing values that must parse as dates.
	DatetimeRatio float64

	// CategoricalRatio is the maximum unique_count / row_count for a categorical column.
	CategoricalRatio float64

	// IQRMultiplier scales the interquartile range when computing fences.
	IQRMultiplier float64

	// MinOutlierSample is the minimum number of numeric values evaluated for outliers.
	MinOutlierSample int

	// SampleSize is the number of distinct sample values kept per column.
	SampleSize int

	// DateLayouts are tried in order when parsing datetimes.
	DateLayouts []string

	// TrueTokens and FalseTokens form the boolean token set, compared case-insensitively.
	TrueTokens  []string
	FalseTokens []string

	// Workers bounds the number of columns profiled concurrently.
	// If 0, defaults to the number of CPUs.
	Workers int
}

// DefaultConfig returns the default profiler configuration.
func DefaultConfig() Config {
	return Config{
		Sentinels:        []string{"N/A", "NA", "n/a", "-", "?", "null", "NULL", "None", "NaN", "nan"},
		NumericRatio:     0.95,
		DatetimeRatio:    0.95,
		CategoricalRatio: 0.5,
		IQRMultiplier:    1.5,
		MinOutlierSample: 4,
		SampleSize:       5,
		DateLayouts: []string{
			"2006-01-02",
			"2006-01-02 15:04:05",
			time.RFC3339,
			"01/02/2006",
			"02-Jan-2006",
			"2006/01/02",
			"Jan 2 2006",
		},
		TrueTokens:  []string{"true", "t", "yes", "y", "1"},
		FalseTokens: []string{"false", "f", "no", "n", "0"},
		Workers:     runtime.NumCPU(),
	}
}

// Package profile computes per-column statistics for a dataset.
package profile

import (
	"runtime"
	"sort"
	"strings"

	"github.com/TFMV/scour/pkg/core"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ColumnProfile is the statistical summary of one column. Pointer statistics
// are nil when undefined, for example on a column with no numeric values.
type ColumnProfile struct {
	Name         string           `json:"name"`
	DeclaredType core.LogicalType `json:"declared_type"`
	InferredType core.LogicalType `json:"inferred_type"`

	RowCount            int `json:"row_count"`
	MissingCount        int `json:"missing_count"`
	SentinelCount       int `json:"sentinel_count"`
	NonMissingCount     int `json:"non_missing_count"`
	UniqueCount         int `json:"unique_count"`
	DuplicateValueCount int `json:"duplicate_value_count"`

	// InvalidCount counts non-missing values that do not parse as the effective type.
	InvalidCount int `json:"invalid_count"`
	// NonconformingCount adds padded but otherwise valid values to InvalidCount.
	NonconformingCount int `json:"nonconforming_count"`
	// NoncanonicalCount counts valid values whose canonical form differs from the raw text.
	NoncanonicalCount int `json:"noncanonical_count"`

	Min        *float64 `json:"min,omitempty"`
	Max        *float64 `json:"max,omitempty"`
	Mean       *float64 `json:"mean,omitempty"`
	Median     *float64 `json:"median,omitempty"`
	Q1         *float64 `json:"q1,omitempty"`
	Q3         *float64 `json:"q3,omitempty"`
	LowerFence *float64 `json:"lower_fence,omitempty"`
	UpperFence *float64 `json:"upper_fence,omitempty"`

	OutlierIndices []int `json:"outlier_indices"`

	Mode *string `json:"mode,omitempty"`

	PaddedCount       int `json:"padded_count"`
	CaseVariantCount  int `json:"case_variant_count"`
	InconsistentCount int `json:"inconsistent_count"`

	Storage        core.Storage `json:"storage"`
	OptimalStorage core.Storage `json:"optimal_storage"`
	EstimatedBytes int64        `json:"estimated_bytes"`
	OptimalBytes   int64        `json:"optimal_bytes"`

	SampleValues []string `json:"sample_values"`
}

// EffectiveType is the declared type when known, the inferred type otherwise.
func (cp ColumnProfile) EffectiveType() core.LogicalType {
	if cp.DeclaredType != core.TypeUnknown && cp.DeclaredType != "" {
		return cp.DeclaredType
	}
	return cp.InferredType
}

// MissingFraction returns missing_count / row_count, or 0 for an empty column.
func (cp ColumnProfile) MissingFraction() float64 {
	return ratio(cp.MissingCount, cp.RowCount)
}

// Profiler computes column profiles.
type Profiler struct {
	cfg         Config
	sentinels   map[string]struct{}
	trueTokens  map[string]struct{}
	falseTokens map[string]struct{}
}

// New creates a profiler from an immutable configuration.
func New(cfg Config) *Profiler {
	return &Profiler{
		cfg:         cfg,
		sentinels:   tokenSet(cfg.Sentinels, false),
		trueTokens:  tokenSet(cfg.TrueTokens, true),
		falseTokens: tokenSet(cfg.FalseTokens, true),
	}
}

// Config returns the profiler configuration.
func (p *Profiler) Config() Config { return p.cfg }

func (p *Profiler) workers() int {
	if p.cfg.Workers > 0 {
		return p.cfg.Workers
	}
	return runtime.NumCPU()
}

// Profile computes one profile per column. Columns are profiled concurrently;
// the result is in column order.
func (p *Profiler) Profile(ds *core.Dataset) []ColumnProfile {
	profiles := make([]ColumnProfile, len(ds.Columns))

	var g errgroup.Group
	g.SetLimit(p.workers())
	for i, col := range ds.Columns {
		g.Go(func() error {
			profiles[i] = p.ProfileColumn(col)
			return nil
		})
	}
	_ = g.Wait()

	return profiles
}

// ProfileColumn computes the profile of a single column.
func (p *Profiler) ProfileColumn(col *core.Column) ColumnProfile {
	cp := ColumnProfile{
		Name:           col.Name,
		DeclaredType:   col.Type,
		RowCount:       col.Len(),
		Storage:        col.Storage,
		OutlierIndices: []int{},
		SampleValues:   []string{},
	}
	if cp.DeclaredType == "" {
		cp.DeclaredType = core.TypeUnknown
	}
	if cp.Storage == "" {
		cp.Storage = core.StorageString
	}

	present := make([]int, 0, col.Len())
	counts := make(map[string]int)
	for i, v := range col.Values {
		if p.IsMissing(v) {
			cp.MissingCount++
			if !v.Null {
				cp.SentinelCount++
			}
			continue
		}
		present = append(present, i)
		if counts[v.Str] == 0 && len(cp.SampleValues) < p.cfg.SampleSize {
			cp.SampleValues = append(cp.SampleValues, v.Str)
		}
		counts[v.Str]++
	}
	cp.NonMissingCount = len(present)
	cp.UniqueCount = len(counts)
	cp.DuplicateValueCount = cp.NonMissingCount - cp.UniqueCount
	cp.Mode = mode(counts)

	cp.InferredType = p.infer(col, present, cp.UniqueCount)
	effective := cp.EffectiveType()

	p.conformance(&cp, col, present, effective)
	if effective == core.TypeNumeric {
		p.numericStats(&cp, col, present)
	}
	if effective.Textual() {
		textConsistency(&cp, col, present)
	}
	p.storage(&cp, col, present, counts, effective)

	return cp
}

// infer applies the type inference rules in order: numeric, datetime, boolean,
// then categorical or text by unique ratio.
func (p *Profiler) infer(col *core.Column, present []int, unique int) core.LogicalType {
	if len(present) == 0 {
		return core.TypeUnknown
	}
	var numeric, datetime int
	boolean := true
	for _, i := range present {
		s := col.Values[i].Str
		if _, ok := p.ParseNumber(s); ok {
			numeric++
		}
		if _, ok := p.ParseTime(s); ok {
			datetime++
		}
		if boolean {
			_, boolean = p.ParseBool(s)
		}
	}
	n := float64(len(present))
	switch {
	case float64(numeric) >= p.cfg.NumericRatio*n:
		return core.TypeNumeric
	case float64(datetime) >= p.cfg.DatetimeRatio*n:
		return core.TypeDatetime
	case boolean:
		return core.TypeBoolean
	case ratio(unique, col.Len()) <= p.cfg.CategoricalRatio:
		return core.TypeCategorical
	}
	return core.TypeText
}

func (p *Profiler) conformance(cp *ColumnProfile, col *core.Column, present []int, typ core.LogicalType) {
	if typ != core.TypeNumeric && typ != core.TypeDatetime && typ != core.TypeBoolean {
		return
	}
	for _, i := range present {
		s := col.Values[i].Str
		canon, ok := p.Canonical(typ, s)
		switch {
		case !ok:
			cp.InvalidCount++
			cp.NonconformingCount++
		case s != strings.TrimSpace(s):
			cp.NonconformingCount++
			cp.NoncanonicalCount++
		case canon != s:
			cp.NoncanonicalCount++
		}
	}
}

func (p *Profiler) numericStats(cp *ColumnProfile, col *core.Column, present []int) {
	values := make([]float64, 0, len(present))
	rows := make([]int, 0, len(present))
	for _, i := range present {
		if f, ok := p.ParseNumber(col.Values[i].Str); ok {
			values = append(values, f)
			rows = append(rows, i)
		}
	}
	if len(values) == 0 {
		return
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	cp.Min = ptr(floats.Min(values))
	cp.Max = ptr(floats.Max(values))
	cp.Mean = ptr(stat.Mean(values, nil))
	cp.Median = ptr(Quantile(sorted, 0.5))

	if len(sorted) < p.cfg.MinOutlierSample {
		return
	}
	q1, q3 := Quantile(sorted, 0.25), Quantile(sorted, 0.75)
	lower, upper := Fences(q1, q3, p.cfg.IQRMultiplier)
	cp.Q1, cp.Q3 = ptr(q1), ptr(q3)
	cp.LowerFence, cp.UpperFence = ptr(lower), ptr(upper)
	for j, v := range values {
		if v < lower || v > upper {
			cp.OutlierIndices = append(cp.OutlierIndices, rows[j])
		}
	}
}

// textConsistency counts padded values and case variants. A case variant is a
// value whose trimmed, lower-cased form is shared with a differently spelled value.
func textConsistency(cp *ColumnProfile, col *core.Column, present []int) {
	spellings := make(map[string]map[string]struct{})
	for _, i := range present {
		s := col.Values[i].Str
		trimmed := strings.TrimSpace(s)
		key := strings.ToLower(trimmed)
		if spellings[key] == nil {
			spellings[key] = make(map[string]struct{})
		}
		spellings[key][trimmed] = struct{}{}
	}
	for _, i := range present {
		s := col.Values[i].Str
		trimmed := strings.TrimSpace(s)
		padded := s != trimmed
		variant := len(spellings[strings.ToLower(trimmed)]) > 1
		if padded {
			cp.PaddedCount++
		}
		if variant {
			cp.CaseVariantCount++
		}
		if padded || variant {
			cp.InconsistentCount++
		}
	}
}

func mode(counts map[string]int) *string {
	if len(counts) == 0 {
		return nil
	}
	var best string
	bestCount := -1
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return &best
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func ptr(f float64) *float64 { return &f }

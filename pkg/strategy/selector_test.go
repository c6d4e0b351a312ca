package strategy

import (
	"testing"

	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/profile"
	"github.com/TFMV/scour/pkg/quality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plan(t *testing.T, ds *core.Dataset, suggestions Suggestions, cfg Config) Plan {
	t.Helper()
	require.NoError(t, ds.Validate())
	p := profile.New(profile.DefaultConfig())
	profiles := p.Profile(ds)
	a := quality.NewScorer(quality.DefaultWeights(), quality.DefaultThresholds()).Score(profiles, ds)
	return NewSelector(cfg, p, nil).Select(a.Issues, profiles, suggestions)
}

func ageDataset() *core.Dataset {
	age := &core.Column{Name: "age", Type: core.TypeNumeric, Storage: core.StorageFloat64, Values: []core.Value{
		core.Text("25"), core.NullValue(), core.Text("30"), core.NullValue(), core.Text("40"),
	}}
	return core.NewDataset("people", age)
}

func findStrategy(p Plan, kind quality.IssueKind, column string) (Strategy, bool) {
	for _, st := range p.Strategies {
		if st.IssueKind == kind && st.Column == column {
			return st, true
		}
	}
	return Strategy{}, false
}

func TestHeuristicMissingNumeric(t *testing.T) {
	p := plan(t, ageDataset(), nil, DefaultConfig())

	st, ok := findStrategy(p, quality.MissingValues, "age")
	require.True(t, ok)
	assert.Equal(t, []Action{{Kind: ImputeMedian}}, st.Actions)
	assert.Equal(t, SourceHeuristic, st.Source)
	assert.Empty(t, p.Warnings)
}

func TestHeuristicTable(t *testing.T) {
	ds := core.NewDataset("mixed",
		core.NewColumn("city", core.TypeCategorical, "Oslo", "", "Oslo", "Rome", "Rome", "Oslo"),
		core.NewColumn("when", core.TypeDatetime, "2024-01-01", "2024-01-02", "", "2024-01-04", "2024-01-05", "2024-01-06"),
		core.NewColumn("note", core.TypeText, "alpha", "beta", "gamma", "", "delta", "epsilon"),
		core.NewColumn("dept", core.TypeCategorical, " IT", "it", "HR", "HR", "HR", "HR"),
		core.NewColumn("v", core.TypeNumeric, "10", "12", "11", "13", "9", "200"),
	)
	p := plan(t, ds, nil, DefaultConfig())

	cases := []struct {
		kind    quality.IssueKind
		column  string
		actions []Action
	}{
		{quality.MissingValues, "city", []Action{{Kind: ImputeMode}}},
		{quality.MissingValues, "when", []Action{{Kind: ImputeForwardFill}}},
		{quality.MissingValues, "note", []Action{{Kind: ImputeConstant, Value: "Unknown"}}},
		{quality.TextInconsistency, "dept", []Action{{Kind: TrimWhitespace}, {Kind: NormalizeCase, Case: CaseLower}}},
		{quality.Outliers, "v", []Action{{Kind: CapOutliers, Bounds: &Bounds{Lower: 6.5, Upper: 16.5}}}},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind)+"/"+tc.column, func(t *testing.T) {
			st, ok := findStrategy(p, tc.kind, tc.column)
			require.True(t, ok)
			assert.Equal(t, tc.actions, st.Actions)
		})
	}
}

func TestDuplicateRowsHeuristic(t *testing.T) {
	ds := core.NewDataset("dups",
		core.NewColumn("letter", core.TypeText, "A", "B", "A"),
		core.NewColumn("number", core.TypeNumeric, "1", "2", "1"),
	)
	p := plan(t, ds, nil, DefaultConfig())

	st, ok := findStrategy(p, quality.DuplicateRows, "")
	require.True(t, ok)
	assert.Equal(t, []Action{{Kind: DropRows}}, st.Actions)
}

func TestUndeclaredColumnIsCoerced(t *testing.T) {
	ds := core.NewDataset("raw", core.NewColumn("n", core.TypeUnknown, "1", "2", "3"))
	p := plan(t, ds, nil, DefaultConfig())

	st, ok := findStrategy(p, quality.TypeMismatch, "n")
	require.True(t, ok)
	assert.Equal(t, []Action{{Kind: CoerceType, Target: core.TypeNumeric}, {Kind: Downcast}}, st.Actions)
}

func TestCoercionFillsInvalidValues(t *testing.T) {
	ds := core.NewDataset("raw", core.NewColumn("x", core.TypeNumeric, "1", "2", "abc", "4"))
	p := plan(t, ds, nil, DefaultConfig())

	_, ok := findStrategy(p, quality.MissingValues, "x")
	assert.False(t, ok)
	st, ok := findStrategy(p, quality.TypeMismatch, "x")
	require.True(t, ok)
	assert.Equal(t, []Action{{Kind: CoerceType, Target: core.TypeNumeric}, {Kind: ImputeMedian}, {Kind: Downcast}}, st.Actions)
}

func TestCoercionToTextIsNotDowncast(t *testing.T) {
	ds := core.NewDataset("raw", core.NewColumn("city", core.TypeUnknown, "Oslo", "Lima", "Rome"))
	p := plan(t, ds, nil, DefaultConfig())

	st, ok := findStrategy(p, quality.TypeMismatch, "city")
	require.True(t, ok)
	assert.Equal(t, []Action{{Kind: CoerceType, Target: core.TypeText}}, st.Actions)
}

func TestRejectedSuggestionFallsBack(t *testing.T) {
	p := plan(t, ageDataset(), Suggestions{"age": {Action: "DeleteEverything"}}, DefaultConfig())

	st, ok := findStrategy(p, quality.MissingValues, "age")
	require.True(t, ok)
	assert.Equal(t, ImputeMedian, st.Actions[0].Kind)
	assert.Equal(t, SourceHeuristic, st.Source)

	require.Len(t, p.Warnings, 1)
	assert.Equal(t, "age", p.Warnings[0].Column)
	assert.Contains(t, p.Warnings[0].Message, "DeleteEverything")
	assert.Contains(t, p.Warnings[0].Message, "ImputeMedian")
}

func TestAcceptedSuggestionWins(t *testing.T) {
	sug := Suggestions{"age": {Action: "impute_constant", Params: map[string]any{"value": 18}}}
	p := plan(t, ageDataset(), sug, DefaultConfig())

	st, ok := findStrategy(p, quality.MissingValues, "age")
	require.True(t, ok)
	assert.Equal(t, SourceSuggestion, st.Source)
	assert.Equal(t, []Action{{Kind: ImputeConstant, Value: "18"}}, st.Actions)
	assert.Empty(t, p.Warnings)
}

func TestSuggestionValidation(t *testing.T) {
	tests := []struct {
		name string
		sug  Suggestion
	}{
		{"incompatible constant", Suggestion{Action: "ImputeConstant", Params: map[string]any{"value": "old"}}},
		{"missing constant", Suggestion{Action: "ImputeConstant"}},
		{"bad coercion target", Suggestion{Action: "CoerceType", Params: map[string]any{"type": "blob"}}},
		{"inverted bounds", Suggestion{Action: "CapOutliers", Params: map[string]any{"lower": 10, "upper": 1}}},
		{"no matching issue", Suggestion{Action: "TrimWhitespace"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := plan(t, ageDataset(), Suggestions{"age": tt.sug}, DefaultConfig())
			require.Len(t, p.Warnings, 1)
			st, ok := findStrategy(p, quality.MissingValues, "age")
			require.True(t, ok)
			assert.Equal(t, SourceHeuristic, st.Source)
		})
	}
}

func TestUnknownColumnSuggestion(t *testing.T) {
	p := plan(t, ageDataset(), Suggestions{"salary": {Action: "ImputeMean"}}, DefaultConfig())
	require.Len(t, p.Warnings, 1)
	assert.Equal(t, "salary", p.Warnings[0].Column)
}

func TestOverrideBeatsSuggestion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Overrides = Suggestions{"age": {Action: "ImputeMean"}}
	sug := Suggestions{"age": {Action: "ImputeMode"}}
	p := plan(t, ageDataset(), sug, cfg)

	st, ok := findStrategy(p, quality.MissingValues, "age")
	require.True(t, ok)
	assert.Equal(t, SourceOverride, st.Source)
	assert.Equal(t, ImputeMean, st.Actions[0].Kind)
}

func TestDropColumnSuppressesOtherStrategies(t *testing.T) {
	ds := core.NewDataset("sparse",
		core.NewColumn("id", core.TypeNumeric, "1", "2", "3", "4"),
		core.NewColumn("ghost", core.TypeUnknown, "", "", "", ""),
	)
	sug := Suggestions{"id": {Action: "DropColumn"}}
	p := plan(t, ds, sug, DefaultConfig())

	st, ok := findStrategy(p, quality.MissingValues, "ghost")
	require.True(t, ok)
	assert.Equal(t, DropColumn, st.Actions[0].Kind)

	for _, st := range p.Strategies {
		if st.Column == "id" {
			assert.Equal(t, DropColumn, st.Actions[0].Kind)
		}
	}
}

func TestParseActionKind(t *testing.T) {
	for _, name := range []string{"ImputeMedian", "impute_median", "impute-median", "Impute Median"} {
		kind, ok := ParseActionKind(name)
		assert.True(t, ok, name)
		assert.Equal(t, ImputeMedian, kind)
	}
	_, ok := ParseActionKind("DeleteEverything")
	assert.False(t, ok)
}

func TestSelectIsDeterministic(t *testing.T) {
	sug := Suggestions{"age": {Action: "Nope"}, "zzz": {Action: "Nope"}, "aaa": {Action: "Nope"}}
	first := plan(t, ageDataset(), sug, DefaultConfig())
	second := plan(t, ageDataset(), sug, DefaultConfig())
	assert.Equal(t, first, second)
	require.Len(t, first.Warnings, 3)
	assert.Equal(t, "aaa", first.Warnings[0].Column)
}

package clean

import (
	"testing"

	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/profile"
	"github.com/TFMV/scour/pkg/quality"
	"github.com/TFMV/scour/pkg/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCleaner() (*Cleaner, *profile.Profiler) {
	p := profile.New(profile.DefaultConfig())
	return New(DefaultConfig(), p, nil), p
}

// selectHeuristics runs the profiler, scorer and selector with default settings.
func selectHeuristics(t *testing.T, p *profile.Profiler, ds *core.Dataset) []strategy.Strategy {
	t.Helper()
	profiles := p.Profile(ds)
	a := quality.NewScorer(quality.DefaultWeights(), quality.DefaultThresholds()).Score(profiles, ds)
	return strategy.NewSelector(strategy.DefaultConfig(), p, nil).Select(a.Issues, profiles, nil).Strategies
}

func values(col *core.Column) []string {
	out := make([]string, col.Len())
	for i, v := range col.Values {
		out[i] = v.String()
	}
	return out
}

func TestEveryActionHasHandler(t *testing.T) {
	for _, kind := range strategy.ActionKinds {
		_, ok := handlers[kind]
		assert.True(t, ok, "no handler for %s", kind)
	}
}

func TestImputeMedian(t *testing.T) {
	c, _ := newTestCleaner()
	age := &core.Column{Name: "age", Type: core.TypeNumeric, Storage: core.StorageFloat64, Values: []core.Value{
		core.Text("25"), core.NullValue(), core.Text("30"), core.NullValue(), core.Text("40"),
	}}
	ds := core.NewDataset("people", age)

	out, log, err := c.Apply(ds, []strategy.Strategy{{
		IssueKind: quality.MissingValues,
		Column:    "age",
		Actions:   []strategy.Action{{Kind: strategy.ImputeMedian}},
		Source:    strategy.SourceHeuristic,
	}})
	require.NoError(t, err)
	require.Len(t, log, 1)

	assert.Equal(t, 2, log[0].RowsAffected)
	assert.Equal(t, "30", log[0].Before.Fill)
	assert.Equal(t, 2, log[0].Before.Missing)
	assert.Equal(t, 0, log[0].After.Missing)
	col, _ := out.Column("age")
	assert.Equal(t, []string{"25", "30", "30", "30", "40"}, values(col))

	// the input is untouched
	assert.True(t, ds.Columns[0].Values[1].Null)
}

func TestImputeMean(t *testing.T) {
	c, _ := newTestCleaner()
	ds := core.NewDataset("readings", core.NewColumn("v", core.TypeNumeric, "1", "", "2", "6"))

	out, log, err := c.Apply(ds, []strategy.Strategy{{
		IssueKind: quality.MissingValues,
		Column:    "v",
		Actions:   []strategy.Action{{Kind: strategy.ImputeMean}},
	}})
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "3", log[0].Before.Fill)
	assert.Equal(t, 1.0, *log[0].After.Min)
	assert.Equal(t, 6.0, *log[0].After.Max)

	col, _ := out.Column("v")
	assert.Equal(t, []string{"1", "3", "2", "6"}, values(col))
}

func TestDropDuplicateRows(t *testing.T) {
	c, p := newTestCleaner()
	ds := core.NewDataset("dups",
		core.NewColumn("letter", core.TypeText, "A", "B", "A"),
		core.NewColumn("number", core.TypeNumeric, "1", "2", "1"),
	)

	out, log, err := c.Apply(ds, selectHeuristics(t, p, ds))
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, 1, log.RowsRemoved())
	assert.Equal(t, strategy.DropRows, log[0].Action.Kind)
	letters, _ := out.Column("letter")
	assert.Equal(t, []string{"A", "B"}, values(letters))
}

func TestCapOutliers(t *testing.T) {
	c, p := newTestCleaner()
	ds := core.NewDataset("v", core.NewColumn("v", core.TypeNumeric, "10", "12", "11", "13", "9", "200"))

	out, log, err := c.Apply(ds, selectHeuristics(t, p, ds))
	require.NoError(t, err)

	var capped *ChangeLogEntry
	for i := range log {
		if log[i].Action.Kind == strategy.CapOutliers {
			capped = &log[i]
		}
	}
	require.NotNil(t, capped)
	assert.Equal(t, 1, capped.RowsAffected)
	col, _ := out.Column("v")
	assert.Equal(t, "16.5", col.Values[5].Str)
	assert.Equal(t, core.StorageFloat32, col.Storage)
}

func TestCoercePreconditionIsNoop(t *testing.T) {
	c, _ := newTestCleaner()
	ds := core.NewDataset("words", core.NewColumn("w", core.TypeText, "one", "two", "3"))

	out, log, err := c.Apply(ds, []strategy.Strategy{{
		IssueKind: quality.TypeMismatch,
		Column:    "w",
		Actions:   []strategy.Action{{Kind: strategy.CoerceType, Target: core.TypeNumeric}},
		Source:    strategy.SourceSuggestion,
	}})
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, 0, log[0].RowsAffected)
	assert.NotEmpty(t, log[0].Warning)
	assert.Len(t, log.Warnings(), 1)

	col, _ := out.Column("w")
	assert.Equal(t, core.TypeText, col.Type)
	assert.Equal(t, []string{"one", "two", "3"}, values(col))
}

func TestCoerceCanonicalises(t *testing.T) {
	c, _ := newTestCleaner()
	col := core.NewColumn("n", core.TypeUnknown, " 1", "2.50", "N/A", "3")
	for i := 0; i < 36; i++ {
		col.Values = append(col.Values, core.Text("4"))
	}
	col.Values = append(col.Values, core.Text("bad"))
	ds := core.NewDataset("n", col)

	out, log, err := c.Apply(ds, []strategy.Strategy{{
		IssueKind: quality.TypeMismatch,
		Column:    "n",
		Actions:   []strategy.Action{{Kind: strategy.CoerceType, Target: core.TypeNumeric}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 4, log[0].RowsAffected)

	got, _ := out.Column("n")
	assert.Equal(t, core.TypeNumeric, got.Type)
	assert.Equal(t, core.StorageFloat64, got.Storage)
	assert.Equal(t, "1", got.Values[0].Str)
	assert.Equal(t, "2.5", got.Values[1].Str)
	assert.True(t, got.Values[2].Null)
	assert.True(t, got.Values[40].Null)
}

func TestEveryActionIsLogged(t *testing.T) {
	c, _ := newTestCleaner()
	ds := core.NewDataset("d", core.NewColumn("x", core.TypeText, "a", "b"))

	_, log, err := c.Apply(ds, []strategy.Strategy{
		{IssueKind: quality.TextInconsistency, Column: "x", Actions: []strategy.Action{{Kind: strategy.TrimWhitespace}, {Kind: strategy.NormalizeCase, Case: strategy.CaseUpper}}},
		{IssueKind: quality.MissingValues, Column: "missing", Actions: []strategy.Action{{Kind: strategy.ImputeMode}}},
	})
	require.NoError(t, err)
	require.Len(t, log, 3)
	assert.Equal(t, 0, log[0].RowsAffected)
	assert.Equal(t, 2, log[1].RowsAffected)
	assert.NotEmpty(t, log[2].Warning)
}

func TestApplicationOrder(t *testing.T) {
	c, _ := newTestCleaner()
	ds := core.NewDataset("d",
		core.NewColumn("a", core.TypeText, " x", "y", " x"),
		core.NewColumn("b", core.TypeUnknown, "1", "", "1"),
	)
	strategies := []strategy.Strategy{
		{IssueKind: quality.MemoryInefficiency, Column: "b", Actions: []strategy.Action{{Kind: strategy.Downcast}}},
		{IssueKind: quality.MissingValues, Column: "b", Actions: []strategy.Action{{Kind: strategy.ImputeMedian}}},
		{IssueKind: quality.TypeMismatch, Column: "b", Actions: []strategy.Action{{Kind: strategy.CoerceType, Target: core.TypeNumeric}}},
		{IssueKind: quality.TextInconsistency, Column: "a", Actions: []strategy.Action{{Kind: strategy.TrimWhitespace}}},
		{IssueKind: quality.DuplicateRows, Actions: []strategy.Action{{Kind: strategy.DropRows}}},
	}

	out, log, err := c.Apply(ds, strategies)
	require.NoError(t, err)

	kinds := make([]strategy.ActionKind, len(log))
	for i, e := range log {
		kinds[i] = e.Action.Kind
	}
	assert.Equal(t, []strategy.ActionKind{
		strategy.DropRows,
		strategy.TrimWhitespace,
		strategy.CoerceType,
		strategy.ImputeMedian,
		strategy.Downcast,
	}, kinds)

	assert.Equal(t, 2, out.NumRows())
	b, _ := out.Column("b")
	assert.Equal(t, []string{"1", "1"}, values(b))
	assert.Equal(t, core.StorageUint8, b.Storage)
}

func TestForwardAndBackwardFill(t *testing.T) {
	c, _ := newTestCleaner()
	col := core.NewColumn("d", core.TypeDatetime, "", "2024-01-01", "", "2024-01-03", "")
	ds := core.NewDataset("d", col)

	out, log, err := c.Apply(ds, []strategy.Strategy{{
		IssueKind: quality.MissingValues, Column: "d",
		Actions: []strategy.Action{{Kind: strategy.ImputeForwardFill}, {Kind: strategy.ImputeBackwardFill}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, log[0].RowsAffected)
	assert.Equal(t, 1, log[1].RowsAffected)
	got, _ := out.Column("d")
	assert.Equal(t, []string{"2024-01-01", "2024-01-01", "2024-01-01", "2024-01-03", "2024-01-03"}, values(got))
}

func TestRemoveOutlierRows(t *testing.T) {
	c, _ := newTestCleaner()
	ds := core.NewDataset("v",
		core.NewColumn("v", core.TypeNumeric, "10", "12", "200", "11"),
		core.NewColumn("k", core.TypeText, "a", "b", "c", "d"),
	)
	out, log, err := c.Apply(ds, []strategy.Strategy{{
		IssueKind: quality.Outliers, Column: "v",
		Actions: []strategy.Action{{Kind: strategy.RemoveOutlierRows, Bounds: &strategy.Bounds{Lower: 0, Upper: 100}}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, log.RowsRemoved())
	k, _ := out.Column("k")
	assert.Equal(t, []string{"a", "b", "d"}, values(k))
}

func TestDropColumn(t *testing.T) {
	c, _ := newTestCleaner()
	ds := core.NewDataset("d",
		core.NewColumn("keep", core.TypeText, "a", "b"),
		core.NewColumn("ghost", core.TypeUnknown, "", ""),
	)
	out, log, err := c.Apply(ds, []strategy.Strategy{{
		IssueKind: quality.MissingValues, Column: "ghost",
		Actions: []strategy.Action{{Kind: strategy.DropColumn}},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, out.ColumnNames())
	assert.Equal(t, []string{"ghost"}, log.ColumnsDropped())
	assert.Equal(t, 2, ds.NumCols())
}

func dirtyDataset() *core.Dataset {
	return core.NewDataset("employees",
		core.NewColumn("name", core.TypeUnknown, "Ann", "Bob", "Cid", "Dee", "Eve", "Bob", "Fay", "Gus"),
		core.NewColumn("age", core.TypeUnknown, "34", "", "29", "41", "N/A", "", "38", "120"),
		core.NewColumn("dept", core.TypeUnknown, "IT", " HR", "it", "HR", "IT", " HR", "Ops", "IT"),
		core.NewColumn("joined", core.TypeUnknown, "2020-01-05", "2019-03-01", "", "2021-07-19", "2018-11-30", "2019-03-01", "2022-02-02", "2020-10-10"),
		core.NewColumn("remote", core.TypeUnknown, "yes", "no", "no", "", "yes", "no", "yes", "no"),
	)
}

// collidingDatasets hold rows that only become identical once cleaned.
func collidingDatasets() []*core.Dataset {
	return []*core.Dataset{
		core.NewDataset("case_variants",
			core.NewColumn("name", core.TypeUnknown, "Alice", "alice", "Bob", "Bob"),
		),
		core.NewDataset("padding",
			core.NewColumn("dept", core.TypeUnknown, "IT", " IT", "HR", "HR"),
		),
		core.NewDataset("sentinel_and_null",
			core.NewColumn("k", core.TypeUnknown, "a", "a", "b", "b"),
			core.NewColumn("v", core.TypeUnknown, "N/A", "", "7", "7"),
		),
	}
}

func score(p *profile.Profiler, ds *core.Dataset) float64 {
	return quality.NewScorer(quality.DefaultWeights(), quality.DefaultThresholds()).Score(p.Profile(ds), ds).Score
}

func TestSecondPassIsNoop(t *testing.T) {
	for _, ds := range append([]*core.Dataset{dirtyDataset()}, collidingDatasets()...) {
		t.Run(ds.Name, func(t *testing.T) {
			c, p := newTestCleaner()
			strategies := selectHeuristics(t, p, ds)

			cleaned, first, err := c.Apply(ds, strategies)
			require.NoError(t, err)
			require.NotEmpty(t, first.Effective())

			_, second, err := c.Apply(cleaned, strategies)
			require.NoError(t, err)
			assert.Empty(t, second.Effective(), "second pass changed rows: %+v", second.Effective())
			assert.GreaterOrEqual(t, score(p, cleaned), score(p, ds))
		})
	}
}

func TestDuplicatesCreatedByCleaningAreDropped(t *testing.T) {
	c, p := newTestCleaner()
	ds := collidingDatasets()[0]

	cleaned, log, err := c.Apply(ds, selectHeuristics(t, p, ds))
	require.NoError(t, err)

	col, _ := cleaned.Column("name")
	require.NotNil(t, col)
	assert.Equal(t, []string{"alice", "bob"}, values(col))

	require.Equal(t, strategy.DropRows, log[0].Action.Kind)
	assert.Equal(t, quality.DuplicateRows, log[0].IssueKind)
	assert.Equal(t, 2, log[0].RowsRemoved)
	assert.Equal(t, 2, log[0].After.Rows)
	assert.Equal(t, ds.NumRows()-log.RowsRemoved(), cleaned.NumRows())
	assert.InDelta(t, 1.0, score(p, cleaned), 1e-12)
}

func TestSentinelAndNullCollide(t *testing.T) {
	c, p := newTestCleaner()
	ds := collidingDatasets()[2]

	cleaned, log, err := c.Apply(ds, selectHeuristics(t, p, ds))
	require.NoError(t, err)
	require.Equal(t, 2, cleaned.NumRows())

	k, _ := cleaned.Column("k")
	v, _ := cleaned.Column("v")
	assert.Equal(t, []string{"a", "b"}, values(k))
	assert.Equal(t, []string{"7", "7"}, values(v))
	assert.Equal(t, 2, log.RowsRemoved())
}

func TestRowCountInvariant(t *testing.T) {
	c, p := newTestCleaner()
	ds := dirtyDataset()

	cleaned, log, err := c.Apply(ds, selectHeuristics(t, p, ds))
	require.NoError(t, err)
	assert.LessOrEqual(t, cleaned.NumRows(), ds.NumRows())
	assert.Equal(t, ds.NumRows()-log.RowsRemoved(), cleaned.NumRows())
}

func TestApplyIsDeterministic(t *testing.T) {
	c, p := newTestCleaner()
	strategies := selectHeuristics(t, p, dirtyDataset())

	a, logA, err := c.Apply(dirtyDataset(), strategies)
	require.NoError(t, err)
	b, logB, err := c.Apply(dirtyDataset(), strategies)
	require.NoError(t, err)
	assert.Equal(t, logA, logB)
	assert.Equal(t, a, b)
}

func TestApplyRejectsMalformedInput(t *testing.T) {
	c, _ := newTestCleaner()
	ds := core.NewDataset("bad",
		core.NewColumn("a", core.TypeText, "x", "y"),
		core.NewColumn("b", core.TypeText, "x"),
	)
	_, _, err := c.Apply(ds, nil)
	assert.ErrorIs(t, err, core.ErrMalformedInput)
}

package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/TFMV/scour/pkg/clean"
	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/diff"
	"github.com/TFMV/scour/pkg/profile"
	"github.com/TFMV/scour/pkg/quality"
	"github.com/TFMV/scour/pkg/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	profiler *profile.Profiler
	scorer   *quality.Scorer
}

func newFixture() fixture {
	return fixture{
		profiler: profile.New(profile.DefaultConfig()),
		scorer:   quality.NewScorer(quality.DefaultWeights(), quality.DefaultThresholds()),
	}
}

// run cleans ds with heuristic strategies and builds its report.
func (f fixture) run(t *testing.T, ds *core.Dataset) (*QualityReport, clean.ChangeLog) {
	t.Helper()
	profiles := f.profiler.Profile(ds)
	pre := f.scorer.Score(profiles, ds)
	plan := strategy.NewSelector(strategy.DefaultConfig(), f.profiler, nil).Select(pre.Issues, profiles, nil)
	cleaned, log, err := clean.New(clean.DefaultConfig(), f.profiler, nil).Apply(ds, plan.Strategies)
	require.NoError(t, err)

	r, _, _ := NewBuilder(f.profiler, f.scorer).Build(pre, profiles, ds.NumRows(), cleaned, log, plan.Warnings)
	return r, log
}

func ageDataset() *core.Dataset {
	age := &core.Column{Name: "age", Type: core.TypeNumeric, Storage: core.StorageFloat64, Values: []core.Value{
		core.Text("25"), core.NullValue(), core.Text("30"), core.NullValue(), core.Text("40"),
	}}
	return core.NewDataset("people", age)
}

func hasIssue(issues []quality.Issue, kind quality.IssueKind, column string) bool {
	for _, issue := range issues {
		if issue.Kind == kind && issue.Column == column {
			return true
		}
	}
	return false
}

func TestBuildResolvesMissingValues(t *testing.T) {
	r, _ := newFixture().run(t, ageDataset())

	assert.Equal(t, "people", r.Dataset)
	assert.True(t, hasIssue(r.IssuesResolved, quality.MissingValues, "age"))
	assert.False(t, hasIssue(r.IssuesRemaining, quality.MissingValues, "age"))
	assert.GreaterOrEqual(t, r.PostScore, r.PreScore)
	assert.Equal(t, 1.0, r.PostComponents.Completeness)

	require.Len(t, r.Columns, 1)
	assert.Equal(t, diff.Changed, r.Columns[0].Status)
	assert.Equal(t, diff.Pair[int]{Before: 2, After: 0}, r.Columns[0].Missing)
	assert.Equal(t, 5, r.Summary.RowsBefore)
	assert.Equal(t, 5, r.Summary.RowsAfter)
}

func TestBuildDoesNotMutateChangeLog(t *testing.T) {
	f := newFixture()
	ds := ageDataset()
	profiles := f.profiler.Profile(ds)
	pre := f.scorer.Score(profiles, ds)
	log := clean.ChangeLog{{Column: "age", IssueKind: quality.MissingValues, RowsAffected: 2}}
	snapshot := append(clean.ChangeLog{}, log...)

	r, _, _ := NewBuilder(f.profiler, f.scorer).Build(pre, profiles, 5, ds, log, nil)
	r.ChangeLog[0].RowsAffected = 99

	assert.Equal(t, snapshot, log)
}

func TestBuildIntroducedIssues(t *testing.T) {
	f := newFixture()
	cleaned := core.NewDataset("d", &core.Column{Name: "x", Type: core.TypeNumeric, Storage: core.StorageString, Values: []core.Value{
		core.Text("1"), core.NullValue(), core.Text("3"),
	}})
	pre := quality.Assessment{Score: 1, Components: quality.Components{Completeness: 1, Uniqueness: 1, Consistency: 1, DuplicateRows: 1}}

	r, postProfiles, post := NewBuilder(f.profiler, f.scorer).Build(pre, nil, 3, cleaned, nil, nil)

	assert.True(t, hasIssue(r.IssuesIntroduced, quality.MissingValues, "x"))
	assert.Empty(t, r.IssuesResolved)
	assert.Less(t, r.PostScore, r.PreScore)
	assert.Len(t, postProfiles, 1)
	assert.Equal(t, post.Score, r.PostScore)

	high := NewBuilder(f.profiler, f.scorer).WithMateriality(0.9)
	r, _, _ = high.Build(pre, nil, 3, cleaned, nil, nil)
	assert.False(t, hasIssue(r.IssuesIntroduced, quality.MissingValues, "x"))
}

func TestReportDeterminism(t *testing.T) {
	f := newFixture()
	a, _ := f.run(t, ageDataset())
	b, _ := f.run(t, ageDataset())

	ja, err := (&JSONReportGenerator{}).Generate(a)
	require.NoError(t, err)
	jb, err := (&JSONReportGenerator{}).Generate(b)
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb))
}

func TestJSONReportGenerator(t *testing.T) {
	r, _ := newFixture().run(t, ageDataset())

	data, err := (&JSONReportGenerator{}).Generate(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"pre_score", "post_score", "issues_resolved", "issues_remaining", "change_log", "columns"} {
		assert.Contains(t, decoded, key)
	}
}

func TestHTMLReportGenerator(t *testing.T) {
	r, _ := newFixture().run(t, ageDataset())

	html, err := (&HTMLReportGenerator{}).Generate(r)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Data Quality Report: people")
	assert.Contains(t, string(html), "ImputeMedian")
	assert.Contains(t, string(html), "resolved")
}

func TestSaveReports(t *testing.T) {
	r, _ := newFixture().run(t, ageDataset())
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "report.json")
	htmlPath := filepath.Join(dir, "report.html")

	require.NoError(t, SaveReports(r, jsonPath, htmlPath))
	_, err := os.Stat(htmlPath)
	assert.NoError(t, err)

	loaded, err := ReportFromFilePath(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, r.PreScore, loaded.PreScore)
	assert.Equal(t, len(r.ChangeLog), len(loaded.ChangeLog))

	require.NoError(t, SaveReports(r, "", ""))
}

func TestWriteSummary(t *testing.T) {
	r, _ := newFixture().run(t, ageDataset())

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, r))
	out := buf.String()
	assert.Contains(t, out, "Dataset:")
	assert.Contains(t, out, "people")
	assert.Contains(t, out, "ImputeMedian")

	header, rows := SummaryRows(r)
	assert.Equal(t, []string{"metric", "before", "after"}, header)
	assert.Equal(t, "score", rows[0][0])
}

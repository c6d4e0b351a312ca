package suggest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TFMV/scour/pkg/profile"
	"github.com/TFMV/scour/pkg/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYAML(t *testing.T) {
	s, err := Parse([]byte(`
Age:
  action: ImputeConstant
  params:
    value: 42
"*":
  action: drop_rows
dept:
  action: NormalizeCase
  params:
    case: title
`), FormatYAML)
	require.NoError(t, err)

	require.Len(t, s, 3)
	assert.Equal(t, "ImputeConstant", s["Age"].Action)
	assert.Equal(t, 42, s["Age"].Params["value"])
	assert.Equal(t, "drop_rows", s[strategy.DatasetScope].Action)
	assert.Equal(t, "title", s["dept"].Params["case"])
}

func TestParseJSON(t *testing.T) {
	s, err := Parse([]byte(`{"age": {"action": "CapOutliers", "params": {"lower": 0, "upper": 99.5}}}`), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 99.5, s["age"].Params["upper"])
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`[1, 2]`), FormatJSON)
	assert.Error(t, err)

	_, err = Parse(nil, Format("toml"))
	assert.ErrorContains(t, err, "unsupported suggestion format")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hints.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"age": {"action": "ImputeMedian"}}`), 0o644))

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ImputeMedian", s["age"].Action)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

type slowProvider struct{ delay time.Duration }

func (p slowProvider) Suggest(ctx context.Context, _ []profile.ColumnProfile) (strategy.Suggestions, error) {
	select {
	case <-time.After(p.delay):
		return strategy.Suggestions{"age": {Action: "ImputeMean"}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type failingProvider struct{}

func (failingProvider) Suggest(context.Context, []profile.ColumnProfile) (strategy.Suggestions, error) {
	return nil, errors.New("advisor unavailable")
}

func TestLookup(t *testing.T) {
	ctx := context.Background()

	s := Lookup(ctx, Static{"age": {Action: "ImputeMedian"}}, time.Second, nil, nil)
	assert.Equal(t, "ImputeMedian", s["age"].Action)

	assert.Nil(t, Lookup(ctx, slowProvider{delay: time.Second}, 10*time.Millisecond, nil, nil))
	assert.Nil(t, Lookup(ctx, failingProvider{}, time.Second, nil, nil))
	assert.Nil(t, Lookup(ctx, nil, time.Second, nil, nil))
}

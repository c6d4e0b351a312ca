package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/scour/pipeline"
	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/strategy"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scour.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultsMatchEngineDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	got, err := cfg.Pipeline()
	require.NoError(t, err)
	want := pipeline.DefaultConfig()
	want.Profile.Workers = 0

	assert.Equal(t, want.Profile, got.Profile)
	assert.Equal(t, want.Weights, got.Weights)
	assert.Equal(t, want.Materiality, got.Materiality)
	assert.Equal(t, want.Clean, got.Clean)
	assert.Equal(t, want.Strategy.TextFill, got.Strategy.TextFill)
	assert.Equal(t, want.Strategy.DropColumnMissingRatio, got.Strategy.DropColumnMissingRatio)
	assert.Equal(t, want.Thresholds.NearUniqueRatio, got.Thresholds.NearUniqueRatio)
	assert.Equal(t, "scour.log", cfg.Logging.File)
	assert.Equal(t, 5*time.Second, cfg.Suggestions.Timeout)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
scoring:
  materiality: 0.05
  weights:
    completeness: 1
    uniqueness: 0
    consistency: 0
    duplicate_rows: 0
key_columns: [CustomerID]
required_columns: [CustomerID, Age]
declared_types:
  CustomerID: text
  Age: numeric
overrides:
  Age:
    action: impute_constant
    params:
      value: 18
suggestions:
  timeout: 2s
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.05, cfg.Scoring.Materiality)
	assert.Equal(t, []string{"CustomerID"}, cfg.KeyColumns)
	assert.Equal(t, 2*time.Second, cfg.Suggestions.Timeout)

	types, err := cfg.LogicalTypes()
	require.NoError(t, err)
	assert.Equal(t, map[string]core.LogicalType{"CustomerID": core.TypeText, "Age": core.TypeNumeric}, types)

	require.Contains(t, cfg.Overrides, "Age")
	assert.Equal(t, "impute_constant", cfg.Overrides["Age"].Action)
	assert.EqualValues(t, 18, cfg.Overrides["Age"].Params["value"])

	pc, err := cfg.Pipeline()
	require.NoError(t, err)
	assert.Equal(t, []string{"CustomerID"}, pc.Thresholds.KeyColumns)
	assert.Equal(t, []string{"CustomerID"}, pc.Strategy.KeyColumns)
	assert.Contains(t, pc.Strategy.Overrides, "Age")
	assert.Equal(t, 1.0, pc.Weights.Completeness)
	assert.Equal(t, 0.0, pc.Weights.Uniqueness)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("SCOUR_SCORING_MATERIALITY", "0.2")
	t.Setenv("SCOUR_LOGGING_LEVEL", "debug")
	cfg, err := LoadConfig(writeConfig(t, "scoring:\n  materiality: 0.05\n"))
	require.NoError(t, err)
	assert.Equal(t, 0.2, cfg.Scoring.Materiality)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"numeric ratio", func(c *Config) { c.Profile.NumericRatio = 1.5 }},
		{"iqr multiplier", func(c *Config) { c.Profile.IQRMultiplier = 0 }},
		{"date layouts", func(c *Config) { c.Profile.DateLayouts = nil }},
		{"negative weight", func(c *Config) { c.Scoring.Weights.Uniqueness = -1 }},
		{"zero weights", func(c *Config) { c.Scoring.Weights = WeightsConfig{} }},
		{"materiality", func(c *Config) { c.Scoring.Materiality = 2 }},
		{"parse ratio", func(c *Config) { c.Cleaning.MinParseRatio = 0 }},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"declared type", func(c *Config) { c.DeclaredTypes = map[string]string{"a": "complex"} }},
		{"override action", func(c *Config) { c.Overrides = map[string]strategy.Suggestion{"a": {}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			cfg, err := LoadConfig("")
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// Package config loads scour.yaml through viper and turns it into the
// immutable values the engine stages are constructed with.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/TFMV/scour/pipeline"
	"github.com/TFMV/scour/pkg/clean"
	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/profile"
	"github.com/TFMV/scour/pkg/quality"
	"github.com/TFMV/scour/pkg/strategy"
)

// EnvPrefix prefixes environment overrides, e.g. SCOUR_SCORING_MATERIALITY.
const EnvPrefix = "SCOUR"

// --- Configuration Structs ---

type ProfileConfig struct {
	Sentinels        []string `mapstructure:"sentinels" yaml:"sentinels"`
	NumericRatio     float64  `mapstructure:"numeric_ratio" yaml:"numeric_ratio"`
	DatetimeRatio    float64  `mapstructure:"datetime_ratio" yaml:"datetime_ratio"`
	CategoricalRatio float64  `mapstructure:"categorical_ratio" yaml:"categorical_ratio"`
	IQRMultiplier    float64  `mapstructure:"iqr_multiplier" yaml:"iqr_multiplier"`
	MinOutlierSample int      `mapstructure:"min_outlier_sample" yaml:"min_outlier_sample"`
	SampleSize       int      `mapstructure:"sample_size" yaml:"sample_size"`
	DateLayouts      []string `mapstructure:"date_layouts" yaml:"date_layouts"`
	TrueTokens       []string `mapstructure:"true_tokens" yaml:"true_tokens"`
	FalseTokens      []string `mapstructure:"false_tokens" yaml:"false_tokens"`
	Workers          int      `mapstructure:"workers" yaml:"workers"`
}

type WeightsConfig struct {
	Completeness  float64 `mapstructure:"completeness" yaml:"completeness"`
	Uniqueness    float64 `mapstructure:"uniqueness" yaml:"uniqueness"`
	Consistency   float64 `mapstructure:"consistency" yaml:"consistency"`
	DuplicateRows float64 `mapstructure:"duplicate_rows" yaml:"duplicate_rows"`
}

type ScoringConfig struct {
	Weights                WeightsConfig `mapstructure:"weights" yaml:"weights"`
	NearUniqueRatio        float64       `mapstructure:"near_unique_ratio" yaml:"near_unique_ratio"`
	HighCardinalityRatio   float64       `mapstructure:"high_cardinality_ratio" yaml:"high_cardinality_ratio"`
	HighCardinalityMinRows int           `mapstructure:"high_cardinality_min_rows" yaml:"high_cardinality_min_rows"`
	UndeclaredTypeSeverity float64       `mapstructure:"undeclared_type_severity" yaml:"undeclared_type_severity"`
	Materiality            float64       `mapstructure:"materiality" yaml:"materiality"`
}

type CleaningConfig struct {
	DropColumnMissingRatio float64 `mapstructure:"drop_column_missing_ratio" yaml:"drop_column_missing_ratio"`
	TextFill               string  `mapstructure:"text_fill" yaml:"text_fill"`
	MinParseRatio          float64 `mapstructure:"min_parse_ratio" yaml:"min_parse_ratio"`
}

type SuggestionsConfig struct {
	File    string        `mapstructure:"file" yaml:"file"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

type ServerConfig struct {
	Port    string `mapstructure:"port" yaml:"port"`
	Prefork bool   `mapstructure:"prefork" yaml:"prefork"`
}

type MetricsConfig struct {
	// SummaryFile receives a JSON summary of the latest run when set.
	SummaryFile string `mapstructure:"summary_file" yaml:"summary_file"`
}

type Config struct {
	Profile     ProfileConfig     `mapstructure:"profile" yaml:"profile"`
	Scoring     ScoringConfig     `mapstructure:"scoring" yaml:"scoring"`
	Cleaning    CleaningConfig    `mapstructure:"cleaning" yaml:"cleaning"`
	Suggestions SuggestionsConfig `mapstructure:"suggestions" yaml:"suggestions"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`

	KeyColumns      []string `mapstructure:"key_columns" yaml:"key_columns"`
	RequiredColumns []string `mapstructure:"required_columns" yaml:"required_columns"`

	// DeclaredTypes maps column names to logical type names.
	DeclaredTypes map[string]string `mapstructure:"declared_types" yaml:"declared_types"`

	// Overrides are user strategies that win over suggestions and heuristics.
	Overrides map[string]strategy.Suggestion `mapstructure:"overrides" yaml:"overrides"`
}

// --- Load Configuration ---

func setDefaults(v *viper.Viper) {
	p := profile.DefaultConfig()
	v.SetDefault("profile.sentinels", p.Sentinels)
	v.SetDefault("profile.numeric_ratio", p.NumericRatio)
	v.SetDefault("profile.datetime_ratio", p.DatetimeRatio)
	v.SetDefault("profile.categorical_ratio", p.CategoricalRatio)
	v.SetDefault("profile.iqr_multiplier", p.IQRMultiplier)
	v.SetDefault("profile.min_outlier_sample", p.MinOutlierSample)
	v.SetDefault("profile.sample_size", p.SampleSize)
	v.SetDefault("profile.date_layouts", p.DateLayouts)
	v.SetDefault("profile.true_tokens", p.TrueTokens)
	v.SetDefault("profile.false_tokens", p.FalseTokens)
	v.SetDefault("profile.workers", 0)

	w := quality.DefaultWeights()
	v.SetDefault("scoring.weights.completeness", w.Completeness)
	v.SetDefault("scoring.weights.uniqueness", w.Uniqueness)
	v.SetDefault("scoring.weights.consistency", w.Consistency)
	v.SetDefault("scoring.weights.duplicate_rows", w.DuplicateRows)

	th := quality.DefaultThresholds()
	v.SetDefault("scoring.near_unique_ratio", th.NearUniqueRatio)
	v.SetDefault("scoring.high_cardinality_ratio", th.HighCardinalityRatio)
	v.SetDefault("scoring.high_cardinality_min_rows", th.HighCardinalityMinRows)
	v.SetDefault("scoring.undeclared_type_severity", th.UndeclaredTypeSeverity)
	v.SetDefault("scoring.materiality", pipeline.DefaultConfig().Materiality)

	s := strategy.DefaultConfig()
	v.SetDefault("cleaning.drop_column_missing_ratio", s.DropColumnMissingRatio)
	v.SetDefault("cleaning.text_fill", s.TextFill)
	v.SetDefault("cleaning.min_parse_ratio", clean.DefaultConfig().MinParseRatio)

	v.SetDefault("suggestions.file", "")
	v.SetDefault("suggestions.timeout", 5*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "scour.log")
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.prefork", false)
	v.SetDefault("metrics.summary_file", "")
	v.SetDefault("key_columns", []string{})
	v.SetDefault("required_columns", []string{})
}

// LoadConfig reads configPath, or scour.yaml from the working directory when
// configPath is empty. A missing scour.yaml is not an error; the defaults and
// SCOUR_ environment overrides apply.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
	} else {
		v.SetConfigName("scour")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if used := v.ConfigFileUsed(); used != "" {
		if err := restoreKeyCase(used, &cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// restoreKeyCase re-reads the column-keyed sections with yaml.v3. viper
// lowercases map keys, but column names are case-sensitive.
func restoreKeyCase(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	var raw struct {
		DeclaredTypes map[string]string              `yaml:"declared_types"`
		Overrides     map[string]strategy.Suggestion `yaml:"overrides"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	if raw.DeclaredTypes != nil {
		cfg.DeclaredTypes = raw.DeclaredTypes
	}
	if raw.Overrides != nil {
		cfg.Overrides = raw.Overrides
	}
	return nil
}

// --- Conversion ---

// ProfileConfig returns the profiler configuration.
func (c *Config) ProfileConfig() profile.Config {
	p := c.Profile
	return profile.Config{
		Sentinels:        p.Sentinels,
		NumericRatio:     p.NumericRatio,
		DatetimeRatio:    p.DatetimeRatio,
		CategoricalRatio: p.CategoricalRatio,
		IQRMultiplier:    p.IQRMultiplier,
		MinOutlierSample: p.MinOutlierSample,
		SampleSize:       p.SampleSize,
		DateLayouts:      p.DateLayouts,
		TrueTokens:       p.TrueTokens,
		FalseTokens:      p.FalseTokens,
		Workers:          p.Workers,
	}
}

// Weights returns the score weights.
func (c *Config) Weights() quality.Weights {
	w := c.Scoring.Weights
	return quality.Weights{
		Completeness:  w.Completeness,
		Uniqueness:    w.Uniqueness,
		Consistency:   w.Consistency,
		DuplicateRows: w.DuplicateRows,
	}
}

// Thresholds returns the issue detection thresholds.
func (c *Config) Thresholds() quality.Thresholds {
	s := c.Scoring
	return quality.Thresholds{
		NearUniqueRatio:        s.NearUniqueRatio,
		KeyColumns:             c.KeyColumns,
		HighCardinalityRatio:   s.HighCardinalityRatio,
		HighCardinalityMinRows: s.HighCardinalityMinRows,
		UndeclaredTypeSeverity: s.UndeclaredTypeSeverity,
	}
}

// StrategyConfig returns the selector configuration.
func (c *Config) StrategyConfig() strategy.Config {
	return strategy.Config{
		DropColumnMissingRatio: c.Cleaning.DropColumnMissingRatio,
		TextFill:               c.Cleaning.TextFill,
		KeyColumns:             c.KeyColumns,
		Overrides:              strategy.Suggestions(c.Overrides),
	}
}

// CleanConfig returns the cleaner configuration.
func (c *Config) CleanConfig() clean.Config {
	return clean.Config{MinParseRatio: c.Cleaning.MinParseRatio}
}

// LogicalTypes parses the declared types.
func (c *Config) LogicalTypes() (map[string]core.LogicalType, error) {
	if len(c.DeclaredTypes) == 0 {
		return nil, nil
	}
	out := make(map[string]core.LogicalType, len(c.DeclaredTypes))
	for col, name := range c.DeclaredTypes {
		t, err := core.ParseLogicalType(name)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
		out[col] = t
	}
	return out, nil
}

// Pipeline assembles the engine configuration.
func (c *Config) Pipeline() (pipeline.Config, error) {
	declared, err := c.LogicalTypes()
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		Profile:         c.ProfileConfig(),
		Weights:         c.Weights(),
		Thresholds:      c.Thresholds(),
		Strategy:        c.StrategyConfig(),
		Clean:           c.CleanConfig(),
		DeclaredTypes:   declared,
		RequiredColumns: c.RequiredColumns,
		Materiality:     c.Scoring.Materiality,
	}, nil
}

// --- Validation Functions ---

// validate is a helper function to reduce repetition.
func validate(condition bool, format string, a ...any) error {
	if !condition {
		return fmt.Errorf(format, a...)
	}
	return nil
}

func ratio(f float64) bool { return f > 0 && f <= 1 }

func (c *Config) Validate() error {
	if err := c.Profile.Validate(); err != nil {
		return fmt.Errorf("profile configuration error: %w", err)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring configuration error: %w", err)
	}
	if err := c.Cleaning.Validate(); err != nil {
		return fmt.Errorf("cleaning configuration error: %w", err)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging configuration error: %w", err)
	}
	if err := validate(c.Suggestions.Timeout >= 0, "suggestion timeout must not be negative"); err != nil {
		return err
	}
	if _, err := c.LogicalTypes(); err != nil {
		return fmt.Errorf("declared types: %w", err)
	}
	for col, o := range c.Overrides {
		if err := validate(o.Action != "", "override for column %q has no action", col); err != nil {
			return err
		}
	}
	return nil
}

func (pc *ProfileConfig) Validate() error {
	if err := validate(ratio(pc.NumericRatio), "numeric ratio must be in (0, 1]"); err != nil {
		return err
	}
	if err := validate(ratio(pc.DatetimeRatio), "datetime ratio must be in (0, 1]"); err != nil {
		return err
	}
	if err := validate(ratio(pc.CategoricalRatio), "categorical ratio must be in (0, 1]"); err != nil {
		return err
	}
	if err := validate(pc.IQRMultiplier > 0, "IQR multiplier must be positive"); err != nil {
		return err
	}
	if err := validate(pc.MinOutlierSample >= 1, "minimum outlier sample must be at least 1"); err != nil {
		return err
	}
	if err := validate(len(pc.DateLayouts) > 0, "at least one date layout is required"); err != nil {
		return err
	}
	return validate(pc.Workers >= 0, "workers must not be negative")
}

func (sc *ScoringConfig) Validate() error {
	w := sc.Weights
	if err := validate(w.Completeness >= 0 && w.Uniqueness >= 0 && w.Consistency >= 0 && w.DuplicateRows >= 0,
		"weights must not be negative"); err != nil {
		return err
	}
	if err := validate(w.Completeness+w.Uniqueness+w.Consistency+w.DuplicateRows > 0, "weights must not all be zero"); err != nil {
		return err
	}
	if err := validate(ratio(sc.NearUniqueRatio), "near-unique ratio must be in (0, 1]"); err != nil {
		return err
	}
	if err := validate(ratio(sc.HighCardinalityRatio), "high-cardinality ratio must be in (0, 1]"); err != nil {
		return err
	}
	if err := validate(sc.UndeclaredTypeSeverity >= 0 && sc.UndeclaredTypeSeverity <= 1,
		"undeclared type severity must be in [0, 1]"); err != nil {
		return err
	}
	return validate(sc.Materiality >= 0 && sc.Materiality <= 1, "materiality must be in [0, 1]")
}

func (cc *CleaningConfig) Validate() error {
	if err := validate(ratio(cc.DropColumnMissingRatio), "drop-column missing ratio must be in (0, 1]"); err != nil {
		return err
	}
	return validate(ratio(cc.MinParseRatio), "minimum parse ratio must be in (0, 1]")
}

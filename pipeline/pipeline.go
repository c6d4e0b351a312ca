// Package pipeline runs the profile, score, select, clean and report stages
// over a dataset and checks the invariants that hold between them.
package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TFMV/scour/metrics"
	"github.com/TFMV/scour/pkg/clean"
	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/profile"
	"github.com/TFMV/scour/pkg/quality"
	"github.com/TFMV/scour/pkg/schema"
	"github.com/TFMV/scour/pkg/strategy"
	"github.com/TFMV/scour/report"
	"github.com/TFMV/scour/version"
)

// Config is the immutable configuration handed to every stage.
type Config struct {
	Profile    profile.Config
	Weights    quality.Weights
	Thresholds quality.Thresholds
	Strategy   strategy.Config
	Clean      clean.Config

	// DeclaredTypes override the logical type reported by the reader.
	DeclaredTypes map[string]core.LogicalType

	// RequiredColumns must be present or the run fails with ErrMalformedInput.
	RequiredColumns []string

	// Materiality is the post-clean severity below which an issue counts as resolved.
	Materiality float64
}

// DefaultConfig returns the default configuration of every stage.
func DefaultConfig() Config {
	return Config{
		Profile:     profile.DefaultConfig(),
		Weights:     quality.DefaultWeights(),
		Thresholds:  quality.DefaultThresholds(),
		Strategy:    strategy.DefaultConfig(),
		Clean:       clean.DefaultConfig(),
		Materiality: report.DefaultMateriality,
	}
}

// Engine wires the stages together.
type Engine struct {
	cfg       Config
	profiler  *profile.Profiler
	scorer    *quality.Scorer
	selector  *strategy.Selector
	cleaner   *clean.Cleaner
	builder   *report.Builder
	validator *schema.Validator

	// Logger for structured logging.
	logger *zap.Logger

	// Optional metrics sinks.
	collector *metrics.Collector
	store     metrics.MetricsStore
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used by the engine and its stages.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records every run on the collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) {
		e.collector = c
	}
}

// WithStore persists a summary of every run.
func WithStore(s metrics.MetricsStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// New constructs an engine.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}

	e.profiler = profile.New(cfg.Profile)
	e.scorer = quality.NewScorer(cfg.Weights, cfg.Thresholds)
	e.selector = strategy.NewSelector(cfg.Strategy, e.profiler, e.logger.Named("select"))
	e.cleaner = clean.New(cfg.Clean, e.profiler, e.logger.Named("clean"))
	e.builder = report.NewBuilder(e.profiler, e.scorer).WithMateriality(cfg.Materiality)
	e.validator = schema.NewValidator(cfg.RequiredColumns, cfg.DeclaredTypes)
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Result is everything a run produced.
type Result struct {
	RunID string `json:"run_id"`

	// Cleaned is the output dataset.
	Cleaned *core.Dataset `json:"-"`

	// Profiles and Assessment describe the input after declared types were applied.
	Profiles   []profile.ColumnProfile `json:"profiles"`
	Assessment quality.Assessment      `json:"assessment"`

	// PostProfiles and PostAssessment describe the cleaned dataset.
	PostProfiles   []profile.ColumnProfile `json:"post_profiles"`
	PostAssessment quality.Assessment      `json:"post_assessment"`

	Plan      strategy.Plan         `json:"plan"`
	ChangeLog clean.ChangeLog       `json:"change_log"`
	Report    *report.QualityReport `json:"report"`
	Summary   metrics.RunSummary    `json:"summary"`
}

// Profile validates and profiles ds without cleaning it.
func (e *Engine) Profile(ds *core.Dataset) ([]profile.ColumnProfile, quality.Assessment, error) {
	prepared, _, err := e.prepare(ds)
	if err != nil {
		return nil, quality.Assessment{}, err
	}
	profiles := e.profiler.Profile(prepared)
	return profiles, e.scorer.Score(profiles, prepared), nil
}

// prepare checks the structural invariants and the schema rules, then applies
// declared types to a copy of ds.
func (e *Engine) prepare(ds *core.Dataset) (*core.Dataset, []core.Warning, error) {
	if err := ds.Validate(); err != nil {
		return nil, nil, err
	}
	res := e.validator.Validate(ds)
	if !res.Valid {
		return nil, nil, fmt.Errorf("%w: %s", core.ErrMalformedInput, strings.TrimSpace(res.String()))
	}

	var warnings []core.Warning
	for _, msgs := range sortedGroups(res.Warnings) {
		for _, msg := range msgs {
			warnings = append(warnings, core.Warning{Stage: core.StageSchema, Message: msg})
		}
	}
	return schema.Declare(ds, e.cfg.DeclaredTypes), warnings, nil
}

// Run cleans ds. The input is never mutated. MalformedInput and
// InvariantViolation are returned as errors; everything else recovered
// along the way is attached to the report as a warning.
func (e *Engine) Run(ds *core.Dataset, suggestions strategy.Suggestions) (*Result, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	logger := e.logger.With(zap.String("run_id", runID))

	summary := metrics.RunSummary{
		RunID:     runID,
		Engine:    "scour",
		Version:   version.Version,
		StartTime: startTime,
	}
	if ds != nil {
		summary.Dataset = ds.Name
		summary.RowsBefore = ds.NumRows()
		summary.ColumnsBefore = ds.NumCols()
	}
	if e.collector != nil {
		e.collector.RecordRunStart()
	}

	result, err := e.run(logger, ds, suggestions, &summary)

	summary.EndTime = time.Now()
	summary.Duration = summary.EndTime.Sub(startTime)
	summary.Status = metrics.StatusSucceeded
	if err != nil {
		summary.Status = metrics.StatusFailed
		summary.Error = err.Error()
		logger.Error("Cleaning run failed", zap.Error(err))
	} else {
		result.Summary = summary
		logger.Info("Cleaning run complete",
			zap.String("dataset", summary.Dataset),
			zap.Float64("pre_score", summary.PreScore),
			zap.Float64("post_score", summary.PostScore),
			zap.Int("rows_dropped", summary.RowsDropped),
			zap.Duration("duration", summary.Duration))
	}

	if e.collector != nil {
		e.collector.RecordRunEnd(summary)
	}
	if e.store != nil {
		if serr := e.store.Save(summary); serr != nil {
			logger.Warn("Failed to save run summary", zap.Error(serr))
		}
	}
	return result, err
}

func (e *Engine) run(logger *zap.Logger, ds *core.Dataset, suggestions strategy.Suggestions, summary *metrics.RunSummary) (*Result, error) {
	logger.Info("Starting cleaning run", zap.String("dataset", summary.Dataset),
		zap.Int("rows", summary.RowsBefore), zap.Int("columns", summary.ColumnsBefore))

	prepared, warnings, err := e.prepare(ds)
	if err != nil {
		return nil, err
	}

	profiles := e.profiler.Profile(prepared)
	pre := e.scorer.Score(profiles, prepared)
	logger.Debug("Profiling completed", zap.Float64("score", pre.Score), zap.Int("issues", len(pre.Issues)))

	plan := e.selector.Select(pre.Issues, profiles, suggestions)
	logger.Debug("Strategy selection completed", zap.Int("strategies", len(plan.Strategies)),
		zap.Int("warnings", len(plan.Warnings)))

	cleaned, log, err := e.cleaner.Apply(prepared, plan.Strategies)
	if err != nil {
		return nil, fmt.Errorf("cleaning failed: %w", err)
	}
	if err := CheckInvariants(prepared, cleaned, log); err != nil {
		return nil, err
	}

	warnings = append(warnings, plan.Warnings...)
	warnings = append(warnings, log.Warnings()...)
	for _, w := range warnings {
		logger.Warn("Recovered warning", zap.String("stage", w.Stage), zap.String("column", w.Column),
			zap.String("message", w.Message))
	}

	rep, postProfiles, post := e.builder.Build(pre, profiles, prepared.NumRows(), cleaned, log, warnings)

	summary.RowsAfter = cleaned.NumRows()
	summary.ColumnsAfter = cleaned.NumCols()
	summary.RowsDropped = log.RowsRemoved()
	summary.PreScore = pre.Score
	summary.PostScore = post.Score
	summary.Warnings = len(warnings)
	summary.Issues = make(map[string]int)
	for _, issue := range pre.Issues {
		summary.Issues[string(issue.Kind)]++
	}
	summary.Actions = make(map[string]int)
	for _, entry := range log.Effective() {
		summary.Actions[string(entry.Action.Kind)]++
	}

	return &Result{
		RunID:          summary.RunID,
		Cleaned:        cleaned,
		Profiles:       profiles,
		Assessment:     pre,
		PostProfiles:   postProfiles,
		PostAssessment: post,
		Plan:           plan,
		ChangeLog:      log,
		Report:         rep,
	}, nil
}

// CheckInvariants verifies that the cleaned dataset differs from the input
// only by the rows and columns the change log accounts for.
func CheckInvariants(before, after *core.Dataset, log clean.ChangeLog) error {
	wantCols := before.NumCols() - len(log.ColumnsDropped())
	if after.NumCols() != wantCols {
		return fmt.Errorf("%w: cleaned dataset has %d columns, expected %d",
			core.ErrInvariantViolation, after.NumCols(), wantCols)
	}
	wantRows := before.NumRows() - log.RowsRemoved()
	for _, col := range after.Columns {
		if col.Len() != wantRows {
			return fmt.Errorf("%w: column %q has %d rows after cleaning, expected %d",
				core.ErrInvariantViolation, col.Name, col.Len(), wantRows)
		}
	}
	return nil
}

func sortedGroups(m map[string][]string) [][]string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([][]string, len(names))
	for i, name := range names {
		out[i] = m[name]
	}
	return out
}

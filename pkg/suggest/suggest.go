// Package suggest loads structured cleaning suggestions produced outside the
// engine, for example by an advisor service, and hands them to the strategy
// selector as plain values.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/TFMV/scour/pkg/profile"
	"github.com/TFMV/scour/pkg/strategy"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Format is a suggestion file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Parse decodes suggestions keyed by column name, or "*" for the dataset.
func Parse(data []byte, format Format) (strategy.Suggestions, error) {
	out := strategy.Suggestions{}
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &out)
	case FormatYAML:
		err = yaml.Unmarshal(data, &out)
	default:
		return nil, fmt.Errorf("unsupported suggestion format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s suggestions: %w", format, err)
	}
	return out, nil
}

// LoadFile reads a suggestion file. The format follows the extension; anything
// other than .json is read as YAML.
func LoadFile(path string) (strategy.Suggestions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suggestions: %w", err)
	}
	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}
	return Parse(data, format)
}

// Provider supplies suggestions for a profiled dataset.
type Provider interface {
	Suggest(ctx context.Context, profiles []profile.ColumnProfile) (strategy.Suggestions, error)
}

// FileProvider serves the suggestions stored in a file.
type FileProvider struct {
	Path string
}

// Suggest implements Provider.
func (p FileProvider) Suggest(ctx context.Context, _ []profile.ColumnProfile) (strategy.Suggestions, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(p.Path)
}

// Static serves a fixed set of suggestions.
type Static strategy.Suggestions

// Suggest implements Provider.
func (s Static) Suggest(context.Context, []profile.ColumnProfile) (strategy.Suggestions, error) {
	return strategy.Suggestions(s), nil
}

// Lookup consults p once, bounded by timeout. A failed or late lookup yields
// no suggestions so that selection falls back to the heuristics.
func Lookup(ctx context.Context, p Provider, timeout time.Duration, profiles []profile.ColumnProfile, logger *zap.Logger) strategy.Suggestions {
	if p == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		s   strategy.Suggestions
		err error
	}
	ch := make(chan result, 1)
	go func() {
		s, err := p.Suggest(ctx, profiles)
		ch <- result{s, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			logger.Warn("Suggestion lookup failed; using heuristics", zap.Error(r.err))
			return nil
		}
		logger.Debug("Suggestions received", zap.Int("count", len(r.s)))
		return r.s
	case <-ctx.Done():
		logger.Warn("Suggestion lookup timed out; using heuristics", zap.Error(ctx.Err()))
		return nil
	}
}

// Package writers provides implementations of dataset writers for various data formats.
package writers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/TFMV/scour/pkg/convert"
	"github.com/TFMV/scour/pkg/core"
)

// Factory creates a writer based on the given configuration.
type Factory struct {
	// registered writers by type
	writers map[string]Creator
	// typed lists the writer types that keep column storage classes.
	typed map[string]bool
}

// Creator is a function that creates a writer from a configuration.
type Creator func(config core.WriterConfig) (core.DatasetWriter, error)

// NewFactory creates a new writer factory.
func NewFactory() *Factory {
	return &Factory{
		writers: make(map[string]Creator),
		typed:   make(map[string]bool),
	}
}

// Register registers a creator for a writer type. Typed writers receive
// records laid out with each column's storage class; the others receive strings.
func (f *Factory) Register(typ string, creator Creator, typed bool) {
	f.writers[typ] = creator
	f.typed[typ] = typed
}

// Create creates a writer based on the given configuration.
func (f *Factory) Create(config core.WriterConfig) (core.DatasetWriter, error) {
	creator, ok := f.writers[config.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported writer type: %s", config.Type)
	}
	return creator(config)
}

// Typed reports whether the writer type keeps storage classes.
func (f *Factory) Typed(typ string) bool {
	return f.typed[typ]
}

// DefaultFactory is the default writer factory with built-in writer types.
var DefaultFactory = NewFactory()

// init registers built-in writer types.
func init() {
	DefaultFactory.Register("csv", NewCSVWriter, false)
	DefaultFactory.Register("json", NewJSONWriter, false)
	DefaultFactory.Register("xlsx", NewExcelWriter, false)
	DefaultFactory.Register("parquet", NewParquetWriter, true)
	DefaultFactory.Register("arrow", NewArrowWriter, true)
	DefaultFactory.Register("duckdb", NewDuckDBWriter, true)
	DefaultFactory.Register("postgres", NewPostgresWriter, true)
}

// TypeFromPath guesses the writer type from a file extension.
func TypeFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return "csv"
	case ".json":
		return "json"
	case ".xlsx":
		return "xlsx"
	case ".parquet", ".pq":
		return "parquet"
	case ".arrow", ".ipc", ".feather":
		return "arrow"
	case ".duckdb", ".db":
		return "duckdb"
	}
	return ""
}

// Save writes ds to the destination described by config. An empty Type is
// guessed from the path, and an empty Sheet or Table defaults to the dataset name.
func Save(ctx context.Context, config core.WriterConfig, ds *core.Dataset) error {
	if config.Type == "" {
		config.Type = TypeFromPath(config.Path)
	}
	if config.Sheet == "" {
		config.Sheet = ds.Name
	}
	if config.Table == "" {
		config.Table = ds.Name
	}
	w, err := DefaultFactory.Create(config)
	if err != nil {
		return err
	}

	rec := convert.ToRecord(ds, convert.Options{Typed: DefaultFactory.Typed(config.Type)})
	defer rec.Release()

	if err := w.Write(ctx, rec); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

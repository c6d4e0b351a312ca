// Package readers provides implementations of dataset readers for various data sources.
package readers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/TFMV/scour/pkg/convert"
	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/schema"
	"github.com/apache/arrow-go/v18/arrow"
)

// Factory creates a reader based on the given configuration.
type Factory struct {
	// registered readers by type
	readers map[string]Creator
}

// Creator is a function that creates a reader from a configuration.
type Creator func(config core.ReaderConfig) (core.DatasetReader, error)

// NewFactory creates a new reader factory.
func NewFactory() *Factory {
	return &Factory{
		readers: make(map[string]Creator),
	}
}

// Register registers a creator for a reader type.
func (f *Factory) Register(typ string, creator Creator) {
	f.readers[typ] = creator
}

// Create creates a reader based on the given configuration.
func (f *Factory) Create(config core.ReaderConfig) (core.DatasetReader, error) {
	creator, ok := f.readers[config.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported reader type: %s", config.Type)
	}
	return creator(config)
}

// DefaultFactory is the default reader factory with built-in reader types.
var DefaultFactory = NewFactory()

// init registers built-in reader types.
func init() {
	DefaultFactory.Register("csv", NewCSVReader)
	DefaultFactory.Register("json", NewJSONReader)
	DefaultFactory.Register("xlsx", NewExcelReader)
	DefaultFactory.Register("parquet", NewParquetReader)
	DefaultFactory.Register("arrow", NewArrowReader)
	DefaultFactory.Register("duckdb", NewDuckDBReader)
	DefaultFactory.Register("postgres", NewPostgresReader)
}

// TypeFromPath guesses the reader type from a file extension.
func TypeFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		return "csv"
	case ".json":
		return "json"
	case ".xlsx", ".xlsm":
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

// Load reads every batch from the source described by config into a dataset.
// An empty Type is guessed from the path.
func Load(ctx context.Context, config core.ReaderConfig) (*core.Dataset, error) {
	if config.Type == "" {
		config.Type = TypeFromPath(config.Path)
	}
	reader, err := DefaultFactory.Create(config)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var recs []arrow.Record
	defer func() {
		for _, rec := range recs {
			rec.Release()
		}
	}()
	for {
		rec, err := reader.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rec.Retain()
		recs = append(recs, rec)
	}

	name := config.Table
	if name == "" {
		if recorded, ok := schema.DatasetName(reader.Schema()); ok {
			name = recorded
		} else {
			name = strings.TrimSuffix(filepath.Base(config.Path), filepath.Ext(config.Path))
		}
	}
	ds, err := convert.FromRecords(name, reader.Schema(), recs)
	if err != nil {
		return nil, err
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// recordReader serves records already held in memory.
type recordReader struct {
	schema  *arrow.Schema
	records []arrow.Record
	next    int
}

func newRecordReader(sch *arrow.Schema, records ...arrow.Record) *recordReader {
	return &recordReader{schema: sch, records: records}
}

// Read returns the next record. It stays valid until Close.
func (r *recordReader) Read(ctx context.Context) (arrow.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if r.next >= len(r.records) {
		return nil, io.EOF
	}
	rec := r.records[r.next]
	r.next++
	return rec, nil
}

func (r *recordReader) Schema() *arrow.Schema { return r.schema }

func (r *recordReader) Close() error {
	for _, rec := range r.records {
		rec.Release()
	}
	r.records = nil
	return nil
}

func batchSize(config core.ReaderConfig) int64 {
	if config.BatchSize > 0 {
		return config.BatchSize
	}
	return 10000
}

package readers

import (
	"context"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/TFMV/scour/pkg/core"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// CSVReader reads CSV files as all-string columns so that type inference
// sees the raw cells.
type CSVReader struct {
	schema *arrow.Schema
	file   *os.File
	reader *csv.Reader
}

// NewCSVReader creates a new CSV reader. Cells equal to one of
// config.NullValues (default: the empty string) are read as null.
func NewCSVReader(config core.ReaderConfig) (core.DatasetReader, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for CSV reader")
	}

	file, err := os.Open(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}

	header, err := stdcsv.NewReader(file).Read()
	if err != nil {
		file.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: CSV file %s has no header", core.ErrMalformedInput, config.Path)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedInput, err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to rewind CSV file: %w", err)
	}

	fields := make([]arrow.Field, len(header))
	for i, name := range header {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	nulls := config.NullValues
	if len(nulls) == 0 {
		nulls = []string{""}
	}

	reader := csv.NewReader(
		file,
		schema,
		csv.WithChunk(int(batchSize(config))),
		csv.WithHeader(true),
		csv.WithNullReader(true, nulls...),
		csv.WithLazyQuotes(true),
		csv.WithAllocator(memory.NewGoAllocator()),
	)

	return &CSVReader{schema: schema, file: file, reader: reader}, nil
}

// Read returns the next batch of records. The record is valid until the next call.
func (r *CSVReader) Read(ctx context.Context) (arrow.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if !r.reader.Next() {
		if err := r.reader.Err(); err != nil {
			return nil, fmt.Errorf("%w: failed to read CSV: %v", core.ErrMalformedInput, err)
		}
		return nil, io.EOF
	}
	return r.reader.Record(), nil
}

// Schema returns the schema of the dataset.
func (r *CSVReader) Schema() *arrow.Schema {
	return r.schema
}

// Close closes the reader and releases resources.
func (r *CSVReader) Close() error {
	if r.reader != nil {
		r.reader.Release()
		r.reader = nil
	}
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

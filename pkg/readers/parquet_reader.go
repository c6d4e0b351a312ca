package readers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/TFMV/scour/pkg/core"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// NewParquetReader reads a Parquet file into batches of config.BatchSize rows.
func NewParquetReader(config core.ReaderConfig) (core.DatasetReader, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for Parquet reader")
	}

	f, err := os.Open(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer f.Close()

	parquetReader, err := file.NewParquetReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet file reader: %w", err)
	}
	defer parquetReader.Close()

	arrowReader, err := pqarrow.NewFileReader(parquetReader, pqarrow.ArrowReadProperties{
		Parallel:  true,
		BatchSize: batchSize(config),
	}, memory.NewGoAllocator())
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow reader: %w", err)
	}

	table, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to read Parquet file: %w", err)
	}
	defer table.Release()

	tr := array.NewTableReader(table, batchSize(config))
	defer tr.Release()

	r := newRecordReader(table.Schema())
	for tr.Next() {
		rec := tr.Record()
		rec.Retain()
		r.records = append(r.records, rec)
	}
	if err := tr.Err(); err != nil {
		r.Close()
		return nil, fmt.Errorf("error reading batches: %w", err)
	}
	return r, nil
}

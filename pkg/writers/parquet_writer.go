package writers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/schema"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// ParquetWriter writes Snappy-compressed Parquet with the annotated Arrow
// schema stored in the file metadata.
type ParquetWriter struct {
	writer  *pqarrow.FileWriter
	file    *os.File
	schema  *arrow.Schema
	dataset string
}

// NewParquetWriter creates a new Parquet writer.
func NewParquetWriter(config core.WriterConfig) (core.DatasetWriter, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for Parquet writer")
	}

	file, err := os.Create(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet file: %w", err)
	}

	// The file writer needs the schema, so it is created on the first record.
	return &ParquetWriter{file: file, dataset: config.Table}, nil
}

// Write writes a record to the file.
func (w *ParquetWriter) Write(ctx context.Context, record arrow.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if w.writer == nil {
		w.schema = schema.Annotate(record.Schema(), w.dataset)
		writeProps := parquet.NewWriterProperties(
			parquet.WithCompression(compress.Codecs.Snappy),
		)
		// Storing the Arrow schema keeps logical type metadata and dictionary columns.
		arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

		writer, err := pqarrow.NewFileWriter(w.schema, w.file, writeProps, arrowProps)
		if err != nil {
			return fmt.Errorf("failed to create Parquet writer: %w", err)
		}
		w.writer = writer
	}

	rec, err := reshape(w.schema, record)
	if err != nil {
		return err
	}
	defer rec.Release()
	if err := w.writer.Write(rec); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Close closes the writer and flushes any pending data. The file writer
// closes the underlying file.
func (w *ParquetWriter) Close() error {
	if w.writer != nil {
		err := w.writer.Close()
		w.writer, w.file = nil, nil
		return err
	}
	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}

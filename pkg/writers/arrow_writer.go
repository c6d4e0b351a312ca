package writers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/schema"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
)

// ArrowWriter writes record batches to an Arrow IPC file. The file schema
// carries the dataset name and a logical type per field, so reading the file
// back restores the column declarations.
type ArrowWriter struct {
	writer  *ipc.FileWriter
	file    *os.File
	schema  *arrow.Schema
	dataset string
}

// NewArrowWriter creates a new Arrow IPC writer. config.Table names the dataset.
func NewArrowWriter(config core.WriterConfig) (core.DatasetWriter, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for Arrow writer")
	}
	file, err := os.Create(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow file: %w", err)
	}
	return &ArrowWriter{file: file, dataset: config.Table}, nil
}

// Write appends a record batch. Every batch must have the layout of the first.
func (w *ArrowWriter) Write(ctx context.Context, record arrow.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if w.writer == nil {
		w.schema = schema.Annotate(record.Schema(), w.dataset)
		writer, err := ipc.NewFileWriter(w.file, ipc.WithSchema(w.schema))
		if err != nil {
			return fmt.Errorf("failed to create Arrow writer: %w", err)
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

// Close flushes the footer and closes the file.
func (w *ArrowWriter) Close() error {
	var err error
	if w.writer != nil {
		err = w.writer.Close()
		w.writer = nil
	}
	if w.file != nil {
		if closeErr := w.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		w.file = nil
	}
	return err
}

// reshape rebinds the columns of record to the annotated schema sch.
func reshape(sch *arrow.Schema, record arrow.Record) (arrow.Record, error) {
	got := record.Schema()
	if got.NumFields() != sch.NumFields() {
		return nil, fmt.Errorf("%w: record has %d fields, expected %d",
			core.ErrMalformedInput, got.NumFields(), sch.NumFields())
	}
	for i, f := range sch.Fields() {
		g := got.Field(i)
		if g.Name != f.Name || !arrow.TypeEqual(g.Type, f.Type) {
			return nil, fmt.Errorf("%w: record field %d is %s %s, expected %s %s",
				core.ErrMalformedInput, i, g.Name, g.Type, f.Name, f.Type)
		}
	}
	return array.NewRecord(sch, record.Columns(), record.NumRows()), nil
}

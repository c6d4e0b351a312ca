package writers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/TFMV/scour/pkg/core"
	"github.com/apache/arrow-go/v18/arrow"
)

// JSONWriter writes records as a JSON array of objects whose keys keep column order.
type JSONWriter struct {
	file     *os.File
	firstRow bool
}

// NewJSONWriter creates a new JSON writer.
func NewJSONWriter(config core.WriterConfig) (core.DatasetWriter, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for JSON writer")
	}

	file, err := os.Create(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create JSON file: %w", err)
	}
	if _, err := file.WriteString("["); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write opening bracket: %w", err)
	}
	return &JSONWriter{file: file, firstRow: true}, nil
}

// Write writes a record to the file.
func (w *JSONWriter) Write(ctx context.Context, record arrow.Record) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	names := make([][]byte, record.NumCols())
	for j, f := range record.Schema().Fields() {
		names[j], _ = json.Marshal(f.Name)
	}

	var buf bytes.Buffer
	for i := 0; i < int(record.NumRows()); i++ {
		buf.Reset()
		if !w.firstRow {
			buf.WriteByte(',')
		}
		w.firstRow = false
		buf.WriteString("\n  {")
		for j, col := range record.Columns() {
			if j > 0 {
				buf.WriteString(", ")
			}
			buf.Write(names[j])
			buf.WriteString(": ")
			if col.IsNull(i) {
				buf.WriteString("null")
				continue
			}
			v, err := json.Marshal(col.GetOneForMarshal(i))
			if err != nil {
				return fmt.Errorf("failed to encode column %s: %w", record.ColumnName(j), err)
			}
			buf.Write(v)
		}
		buf.WriteByte('}')
		if _, err := w.file.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

// Close closes the writer and flushes any pending data.
func (w *JSONWriter) Close() error {
	if w.file == nil {
		return nil
	}
	_, err := w.file.WriteString("\n]\n")
	if closeErr := w.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	w.file = nil
	return err
}

package core

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
)

// DatasetReader defines an interface for reading data from various sources.
type DatasetReader interface {
	// Read returns the next record batch.
	// Returns io.EOF when there are no more batches.
	Read(ctx context.Context) (arrow.Record, error)

	// Schema returns the schema of the source.
	Schema() *arrow.Schema

	// Close releases the reader's resources.
	Close() error
}

// DatasetWriter defines an interface for writing data to various destinations.
type DatasetWriter interface {
	// Write writes a record to the destination.
	Write(ctx context.Context, record arrow.Record) error

	// Close flushes pending data and releases resources.
	Close() error
}

// ReaderConfig provides configuration for creating a reader.
type ReaderConfig struct {
	// Type is the reader type (csv, json, xlsx, parquet, arrow, duckdb, postgres).
	Type string

	// Path is the path to the file.
	Path string

	// ConnectionString is the connection string for a database.
	ConnectionString string

	// Table is the table name for a database, or the sheet name for a workbook.
	Table string

	// Query is the query to execute for a database.
	Query string

	// BatchSize is the number of rows per batch.
	BatchSize int64

	// NullValues are cell contents read as the null marker (CSV only).
	NullValues []string
}

// WriterConfig provides configuration for creating a writer.
type WriterConfig struct {
	// Type is the writer type (csv, json, xlsx, parquet, arrow, duckdb, postgres).
	Type string

	// Path is the path to the file.
	Path string

	// Sheet is the worksheet name for workbook outputs.
	Sheet string

	// ConnectionString is the connection string for a database.
	ConnectionString string

	// Table is the destination table for a database. It is replaced if it exists.
	Table string
}

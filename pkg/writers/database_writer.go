package writers

import (
	"context"
	"errors"
	"fmt"

	"github.com/TFMV/scour/integrations"
	"github.com/TFMV/scour/pkg/core"
	"github.com/apache/arrow-go/v18/arrow"
)

// DatabaseWriter bulk-loads records into a table through an ADBC driver.
// The first record replaces the table; later records are appended.
type DatabaseWriter struct {
	db    integrations.Database
	conn  integrations.Connection
	table string
	wrote bool
}

// NewDuckDBWriter creates a writer into a DuckDB database file.
func NewDuckDBWriter(config core.WriterConfig) (core.DatasetWriter, error) {
	return newDatabaseWriter("duckdb", config)
}

// NewPostgresWriter creates a writer into a PostgreSQL database.
func NewPostgresWriter(config core.WriterConfig) (core.DatasetWriter, error) {
	return newDatabaseWriter("postgres", config)
}

func newDatabaseWriter(kind string, config core.WriterConfig) (core.DatasetWriter, error) {
	if config.Table == "" {
		return nil, errors.New("table is required for database writer")
	}
	dsn := config.ConnectionString
	if dsn == "" {
		dsn = config.Path
	}
	db, err := integrations.Open(kind, integrations.WithPath(dsn))
	if err != nil {
		return nil, err
	}
	conn, err := db.OpenConnection()
	if err != nil {
		db.Close()
		return nil, err
	}
	return &DatabaseWriter{db: db, conn: conn, table: config.Table}, nil
}

// Write ingests a record.
func (w *DatabaseWriter) Write(ctx context.Context, record arrow.Record) error {
	mode := integrations.IngestAppend
	if !w.wrote {
		mode = integrations.IngestReplace
	}
	if _, err := w.conn.Ingest(ctx, w.table, record, mode); err != nil {
		return fmt.Errorf("failed to ingest into %s: %w", w.table, err)
	}
	w.wrote = true
	return nil
}

// Close releases the connection and database.
func (w *DatabaseWriter) Close() error {
	if w.db != nil {
		w.conn.Close()
		w.db.Close()
		w.db = nil
	}
	return nil
}

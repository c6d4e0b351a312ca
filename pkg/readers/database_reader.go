package readers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/TFMV/scour/integrations"
	"github.com/TFMV/scour/pkg/core"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// DatabaseReader streams the result of a query through an ADBC driver.
type DatabaseReader struct {
	mu     sync.Mutex
	db     integrations.Database
	conn   integrations.Connection
	rr     array.RecordReader
	closed bool
}

// NewDuckDBReader creates a reader over a DuckDB database file.
func NewDuckDBReader(config core.ReaderConfig) (core.DatasetReader, error) {
	return newDatabaseReader("duckdb", config)
}

// NewPostgresReader creates a reader over a PostgreSQL database.
func NewPostgresReader(config core.ReaderConfig) (core.DatasetReader, error) {
	return newDatabaseReader("postgres", config)
}

// Query returns the SQL a database reader runs for config.
func Query(config core.ReaderConfig) (string, error) {
	if config.Query != "" {
		return config.Query, nil
	}
	if config.Table == "" {
		return "", errors.New("either query or table is required for database reader")
	}
	return "SELECT * FROM " + integrations.QuoteIdent(config.Table), nil
}

func newDatabaseReader(kind string, config core.ReaderConfig) (core.DatasetReader, error) {
	dsn := config.ConnectionString
	if dsn == "" {
		dsn = config.Path
	}
	if dsn == "" && kind != "duckdb" {
		return nil, fmt.Errorf("connection string is required for %s reader", kind)
	}
	query, err := Query(config)
	if err != nil {
		return nil, err
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
	rr, err := conn.Query(context.Background(), query)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &DatabaseReader{db: db, conn: conn, rr: rr}, nil
}

// Read returns the next batch of the result set.
func (r *DatabaseReader) Read(ctx context.Context) (arrow.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if r.closed {
		return nil, io.EOF
	}
	if !r.rr.Next() {
		if err := r.rr.Err(); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		return nil, io.EOF
	}
	return r.rr.Record(), nil
}

// Schema returns the schema of the result set.
func (r *DatabaseReader) Schema() *arrow.Schema {
	return r.rr.Schema()
}

// Close releases the result set and the database.
func (r *DatabaseReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.rr.Release()
	r.conn.Close()
	r.db.Close()
	r.closed = true
	return nil
}

// Package integrations opens SQL databases through ADBC drivers so that
// tables can be assessed and cleaned data written back.
package integrations

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Database represents an ADBC database that hands out connections.
type Database interface {
	// OpenConnection creates a new connection to the database
	OpenConnection() (Connection, error)
	// Close closes the database and all its connections
	Close()
	// ConnCount returns number of open connections
	ConnCount() int
}

// Connection represents a database connection that can execute queries
type Connection interface {
	// Exec executes a query that doesn't return results
	Exec(ctx context.Context, sql string) (int64, error)
	// Query executes a query. Releasing the reader closes its statement.
	Query(ctx context.Context, sql string) (array.RecordReader, error)
	// Ingest writes a record into table, creating it when mode is IngestCreate.
	Ingest(ctx context.Context, table string, rec arrow.Record, mode IngestMode) (int64, error)
	// GetTableSchema returns the schema for a table
	GetTableSchema(ctx context.Context, catalog, schema *string, table string) (*arrow.Schema, error)
	// Close closes the connection
	Close()
}

// IngestMode selects how Ingest treats an existing table.
type IngestMode string

const (
	IngestCreate  IngestMode = "create"
	IngestAppend  IngestMode = "append"
	IngestReplace IngestMode = "replace"
)

// Options define the configuration for opening a database.
type Options struct {
	// Path is the database file for DuckDB ("" => in-memory) or the URI for PostgreSQL.
	Path string

	// DriverPath is the location of the driver library, if empty => auto-detect
	DriverPath string

	// Context for new database/connection usage
	Context context.Context
}

// Option is a functional config approach
type Option func(*Options)

// WithPath sets the database file path or URI.
func WithPath(p string) Option {
	return func(o *Options) {
		o.Path = p
	}
}

// WithDriverPath sets the path to the driver library.
// If not provided, the driver will be auto-detected based on the current OS.
func WithDriverPath(p string) Option {
	return func(o *Options) {
		o.DriverPath = p
	}
}

// WithContext sets a custom Context for DB usage.
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		o.Context = ctx
	}
}

// driver describes how to load one ADBC driver.
type driver struct {
	library    string
	windowsDir string
	entrypoint string
	// dbOptions maps Options.Path to driver database options.
	dbOptions func(path string) map[string]string
}

var drivers = map[string]driver{}

func register(kind string, d driver) {
	drivers[kind] = d
}

// Kinds lists the supported database kinds.
func Kinds() []string {
	kinds := make([]string, 0, len(drivers))
	for k := range drivers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// DefaultDriverPath returns the conventional driver library location for kind on goos.
func DefaultDriverPath(kind, goos string) (string, error) {
	d, ok := drivers[kind]
	if !ok {
		return "", fmt.Errorf("unsupported database kind: %s", kind)
	}
	switch goos {
	case "darwin":
		return "/usr/local/lib/" + d.library + ".dylib", nil
	case "windows":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return home + "/Downloads/" + d.windowsDir + "/" + strings.TrimPrefix(d.library, "lib") + ".dll", nil
	}
	return "/usr/local/lib/" + d.library + ".so", nil
}

// Open opens a database of the given kind.
func Open(kind string, options ...Option) (Database, error) {
	d, ok := drivers[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported database kind: %s", kind)
	}
	var opts Options
	for _, opt := range options {
		opt(&opts)
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.DriverPath == "" {
		p, err := DefaultDriverPath(kind, runtime.GOOS)
		if err != nil {
			return nil, err
		}
		opts.DriverPath = p
	}
	return openADBC(kind, d, opts)
}

// QuoteIdent quotes a possibly schema-qualified SQL identifier.
func QuoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

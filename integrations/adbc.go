package integrations

import (
	"context"
	"fmt"
	"sync"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-adbc/go/adbc/drivermgr"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// adbcDatabase manages a database opened through the ADBC driver manager.
type adbcDatabase struct {
	mu    sync.Mutex
	kind  string
	db    adbc.Database
	opts  Options
	conns []*adbcConn // track open connections
}

// adbcConn is a simple wrapper holding an open connection.
type adbcConn struct {
	parent *adbcDatabase
	adbc.Connection
}

var (
	_ Database   = (*adbcDatabase)(nil)
	_ Connection = (*adbcConn)(nil)
)

func openADBC(kind string, d driver, opts Options) (*adbcDatabase, error) {
	dbOpts := d.dbOptions(opts.Path)
	dbOpts["driver"] = opts.DriverPath
	if d.entrypoint != "" {
		dbOpts["entrypoint"] = d.entrypoint
	}

	drv := drivermgr.Driver{}
	db, err := drv.NewDatabase(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("error creating new %s database: %w", kind, err)
	}
	return &adbcDatabase{kind: kind, db: db, opts: opts}, nil
}

// OpenConnection opens a new connection. Close releases it, or Database.Close
// releases every connection still open.
func (d *adbcDatabase) OpenConnection() (Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	conn, err := d.db.Open(d.opts.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", d.kind, err)
	}
	c := &adbcConn{parent: d, Connection: conn}
	d.conns = append(d.conns, c)
	return c, nil
}

// Close closes the database and all open connections.
func (d *adbcDatabase) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range d.conns {
		c.Connection.Close()
	}
	d.conns = nil

	if d.db != nil {
		d.db.Close()
		d.db = nil
	}
}

// ConnCount returns the current number of open connections.
func (d *adbcDatabase) ConnCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

// Exec runs a statement that doesn't produce a result set, returning
// the number of rows affected if known, else -1.
func (c *adbcConn) Exec(ctx context.Context, sql string) (int64, error) {
	stmt, err := c.NewStatement()
	if err != nil {
		return -1, fmt.Errorf("failed to create statement: %w", err)
	}
	defer stmt.Close()

	if err := stmt.SetSqlQuery(sql); err != nil {
		return -1, fmt.Errorf("failed to set SQL query: %w", err)
	}
	return stmt.ExecuteUpdate(ctx)
}

// statementReader closes its statement when the reader is released.
type statementReader struct {
	array.RecordReader
	stmt adbc.Statement
	once sync.Once
}

func (r *statementReader) Release() {
	r.RecordReader.Release()
	r.once.Do(func() { r.stmt.Close() })
}

// Query runs a SQL query. The caller must Release the returned reader.
func (c *adbcConn) Query(ctx context.Context, sql string) (array.RecordReader, error) {
	stmt, err := c.NewStatement()
	if err != nil {
		return nil, fmt.Errorf("failed to create statement: %w", err)
	}
	if err := stmt.SetSqlQuery(sql); err != nil {
		stmt.Close()
		return nil, fmt.Errorf("failed to set SQL query: %w", err)
	}

	rr, _, err := stmt.ExecuteQuery(ctx)
	if err != nil {
		stmt.Close()
		return nil, err
	}
	return &statementReader{RecordReader: rr, stmt: stmt}, nil
}

// Ingest bulk-loads rec into table.
func (c *adbcConn) Ingest(ctx context.Context, table string, rec arrow.Record, mode IngestMode) (int64, error) {
	stmt, err := c.NewStatement()
	if err != nil {
		return -1, fmt.Errorf("failed to create statement: %w", err)
	}
	defer stmt.Close()

	modes := map[IngestMode]string{
		IngestCreate:  adbc.OptionValueIngestModeCreate,
		IngestAppend:  adbc.OptionValueIngestModeAppend,
		IngestReplace: adbc.OptionValueIngestModeReplace,
	}
	m, ok := modes[mode]
	if !ok {
		return -1, fmt.Errorf("unsupported ingest mode: %s", mode)
	}
	if err := stmt.SetOption(adbc.OptionKeyIngestTargetTable, table); err != nil {
		return -1, fmt.Errorf("failed to set target table: %w", err)
	}
	if err := stmt.SetOption(adbc.OptionKeyIngestMode, m); err != nil {
		return -1, fmt.Errorf("failed to set ingest mode: %w", err)
	}
	if err := stmt.Bind(ctx, rec); err != nil {
		return -1, fmt.Errorf("failed to bind record: %w", err)
	}
	return stmt.ExecuteUpdate(ctx)
}

// GetTableSchema fetches the Arrow schema of a table in the given catalog/schema
// (pass nil for defaults).
func (c *adbcConn) GetTableSchema(ctx context.Context, catalog, dbSchema *string, tableName string) (*arrow.Schema, error) {
	return c.Connection.GetTableSchema(ctx, catalog, dbSchema, tableName)
}

// Close closes the connection, removing it from the parent's tracking.
func (c *adbcConn) Close() {
	c.parent.mu.Lock()
	defer c.parent.mu.Unlock()

	for i, conn := range c.parent.conns {
		if conn == c {
			c.parent.conns[i] = c.parent.conns[len(c.parent.conns)-1]
			c.parent.conns = c.parent.conns[:len(c.parent.conns)-1]
			break
		}
	}
	c.Connection.Close()
	c.parent = nil
}

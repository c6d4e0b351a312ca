package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/scour/integrations"
	"github.com/TFMV/scour/pipeline"
	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/readers"
	"github.com/TFMV/scour/pkg/writers"
)

func TestDuckDBConnectivity(t *testing.T) {
	dbPath := os.Getenv("DUCKDB_PATH")
	if dbPath == "" {
		t.Skip("DUCKDB_PATH environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := integrations.Open("duckdb", integrations.WithPath(dbPath), integrations.WithContext(ctx))
	require.NoError(t, err, "Failed to open DuckDB")
	defer db.Close()

	conn, err := db.OpenConnection()
	require.NoError(t, err, "Failed to connect to DuckDB")
	defer conn.Close()

	t.Logf("Successfully connected to DuckDB at %s", dbPath)
}

// TestDuckDBCleanRoundTrip cleans a table read from DuckDB and writes the
// result back to a second table.
func TestDuckDBCleanRoundTrip(t *testing.T) {
	dbPath := os.Getenv("DUCKDB_PATH")
	if dbPath == "" {
		t.Skip("DUCKDB_PATH environment variable is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ds := dirtyDataset("scour_it_people")
	require.NoError(t, writers.Save(ctx, core.WriterConfig{Type: "duckdb", Path: dbPath}, ds))

	loaded, err := readers.Load(ctx, core.ReaderConfig{Type: "duckdb", Path: dbPath, Table: ds.Name})
	require.NoError(t, err)
	assert.Equal(t, ds.NumRows(), loaded.NumRows())

	res, err := pipeline.New(pipeline.DefaultConfig()).Run(loaded, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Report.PostScore, res.Report.PreScore)

	require.NoError(t, writers.Save(ctx, core.WriterConfig{Type: "duckdb", Path: dbPath, Table: "scour_it_people_clean"}, res.Cleaned))
	cleaned, err := readers.Load(ctx, core.ReaderConfig{Type: "duckdb", Path: dbPath, Table: "scour_it_people_clean"})
	require.NoError(t, err)
	assert.Equal(t, res.Cleaned.NumRows(), cleaned.NumRows())
}

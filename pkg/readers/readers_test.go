package readers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/TFMV/scour/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "people.csv", "id,age,name\n1,30,Alice\n2,,Bob\n3,NA,\n")

	ds, err := Load(context.Background(), core.ReaderConfig{Path: path})
	require.NoError(t, err)

	assert.Equal(t, "people", ds.Name)
	assert.Equal(t, []string{"id", "age", "name"}, ds.ColumnNames())
	require.Equal(t, 3, ds.NumRows())

	age, _ := ds.Column("age")
	assert.Equal(t, core.TypeUnknown, age.Type)
	assert.Equal(t, "30", age.Values[0].Str)
	assert.True(t, age.Values[1].Null)
	assert.Equal(t, "NA", age.Values[2].Str)

	name, _ := ds.Column("name")
	assert.True(t, name.Values[2].Null)
}

func TestLoadCSVNullValues(t *testing.T) {
	path := writeFile(t, "people.csv", "id,age\n1,NA\n2,\n")

	ds, err := Load(context.Background(), core.ReaderConfig{Type: "csv", Path: path, NullValues: []string{"NA"}})
	require.NoError(t, err)

	age, _ := ds.Column("age")
	assert.True(t, age.Values[0].Null)
	assert.False(t, age.Values[1].Null)
}

func TestLoadCSVMalformed(t *testing.T) {
	empty := writeFile(t, "empty.csv", "")
	_, err := Load(context.Background(), core.ReaderConfig{Path: empty})
	assert.True(t, errors.Is(err, core.ErrMalformedInput), "got %v", err)

	dup := writeFile(t, "dup.csv", "a,a\n1,2\n")
	_, err = Load(context.Background(), core.ReaderConfig{Path: dup})
	assert.True(t, errors.Is(err, core.ErrMalformedInput), "got %v", err)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "rows.json", `[
		{"id": 1, "name": "Alice", "tags": ["a", "b"]},
		{"id": 2.50, "active": true},
		{"id": null, "name": "Carol"}
	]`)

	ds, err := Load(context.Background(), core.ReaderConfig{Path: path})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "tags", "active"}, ds.ColumnNames())
	id, _ := ds.Column("id")
	assert.Equal(t, "1", id.Values[0].Str)
	assert.Equal(t, "2.50", id.Values[1].Str)
	assert.True(t, id.Values[2].Null)

	name, _ := ds.Column("name")
	assert.True(t, name.Values[1].Null)

	tags, _ := ds.Column("tags")
	assert.Equal(t, `["a","b"]`, tags.Values[0].Str)

	active, _ := ds.Column("active")
	assert.True(t, active.Values[0].Null)
	assert.Equal(t, "true", active.Values[1].Str)
}

func TestLoadJSONMalformed(t *testing.T) {
	path := writeFile(t, "bad.json", `{"id": 1}`)
	_, err := Load(context.Background(), core.ReaderConfig{Path: path})
	assert.True(t, errors.Is(err, core.ErrMalformedInput), "got %v", err)
}

func TestLoadExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"id", "dept", "note"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{1, "eng", "x"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{2, "ops"}))
	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Other", "A1", &[]any{"k"}))
	require.NoError(t, f.SetSheetRow("Other", "A2", &[]any{"v"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	sheets, err := Sheets(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sheet1", "Other"}, sheets)

	ds, err := Load(context.Background(), core.ReaderConfig{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "book", ds.Name)
	assert.Equal(t, []string{"id", "dept", "note"}, ds.ColumnNames())
	note, _ := ds.Column("note")
	assert.Equal(t, "x", note.Values[0].Str)
	assert.True(t, note.Values[1].Null)

	other, err := Load(context.Background(), core.ReaderConfig{Path: path, Table: "Other"})
	require.NoError(t, err)
	assert.Equal(t, "Other", other.Name)
	assert.Equal(t, 1, other.NumRows())
}

func TestTypeFromPath(t *testing.T) {
	assert.Equal(t, "csv", TypeFromPath("a/b.CSV"))
	assert.Equal(t, "xlsx", TypeFromPath("b.xlsx"))
	assert.Equal(t, "parquet", TypeFromPath("b.parquet"))
	assert.Equal(t, "", TypeFromPath("b.bin"))
}

func TestQuery(t *testing.T) {
	q, err := Query(core.ReaderConfig{Table: "main.people"})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "main"."people"`, q)

	q, err = Query(core.ReaderConfig{Query: "SELECT 1", Table: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", q)

	_, err = Query(core.ReaderConfig{})
	assert.Error(t, err)
}

func TestUnsupportedReader(t *testing.T) {
	_, err := DefaultFactory.Create(core.ReaderConfig{Type: "avro"})
	assert.ErrorContains(t, err, "unsupported reader type")
}

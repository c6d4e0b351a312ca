package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/readers"
)

// InputOptions describe where a dataset comes from.
type InputOptions struct {
	Type       string
	Sheet      string
	Table      string
	Query      string
	Conn       string
	BatchSize  int64
	NullValues []string
}

func (o *InputOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Type, "type", "t", "", "Input type (csv, json, xlsx, parquet, arrow, duckdb, postgres); guessed from the extension when empty")
	cmd.Flags().StringVar(&o.Sheet, "sheet", "", "Worksheet to read; every sheet is read when empty")
	cmd.Flags().StringVar(&o.Table, "table", "", "Database table to read")
	cmd.Flags().StringVar(&o.Query, "query", "", "Database query to read instead of a table")
	cmd.Flags().StringVar(&o.Conn, "conn", "", "Database connection string (defaults to INPUT)")
	cmd.Flags().Int64VarP(&o.BatchSize, "batch-size", "b", 0, "Rows per read batch")
	cmd.Flags().StringSliceVar(&o.NullValues, "null", nil, "Extra cell contents read as null (CSV only)")
}

// load reads INPUT. A workbook without --sheet yields one dataset per sheet.
func (o *InputOptions) load(ctx context.Context, path string) ([]*core.Dataset, error) {
	typ := o.Type
	if typ == "" {
		typ = readers.TypeFromPath(path)
	}
	if typ == "" {
		return nil, fmt.Errorf("cannot guess the type of %s; use --type", path)
	}

	rc := core.ReaderConfig{
		Type:             typ,
		Path:             path,
		ConnectionString: o.Conn,
		Table:            o.Table,
		Query:            o.Query,
		BatchSize:        o.BatchSize,
		NullValues:       o.NullValues,
	}

	if typ != "xlsx" {
		ds, err := readers.Load(ctx, rc)
		if err != nil {
			return nil, err
		}
		return []*core.Dataset{ds}, nil
	}

	sheets := []string{o.Sheet}
	if o.Sheet == "" {
		var err error
		if sheets, err = readers.Sheets(path); err != nil {
			return nil, err
		}
	}
	out := make([]*core.Dataset, 0, len(sheets))
	for _, sheet := range sheets {
		rc.Table = sheet
		ds, err := readers.Load(ctx, rc)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet, err)
		}
		out = append(out, ds)
	}
	return out, nil
}

// sheetPath derives a per-sheet file name: out.csv becomes out_Sheet1.csv.
func sheetPath(path, sheet string, multi bool) string {
	if path == "" || !multi {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + sanitize(sheet) + ext
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
}

func isDatabase(typ string) bool {
	return typ == "duckdb" || typ == "postgres"
}

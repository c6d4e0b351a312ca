package readers

import (
	"errors"
	"fmt"

	"github.com/TFMV/scour/pkg/convert"
	"github.com/TFMV/scour/pkg/core"
	"github.com/xuri/excelize/v2"
)

// NewExcelReader reads one worksheet of a workbook. The sheet is
// config.Table, or the first sheet when empty. The first row is the header.
func NewExcelReader(config core.ReaderConfig) (core.DatasetReader, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for Excel reader")
	}
	f, err := excelize.OpenFile(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := config.Table
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook %s has no sheets", core.ErrMalformedInput, config.Path)
		}
		sheet = sheets[0]
	}
	ds, err := readSheet(f, sheet)
	if err != nil {
		return nil, err
	}
	rec := convert.ToRecord(ds, convert.Options{})
	return newRecordReader(rec.Schema(), rec), nil
}

// Sheets lists the worksheets of a workbook in tab order.
func Sheets(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

func readSheet(f *excelize.File, sheet string) (*core.Dataset, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: sheet %q has no header", core.ErrMalformedInput, sheet)
	}

	header := rows[0]
	ds := &core.Dataset{Name: sheet, Columns: make([]*core.Column, len(header))}
	for i, name := range header {
		ds.Columns[i] = &core.Column{Name: name, Type: core.TypeUnknown, Storage: core.StorageString, Values: make([]core.Value, 0, len(rows)-1)}
	}
	for r, row := range rows[1:] {
		// GetRows trims trailing empty cells, so short rows are padded with nulls.
		if len(row) > len(header) {
			return nil, fmt.Errorf("%w: sheet %q row %d has %d cells for %d columns", core.ErrMalformedInput, sheet, r+2, len(row), len(header))
		}
		for i, col := range ds.Columns {
			if i >= len(row) || row[i] == "" {
				col.Values = append(col.Values, core.NullValue())
				continue
			}
			col.Values = append(col.Values, core.Text(row[i]))
		}
	}
	return ds, nil
}

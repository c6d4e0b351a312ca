package writers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/schema"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/xuri/excelize/v2"
)

// Workbook builds an Excel workbook one sheet at a time.
type Workbook struct {
	file   *excelize.File
	header int
	rows   map[string]int
	sheets []string
}

// NewWorkbook creates an empty workbook.
func NewWorkbook() (*Workbook, error) {
	f := excelize.NewFile()
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	return &Workbook{file: f, header: header, rows: map[string]int{}}, nil
}

// SheetName makes name usable as a worksheet name.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "Sheet"
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}

func (w *Workbook) sheet(name string) (string, error) {
	name = SheetName(name)
	if _, ok := w.rows[name]; ok {
		return name, nil
	}
	if len(w.sheets) == 0 {
		if err := w.file.SetSheetName(w.file.GetSheetName(0), name); err != nil {
			return "", err
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return "", err
	}
	w.sheets = append(w.sheets, name)
	w.rows[name] = 0
	return name, nil
}

// AppendRows writes rows below the sheet's existing content. The header is
// written, in bold, only when the sheet is new.
func (w *Workbook) AppendRows(name string, header []string, rows [][]any) error {
	sheet, err := w.sheet(name)
	if err != nil {
		return fmt.Errorf("failed to add sheet %q: %w", name, err)
	}
	if w.rows[sheet] == 0 {
		cells := make([]any, len(header))
		for i, h := range header {
			cells[i] = h
		}
		if err := w.setRow(sheet, cells); err != nil {
			return err
		}
		if err := w.file.SetRowStyle(sheet, 1, 1, w.header); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}
	for _, row := range rows {
		if err := w.setRow(sheet, row); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workbook) setRow(sheet string, cells []any) error {
	w.rows[sheet]++
	axis, err := excelize.CoordinatesToCellName(1, w.rows[sheet])
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(sheet, axis, &cells); err != nil {
		return fmt.Errorf("failed to write row %d of %q: %w", w.rows[sheet], sheet, err)
	}
	return nil
}

// AppendRecord writes a record to a sheet. Numeric columns are written as
// number cells.
func (w *Workbook) AppendRecord(name string, rec arrow.Record) error {
	header := make([]string, rec.NumCols())
	types := make([]core.LogicalType, rec.NumCols())
	for j, f := range rec.Schema().Fields() {
		header[j] = f.Name
		types[j], _, _ = schema.LogicalFromField(f)
	}
	rows := make([][]any, rec.NumRows())
	for i := range rows {
		row := make([]any, rec.NumCols())
		for j, col := range rec.Columns() {
			if col.IsNull(i) {
				continue
			}
			row[j] = cellValue(types[j], col.ValueStr(i))
		}
		rows[i] = row
	}
	return w.AppendRows(name, header, rows)
}

func cellValue(typ core.LogicalType, s string) any {
	if typ == core.TypeNumeric {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

// Sheets lists the sheets written so far.
func (w *Workbook) Sheets() []string {
	return append([]string(nil), w.sheets...)
}

// SaveAs writes the workbook to path and releases it.
func (w *Workbook) SaveAs(path string) error {
	if err := w.file.SaveAs(path); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return w.file.Close()
}

// ExcelWriter writes records to one worksheet of a new workbook.
type ExcelWriter struct {
	path  string
	sheet string
	book  *Workbook
}

// NewExcelWriter creates a new Excel writer. The sheet defaults to "Sheet1".
func NewExcelWriter(config core.WriterConfig) (core.DatasetWriter, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for Excel writer")
	}
	book, err := NewWorkbook()
	if err != nil {
		return nil, err
	}
	sheet := config.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	}
	return &ExcelWriter{path: config.Path, sheet: sheet, book: book}, nil
}

// Write appends a record to the sheet.
func (w *ExcelWriter) Write(ctx context.Context, record arrow.Record) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return w.book.AppendRecord(w.sheet, record)
}

// Close saves the workbook.
func (w *ExcelWriter) Close() error {
	if w.book == nil {
		return nil
	}
	err := w.book.SaveAs(w.path)
	w.book = nil
	return err
}

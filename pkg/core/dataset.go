// Package core provides the data model and boundary interfaces for the Scour data-quality engine.
package core

import (
	"fmt"
	"strings"
)

// LogicalType is the semantic type of a column.
type LogicalType string

const (
	// TypeUnknown marks a column whose type has not been declared; the profiler infers it.
	TypeUnknown LogicalType = "unknown"
	// TypeNumeric holds integers or floating point numbers.
	TypeNumeric LogicalType = "numeric"
	// TypeText holds free text.
	TypeText LogicalType = "text"
	// TypeCategorical holds a small set of repeated labels.
	TypeCategorical LogicalType = "categorical"
	// TypeDatetime holds dates or timestamps.
	TypeDatetime LogicalType = "datetime"
	// TypeBoolean holds true/false values.
	TypeBoolean LogicalType = "boolean"
)

// LogicalTypes lists every logical type in declaration order.
var LogicalTypes = []LogicalType{TypeUnknown, TypeNumeric, TypeText, TypeCategorical, TypeDatetime, TypeBoolean}

// ParseLogicalType resolves a type name case-insensitively.
func ParseLogicalType(s string) (LogicalType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "", "unknown", "auto":
		return TypeUnknown, nil
	case "number", "float", "integer", "int":
		return TypeNumeric, nil
	case "string", "str", "object":
		return TypeText, nil
	case "category":
		return TypeCategorical, nil
	case "date", "timestamp", "time":
		return TypeDatetime, nil
	case "bool":
		return TypeBoolean, nil
	}
	for _, t := range LogicalTypes {
		if string(t) == name {
			return t, nil
		}
	}
	return TypeUnknown, fmt.Errorf("unknown logical type %q", s)
}

// Textual reports whether the type holds labels rather than parseable values.
func (t LogicalType) Textual() bool {
	return t == TypeText || t == TypeCategorical
}

// Storage is the physical representation of a column's values.
type Storage string

const (
	StorageString     Storage = "string"
	StorageDictionary Storage = "dictionary"
	StorageBool       Storage = "bool"
	StorageInt8       Storage = "int8"
	StorageInt16      Storage = "int16"
	StorageInt32      Storage = "int32"
	StorageInt64      Storage = "int64"
	StorageUint8      Storage = "uint8"
	StorageUint16     Storage = "uint16"
	StorageUint32     Storage = "uint32"
	StorageFloat32    Storage = "float32"
	StorageFloat64    Storage = "float64"
	StorageTimestamp  Storage = "timestamp"
)

// Width returns the fixed byte width of the storage class, or 0 for variable width classes.
func (s Storage) Width() int {
	switch s {
	case StorageBool, StorageInt8, StorageUint8:
		return 1
	case StorageInt16, StorageUint16:
		return 2
	case StorageInt32, StorageUint32, StorageFloat32:
		return 4
	case StorageInt64, StorageFloat64, StorageTimestamp:
		return 8
	}
	return 0
}

// Value is a single cell. Null marks the source's null marker; every other
// cell carries its textual form.
type Value struct {
	Str  string
	Null bool
}

// NullValue returns a null cell.
func NullValue() Value { return Value{Null: true} }

// Text returns a non-null cell.
func Text(s string) Value { return Value{Str: s} }

// String implements fmt.Stringer.
func (v Value) String() string {
	if v.Null {
		return "<null>"
	}
	return v.Str
}

// Column is a named, typed sequence of cells.
type Column struct {
	// Name is the column header.
	Name string `json:"name"`

	// Type is the declared logical type, TypeUnknown when the source did not declare one.
	Type LogicalType `json:"type"`

	// Storage is the physical storage class.
	Storage Storage `json:"storage"`

	// Values holds one cell per row.
	Values []Value `json:"values"`
}

// NewColumn creates a column from raw strings. Nil entries are not possible
// here; use Values directly for nulls.
func NewColumn(name string, typ LogicalType, values ...string) *Column {
	col := &Column{Name: name, Type: typ, Storage: StorageString, Values: make([]Value, len(values))}
	for i, v := range values {
		col.Values[i] = Text(v)
	}
	return col
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Values) }

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	out := *c
	out.Values = make([]Value, len(c.Values))
	copy(out.Values, c.Values)
	return &out
}

// Dataset is an ordered set of equal-length columns. Row identity is the positional index.
type Dataset struct {
	// Name identifies the dataset, for example the sheet or table it was read from.
	Name string `json:"name,omitempty"`

	// Columns are kept in source order.
	Columns []*Column `json:"columns"`
}

// NewDataset creates a dataset from columns.
func NewDataset(name string, cols ...*Column) *Dataset {
	return &Dataset{Name: name, Columns: cols}
}

// NumRows returns the row count. It is the length of the first column.
func (d *Dataset) NumRows() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return d.Columns[0].Len()
}

// NumCols returns the column count.
func (d *Dataset) NumCols() int { return len(d.Columns) }

// Column looks up a column by name.
func (d *Dataset) Column(name string) (*Column, int) {
	for i, c := range d.Columns {
		if c.Name == name {
			return c, i
		}
	}
	return nil, -1
}

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Validate checks the structural invariants of the dataset.
func (d *Dataset) Validate() error {
	if d == nil || len(d.Columns) == 0 {
		return fmt.Errorf("%w: dataset has no columns", ErrMalformedInput)
	}
	seen := make(map[string]struct{}, len(d.Columns))
	rows := d.Columns[0].Len()
	for i, c := range d.Columns {
		if c == nil {
			return fmt.Errorf("%w: column %d is nil", ErrMalformedInput, i)
		}
		if c.Name == "" {
			return fmt.Errorf("%w: column %d has no name", ErrMalformedInput, i)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: duplicate column name %q", ErrMalformedInput, c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.Len() != rows {
			return fmt.Errorf("%w: column %q has %d rows, expected %d", ErrMalformedInput, c.Name, c.Len(), rows)
		}
	}
	return nil
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{Name: d.Name, Columns: make([]*Column, len(d.Columns))}
	for i, c := range d.Columns {
		out.Columns[i] = c.Clone()
	}
	return out
}

// RowKey returns a string that is equal for two rows exactly when every cell is equal.
func (d *Dataset) RowKey(row int) string {
	var b strings.Builder
	for _, c := range d.Columns {
		v := c.Values[row]
		if v.Null {
			b.WriteString("\x00N")
		} else {
			b.WriteString("\x00S")
			b.WriteString(v.Str)
		}
	}
	return b.String()
}

// KeepRows removes every row whose keep flag is false, in place, and returns the number removed.
func (d *Dataset) KeepRows(keep []bool) int {
	removed := 0
	for _, k := range keep {
		if !k {
			removed++
		}
	}
	if removed == 0 {
		return 0
	}
	for _, c := range d.Columns {
		kept := make([]Value, 0, len(keep)-removed)
		for i, v := range c.Values {
			if keep[i] {
				kept = append(kept, v)
			}
		}
		c.Values = kept
	}
	return removed
}

// DropColumn removes the named column in place. It reports whether the column existed.
func (d *Dataset) DropColumn(name string) bool {
	_, idx := d.Column(name)
	if idx < 0 {
		return false
	}
	d.Columns = append(d.Columns[:idx:idx], d.Columns[idx+1:]...)
	return true
}

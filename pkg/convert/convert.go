// Package convert moves data between Arrow records and the in-memory
// dataset the engine works on.
package convert

import (
	"fmt"
	"strconv"

	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/schema"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// FromRecords builds a dataset from record batches sharing sch.
func FromRecords(name string, sch *arrow.Schema, recs []arrow.Record) (*core.Dataset, error) {
	ds := &core.Dataset{Name: name, Columns: make([]*core.Column, sch.NumFields())}
	var rows int64
	for _, rec := range recs {
		rows += rec.NumRows()
	}
	for i, f := range sch.Fields() {
		typ, storage, err := schema.LogicalFromField(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrMalformedInput, err)
		}
		ds.Columns[i] = &core.Column{Name: f.Name, Type: typ, Storage: storage, Values: make([]core.Value, 0, rows)}
	}
	for _, rec := range recs {
		if !rec.Schema().Equal(sch) {
			return nil, fmt.Errorf("%w: record schema differs from source schema", core.ErrMalformedInput)
		}
		for i, arr := range rec.Columns() {
			ds.Columns[i].Values = appendValues(ds.Columns[i].Values, arr)
		}
	}
	return ds, nil
}

// FromRecord builds a dataset from a single record.
func FromRecord(name string, rec arrow.Record) (*core.Dataset, error) {
	return FromRecords(name, rec.Schema(), []arrow.Record{rec})
}

func appendValues(dst []core.Value, arr arrow.Array) []core.Value {
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			dst = append(dst, core.NullValue())
			continue
		}
		dst = append(dst, core.Text(cell(arr, i)))
	}
	return dst
}

// cell renders a non-null cell in the canonical form of its logical type.
func cell(arr arrow.Array, i int) string {
	switch a := arr.(type) {
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Int8:
		return strconv.FormatInt(int64(a.Value(i)), 10)
	case *array.Int16:
		return strconv.FormatInt(int64(a.Value(i)), 10)
	case *array.Int32:
		return strconv.FormatInt(int64(a.Value(i)), 10)
	case *array.Int64:
		return strconv.FormatInt(a.Value(i), 10)
	case *array.Uint8:
		return strconv.FormatUint(uint64(a.Value(i)), 10)
	case *array.Uint16:
		return strconv.FormatUint(uint64(a.Value(i)), 10)
	case *array.Uint32:
		return strconv.FormatUint(uint64(a.Value(i)), 10)
	case *array.Uint64:
		return strconv.FormatUint(a.Value(i), 10)
	case *array.Float32:
		return strconv.FormatFloat(float64(a.Value(i)), 'f', -1, 32)
	case *array.Float64:
		return core.FormatNumber(a.Value(i))
	case *array.Boolean:
		return core.FormatBool(a.Value(i))
	case *array.Date32:
		return core.FormatTime(a.Value(i).ToTime())
	case *array.Date64:
		return core.FormatTime(a.Value(i).ToTime())
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return core.FormatTime(a.Value(i).ToTime(unit))
	case *array.Dictionary:
		return cell(a.Dictionary(), a.GetValueIndex(i))
	}
	return arr.ValueStr(i)
}

// Options control how a dataset is laid out as Arrow.
type Options struct {
	// Typed writes each column with its storage class. When false every
	// column is written as plain strings.
	Typed bool

	// Allocator defaults to the Go allocator.
	Allocator memory.Allocator
}

// ToRecord builds an Arrow record from ds. A typed column whose cells do not
// all parse as its storage class falls back to strings.
func ToRecord(ds *core.Dataset, opts Options) arrow.Record {
	mem := opts.Allocator
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	fields := make([]arrow.Field, len(ds.Columns))
	cols := make([]arrow.Array, len(ds.Columns))
	for i, col := range ds.Columns {
		storage := core.StorageString
		if opts.Typed && fits(col) {
			storage = col.Storage
		}
		fields[i] = schema.Field(col.Name, col.Type, storage)
		cols[i] = build(mem, col, storage)
	}
	rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, int64(ds.NumRows()))
	for _, c := range cols {
		c.Release()
	}
	return rec
}

// fits reports whether every non-null cell parses as the column's storage.
func fits(col *core.Column) bool {
	for _, v := range col.Values {
		if v.Null {
			continue
		}
		if _, ok := parse(col.Storage, v.Str); !ok {
			return false
		}
	}
	return true
}

func parse(storage core.Storage, s string) (any, bool) {
	switch storage {
	case core.StorageBool:
		b, err := strconv.ParseBool(s)
		return b, err == nil
	case core.StorageTimestamp:
		t, err := core.ParseCanonicalTime(s)
		return arrow.Timestamp(t.UnixMicro()), err == nil
	case core.StorageFloat32:
		f, err := strconv.ParseFloat(s, 32)
		return float32(f), err == nil
	case core.StorageFloat64:
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	case core.StorageInt8, core.StorageInt16, core.StorageInt32, core.StorageInt64:
		n, err := strconv.ParseInt(s, 10, storage.Width()*8)
		return n, err == nil
	case core.StorageUint8, core.StorageUint16, core.StorageUint32:
		n, err := strconv.ParseUint(s, 10, storage.Width()*8)
		return n, err == nil
	}
	return s, true
}

func build(mem memory.Allocator, col *core.Column, storage core.Storage) arrow.Array {
	b := array.NewBuilder(mem, schema.ToArrow(storage))
	defer b.Release()
	for _, v := range col.Values {
		if v.Null {
			b.AppendNull()
			continue
		}
		val, _ := parse(storage, v.Str)
		switch bb := b.(type) {
		case *array.StringBuilder:
			bb.Append(v.Str)
		case *array.BinaryDictionaryBuilder:
			if err := bb.AppendString(v.Str); err != nil {
				bb.AppendNull()
			}
		case *array.BooleanBuilder:
			bb.Append(val.(bool))
		case *array.TimestampBuilder:
			bb.Append(val.(arrow.Timestamp))
		case *array.Float32Builder:
			bb.Append(val.(float32))
		case *array.Float64Builder:
			bb.Append(val.(float64))
		case *array.Int8Builder:
			bb.Append(int8(val.(int64)))
		case *array.Int16Builder:
			bb.Append(int16(val.(int64)))
		case *array.Int32Builder:
			bb.Append(int32(val.(int64)))
		case *array.Int64Builder:
			bb.Append(val.(int64))
		case *array.Uint8Builder:
			bb.Append(uint8(val.(uint64)))
		case *array.Uint16Builder:
			bb.Append(uint16(val.(uint64)))
		case *array.Uint32Builder:
			bb.Append(uint32(val.(uint64)))
		}
	}
	return b.NewArray()
}

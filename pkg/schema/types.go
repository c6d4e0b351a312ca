// Package schema maps logical column types to Arrow types and validates
// declared column types against a dataset.
package schema

import (
	"fmt"
	"slices"

	"github.com/TFMV/scour/pkg/core"
	"github.com/apache/arrow-go/v18/arrow"
)

// FromArrow maps an Arrow type to a logical type and a storage class.
// Types without a natural logical counterpart map to text.
func FromArrow(dt arrow.DataType) (core.LogicalType, core.Storage) {
	switch dt.ID() {
	case arrow.INT8:
		return core.TypeNumeric, core.StorageInt8
	case arrow.INT16:
		return core.TypeNumeric, core.StorageInt16
	case arrow.INT32:
		return core.TypeNumeric, core.StorageInt32
	case arrow.INT64, arrow.UINT64:
		return core.TypeNumeric, core.StorageInt64
	case arrow.UINT8:
		return core.TypeNumeric, core.StorageUint8
	case arrow.UINT16:
		return core.TypeNumeric, core.StorageUint16
	case arrow.UINT32:
		return core.TypeNumeric, core.StorageUint32
	case arrow.FLOAT16, arrow.FLOAT32:
		return core.TypeNumeric, core.StorageFloat32
	case arrow.FLOAT64, arrow.DECIMAL128, arrow.DECIMAL256:
		return core.TypeNumeric, core.StorageFloat64
	case arrow.BOOL:
		return core.TypeBoolean, core.StorageBool
	case arrow.DATE32, arrow.DATE64, arrow.TIMESTAMP:
		return core.TypeDatetime, core.StorageTimestamp
	case arrow.DICTIONARY:
		return core.TypeCategorical, core.StorageDictionary
	case arrow.STRING, arrow.LARGE_STRING, arrow.BINARY, arrow.LARGE_BINARY:
		return core.TypeUnknown, core.StorageString
	}
	return core.TypeText, core.StorageString
}

// ToArrow returns the Arrow type used to write a storage class.
func ToArrow(s core.Storage) arrow.DataType {
	switch s {
	case core.StorageInt8:
		return arrow.PrimitiveTypes.Int8
	case core.StorageInt16:
		return arrow.PrimitiveTypes.Int16
	case core.StorageInt32:
		return arrow.PrimitiveTypes.Int32
	case core.StorageInt64:
		return arrow.PrimitiveTypes.Int64
	case core.StorageUint8:
		return arrow.PrimitiveTypes.Uint8
	case core.StorageUint16:
		return arrow.PrimitiveTypes.Uint16
	case core.StorageUint32:
		return arrow.PrimitiveTypes.Uint32
	case core.StorageFloat32:
		return arrow.PrimitiveTypes.Float32
	case core.StorageFloat64:
		return arrow.PrimitiveTypes.Float64
	case core.StorageBool:
		return arrow.FixedWidthTypes.Boolean
	case core.StorageTimestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	case core.StorageDictionary:
		return &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int32, ValueType: arrow.BinaryTypes.String}
	}
	return arrow.BinaryTypes.String
}

// Field builds the Arrow field of a column stored as storage. The logical
// type is kept in the field metadata so that a round trip through Arrow
// preserves declarations.
func Field(name string, typ core.LogicalType, storage core.Storage) arrow.Field {
	md := arrow.NewMetadata([]string{MetadataLogicalType}, []string{string(typ)})
	return arrow.Field{Name: name, Type: ToArrow(storage), Nullable: true, Metadata: md}
}

// MetadataLogicalType is the field metadata key carrying the logical type.
const MetadataLogicalType = "scour.logical_type"

// LogicalFromField reads the logical type from field metadata, falling back to the Arrow type.
func LogicalFromField(f arrow.Field) (core.LogicalType, core.Storage, error) {
	typ, storage := FromArrow(f.Type)
	if v, ok := f.Metadata.GetValue(MetadataLogicalType); ok {
		declared, err := core.ParseLogicalType(v)
		if err != nil {
			return typ, storage, fmt.Errorf("field %q: %w", f.Name, err)
		}
		typ = declared
	}
	return typ, storage, nil
}

// MetadataDataset is the schema metadata key carrying the dataset name.
const MetadataDataset = "scour.dataset"

// DatasetName returns the dataset name recorded in the schema metadata.
func DatasetName(sch *arrow.Schema) (string, bool) {
	md := sch.Metadata()
	name, ok := md.GetValue(MetadataDataset)
	return name, ok && name != ""
}

// Annotate returns sch with a logical type on every field whose Arrow type
// implies one, and with dataset recorded in the schema metadata. Existing
// logical types are kept.
func Annotate(sch *arrow.Schema, dataset string) *arrow.Schema {
	fields := sch.Fields()
	for i, f := range fields {
		if _, ok := f.Metadata.GetValue(MetadataLogicalType); ok {
			continue
		}
		typ, _ := FromArrow(f.Type)
		if typ == core.TypeUnknown {
			continue
		}
		fields[i].Metadata = withValue(f.Metadata, MetadataLogicalType, string(typ))
	}
	md := sch.Metadata()
	if dataset != "" {
		md = withValue(md, MetadataDataset, dataset)
	}
	return arrow.NewSchema(fields, &md)
}

func withValue(md arrow.Metadata, key, value string) arrow.Metadata {
	keys, values := slices.Clone(md.Keys()), slices.Clone(md.Values())
	if i := md.FindKey(key); i >= 0 {
		values[i] = value
	} else {
		keys, values = append(keys, key), append(values, value)
	}
	return arrow.NewMetadata(keys, values)
}

package readers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/TFMV/scour/pkg/convert"
	"github.com/TFMV/scour/pkg/core"
)

// NewJSONReader reads a JSON array of objects. Columns appear in the order
// their keys are first seen; a key absent from a row reads as null.
func NewJSONReader(config core.ReaderConfig) (core.DatasetReader, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for JSON reader")
	}
	f, err := os.Open(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer f.Close()

	ds, err := decodeRows(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrMalformedInput, config.Path, err)
	}
	rec := convert.ToRecord(ds, convert.Options{})
	return newRecordReader(rec.Schema(), rec), nil
}

// DecodeJSON reads a JSON array of objects from r, as NewJSONReader does for files.
func DecodeJSON(r io.Reader, name string) (*core.Dataset, error) {
	ds, err := decodeRows(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedInput, err)
	}
	ds.Name = name
	return ds, nil
}

func decodeRows(r io.Reader) (*core.Dataset, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}
	ds := &core.Dataset{}
	index := map[string]int{}
	rows := 0
	for dec.More() {
		var obj map[string]json.RawMessage
		keys, err := decodeObject(dec, &obj)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rows, err)
		}
		for _, k := range keys {
			if _, ok := index[k]; ok {
				continue
			}
			index[k] = len(ds.Columns)
			col := &core.Column{Name: k, Type: core.TypeUnknown, Storage: core.StorageString, Values: make([]core.Value, rows)}
			for i := range col.Values {
				col.Values[i] = core.NullValue()
			}
			ds.Columns = append(ds.Columns, col)
		}
		for _, col := range ds.Columns {
			raw, ok := obj[col.Name]
			if !ok {
				col.Values = append(col.Values, core.NullValue())
				continue
			}
			col.Values = append(col.Values, jsonCell(raw))
		}
		rows++
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	if len(ds.Columns) == 0 {
		return nil, errors.New("no columns")
	}
	return ds, nil
}

// decodeObject decodes one object into obj and returns its keys in document order.
func decodeObject(dec *json.Decoder, obj *map[string]json.RawMessage) ([]string, error) {
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, obj); err != nil {
		return nil, err
	}
	inner := json.NewDecoder(bytes.NewReader(raw))
	if err := expectDelim(inner, '{'); err != nil {
		return nil, err
	}
	var keys []string
	for inner.More() {
		tok, err := inner.Token()
		if err != nil {
			return nil, err
		}
		keys = append(keys, tok.(string))
		var skip json.RawMessage
		if err := inner.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func jsonCell(raw json.RawMessage) core.Value {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return core.Text(string(raw))
	}
	switch t := v.(type) {
	case nil:
		return core.NullValue()
	case string:
		return core.Text(t)
	case json.Number:
		return core.Text(t.String())
	case bool:
		return core.Text(core.FormatBool(t))
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return core.Text(string(raw))
	}
	return core.Text(buf.String())
}

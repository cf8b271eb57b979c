// Copyright 2025 The DBQ Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package readers

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/DataBridgeTech/dqacore"
	"github.com/buger/jsonparser"
)

// JsonReader reads a file holding one JSON value. An array yields one row per element, a single object
// is flattened into one row with nested keys joined by dots. Column order follows first appearance.
type JsonReader struct{}

func NewJsonReader() *JsonReader {
	return &JsonReader{}
}

func (r *JsonReader) ReadSample(path string, rows int) (*dqacore.Table, error) {
	table, err := r.ReadFull(path)
	if err != nil {
		return nil, err
	}
	return table.Head(sampleSize(rows)), nil
}

func (r *JsonReader) ReadFull(path string) (*dqacore.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	b := newRecordBuilder()
	switch dataType {
	case jsonparser.Array:
		var elemErr error
		_, err = jsonparser.ArrayEach(value, func(elem []byte, elemType jsonparser.ValueType, _ int, err error) {
			if elemErr != nil {
				return
			}
			if err != nil {
				elemErr = err
				return
			}
			elemErr = b.addElement(elem, elemType)
		})
		if err == nil {
			err = elemErr
		}
	case jsonparser.Object:
		row := make(map[string]any)
		err = flattenObject(value, "", row, b)
		if err == nil {
			b.rows = append(b.rows, row)
		}
	default:
		err = errors.New("expected a json array or object at top level")
	}
	if err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	return b.table(), nil
}

type recordBuilder struct {
	columns []string
	types   map[string]string
	seen    map[string]bool
	rows    []map[string]any
}

func newRecordBuilder() *recordBuilder {
	return &recordBuilder{types: make(map[string]string), seen: make(map[string]bool)}
}

func (b *recordBuilder) observe(column string, value any, dataType jsonparser.ValueType) {
	if !b.seen[column] {
		b.seen[column] = true
		b.columns = append(b.columns, column)
	}
	if value == nil {
		return
	}

	t := nativeJsonType(value, dataType)
	switch prev := b.types[column]; {
	case prev == "":
		b.types[column] = t
	case prev == "int64" && t == "float64":
		b.types[column] = t
	case prev == "float64" && t == "int64":
	case prev != t:
		b.types[column] = "object"
	}
}

func (b *recordBuilder) addElement(elem []byte, elemType jsonparser.ValueType) error {
	row := make(map[string]any)
	if elemType != jsonparser.Object {
		v, err := parseJsonValue(elem, elemType)
		if err != nil {
			return err
		}
		row["0"] = v
		b.observe("0", v, elemType)
		b.rows = append(b.rows, row)
		return nil
	}

	err := jsonparser.ObjectEach(elem, func(key []byte, value []byte, dataType jsonparser.ValueType, _ int) error {
		name, err := jsonparser.ParseString(key)
		if err != nil {
			return err
		}
		v, err := parseJsonValue(value, dataType)
		if err != nil {
			return err
		}
		row[name] = v
		b.observe(name, v, dataType)
		return nil
	})
	if err != nil {
		return err
	}

	b.rows = append(b.rows, row)
	return nil
}

func flattenObject(data []byte, prefix string, row map[string]any, b *recordBuilder) error {
	return jsonparser.ObjectEach(data, func(key []byte, value []byte, dataType jsonparser.ValueType, _ int) error {
		name, err := jsonparser.ParseString(key)
		if err != nil {
			return err
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if dataType == jsonparser.Object {
			return flattenObject(value, name, row, b)
		}

		v, err := parseJsonValue(value, dataType)
		if err != nil {
			return err
		}
		row[name] = v
		b.observe(name, v, dataType)
		return nil
	})
}

func (b *recordBuilder) table() *dqacore.Table {
	table := &dqacore.Table{
		Columns: b.columns,
		Types:   make([]string, len(b.columns)),
		Rows:    make([][]any, len(b.rows)),
	}
	for i, col := range b.columns {
		if t := b.types[col]; t != "string" {
			table.Types[i] = t
		}
	}
	for i, rec := range b.rows {
		row := make([]any, len(b.columns))
		for j, col := range b.columns {
			row[j] = rec[col]
		}
		table.Rows[i] = row
	}
	return table
}

func parseJsonValue(value []byte, dataType jsonparser.ValueType) (any, error) {
	switch dataType {
	case jsonparser.Null:
		return nil, nil
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(value)
	case jsonparser.Number:
		if n, err := strconv.ParseInt(string(value), 10, 64); err == nil {
			return n, nil
		}
		return jsonparser.ParseFloat(value)
	case jsonparser.Object, jsonparser.Array:
		return string(value), nil
	default:
		return nil, fmt.Errorf("unexpected json value %q", value)
	}
}

// nativeJsonType returns the type carried by the json encoding. Strings report "string" and have their
// type inferred from their text later.
func nativeJsonType(value any, dataType jsonparser.ValueType) string {
	switch value.(type) {
	case int64:
		return "int64"
	case float64:
		return "float64"
	case bool:
		return "bool"
	}
	if dataType == jsonparser.Object || dataType == jsonparser.Array {
		return "object"
	}
	return "string"
}

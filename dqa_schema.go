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

package dqacore

import "fmt"

// ColumnInfo represents the basic information of a column.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// DatasetSchema is the ordered list of columns derived from a bounded sample of a dataset.
type DatasetSchema struct {
	Dataset string       `json:"dataset"`
	Columns []ColumnInfo `json:"columns"`
}

// ColumnNames returns the column names in schema order.
func (s *DatasetSchema) ColumnNames() []string {
	names := make([]string, 0, len(s.Columns))
	for _, col := range s.Columns {
		names = append(names, col.Name)
	}
	return names
}

// Table is a materialised tabular value produced by file readers.
// A nil cell is a null value.
type Table struct {
	Columns []string
	// Types holds the native column types when the source format carries them,
	// aligned with Columns. Empty entries mean the type is unknown.
	Types []string
	Rows  [][]any
}

// Head returns a table holding at most the first n rows. Rows are shared, not copied.
func (t *Table) Head(n int) *Table {
	if n < 0 || n >= len(t.Rows) {
		return t
	}

	return &Table{
		Columns: t.Columns,
		Types:   t.Types,
		Rows:    t.Rows[:n],
	}
}

// ColumnIndex returns the position of the named column or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// ColumnValues returns all cells of the named column in row order.
func (t *Table) ColumnValues(name string) ([]any, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}

	values := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			values[i] = row[idx]
		}
	}
	return values, nil
}

// NativeType returns the native type of the column at idx, or "" when unknown.
func (t *Table) NativeType(idx int) string {
	if idx < 0 || idx >= len(t.Types) {
		return ""
	}
	return t.Types[idx]
}

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

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TableDataset is a DatasetHandle over a table that is already materialised in memory.
// It is meant for small datasets and tests; large files go through a DuckDB backed handle.
type TableDataset struct {
	name  string
	table *Table
}

func NewTableDataset(name string, table *Table) *TableDataset {
	return &TableDataset{name: name, table: table}
}

func (d *TableDataset) Name() string {
	return d.name
}

func (d *TableDataset) Columns(_ context.Context) ([]ColumnInfo, error) {
	cols := make([]ColumnInfo, len(d.table.Columns))
	for i, name := range d.table.Columns {
		cols[i] = ColumnInfo{Name: name, Type: d.table.NativeType(i)}
	}
	return cols, nil
}

func (d *TableDataset) CountRows(_ context.Context) (uint64, error) {
	return uint64(len(d.table.Rows)), nil
}

func (d *TableDataset) SampleRows(_ context.Context, limit int) (*Table, error) {
	return d.table.Head(limit), nil
}

func (d *TableDataset) CountNulls(_ context.Context, column string) (uint64, error) {
	values, err := d.table.ColumnValues(column)
	if err != nil {
		return 0, err
	}
	return CountNullValues(values), nil
}

func (d *TableDataset) CountDuplicatedRows(_ context.Context, column string) (uint64, error) {
	values, err := d.table.ColumnValues(column)
	if err != nil {
		return 0, err
	}
	return CountDuplicatedRows(values), nil
}

func (d *TableDataset) CountOutOfRange(_ context.Context, column string, bounds Range) (uint64, error) {
	values, err := d.table.ColumnValues(column)
	if err != nil {
		return 0, err
	}
	return CountOutOfRangeValues(values, bounds)
}

func (d *TableDataset) CountPatternMismatches(_ context.Context, column string, pattern string) (uint64, error) {
	values, err := d.table.ColumnValues(column)
	if err != nil {
		return 0, err
	}
	re, err := CompileAnchoredPattern(pattern)
	if err != nil {
		return 0, err
	}
	return CountPatternMismatchValues(values, re), nil
}

// CountNullValues counts nil cells and float NaN cells.
func CountNullValues(values []any) uint64 {
	var nulls uint64
	for _, v := range values {
		if IsNullValue(v) {
			nulls++
		}
	}
	return nulls
}

// CountDuplicatedRows implements the duplicated-rows algorithm used by the unique check: null values are
// dropped, the remaining values are grouped by equality, and the sizes of all groups with more than one
// member are summed. A value seen three times contributes three, not two.
func CountDuplicatedRows(values []any) uint64 {
	groups := make(map[string]uint64)
	for _, v := range values {
		if IsNullValue(v) {
			continue
		}
		groups[groupKey(v)]++
	}

	var duplicated uint64
	for _, size := range groups {
		if size > 1 {
			duplicated += size
		}
	}
	return duplicated
}

// CountOutOfRangeValues counts non-null values below bounds.Min or above bounds.Max. A value that cannot
// be compared numerically is an error.
func CountOutOfRangeValues(values []any, bounds Range) (uint64, error) {
	var outside uint64
	for i, v := range values {
		if IsNullValue(v) {
			continue
		}
		num, err := toFloat(v)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
		if !bounds.Contains(num) {
			outside++
		}
	}
	return outside, nil
}

// CountPatternMismatchValues counts values that re does not match. Null values are mismatches.
func CountPatternMismatchValues(values []any, re *regexp.Regexp) uint64 {
	var mismatches uint64
	for _, v := range values {
		if IsNullValue(v) {
			mismatches++
			continue
		}
		if !re.MatchString(formatValue(v)) {
			mismatches++
		}
	}
	return mismatches
}

// CompileAnchoredPattern compiles pattern so that it only matches at the start of a value.
func CompileAnchoredPattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(AnchorPattern(pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
	}
	return re, nil
}

// AnchorPattern wraps pattern in a start-of-string anchor.
func AnchorPattern(pattern string) string {
	return "^(?:" + pattern + ")"
}

// IsNullValue reports whether a cell is null.
func IsNullValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(val)
	case float32:
		return math.IsNaN(float64(val))
	}
	return false
}

func groupKey(v any) string {
	if num, err := toFloat(v); err == nil {
		if _, isString := v.(string); !isString {
			return "n:" + strconv.FormatFloat(num, 'g', -1, 64)
		}
	}
	return fmt.Sprintf("%T:%v", v, v)
}

func toFloat(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case json.Number:
		return val.Float64()
	case string:
		num, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot compare %q with a numeric bound", val)
		}
		return num, nil
	default:
		return 0, fmt.Errorf("cannot compare value of type %T with a numeric bound", v)
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

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
	"math"
	"reflect"
	"testing"
)

func TestCountDuplicatedRows(t *testing.T) {
	tests := []struct {
		name     string
		values   []any
		expected uint64
	}{
		{name: "all identical", values: []any{int64(104), int64(104), int64(104)}, expected: 3},
		{name: "all distinct", values: []any{int64(1), int64(2), int64(3)}, expected: 0},
		{name: "nulls ignored", values: []any{nil, nil, math.NaN(), "a"}, expected: 0},
		{name: "two groups", values: []any{"a", "a", "b", "b", "b", "c", nil}, expected: 5},
		{name: "numeric kinds compare by value", values: []any{int64(1), float64(1), 2}, expected: 2},
		{name: "string is not a number", values: []any{"1", int64(1)}, expected: 0},
		{name: "empty", values: nil, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountDuplicatedRows(tt.values); got != tt.expected {
				t.Errorf("CountDuplicatedRows(%v) = %d, want %d", tt.values, got, tt.expected)
			}
		})
	}
}

func TestCountOutOfRangeValues(t *testing.T) {
	tests := []struct {
		name     string
		values   []any
		bounds   Range
		expected uint64
		wantErr  bool
	}{
		{
			name:     "inclusive bounds",
			values:   []any{int64(17), int64(18), int64(100), int64(101), nil},
			bounds:   Range{Min: 18, Max: 100},
			expected: 2,
		},
		{
			name:     "numeric strings",
			values:   []any{"17", " 50 ", "100.5"},
			bounds:   Range{Min: 18, Max: 100},
			expected: 2,
		},
		{
			name:     "floats and NaN",
			values:   []any{17.9, 18.0, math.NaN()},
			bounds:   Range{Min: 18, Max: 100},
			expected: 1,
		},
		{
			name:    "non numeric value",
			values:  []any{int64(20), "twenty"},
			bounds:  Range{Min: 18, Max: 100},
			wantErr: true,
		},
		{
			name:    "unsupported type",
			values:  []any{true},
			bounds:  Range{Min: 0, Max: 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CountOutOfRangeValues(tt.values, tt.bounds)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("CountOutOfRangeValues() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestCountPatternMismatchValues(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		values   []any
		expected uint64
	}{
		{
			name:     "email",
			pattern:  `[^@]+@[^@]+\.[^@]+`,
			values:   []any{"a@b.com", "not-an-email", nil},
			expected: 2,
		},
		{
			name:     "anchored at start only",
			pattern:  `b`,
			values:   []any{"ab", "bc", "b"},
			expected: 1,
		},
		{
			name:     "alternation stays anchored",
			pattern:  `x|y`,
			values:   []any{"xa", "ay", "yb"},
			expected: 1,
		},
		{
			name:     "numbers are matched as text",
			pattern:  `\d{3}$`,
			values:   []any{int64(104), 1.5, int64(12)},
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := CompileAnchoredPattern(tt.pattern)
			if err != nil {
				t.Fatalf("CompileAnchoredPattern() error: %v", err)
			}
			if got := CountPatternMismatchValues(tt.values, re); got != tt.expected {
				t.Errorf("CountPatternMismatchValues() = %d, want %d", got, tt.expected)
			}
		})
	}

	if _, err := CompileAnchoredPattern(`(`); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestCountNullValues(t *testing.T) {
	values := []any{nil, "", int64(0), math.NaN(), float32(math.NaN()), "x"}
	if got := CountNullValues(values); got != 3 {
		t.Errorf("CountNullValues() = %d, want 3", got)
	}
}

func TestTableDataset(t *testing.T) {
	ctx := context.Background()
	table := &Table{
		Columns: []string{"id", "name"},
		Types:   []string{"integer", ""},
		Rows: [][]any{
			{int64(1), "a"},
			{int64(2), nil},
			{int64(2)},
		},
	}
	dataset := NewTableDataset("people", table)

	if dataset.Name() != "people" {
		t.Errorf("Name() = %q", dataset.Name())
	}

	cols, err := dataset.Columns(ctx)
	if err != nil {
		t.Fatalf("Columns() error: %v", err)
	}
	expectedCols := []ColumnInfo{{Name: "id", Type: "integer"}, {Name: "name", Type: ""}}
	if !reflect.DeepEqual(cols, expectedCols) {
		t.Errorf("Columns() = %v, want %v", cols, expectedCols)
	}

	if rows, _ := dataset.CountRows(ctx); rows != 3 {
		t.Errorf("CountRows() = %d, want 3", rows)
	}
	if nulls, _ := dataset.CountNulls(ctx, "name"); nulls != 2 {
		t.Errorf("CountNulls(name) = %d, want 2", nulls)
	}
	if dups, _ := dataset.CountDuplicatedRows(ctx, "id"); dups != 2 {
		t.Errorf("CountDuplicatedRows(id) = %d, want 2", dups)
	}
	if _, err := dataset.CountNulls(ctx, "missing"); err == nil {
		t.Error("expected error for missing column")
	}

	sample, err := dataset.SampleRows(ctx, 2)
	if err != nil || len(sample.Rows) != 2 {
		t.Errorf("SampleRows(2) = %v, %v", sample, err)
	}
}

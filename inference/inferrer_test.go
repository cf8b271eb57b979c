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

package inference

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/DataBridgeTech/dqacore"
)

func TestInferColumnType(t *testing.T) {
	tests := []struct {
		name     string
		values   []any
		expected string
	}{
		{"integers", []any{"1", "2", "-3"}, TypeInteger},
		{"integers with nulls", []any{"1", nil, " 7 "}, TypeInteger},
		{"booleans", []any{"true", "False", "yes"}, TypeBoolean},
		{"reals", []any{"1.5", "2", "3e10"}, TypeReal},
		{"dates", []any{"2024-01-01", "2024-12-31"}, TypeDate},
		{"timestamps", []any{"2024-01-01 10:00:00", "2024-01-02"}, TypeTimestamp},
		{"rfc3339", []any{"2024-01-01T10:00:00Z"}, TypeTimestamp},
		{"mixed text", []any{"1", "abc"}, TypeText},
		{"all null", []any{nil, nil}, TypeText},
		{"empty", nil, TypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferColumnType(tt.values); got != tt.expected {
				t.Errorf("InferColumnType(%v) = %q, want %q", tt.values, got, tt.expected)
			}
		})
	}
}

func TestInferSchemaCsv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "employees.csv")
	content := "id,email,age,salary,hired_on\n" +
		"101,a@b.com,34,55000.50,2021-03-01\n" +
		"102,not-an-email,17,61000,2022-07-15\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	schema, err := NewInferrer(nil, nil).InferSchema(path)
	if err != nil {
		t.Fatalf("InferSchema() error: %v", err)
	}

	if schema.Dataset != "employees" {
		t.Errorf("expected dataset employees, got %q", schema.Dataset)
	}
	expected := []dqacore.ColumnInfo{
		{Name: "id", Type: TypeInteger},
		{Name: "email", Type: TypeText},
		{Name: "age", Type: TypeInteger},
		{Name: "salary", Type: TypeReal},
		{Name: "hired_on", Type: TypeDate},
	}
	if !reflect.DeepEqual(schema.Columns, expected) {
		t.Errorf("columns = %v, want %v", schema.Columns, expected)
	}
}

func TestInferSchemaJsonNativeTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	if err := os.WriteFile(path, []byte(`[{"id": 1, "ok": true, "code": "7"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	schema, err := NewInferrer(nil, nil).InferSchema(path)
	if err != nil {
		t.Fatalf("InferSchema() error: %v", err)
	}

	expected := []dqacore.ColumnInfo{
		{Name: "id", Type: "int64"},
		{Name: "ok", Type: "bool"},
		{Name: "code", Type: TypeInteger},
	}
	if !reflect.DeepEqual(schema.Columns, expected) {
		t.Errorf("columns = %v, want %v", schema.Columns, expected)
	}
}

func TestInferSchemaErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := NewInferrer(nil, nil).InferSchema(filepath.Join(dir, "notes.md"))
		var unsupported *dqacore.UnsupportedFormatError
		if !errors.As(err, &unsupported) {
			t.Fatalf("expected UnsupportedFormatError, got %v", err)
		}
		if unsupported.Extension != ".md" {
			t.Errorf("expected extension .md, got %q", unsupported.Extension)
		}
	})

	t.Run("malformed csv", func(t *testing.T) {
		path := filepath.Join(dir, "broken.csv")
		if err := os.WriteFile(path, []byte("a,b\n1,2,3\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		_, err := NewInferrer(nil, nil).InferSchema(path)
		var readErr *dqacore.ReadError
		if !errors.As(err, &readErr) {
			t.Fatalf("expected ReadError, got %v", err)
		}
		if !strings.Contains(err.Error(), path) {
			t.Errorf("expected error to mention %s, got %q", path, err.Error())
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewInferrer(nil, nil).InferSchema(filepath.Join(dir, "missing.csv"))
		var readErr *dqacore.ReadError
		if !errors.As(err, &readErr) {
			t.Fatalf("expected ReadError, got %v", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
		}
	})
}

func TestWithSampleRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.csv")
	// the sixth row is text; it only matters when more than five rows are sampled
	content := "v\n1\n2\n3\n4\n5\nsix\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	schema, err := NewInferrer(nil, nil).InferSchema(path)
	if err != nil {
		t.Fatal(err)
	}
	if schema.Columns[0].Type != TypeInteger {
		t.Errorf("default sample: expected integer, got %q", schema.Columns[0].Type)
	}

	schema, err = NewInferrer(nil, nil, WithSampleRows(10)).InferSchema(path)
	if err != nil {
		t.Fatal(err)
	}
	if schema.Columns[0].Type != TypeText {
		t.Errorf("larger sample: expected text, got %q", schema.Columns[0].Type)
	}
}

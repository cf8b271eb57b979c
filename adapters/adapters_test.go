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

package adapters

import (
	"reflect"
	"testing"

	"github.com/DataBridgeTech/dqacore"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		adapter  dqacore.DqaDataSourceAdapter
		input    string
		expected string
	}{
		{"duckdb plain", NewDuckdbDqaDataSourceAdapter(nil), "email", `"email"`},
		{"duckdb embedded quote", NewDuckdbDqaDataSourceAdapter(nil), `a"b`, `"a""b"`},
		{"postgresql space", NewPostgresqlDqaDataSourceAdapter(nil), "first name", `"first name"`},
		{"mysql backtick", NewMysqlDqaDataSourceAdapter(nil), "a`b", "`a``b`"},
		{"clickhouse plain", NewClickhouseDqaDataSourceAdapter(nil), "id", "`id`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.adapter.QuoteIdentifier(tt.input); got != tt.expected {
				t.Errorf("QuoteIdentifier(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNullCountQuery(t *testing.T) {
	tests := []struct {
		name         string
		adapter      dqacore.DqaDataSourceAdapter
		scope        dqacore.RowScope
		expectedSQL  string
		expectedArgs []any
	}{
		{
			name:        "duckdb without scope",
			adapter:     NewDuckdbDqaDataSourceAdapter(nil),
			expectedSQL: `SELECT COUNT(*) FROM employees WHERE "email" IS NULL`,
		},
		{
			name:         "postgresql with range scope",
			adapter:      NewPostgresqlDqaDataSourceAdapter(nil),
			scope:        dqacore.RowScope{IndexColumn: "id", Lower: int64(1), Upper: int64(50)},
			expectedSQL:  `SELECT COUNT(*) FROM employees WHERE "email" IS NULL AND ("id" >= $1 AND "id" < $2)`,
			expectedArgs: []any{int64(1), int64(50)},
		},
		{
			name:         "mysql with inclusive upper bound",
			adapter:      NewMysqlDqaDataSourceAdapter(nil),
			scope:        dqacore.RowScope{IndexColumn: "id", Lower: 50.0, Upper: 100.0, UpperInclusive: true},
			expectedSQL:  "SELECT COUNT(*) FROM employees WHERE `email` IS NULL AND (`id` >= ? AND `id` <= ?)",
			expectedArgs: []any{50.0, 100.0},
		},
		{
			name:        "clickhouse null index scope",
			adapter:     NewClickhouseDqaDataSourceAdapter(nil),
			scope:       dqacore.RowScope{IndexColumn: "id", NullIndex: true},
			expectedSQL: "SELECT COUNT(*) FROM employees WHERE `email` IS NULL AND `id` IS NULL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.adapter.NullCountQuery("employees", "email", tt.scope)
			if sql != tt.expectedSQL {
				t.Errorf("NullCountQuery() sql = %q, want %q", sql, tt.expectedSQL)
			}
			if !reflect.DeepEqual(args, tt.expectedArgs) {
				t.Errorf("NullCountQuery() args = %v, want %v", args, tt.expectedArgs)
			}
		})
	}
}

func TestDuplicatedRowsQuery(t *testing.T) {
	tests := []struct {
		name        string
		adapter     dqacore.DqaDataSourceAdapter
		expectedSQL string
	}{
		{
			name:        "duckdb",
			adapter:     NewDuckdbDqaDataSourceAdapter(nil),
			expectedSQL: `SELECT CAST(COALESCE(SUM(cnt), 0) AS BIGINT) FROM (SELECT COUNT(*) AS cnt FROM t WHERE "id" IS NOT NULL GROUP BY "id" HAVING COUNT(*) > 1) AS dup`,
		},
		{
			name:        "mysql",
			adapter:     NewMysqlDqaDataSourceAdapter(nil),
			expectedSQL: "SELECT CAST(COALESCE(SUM(cnt), 0) AS SIGNED) FROM (SELECT COUNT(*) AS cnt FROM t WHERE `id` IS NOT NULL GROUP BY `id` HAVING COUNT(*) > 1) AS dup",
		},
		{
			name:        "clickhouse",
			adapter:     NewClickhouseDqaDataSourceAdapter(nil),
			expectedSQL: "SELECT toUInt64(COALESCE(SUM(cnt), 0)) FROM (SELECT COUNT(*) AS cnt FROM t WHERE `id` IS NOT NULL GROUP BY `id` HAVING COUNT(*) > 1) AS dup",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.adapter.DuplicatedRowsQuery("t", "id")
			if sql != tt.expectedSQL {
				t.Errorf("DuplicatedRowsQuery() = %q, want %q", sql, tt.expectedSQL)
			}
			if len(args) != 0 {
				t.Errorf("expected no args, got %v", args)
			}
		})
	}
}

func TestOutOfRangeQuery(t *testing.T) {
	bounds := dqacore.Range{Min: 18, Max: 100}

	sql, args := NewPostgresqlDqaDataSourceAdapter(nil).OutOfRangeQuery("public.employees", "age", bounds,
		dqacore.RowScope{IndexColumn: "id", Lower: 0.0, Upper: 10.0})
	expected := `SELECT COUNT(*) FROM public.employees WHERE ("age" < $1 OR "age" > $2) AND ("id" >= $3 AND "id" < $4)`
	if sql != expected {
		t.Errorf("OutOfRangeQuery() = %q, want %q", sql, expected)
	}
	if !reflect.DeepEqual(args, []any{18.0, 100.0, 0.0, 10.0}) {
		t.Errorf("unexpected args: %v", args)
	}

	sql, args = NewDuckdbDqaDataSourceAdapter(nil).OutOfRangeQuery(`"employees"`, "age", bounds, dqacore.RowScope{})
	expected = `SELECT COUNT(*) FROM "employees" WHERE ("age" < ? OR "age" > ?)`
	if sql != expected {
		t.Errorf("OutOfRangeQuery() = %q, want %q", sql, expected)
	}
	if !reflect.DeepEqual(args, []any{18.0, 100.0}) {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestPatternMismatchQuery(t *testing.T) {
	pattern := `[^@]+@[^@]+\.[^@]+`
	anchored := `^(?:[^@]+@[^@]+\.[^@]+)`

	tests := []struct {
		name        string
		adapter     dqacore.DqaDataSourceAdapter
		expectedSQL string
	}{
		{
			name:        "duckdb",
			adapter:     NewDuckdbDqaDataSourceAdapter(nil),
			expectedSQL: `SELECT COUNT(*) FROM t WHERE NOT COALESCE(regexp_matches(CAST("email" AS VARCHAR), ?), FALSE)`,
		},
		{
			name:        "postgresql",
			adapter:     NewPostgresqlDqaDataSourceAdapter(nil),
			expectedSQL: `SELECT COUNT(*) FROM t WHERE NOT COALESCE(CAST("email" AS TEXT) ~ $1, FALSE)`,
		},
		{
			name:        "mysql",
			adapter:     NewMysqlDqaDataSourceAdapter(nil),
			expectedSQL: "SELECT COUNT(*) FROM t WHERE COALESCE(REGEXP_LIKE(CAST(`email` AS CHAR), ?), 0) = 0",
		},
		{
			name:        "clickhouse",
			adapter:     NewClickhouseDqaDataSourceAdapter(nil),
			expectedSQL: "SELECT COUNT(*) FROM t WHERE NOT ifNull(match(toString(`email`), ?), 0)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.adapter.PatternMismatchQuery("t", "email", pattern, dqacore.RowScope{})
			if sql != tt.expectedSQL {
				t.Errorf("PatternMismatchQuery() = %q, want %q", sql, tt.expectedSQL)
			}
			if !reflect.DeepEqual(args, []any{anchored}) {
				t.Errorf("PatternMismatchQuery() args = %v, want [%s]", args, anchored)
			}
		})
	}
}

func TestIndexBoundsQuery(t *testing.T) {
	tests := []struct {
		adapter  dqacore.DqaDataSourceAdapter
		expected string
	}{
		{NewDuckdbDqaDataSourceAdapter(nil), `SELECT MIN("id"), MAX("id") FROM t`},
		{NewPostgresqlDqaDataSourceAdapter(nil), `SELECT MIN("id"), MAX("id") FROM t`},
		{NewClickhouseDqaDataSourceAdapter(nil), "SELECT MIN(`id`), MAX(`id`) FROM t"},
	}

	for _, tt := range tests {
		t.Run(tt.adapter.Dialect(), func(t *testing.T) {
			if got := tt.adapter.IndexBoundsQuery("t", "id"); got != tt.expected {
				t.Errorf("IndexBoundsQuery() = %q, want %q", got, tt.expected)
			}
		})
	}
}

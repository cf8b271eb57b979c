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

// RowScope restricts an aggregate query to a range of an index column. The zero value selects every row.
// Lower and Upper hold int64 values for integral index columns and float64 values otherwise.
type RowScope struct {
	IndexColumn    string
	Lower          any
	Upper          any
	UpperInclusive bool
	// NullIndex selects the rows whose index value is null instead of a range.
	NullIndex bool
}

// IsZero reports whether the scope selects every row.
func (s RowScope) IsZero() bool {
	return s.IndexColumn == ""
}

// DqaDataSourceAdapter generates backend specific SQL for the aggregate queries behind the checks.
// Builders that take values return the query together with its positional arguments.
type DqaDataSourceAdapter interface {
	// Dialect returns the backend name, e.g. "duckdb" or "postgresql".
	Dialect() string

	QuoteIdentifier(name string) string

	// ColumnsQuery returns a query yielding no rows whose result columns describe the relation.
	ColumnsQuery(relation string) string

	RowCountQuery(relation string) string

	SampleQuery(relation string, limit int) string

	// IndexBoundsQuery returns the minimum and maximum of indexColumn in the column's own type.
	IndexBoundsQuery(relation string, indexColumn string) string

	NullCountQuery(relation string, column string, scope RowScope) (string, []any)

	DuplicatedRowsQuery(relation string, column string) (string, []any)

	OutOfRangeQuery(relation string, column string, bounds Range, scope RowScope) (string, []any)

	PatternMismatchQuery(relation string, column string, pattern string, scope RowScope) (string, []any)
}

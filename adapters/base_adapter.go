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
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/DataBridgeTech/dqacore"
)

// dialect holds the pieces of SQL that differ between backends.
type dialect struct {
	name        string
	quoteChar   string
	placeholder func(n int) string
	// format string taking one expression
	castCount string
	// format string taking the column expression and the pattern placeholder; true when the value
	// does not match
	patternMismatch string
}

type baseAdapter struct {
	dialect dialect
	logger  *slog.Logger
}

func newBaseAdapter(d dialect, logger *slog.Logger) baseAdapter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return baseAdapter{dialect: d, logger: logger}
}

// queryArgs collects positional arguments and renders their placeholders.
type queryArgs struct {
	placeholder func(n int) string
	values      []any
}

func (q *queryArgs) bind(v any) string {
	q.values = append(q.values, v)
	return q.placeholder(len(q.values))
}

func (a baseAdapter) Dialect() string {
	return a.dialect.name
}

func (a baseAdapter) QuoteIdentifier(name string) string {
	q := a.dialect.quoteChar
	return q + strings.ReplaceAll(name, q, q+q) + q
}

func (a baseAdapter) ColumnsQuery(relation string) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT 0", relation)
}

func (a baseAdapter) RowCountQuery(relation string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", relation)
}

func (a baseAdapter) SampleQuery(relation string, limit int) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", relation, limit)
}

func (a baseAdapter) IndexBoundsQuery(relation string, indexColumn string) string {
	col := a.QuoteIdentifier(indexColumn)
	return fmt.Sprintf("SELECT MIN(%s), MAX(%s) FROM %s", col, col, relation)
}

func (a baseAdapter) NullCountQuery(relation string, column string, scope dqacore.RowScope) (string, []any) {
	args := &queryArgs{placeholder: a.dialect.placeholder}
	where := fmt.Sprintf("%s IS NULL", a.QuoteIdentifier(column))
	return a.countWhere(relation, where, scope, args), args.values
}

func (a baseAdapter) DuplicatedRowsQuery(relation string, column string) (string, []any) {
	col := a.QuoteIdentifier(column)
	sqlQuery := fmt.Sprintf(
		"SELECT %s FROM (SELECT COUNT(*) AS cnt FROM %s WHERE %s IS NOT NULL GROUP BY %s HAVING COUNT(*) > 1) AS dup",
		fmt.Sprintf(a.dialect.castCount, "COALESCE(SUM(cnt), 0)"), relation, col, col)

	a.logger.Debug("generated duplicated rows query",
		"dialect", a.dialect.name,
		"query", sqlQuery)

	return sqlQuery, nil
}

func (a baseAdapter) OutOfRangeQuery(relation string, column string, bounds dqacore.Range, scope dqacore.RowScope) (string, []any) {
	args := &queryArgs{placeholder: a.dialect.placeholder}
	col := a.QuoteIdentifier(column)
	where := fmt.Sprintf("(%s < %s OR %s > %s)", col, args.bind(bounds.Min), col, args.bind(bounds.Max))
	return a.countWhere(relation, where, scope, args), args.values
}

func (a baseAdapter) PatternMismatchQuery(relation string, column string, pattern string, scope dqacore.RowScope) (string, []any) {
	args := &queryArgs{placeholder: a.dialect.placeholder}
	where := fmt.Sprintf(a.dialect.patternMismatch,
		a.QuoteIdentifier(column), args.bind(dqacore.AnchorPattern(pattern)))
	return a.countWhere(relation, where, scope, args), args.values
}

func (a baseAdapter) countWhere(relation string, where string, scope dqacore.RowScope, args *queryArgs) string {
	if predicate := a.scopePredicate(scope, args); predicate != "" {
		where = fmt.Sprintf("%s AND %s", where, predicate)
	}

	sqlQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", relation, where)

	a.logger.Debug("generated count query",
		"dialect", a.dialect.name,
		"query", sqlQuery)

	return sqlQuery
}

func (a baseAdapter) scopePredicate(scope dqacore.RowScope, args *queryArgs) string {
	if scope.IsZero() {
		return ""
	}

	idx := a.QuoteIdentifier(scope.IndexColumn)
	if scope.NullIndex {
		return fmt.Sprintf("%s IS NULL", idx)
	}

	upperOp := "<"
	if scope.UpperInclusive {
		upperOp = "<="
	}
	return fmt.Sprintf("(%s >= %s AND %s %s %s)", idx, args.bind(scope.Lower), idx, upperOp, args.bind(scope.Upper))
}

func questionMark(int) string {
	return "?"
}

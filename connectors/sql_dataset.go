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

package connectors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DataBridgeTech/dqacore"
)

// SqlDataset is a dataset handle over a relation of a database/sql backend. Every aggregate is pushed
// down to the backend. When an index column and more than one partition are configured, additive
// counts run as concurrent queries over index ranges and are summed.
type SqlDataset struct {
	db          *sql.DB
	adapter     dqacore.DqaDataSourceAdapter
	name        string
	relation    string
	indexColumn string
	partitions  int
	logger      *slog.Logger

	scopesMu sync.Mutex
	scopes   []dqacore.RowScope
}

type SqlDatasetOption func(*SqlDataset)

// WithPartitions splits additive aggregations into partitions ranges of indexColumn.
func WithPartitions(indexColumn string, partitions int) SqlDatasetOption {
	return func(d *SqlDataset) {
		d.indexColumn = indexColumn
		d.partitions = partitions
	}
}

// NewSqlDataset returns a handle named name over relation, which must already be quoted or otherwise
// safe to embed in SQL.
func NewSqlDataset(db *sql.DB, adapter dqacore.DqaDataSourceAdapter, name string, relation string, logger *slog.Logger, opts ...SqlDatasetOption) *SqlDataset {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	d := &SqlDataset{
		db:       db,
		adapter:  adapter,
		name:     name,
		relation: relation,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *SqlDataset) Name() string {
	return d.name
}

func (d *SqlDataset) Columns(ctx context.Context) ([]dqacore.ColumnInfo, error) {
	rows, err := d.db.QueryContext(ctx, d.adapter.ColumnsQuery(d.relation))
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", d.name, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			d.logger.Warn("failed to close rows", "error", err)
		}
	}()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types of %s: %w", d.name, err)
	}

	columns := make([]dqacore.ColumnInfo, 0, len(colTypes))
	for _, ct := range colTypes {
		columns = append(columns, dqacore.ColumnInfo{
			Name: ct.Name(),
			Type: strings.ToLower(ct.DatabaseTypeName()),
		})
	}
	return columns, nil
}

func (d *SqlDataset) CountRows(ctx context.Context) (uint64, error) {
	return d.queryCount(ctx, d.adapter.RowCountQuery(d.relation), nil)
}

func (d *SqlDataset) CountNulls(ctx context.Context, column string) (uint64, error) {
	return d.additiveCount(ctx, func(scope dqacore.RowScope) (string, []any) {
		return d.adapter.NullCountQuery(d.relation, column, scope)
	})
}

func (d *SqlDataset) CountDuplicatedRows(ctx context.Context, column string) (uint64, error) {
	query, args := d.adapter.DuplicatedRowsQuery(d.relation, column)
	return d.queryCount(ctx, query, args)
}

func (d *SqlDataset) CountOutOfRange(ctx context.Context, column string, bounds dqacore.Range) (uint64, error) {
	return d.additiveCount(ctx, func(scope dqacore.RowScope) (string, []any) {
		return d.adapter.OutOfRangeQuery(d.relation, column, bounds, scope)
	})
}

func (d *SqlDataset) CountPatternMismatches(ctx context.Context, column string, pattern string) (uint64, error) {
	return d.additiveCount(ctx, func(scope dqacore.RowScope) (string, []any) {
		return d.adapter.PatternMismatchQuery(d.relation, column, pattern, scope)
	})
}

// SampleRows returns the first limit rows as returned by the backend.
func (d *SqlDataset) SampleRows(ctx context.Context, limit int) (*dqacore.Table, error) {
	rows, err := d.db.QueryContext(ctx, d.adapter.SampleQuery(d.relation, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to sample %s: %w", d.name, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			d.logger.Warn("failed to close rows", "error", err)
		}
	}()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	table := &dqacore.Table{
		Columns: make([]string, len(colTypes)),
		Types:   make([]string, len(colTypes)),
	}
	for i, ct := range colTypes {
		table.Columns[i] = ct.Name()
		table.Types[i] = strings.ToLower(ct.DatabaseTypeName())
	}

	for rows.Next() {
		values := make([]any, len(colTypes))
		ptrs := make([]any, len(colTypes))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan sample row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		table.Rows = append(table.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error occurred during row iteration: %w", err)
	}

	return table, nil
}

func (d *SqlDataset) queryCount(ctx context.Context, query string, args []any) (uint64, error) {
	startTime := time.Now()

	var count uint64
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}

	d.logger.Debug("aggregate query finished",
		"dataset", d.name,
		"duration_ms", time.Since(startTime).Milliseconds())

	return count, nil
}

func (d *SqlDataset) additiveCount(ctx context.Context, build func(scope dqacore.RowScope) (string, []any)) (uint64, error) {
	scopes, err := d.partitionScopes(ctx)
	if err != nil {
		return 0, err
	}
	if len(scopes) == 1 {
		query, args := build(scopes[0])
		return d.queryCount(ctx, query, args)
	}

	var total atomic.Uint64
	pool := dqacore.NewTaskPool(len(scopes), d.logger)
	for i, scope := range scopes {
		pool.Enqueue(ctx, fmt.Sprintf("%s:partition:%d", d.name, i), func(ctx context.Context) error {
			query, args := build(scope)
			count, err := d.queryCount(ctx, query, args)
			if err != nil {
				return err
			}
			total.Add(count)
			return nil
		})
	}
	pool.Join()

	if errs := pool.Errors(); len(errs) > 0 {
		return 0, errors.Join(errs...)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return total.Load(), nil
}

// partitionScopes returns the index ranges of the dataset, or a single zero scope when it is not
// partitioned. Successful lookups are cached.
func (d *SqlDataset) partitionScopes(ctx context.Context) ([]dqacore.RowScope, error) {
	if d.indexColumn == "" || d.partitions <= 1 {
		return []dqacore.RowScope{{}}, nil
	}

	d.scopesMu.Lock()
	defer d.scopesMu.Unlock()
	if d.scopes != nil {
		return d.scopes, nil
	}

	var lower, upper any
	err := d.db.QueryRowContext(ctx, d.adapter.IndexBoundsQuery(d.relation, d.indexColumn)).Scan(&lower, &upper)
	if err != nil {
		return nil, fmt.Errorf("failed to read bounds of index column %s: %w", d.indexColumn, err)
	}

	d.scopes = SplitIndexRange(d.indexColumn, lower, upper, d.partitions)
	d.logger.Debug("partitioned dataset",
		"dataset", d.name,
		"index_column", d.indexColumn,
		"partitions", len(d.scopes))

	return d.scopes, nil
}

// SplitIndexRange cuts [lower, upper] into at most n contiguous scopes and adds a scope for null index
// values. Integral bounds are split with integer arithmetic so that large keys keep their exact value.
// A missing, non-numeric or degenerate range yields a single zero scope.
func SplitIndexRange(indexColumn string, lower, upper any, n int) []dqacore.RowScope {
	lo, okLo := parseIndexBound(lower)
	hi, okHi := parseIndexBound(upper)
	if !okLo || !okHi || n <= 1 {
		return []dqacore.RowScope{{}}
	}

	var scopes []dqacore.RowScope
	if lo.integral && hi.integral {
		scopes = splitIntRange(indexColumn, lo.i, hi.i, n)
	} else {
		scopes = splitFloatRange(indexColumn, lo.f, hi.f, n)
	}
	if scopes == nil {
		return []dqacore.RowScope{{}}
	}

	return append(scopes, dqacore.RowScope{IndexColumn: indexColumn, NullIndex: true})
}

func splitIntRange(indexColumn string, lower, upper int64, n int) []dqacore.RowScope {
	if upper <= lower {
		return nil
	}

	// two's complement subtraction gives the exact span even when it exceeds math.MaxInt64
	span := uint64(upper) - uint64(lower)
	if span < uint64(n) {
		n = int(span)
	}
	if n <= 1 {
		return nil
	}

	step, rem := span/uint64(n), span%uint64(n)
	boundary := func(i int) int64 {
		offset := uint64(i) * step
		if uint64(i) < rem {
			offset += uint64(i)
		} else {
			offset += rem
		}
		return int64(uint64(lower) + offset)
	}

	scopes := make([]dqacore.RowScope, 0, n+1)
	for i := 0; i < n; i++ {
		scope := dqacore.RowScope{IndexColumn: indexColumn, Lower: boundary(i), Upper: boundary(i + 1)}
		if i == n-1 {
			scope.Upper = upper
			scope.UpperInclusive = true
		}
		scopes = append(scopes, scope)
	}
	return scopes
}

func splitFloatRange(indexColumn string, lower, upper float64, n int) []dqacore.RowScope {
	if upper <= lower {
		return nil
	}

	step := (upper - lower) / float64(n)
	scopes := make([]dqacore.RowScope, 0, n+1)
	for i := 0; i < n; i++ {
		scope := dqacore.RowScope{
			IndexColumn: indexColumn,
			Lower:       lower + float64(i)*step,
			Upper:       lower + float64(i+1)*step,
		}
		if i == 0 {
			scope.Lower = lower
		}
		if i == n-1 {
			scope.Upper = upper
			scope.UpperInclusive = true
		}
		scopes = append(scopes, scope)
	}
	return scopes
}

type indexBound struct {
	i        int64
	f        float64
	integral bool
}

// parseIndexBound normalizes a MIN/MAX value as returned by the drivers.
func parseIndexBound(v any) (indexBound, bool) {
	switch val := v.(type) {
	case int64:
		return indexBound{i: val, f: float64(val), integral: true}, true
	case int32:
		return parseIndexBound(int64(val))
	case int16:
		return parseIndexBound(int64(val))
	case int8:
		return parseIndexBound(int64(val))
	case int:
		return parseIndexBound(int64(val))
	case uint32:
		return parseIndexBound(int64(val))
	case uint16:
		return parseIndexBound(int64(val))
	case uint8:
		return parseIndexBound(int64(val))
	case uint64:
		if val > math.MaxInt64 {
			return indexBound{f: float64(val)}, true
		}
		return parseIndexBound(int64(val))
	case float64:
		return indexBound{f: val}, true
	case float32:
		return indexBound{f: float64(val)}, true
	case *big.Int:
		if val == nil {
			return indexBound{}, false
		}
		if val.IsInt64() {
			return parseIndexBound(val.Int64())
		}
		f, _ := new(big.Float).SetInt(val).Float64()
		return indexBound{f: f}, true
	case []byte:
		return parseIndexBound(string(val))
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
			return parseIndexBound(i)
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return indexBound{f: f}, true
		}
		return indexBound{}, false
	case interface{ Float64() float64 }:
		return indexBound{f: val.Float64()}, true
	default:
		return indexBound{}, false
	}
}

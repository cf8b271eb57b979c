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
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/DataBridgeTech/dqacore"
)

var tableRefPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)?$`)

// SqlDatasetConnector loads tables of a relational data source as dataset handles.
type SqlDatasetConnector interface {
	dqacore.DatasetLoader

	Ping(ctx context.Context) (string, error)

	// ListDatasets returns the tables visible to the connection as "schema.table", optionally
	// filtered by a substring of either part.
	ListDatasets(ctx context.Context, filter string) ([]string, error)
}

type sqlConnector struct {
	db          *sql.DB
	adapter     dqacore.DqaDataSourceAdapter
	indexColumn string
	partitions  int
	logger      *slog.Logger
}

func newSqlConnector(db *sql.DB, adapter dqacore.DqaDataSourceAdapter, dataSource *dqacore.DataSource, logger *slog.Logger) sqlConnector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := sqlConnector{db: db, adapter: adapter, logger: logger}
	if dataSource != nil {
		c.indexColumn = dataSource.IndexColumn
		c.partitions = dataSource.Partitions
	}
	return c
}

func (c *sqlConnector) Ping(ctx context.Context) (string, error) {
	err := c.db.PingContext(ctx)
	if err != nil {
		return "", err
	}
	return "OK", nil
}

// Load returns a handle over the table ref, given as "table" or "schema.table".
func (c *sqlConnector) Load(ctx context.Context, ref string) (dqacore.DatasetHandle, error) {
	if !tableRefPattern.MatchString(ref) {
		return nil, fmt.Errorf("invalid table reference %q", ref)
	}

	parts := strings.Split(ref, ".")
	for i, part := range parts {
		parts[i] = c.adapter.QuoteIdentifier(part)
	}

	dataset := NewSqlDataset(c.db, c.adapter, ref, strings.Join(parts, "."), c.logger,
		WithPartitions(c.indexColumn, c.partitions))

	// fail early on missing tables instead of on the first check
	if _, err := dataset.Columns(ctx); err != nil {
		return nil, err
	}

	return dataset, nil
}

func (c *sqlConnector) Close() error {
	return c.db.Close()
}

func (c *sqlConnector) listDatasets(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			c.logger.Warn("failed to close rows", "error", err)
		}
	}()

	var datasets []string
	for rows.Next() {
		var schemaName, tableName string
		if err := rows.Scan(&schemaName, &tableName); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		datasets = append(datasets, fmt.Sprintf("%s.%s", schemaName, tableName))
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error occurred during row iteration: %w", err)
	}

	return datasets, nil
}

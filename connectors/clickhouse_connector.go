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
	"log/slog"
	"strings"

	"github.com/DataBridgeTech/dqacore"
	"github.com/DataBridgeTech/dqacore/adapters"
)

type ClickhouseDatasetConnector struct {
	sqlConnector
}

func NewClickhouseDatasetConnector(db *sql.DB, dataSource *dqacore.DataSource, logger *slog.Logger) SqlDatasetConnector {
	return &ClickhouseDatasetConnector{
		sqlConnector: newSqlConnector(db, adapters.NewClickhouseDqaDataSourceAdapter(logger), dataSource, logger),
	}
}

// Ping returns the server version.
func (c *ClickhouseDatasetConnector) Ping(ctx context.Context) (string, error) {
	var serverVersion string
	if err := c.db.QueryRowContext(ctx, "SELECT version()").Scan(&serverVersion); err != nil {
		return "", err
	}
	return serverVersion, nil
}

func (c *ClickhouseDatasetConnector) ListDatasets(ctx context.Context, filter string) ([]string, error) {
	query := `
        select database, name
        from system.tables
        where
            database not in ('system', 'INFORMATION_SCHEMA', 'information_schema')
			and not startsWith(name, '.')
			and is_temporary = 0`

	var args []any
	if filter = strings.TrimSpace(filter); filter != "" {
		query += ` and (database like ? or name like ?)`
		args = append(args, fmt.Sprintf("%%%s%%", filter), fmt.Sprintf("%%%s%%", filter))
	}
	query += ` order by database, name`

	return c.listDatasets(ctx, query, args...)
}

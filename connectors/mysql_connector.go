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

	"github.com/DataBridgeTech/dqacore"
	"github.com/DataBridgeTech/dqacore/adapters"
)

type MysqlDatasetConnector struct {
	sqlConnector
}

func NewMysqlDatasetConnector(db *sql.DB, dataSource *dqacore.DataSource, logger *slog.Logger) SqlDatasetConnector {
	return &MysqlDatasetConnector{
		sqlConnector: newSqlConnector(db, adapters.NewMysqlDqaDataSourceAdapter(logger), dataSource, logger),
	}
}

func (c *MysqlDatasetConnector) ListDatasets(ctx context.Context, filter string) ([]string, error) {
	query := `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_schema NOT IN ('mysql', 'information_schema', 'performance_schema', 'sys')
	`

	var args []any
	if filter != "" {
		query += " AND (table_schema LIKE ? OR table_name LIKE ?)"
		args = append(args, fmt.Sprintf("%%%s%%", filter), fmt.Sprintf("%%%s%%", filter))
	}
	query += " ORDER BY table_schema, table_name"

	return c.listDatasets(ctx, query, args...)
}

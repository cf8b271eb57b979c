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

type PostgresqlDatasetConnector struct {
	sqlConnector
}

func NewPostgresqlDatasetConnector(db *sql.DB, dataSource *dqacore.DataSource, logger *slog.Logger) SqlDatasetConnector {
	return &PostgresqlDatasetConnector{
		sqlConnector: newSqlConnector(db, adapters.NewPostgresqlDqaDataSourceAdapter(logger), dataSource, logger),
	}
}

func (c *PostgresqlDatasetConnector) ListDatasets(ctx context.Context, filter string) ([]string, error) {
	query := `
		select table_schema, table_name
		from information_schema.tables
		where table_schema not in ('pg_catalog', 'information_schema')
	`

	var args []any
	if filter != "" {
		query += " and (table_schema like $1 or table_name like $1)"
		args = append(args, fmt.Sprintf("%%%s%%", filter))
	}
	query += " order by table_schema, table_name"

	return c.listDatasets(ctx, query, args...)
}

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

package dqa

import (
	"fmt"
	"log/slog"

	"github.com/DataBridgeTech/dqacore"
	"github.com/DataBridgeTech/dqacore/cnn"
	"github.com/DataBridgeTech/dqacore/connectors"
)

const (
	Version = "v0.1.0"
)

func GetDqaCoreLibVersion() string {
	return Version
}

// NewDatasetLoader opens a connection for dataSource and returns the loader resolving its datasets.
func NewDatasetLoader(dataSource *dqacore.DataSource, logger *slog.Logger) (dqacore.DatasetLoader, error) {
	if dataSource == nil {
		return nil, fmt.Errorf("data source is not configured")
	}

	switch dataSource.Type {
	case dqacore.DataSourceTypeFile, "":
		connection, err := cnn.NewDuckdbConnection("", dataSource.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create duckdb connection: %w", err)
		}
		return connectors.NewFileDatasetConnector(connection, logger), nil
	case dqacore.DataSourceTypeClickhouse:
		connection := cnn.NewClickhouseConnection(dataSource.Configuration, dataSource.PoolSize)
		return connectors.NewClickhouseDatasetConnector(connection, dataSource, logger), nil
	case dqacore.DataSourceTypePostgresql:
		connection, err := cnn.NewPostgresqlConnection(dataSource.Configuration, dataSource.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgresql connection: %w", err)
		}
		return connectors.NewPostgresqlDatasetConnector(connection, dataSource, logger), nil
	case dqacore.DataSourceTypeMysql:
		connection, err := cnn.NewMysqlConnection(dataSource.Configuration, dataSource.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create mysql connection: %w", err)
		}
		return connectors.NewMysqlDatasetConnector(connection, dataSource, logger), nil
	default:
		return nil, fmt.Errorf("unsupported data source type: %s", dataSource.Type)
	}
}

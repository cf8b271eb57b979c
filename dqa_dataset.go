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

import "context"

// DataSourceType identifies the backend a dataset is loaded from.
type DataSourceType string

const (
	DataSourceTypeFile       DataSourceType = "file"
	DataSourceTypePostgresql DataSourceType = "postgresql"
	DataSourceTypeMysql      DataSourceType = "mysql"
	DataSourceTypeClickhouse DataSourceType = "clickhouse"
)

// ConnectionConfig holds the connection settings of a relational data source.
type ConnectionConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SslMode  string `yaml:"sslmode" mapstructure:"sslmode"`
}

// DataSource describes where datasets are loaded from.
type DataSource struct {
	ID   string         `yaml:"id" mapstructure:"id"`
	Type DataSourceType `yaml:"type" mapstructure:"type"`
	// DataDir is the directory holding dataset files for the file data source.
	DataDir       string           `yaml:"data_dir" mapstructure:"data_dir"`
	Configuration ConnectionConfig `yaml:"configuration" mapstructure:"configuration"`
	// IndexColumn and Partitions enable partitioned aggregation on relational sources.
	IndexColumn string `yaml:"index_column" mapstructure:"index_column"`
	Partitions  int    `yaml:"partitions" mapstructure:"partitions"`
	PoolSize    int    `yaml:"pool_size" mapstructure:"pool_size"`
}

// DatasetHandle is a read-only reference to a possibly large table that resolves column-wise aggregate
// queries on demand. Implementations must be safe for concurrent use.
type DatasetHandle interface {
	// Name returns the dataset name used in logs and reports.
	Name() string

	// Columns returns the columns of the dataset in table order.
	Columns(ctx context.Context) ([]ColumnInfo, error)

	// CountRows returns the total number of rows.
	CountRows(ctx context.Context) (uint64, error)

	// CountNulls returns the number of rows where column is null.
	CountNulls(ctx context.Context, column string) (uint64, error)

	// CountDuplicatedRows returns the number of rows whose non-null value of column occurs more than once.
	CountDuplicatedRows(ctx context.Context, column string) (uint64, error)

	// CountOutOfRange returns the number of non-null values of column outside the inclusive bounds.
	CountOutOfRange(ctx context.Context, column string, bounds Range) (uint64, error)

	// CountPatternMismatches returns the number of rows whose value of column does not match pattern
	// anchored at the start of the value. Null values count as mismatches.
	CountPatternMismatches(ctx context.Context, column string, pattern string) (uint64, error)
}

// DatasetLoader resolves a file path or table reference into a dataset handle.
type DatasetLoader interface {
	Load(ctx context.Context, ref string) (DatasetHandle, error)
	Close() error
}

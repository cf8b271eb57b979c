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
	"strconv"
	"strings"
	"sync"

	"github.com/DataBridgeTech/dqacore"
	"github.com/DataBridgeTech/dqacore/adapters"
	"github.com/DataBridgeTech/dqacore/inference"
	"github.com/DataBridgeTech/dqacore/readers"
)

// FileDatasetConnector exposes data files as DuckDB relations. Delimited text and parquet files become
// views scanned lazily by DuckDB, json files and spreadsheets are read once and copied into a table.
type FileDatasetConnector struct {
	db      *sql.DB
	adapter dqacore.DqaDataSourceAdapter
	text    *readers.TextReader
	json    readers.Reader
	sheets  readers.Reader
	logger  *slog.Logger

	// serialises DDL on the shared in-memory catalog
	ddlMu sync.Mutex
}

// NewFileDatasetConnector takes ownership of db, which must be a DuckDB handle.
func NewFileDatasetConnector(db *sql.DB, logger *slog.Logger) *FileDatasetConnector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &FileDatasetConnector{
		db:      db,
		adapter: adapters.NewDuckdbDqaDataSourceAdapter(logger),
		text:    readers.NewTextReader(),
		json:    readers.NewJsonReader(),
		sheets:  readers.NewSpreadsheetReader(),
		logger:  logger,
	}
}

func (c *FileDatasetConnector) Ping(ctx context.Context) (string, error) {
	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return "", err
	}
	return version, nil
}

// Load registers path as a relation named after the file and returns a handle over it.
func (c *FileDatasetConnector) Load(ctx context.Context, path string) (dqacore.DatasetHandle, error) {
	name := readers.DatasetName(path)
	relation := c.adapter.QuoteIdentifier(name)

	c.ddlMu.Lock()
	err := c.register(ctx, path, relation)
	c.ddlMu.Unlock()
	if err != nil {
		return nil, err
	}

	c.logger.Debug("dataset registered",
		"dataset", name,
		"path", path)

	return NewSqlDataset(c.db, c.adapter, name, relation, c.logger), nil
}

func (c *FileDatasetConnector) Close() error {
	return c.db.Close()
}

func (c *FileDatasetConnector) register(ctx context.Context, path string, relation string) error {
	var scan string
	switch ext := readers.Extension(path); ext {
	case ".csv":
		scan = fmt.Sprintf("read_csv(%s, delim = ',', header = true)", sqlStringLiteral(path))
	case ".txt":
		comma, err := c.text.Delimiter(path)
		if err != nil {
			return &dqacore.ReadError{Path: path, Err: err}
		}
		scan = fmt.Sprintf("read_csv(%s, delim = %s, header = true)", sqlStringLiteral(path), sqlStringLiteral(string(comma)))
	case ".parquet":
		scan = fmt.Sprintf("read_parquet(%s)", sqlStringLiteral(path))
	case ".json":
		return c.materialize(ctx, path, relation, c.json)
	case ".xls", ".xlsx":
		return c.materialize(ctx, path, relation, c.sheets)
	default:
		return &dqacore.UnsupportedFormatError{Extension: ext}
	}

	ddl := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM %s", relation, scan)
	if _, err := c.db.ExecContext(ctx, ddl); err != nil {
		return &dqacore.ReadError{Path: path, Err: err}
	}
	return nil
}

// materialize reads the whole file with reader and copies it into a typed DuckDB table.
func (c *FileDatasetConnector) materialize(ctx context.Context, path string, relation string, reader readers.Reader) error {
	table, err := reader.ReadFull(path)
	if err != nil {
		return &dqacore.ReadError{Path: path, Err: err}
	}

	sqlTypes := make([]string, len(table.Columns))
	columnDefs := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		values, _ := table.ColumnValues(col)
		sqlTypes[i] = duckdbType(table.NativeType(i), values)
		columnDefs[i] = fmt.Sprintf("%s %s", c.adapter.QuoteIdentifier(col), sqlTypes[i])
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	ddl := fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s)", relation, strings.Join(columnDefs, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return &dqacore.ReadError{Path: path, Err: err}
	}

	if len(table.Rows) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(table.Columns)), ", ")
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", relation, placeholders))
		if err != nil {
			return err
		}
		defer stmt.Close()

		args := make([]any, len(table.Columns))
		for _, row := range table.Rows {
			for i := range args {
				args[i] = convertCell(row[i], sqlTypes[i])
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return &dqacore.ReadError{Path: path, Err: err}
			}
		}
	}

	return tx.Commit()
}

// duckdbType maps a native or inferred column type to a DuckDB column type. Inference runs over every
// value, so the chosen type accepts all of them.
func duckdbType(nativeType string, values []any) string {
	switch nativeType {
	case "int64":
		return "BIGINT"
	case "float64":
		return "DOUBLE"
	case "bool":
		return "BOOLEAN"
	case "object":
		return "VARCHAR"
	}

	switch inference.InferColumnType(values) {
	case inference.TypeInteger:
		return "BIGINT"
	case inference.TypeReal:
		return "DOUBLE"
	case inference.TypeBoolean:
		return "BOOLEAN"
	default:
		return "VARCHAR"
	}
}

func convertCell(v any, sqlType string) any {
	if dqacore.IsNullValue(v) {
		return nil
	}

	s, isString := v.(string)
	if !isString {
		if sqlType == "VARCHAR" {
			return fmt.Sprint(v)
		}
		return v
	}

	s = strings.TrimSpace(s)
	switch sqlType {
	case "BIGINT":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case "DOUBLE":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case "BOOLEAN":
		switch strings.ToLower(s) {
		case "true", "t", "yes", "y":
			return true
		case "false", "f", "no", "n":
			return false
		}
	}
	return v
}

func sqlStringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

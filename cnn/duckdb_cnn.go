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

package cnn

import (
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"
)

// NewDuckdbConnection opens an in-process DuckDB database. An empty path keeps it in memory.
// DuckDB parallelises scans itself; threads > 0 caps its worker threads.
func NewDuckdbConnection(path string, threads int) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}

	if threads > 0 {
		if _, err := db.Exec(fmt.Sprintf("SET threads TO %d", threads)); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return db, nil
}

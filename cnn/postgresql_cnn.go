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
	"strings"

	"github.com/DataBridgeTech/dqacore"
	_ "github.com/lib/pq"
)

func NewPostgresqlConnection(connectionCfg dqacore.ConnectionConfig, poolSize int) (*sql.DB, error) {
	sslMode := connectionCfg.SslMode
	if sslMode == "" {
		sslMode = "disable"
	}

	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteConnValue(connectionCfg.Host), connectionCfg.Port, quoteConnValue(connectionCfg.Username),
		quoteConnValue(connectionCfg.Password), quoteConnValue(connectionCfg.Database), quoteConnValue(sslMode))
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	setPoolSize(db, poolSize)
	return db, nil
}

// quoteConnValue quotes a libpq keyword/value so spaces and quotes in passwords survive.
func quoteConnValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func setPoolSize(db *sql.DB, poolSize int) {
	if poolSize > 0 {
		db.SetMaxOpenConns(poolSize)
		db.SetMaxIdleConns(poolSize)
	}
}

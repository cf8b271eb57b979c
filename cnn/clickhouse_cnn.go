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
	"net"
	"strconv"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/DataBridgeTech/dqacore"
)

const defaultClickhousePoolSize = 32

// NewClickhouseConnection opens a database/sql handle over the native ClickHouse protocol.
func NewClickhouseConnection(connectionCfg dqacore.ConnectionConfig, poolSize int) *sql.DB {
	addr := connectionCfg.Host
	if connectionCfg.Port > 0 {
		addr = net.JoinHostPort(connectionCfg.Host, strconv.Itoa(connectionCfg.Port))
	}
	if poolSize <= 0 {
		poolSize = defaultClickhousePoolSize
	}

	return clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: connectionCfg.Database,
			Username: connectionCfg.Username,
			Password: connectionCfg.Password,
		},
		MaxOpenConns: poolSize,
		MaxIdleConns: poolSize,
	})
}

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

package adapters

import (
	"log/slog"

	"github.com/DataBridgeTech/dqacore"
)

type MysqlDqaDataSourceAdapter struct {
	baseAdapter
}

func NewMysqlDqaDataSourceAdapter(logger *slog.Logger) dqacore.DqaDataSourceAdapter {
	return &MysqlDqaDataSourceAdapter{
		baseAdapter: newBaseAdapter(dialect{
			name:            "mysql",
			quoteChar:       "`",
			placeholder:     questionMark,
			castCount:       "CAST(%s AS SIGNED)",
			patternMismatch: "COALESCE(REGEXP_LIKE(CAST(%s AS CHAR), %s), 0) = 0",
		}, logger),
	}
}

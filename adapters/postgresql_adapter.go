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
	"strconv"

	"github.com/DataBridgeTech/dqacore"
)

type PostgresqlDqaDataSourceAdapter struct {
	baseAdapter
}

func NewPostgresqlDqaDataSourceAdapter(logger *slog.Logger) dqacore.DqaDataSourceAdapter {
	return &PostgresqlDqaDataSourceAdapter{
		baseAdapter: newBaseAdapter(dialect{
			name:      "postgresql",
			quoteChar: `"`,
			placeholder: func(n int) string {
				return "$" + strconv.Itoa(n)
			},
			castCount:       "CAST(%s AS BIGINT)",
			patternMismatch: "NOT COALESCE(CAST(%s AS TEXT) ~ %s, FALSE)",
		}, logger),
	}
}

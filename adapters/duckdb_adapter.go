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

// DuckdbDqaDataSourceAdapter renders queries for DuckDB, which backs file based datasets.
type DuckdbDqaDataSourceAdapter struct {
	baseAdapter
}

func NewDuckdbDqaDataSourceAdapter(logger *slog.Logger) dqacore.DqaDataSourceAdapter {
	return &DuckdbDqaDataSourceAdapter{
		baseAdapter: newBaseAdapter(dialect{
			name:            "duckdb",
			quoteChar:       `"`,
			placeholder:     questionMark,
			castCount:       "CAST(%s AS BIGINT)",
			patternMismatch: "NOT COALESCE(regexp_matches(CAST(%s AS VARCHAR), %s), FALSE)",
		}, logger),
	}
}

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

// DqaDataProfiler builds first-order metadata of a dataset and augments it with heuristic expectations.
type DqaDataProfiler interface {
	ProfileDataset(ctx context.Context, dataset DatasetHandle, source string) (*DatasetMetadata, error)
}

// DatasetSampler is implemented by dataset handles that can return their first rows.
type DatasetSampler interface {
	SampleRows(ctx context.Context, limit int) (*Table, error)
}

// ColumnSummary is what the semantic enrichment service sees of a column.
type ColumnSummary struct {
	Dataset        string   `json:"dataset"`
	Column         string   `json:"column"`
	DataType       string   `json:"data_type"`
	NullRatio      float64  `json:"null_ratio"`
	DuplicatedRows uint64   `json:"duplicated_rows"`
	SampleValues   []string `json:"sample_values,omitempty"`
}

// SemanticAnnotations is the enrichment service answer for one column.
type SemanticAnnotations struct {
	Description  string   `json:"description"`
	SemanticType string   `json:"semantic_type"`
	ContainsPII  bool     `json:"contains_pii"`
	Tags         []string `json:"tags,omitempty"`
}

// Enricher annotates a column summary with semantic metadata.
type Enricher interface {
	Enrich(ctx context.Context, summary ColumnSummary) (*SemanticAnnotations, error)
}

// DatasetMetadata represents the first-order metadata of a dataset.
type DatasetMetadata struct {
	DatasetID           string                    `json:"dataset_id"`
	DatasetName         string                    `json:"dataset_name"`
	SourcePath          string                    `json:"source_path"`
	CreatedOn           string                    `json:"created_on"`
	RecordCount         uint64                    `json:"record_count"`
	ColumnCount         int                       `json:"column_count"`
	InferredSchema      []ColumnInfo              `json:"inferred_schema"`
	NullStatistics      map[string]float64        `json:"null_statistics"`
	ColumnsMetrics      map[string]*ColumnMetrics `json:"columns_metrics"`
	RowsSample          []map[string]interface{}  `json:"rows_sample,omitempty"`
	QualityExpectations map[string]interface{}    `json:"quality_expectations"`
	Augmented           *AugmentedMetadata        `json:"ai_augmented,omitempty"`
	ProfilingDurationMs int64                     `json:"profiling_duration_ms"`
	DqaErrors           []string                  `json:"_dqa_errors,omitempty"`
}

// ColumnMetrics represents the metrics of a column.
type ColumnMetrics struct {
	ColumnName          string               `json:"col_name"`
	ColumnPosition      uint                 `json:"col_position"`
	DataType            string               `json:"data_type"`
	NullCount           uint64               `json:"null_count"`
	NullRatio           float64              `json:"null_ratio"`
	DuplicatedRows      uint64               `json:"duplicated_rows"`
	Annotations         *SemanticAnnotations `json:"annotations,omitempty"`
	ProfilingDurationMs int64                `json:"profiling_duration_ms"`
}

// AugmentedMetadata holds expectations inferred from the first-order metadata.
type AugmentedMetadata struct {
	PotentialPrimaryKeys         []string            `json:"potential_primary_keys"`
	DatetimeColumns              []string            `json:"datetime_columns"`
	NumericalColumns             []string            `json:"numerical_columns"`
	CategoricalColumns           []string            `json:"categorical_columns"`
	SuggestedQualityExpectations QualityExpectations `json:"suggested_quality_expectations"`
}

type QualityExpectations struct {
	CompletenessThreshold float64 `json:"completeness_threshold"`
	UniquenessThreshold   float64 `json:"uniqueness_threshold"`
}

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

package profilers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/DataBridgeTech/dqacore"
	"github.com/DataBridgeTech/dqacore/inference"
)

const (
	CompletenessThreshold    = 0.98
	KeyedUniquenessThreshold = 1.0
	UniquenessThreshold      = 0.95
)

var numericTypes = map[string]bool{
	"tinyint": true, "smallint": true, "integer": true, "int": true, "bigint": true, "hugeint": true,
	"utinyint": true, "usmallint": true, "uinteger": true, "ubigint": true,
	"int2": true, "int4": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"float": true, "float4": true, "float8": true, "float32": true, "float64": true,
	"double": true, "double precision": true, "real": true, "numeric": true, "decimal": true,
}

var stringTypes = map[string]bool{
	"varchar": true, "text": true, "string": true, "utf8": true, "large_utf8": true, "char": true,
	"bpchar": true, "object": true, "enum": true, "fixedstring": true, "lowcardinality(string)": true,
}

// Augment derives heuristic expectations from first-order metadata. Columns without nulls or repeated
// values are potential primary keys; datetime columns are recognised by type or by their sample values.
func Augment(metadata *dqacore.DatasetMetadata, sample *dqacore.Table) *dqacore.AugmentedMetadata {
	augmented := &dqacore.AugmentedMetadata{
		PotentialPrimaryKeys: []string{},
		DatetimeColumns:      []string{},
		NumericalColumns:     []string{},
		CategoricalColumns:   []string{},
	}

	for _, column := range metadata.InferredSchema {
		metrics := metadata.ColumnsMetrics[column.Name]
		if metrics != nil && metadata.RecordCount > 0 && metrics.NullCount == 0 && metrics.DuplicatedRows == 0 {
			augmented.PotentialPrimaryKeys = append(augmented.PotentialPrimaryKeys, column.Name)
		}

		baseType := normalizeType(column.Type)
		if isDatetimeType(baseType) || isDatetimeLike(sample, column.Name) {
			augmented.DatetimeColumns = append(augmented.DatetimeColumns, column.Name)
		}
		if numericTypes[baseType] {
			augmented.NumericalColumns = append(augmented.NumericalColumns, column.Name)
		}
		if stringTypes[baseType] {
			augmented.CategoricalColumns = append(augmented.CategoricalColumns, column.Name)
		}
	}

	augmented.SuggestedQualityExpectations = dqacore.QualityExpectations{
		CompletenessThreshold: CompletenessThreshold,
		UniquenessThreshold:   UniquenessThreshold,
	}
	if len(augmented.PotentialPrimaryKeys) > 0 {
		augmented.SuggestedQualityExpectations.UniquenessThreshold = KeyedUniquenessThreshold
	}

	return augmented
}

// normalizeType lower-cases a type name and strips parameters, e.g. "Nullable(Int64)" -> "int64",
// "DECIMAL(10,2)" -> "decimal".
func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if inner, ok := strings.CutPrefix(t, "nullable("); ok {
		t = strings.TrimSuffix(inner, ")")
	}
	if t == "lowcardinality(string)" {
		return t
	}
	if idx := strings.IndexAny(t, "(["); idx > 0 {
		t = t[:idx]
	}
	return strings.TrimSpace(t)
}

func isDatetimeType(t string) bool {
	return t == "date" || t == "date32" || strings.HasPrefix(t, "timestamp") || strings.HasPrefix(t, "datetime")
}

func isDatetimeLike(sample *dqacore.Table, column string) bool {
	if sample == nil {
		return false
	}
	values, err := sample.ColumnValues(column)
	if err != nil {
		return false
	}

	hasValue := false
	for _, v := range values {
		if dqacore.IsNullValue(v) {
			continue
		}
		if _, isString := v.(string); !isString {
			return false
		}
		hasValue = true
	}
	if !hasValue {
		return false
	}

	inferred := inference.InferColumnType(values)
	return inferred == inference.TypeDate || inferred == inference.TypeTimestamp
}

// MetadataFileName returns the metadata file name of a dataset.
func MetadataFileName(datasetName string) string {
	return datasetName + "_metadata.json"
}

// SaveMetadata writes metadata as indented JSON into dir and returns the file path.
func SaveMetadata(metadata *dqacore.DatasetMetadata, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create metadata directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(metadata, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata of %s: %w", metadata.DatasetName, err)
	}

	path := filepath.Join(dir, MetadataFileName(metadata.DatasetName))
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write metadata %s: %w", path, err)
	}
	return path, nil
}

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

package inference

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/DataBridgeTech/dqacore"
	"github.com/DataBridgeTech/dqacore/readers"
)

const (
	TypeInteger   = "integer"
	TypeBoolean   = "boolean"
	TypeReal      = "real"
	TypeDate      = "date"
	TypeTimestamp = "timestamp"
	TypeText      = "text"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"02/01/2006 15:04:05",
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// Inferrer derives the ordered schema of a dataset file from a bounded sample of its rows.
type Inferrer struct {
	registry   *readers.Registry
	sampleRows int
	logger     *slog.Logger
}

type Option func(*Inferrer)

// WithSampleRows sets the number of rows read for inference.
func WithSampleRows(rows int) Option {
	return func(i *Inferrer) {
		if rows > 0 {
			i.sampleRows = rows
		}
	}
}

func NewInferrer(registry *readers.Registry, logger *slog.Logger, opts ...Option) *Inferrer {
	if registry == nil {
		registry = readers.DefaultRegistry()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	inferrer := &Inferrer{
		registry:   registry,
		sampleRows: readers.DefaultSampleRows,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(inferrer)
	}
	return inferrer
}

// Registry returns the reader registry used to select readers.
func (i *Inferrer) Registry() *readers.Registry {
	return i.registry
}

// InferSchema reads a sample of path and returns its columns with inferred types.
// It returns *dqacore.UnsupportedFormatError for unknown extensions and *dqacore.ReadError when the
// file cannot be parsed.
func (i *Inferrer) InferSchema(path string) (*dqacore.DatasetSchema, error) {
	reader, err := i.registry.ReaderFor(path)
	if err != nil {
		return nil, err
	}

	table, err := readSample(reader, path, i.sampleRows)
	if err != nil {
		return nil, &dqacore.ReadError{Path: path, Err: err}
	}

	schema := &dqacore.DatasetSchema{
		Dataset: readers.DatasetName(path),
		Columns: make([]dqacore.ColumnInfo, 0, len(table.Columns)),
	}
	for idx, name := range table.Columns {
		colType := table.NativeType(idx)
		if colType == "" {
			values, _ := table.ColumnValues(name)
			colType = InferColumnType(values)
		}
		schema.Columns = append(schema.Columns, dqacore.ColumnInfo{Name: name, Type: colType})
	}

	i.logger.Debug("inferred dataset schema",
		"dataset", schema.Dataset,
		"columns", len(schema.Columns),
		"sample_rows", len(table.Rows))

	return schema, nil
}

// readSample shields callers from reader panics on malformed input.
func readSample(reader readers.Reader, path string, rows int) (table *dqacore.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			table, err = nil, fmt.Errorf("reader panic: %v", r)
		}
	}()
	return reader.ReadSample(path, rows)
}

// InferColumnType guesses the type of a column from sample values: every non-null value must satisfy a
// narrower type for it to be chosen. Columns without values are text.
func InferColumnType(values []any) string {
	nonEmpty := make([]string, 0, len(values))
	for _, v := range values {
		if dqacore.IsNullValue(v) {
			continue
		}
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) == 0 {
		return TypeText
	}

	switch {
	case allMatch(nonEmpty, isInt):
		return TypeInteger
	case allMatch(nonEmpty, isBool):
		return TypeBoolean
	case allMatch(nonEmpty, isFloat):
		return TypeReal
	}

	anyTime := false
	for _, v := range nonEmpty {
		ok, hasTime := parseDateOrTimestamp(v)
		if !ok {
			return TypeText
		}
		anyTime = anyTime || hasTime
	}
	if anyTime {
		return TypeTimestamp
	}
	return TypeDate
}

func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

func isBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "t", "f", "yes", "no", "y", "n":
		return true
	default:
		return false
	}
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isFloat(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func parseDateOrTimestamp(s string) (ok bool, hasTime bool) {
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true, true
		}
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true, false
		}
	}
	return false, false
}

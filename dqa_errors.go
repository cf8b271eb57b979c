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

import (
	"errors"
	"fmt"
)

var (
	// ErrReservedDatasetName is returned when a dataset is named after the reserved rules section key.
	ErrReservedDatasetName = errors.New("dataset name is reserved")

	// ErrDuplicateColumn is returned when a columns mapping lists the same column twice.
	ErrDuplicateColumn = errors.New("duplicate column in columns mapping")
)

// UnsupportedFormatError reports a file extension that no reader is registered for.
type UnsupportedFormatError struct {
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type: %q", e.Extension)
}

// ReadError wraps a reader failure with the path of the file being read.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("error reading %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// ConfigReferenceError reports a check that needs a rules_config entry which is missing for the column.
type ConfigReferenceError struct {
	Column  string
	Check   string
	Section string
}

func (e *ConfigReferenceError) Error() string {
	return fmt.Sprintf("check %q on column %q requires an entry in rules_config.%s", e.Check, e.Column, e.Section)
}

// UnknownCheckError is returned for unregistered check names when the strict unknown-check policy is active.
type UnknownCheckError struct {
	Column string
	Check  string
}

func (e *UnknownCheckError) Error() string {
	return fmt.Sprintf("unknown check %q on column %q", e.Check, e.Column)
}

// AggregationError wraps a failure of the backend to resolve a check query.
type AggregationError struct {
	Dataset string
	Column  string
	Check   string
	Err     error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("failed to resolve check (%s) on %s.%s: %v", e.Check, e.Dataset, e.Column, e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}

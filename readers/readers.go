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

package readers

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/DataBridgeTech/dqacore"
)

// DefaultSampleRows is the number of rows read for schema inference.
const DefaultSampleRows = 5

// Reader turns a dataset file into a table.
type Reader interface {
	// ReadSample returns at most rows leading data rows. A non-positive rows reads DefaultSampleRows.
	ReadSample(path string, rows int) (*dqacore.Table, error)

	// ReadFull returns every row of the file.
	ReadFull(path string) (*dqacore.Table, error)
}

// Registry selects a Reader by lower-cased file extension.
type Registry struct {
	mu      sync.RWMutex
	readers map[string]Reader
}

func NewRegistry() *Registry {
	return &Registry{readers: make(map[string]Reader)}
}

// DefaultRegistry returns a registry holding the readers of every supported format.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(".csv", NewDelimitedReader(','))
	r.Register(".txt", NewTextReader())
	r.Register(".xls", NewSpreadsheetReader())
	r.Register(".xlsx", NewSpreadsheetReader())
	r.Register(".parquet", NewParquetReader())
	r.Register(".json", NewJsonReader())
	return r
}

// Register binds reader to ext, replacing any previous binding.
func (r *Registry) Register(ext string, reader Reader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readers[normalizeExt(ext)] = reader
}

// ReaderFor returns the reader for the extension of path, or *dqacore.UnsupportedFormatError.
func (r *Registry) ReaderFor(path string) (Reader, error) {
	ext := Extension(path)

	r.mu.RLock()
	defer r.mu.RUnlock()

	reader, ok := r.readers[ext]
	if !ok {
		return nil, &dqacore.UnsupportedFormatError{Extension: ext}
	}
	return reader, nil
}

// Supports reports whether a reader is registered for the extension of path.
func (r *Registry) Supports(path string) bool {
	_, err := r.ReaderFor(path)
	return err == nil
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.readers))
	for ext := range r.readers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extension returns the lower-cased extension of path including the dot.
func Extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// DatasetName returns the file name of path without its extension.
func DatasetName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func sampleSize(rows int) int {
	if rows <= 0 {
		return DefaultSampleRows
	}
	return rows
}

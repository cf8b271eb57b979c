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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/DataBridgeTech/dqacore"
)

const utf8BOM = "\uFEFF"

// DelimitedReader reads delimiter separated text with a header row. Empty cells are nulls.
type DelimitedReader struct {
	Comma rune
}

func NewDelimitedReader(comma rune) *DelimitedReader {
	return &DelimitedReader{Comma: comma}
}

func (r *DelimitedReader) ReadSample(path string, rows int) (*dqacore.Table, error) {
	return r.read(path, sampleSize(rows))
}

func (r *DelimitedReader) ReadFull(path string) (*dqacore.Table, error) {
	return r.read(path, -1)
}

// read parses the header and up to limit data rows; a negative limit reads everything.
// Rows shorter than the header are padded with nulls, longer rows are an error.
func (r *DelimitedReader) read(path string, limit int) (*dqacore.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = r.Comma
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("no columns to parse from file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	table := &dqacore.Table{Columns: header}
	for limit < 0 || len(table.Rows) < limit {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("expected %d fields in line %d, saw %d", len(header), line, len(rec))
		}

		row := make([]any, len(header))
		for i, cell := range rec {
			if cell != "" {
				row[i] = cell
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// TextReader reads .txt files as tab separated and falls back to pipe separated when that fails.
type TextReader struct {
	tab  *DelimitedReader
	pipe *DelimitedReader
}

func NewTextReader() *TextReader {
	return &TextReader{tab: NewDelimitedReader('\t'), pipe: NewDelimitedReader('|')}
}

func (r *TextReader) ReadSample(path string, rows int) (*dqacore.Table, error) {
	table, _, err := r.readWith(func(dr *DelimitedReader) (*dqacore.Table, error) {
		return dr.ReadSample(path, rows)
	})
	return table, err
}

func (r *TextReader) ReadFull(path string) (*dqacore.Table, error) {
	table, _, err := r.readWith(func(dr *DelimitedReader) (*dqacore.Table, error) {
		return dr.ReadFull(path)
	})
	return table, err
}

// Delimiter returns the delimiter that successfully parses a sample of path.
func (r *TextReader) Delimiter(path string) (rune, error) {
	_, comma, err := r.readWith(func(dr *DelimitedReader) (*dqacore.Table, error) {
		return dr.ReadSample(path, DefaultSampleRows)
	})
	return comma, err
}

func (r *TextReader) readWith(read func(dr *DelimitedReader) (*dqacore.Table, error)) (*dqacore.Table, rune, error) {
	table, err := read(r.tab)
	if err == nil {
		return table, r.tab.Comma, nil
	}

	table, err = read(r.pipe)
	if err != nil {
		return nil, 0, err
	}
	return table, r.pipe.Comma, nil
}

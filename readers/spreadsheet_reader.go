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
	"errors"
	"fmt"

	"github.com/DataBridgeTech/dqacore"
	"github.com/xuri/excelize/v2"
)

// SpreadsheetReader reads the first sheet of a workbook. The first row is the header.
type SpreadsheetReader struct{}

func NewSpreadsheetReader() *SpreadsheetReader {
	return &SpreadsheetReader{}
}

func (r *SpreadsheetReader) ReadSample(path string, rows int) (*dqacore.Table, error) {
	return r.read(path, sampleSize(rows))
}

func (r *SpreadsheetReader) ReadFull(path string) (*dqacore.Table, error) {
	return r.read(path, -1)
}

func (r *SpreadsheetReader) read(path string, limit int) (*dqacore.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	defer rows.Close()

	var header []string
	var cells [][]string
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, err
		}
		if header == nil {
			if len(cols) == 0 {
				continue
			}
			header = cols
			continue
		}
		if limit >= 0 && len(cells) >= limit {
			break
		}
		cells = append(cells, cols)
	}
	if err := rows.Error(); err != nil {
		return nil, err
	}
	if header == nil {
		return nil, errors.New("no columns to parse from sheet")
	}

	width := len(header)
	for _, rec := range cells {
		width = max(width, len(rec))
	}
	for i := len(header); i < width; i++ {
		header = append(header, fmt.Sprintf("Unnamed: %d", i))
	}

	table := &dqacore.Table{Columns: header}
	for _, rec := range cells {
		row := make([]any, width)
		for i, cell := range rec {
			if cell != "" {
				row[i] = cell
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

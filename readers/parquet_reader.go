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
	"context"
	"os"

	"github.com/DataBridgeTech/dqacore"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// ParquetReader reads parquet files through Arrow. Samples are taken after the whole file is read.
type ParquetReader struct {
	mem memory.Allocator
}

func NewParquetReader() *ParquetReader {
	return &ParquetReader{mem: memory.DefaultAllocator}
}

func (r *ParquetReader) ReadSample(path string, rows int) (*dqacore.Table, error) {
	table, err := r.ReadFull(path)
	if err != nil {
		return nil, err
	}
	return table.Head(sampleSize(rows)), nil
}

func (r *ParquetReader) ReadFull(path string) (*dqacore.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f)
	if err != nil {
		return nil, err
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, r.mem)
	if err != nil {
		return nil, err
	}

	arrowTable, err := fr.ReadTable(context.Background())
	if err != nil {
		return nil, err
	}
	defer arrowTable.Release()

	numCols := int(arrowTable.NumCols())
	numRows := int(arrowTable.NumRows())

	table := &dqacore.Table{
		Columns: make([]string, numCols),
		Types:   make([]string, numCols),
		Rows:    make([][]any, numRows),
	}
	for i := range table.Rows {
		table.Rows[i] = make([]any, numCols)
	}

	for c := 0; c < numCols; c++ {
		field := arrowTable.Schema().Field(c)
		table.Columns[c] = field.Name
		table.Types[c] = field.Type.String()

		rowIdx := 0
		for _, chunk := range arrowTable.Column(c).Data().Chunks() {
			for i := 0; i < chunk.Len(); i++ {
				if !chunk.IsNull(i) {
					table.Rows[rowIdx][c] = chunk.GetOneForMarshal(i)
				}
				rowIdx++
			}
		}
	}

	return table, nil
}

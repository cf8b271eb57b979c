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
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/DataBridgeTech/dqacore"
	"github.com/google/uuid"
)

const (
	defaultSampleRows = 5
	createdOnLayout   = "2006-01-02T15:04:05.000000"
)

// BaseProfiler builds dataset metadata through the aggregate queries of a dataset handle.
type BaseProfiler struct {
	maxConcurrent int
	sampleRows    int
	collectErrors bool
	enricher      dqacore.Enricher
	now           func() time.Time
	logger        *slog.Logger
}

type ProfilerOption func(*BaseProfiler)

func WithMaxConcurrent(n int) ProfilerOption {
	return func(p *BaseProfiler) {
		p.maxConcurrent = n
	}
}

// WithSampleRows sets the number of rows kept in rows_sample. Zero disables sampling.
func WithSampleRows(n int) ProfilerOption {
	return func(p *BaseProfiler) {
		p.sampleRows = n
	}
}

// WithCollectErrors records failed metric queries in the metadata instead of only logging them.
func WithCollectErrors(collect bool) ProfilerOption {
	return func(p *BaseProfiler) {
		p.collectErrors = collect
	}
}

// WithEnricher annotates every column through enricher after the metrics are computed.
func WithEnricher(enricher dqacore.Enricher) ProfilerOption {
	return func(p *BaseProfiler) {
		p.enricher = enricher
	}
}

func WithClock(now func() time.Time) ProfilerOption {
	return func(p *BaseProfiler) {
		p.now = now
	}
}

func NewBaseProfiler(logger *slog.Logger, opts ...ProfilerOption) *BaseProfiler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	p := &BaseProfiler{
		maxConcurrent: 1,
		sampleRows:    defaultSampleRows,
		collectErrors: true,
		now:           time.Now,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *BaseProfiler) ProfileDataset(ctx context.Context, dataset dqacore.DatasetHandle, source string) (*dqacore.DatasetMetadata, error) {
	startTime := time.Now()

	metadata := &dqacore.DatasetMetadata{
		DatasetID:           uuid.NewString(),
		DatasetName:         dataset.Name(),
		SourcePath:          source,
		CreatedOn:           p.now().Format(createdOnLayout),
		NullStatistics:      make(map[string]float64),
		ColumnsMetrics:      make(map[string]*dqacore.ColumnMetrics),
		QualityExpectations: make(map[string]interface{}),
	}

	totalRows, err := dataset.CountRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get total row count for %s: %w", dataset.Name(), err)
	}
	metadata.RecordCount = totalRows

	columns, err := dataset.Columns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns of %s: %w", dataset.Name(), err)
	}
	metadata.ColumnCount = len(columns)
	metadata.InferredSchema = columns

	var sample *dqacore.Table
	if sampler, ok := dataset.(dqacore.DatasetSampler); ok && p.sampleRows > 0 {
		sample, err = sampler.SampleRows(ctx, p.sampleRows)
		if err != nil {
			p.logger.Warn("failed to sample data", "dataset", dataset.Name(), "error", err.Error())
		} else {
			metadata.RowsSample = sampleRecords(sample)
		}
	}

	if len(columns) == 0 {
		p.logger.Warn("no columns found for dataset, returning basic info", "dataset", dataset.Name())
		metadata.ProfilingDurationMs = time.Since(startTime).Milliseconds()
		return metadata, nil
	}

	taskPool := dqacore.NewTaskPool(p.maxConcurrent, p.logger)
	colMetrics := make([]*dqacore.ColumnMetrics, len(columns))

	for idx, column := range columns {
		metrics := &dqacore.ColumnMetrics{
			ColumnName:     column.Name,
			ColumnPosition: uint(idx + 1),
			DataType:       column.Type,
		}
		colMetrics[idx] = metrics

		var colLock sync.Mutex
		colStartTime := time.Now()
		taskIdPrefix := fmt.Sprintf("task:%s:", column.Name)

		taskPool.Enqueue(ctx, taskIdPrefix+"null_count", func(ctx context.Context) error {
			nullCount, err := dataset.CountNulls(ctx, column.Name)
			if err != nil {
				p.logger.Warn("failed to get NULL count", "error", err.Error(), "col_name", column.Name)
				return err
			}
			colLock.Lock()
			metrics.NullCount = nullCount
			metrics.ProfilingDurationMs = max(metrics.ProfilingDurationMs, time.Since(colStartTime).Milliseconds())
			colLock.Unlock()
			return nil
		})

		taskPool.Enqueue(ctx, taskIdPrefix+"duplicated_rows", func(ctx context.Context) error {
			dups, err := dataset.CountDuplicatedRows(ctx, column.Name)
			if err != nil {
				p.logger.Warn("failed to get duplicated rows", "error", err.Error(), "col_name", column.Name)
				return err
			}
			colLock.Lock()
			metrics.DuplicatedRows = dups
			metrics.ProfilingDurationMs = max(metrics.ProfilingDurationMs, time.Since(colStartTime).Milliseconds())
			colLock.Unlock()
			return nil
		})
	}

	taskPool.Join()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, metrics := range colMetrics {
		if totalRows > 0 {
			metrics.NullRatio = float64(metrics.NullCount) / float64(totalRows)
		}
		metadata.ColumnsMetrics[metrics.ColumnName] = metrics
		metadata.NullStatistics[metrics.ColumnName] = metrics.NullRatio
	}

	metadata.Augmented = Augment(metadata, sample)

	errs := taskPool.Errors()
	if p.enricher != nil {
		errs = append(errs, p.enrich(ctx, metadata, colMetrics, sample)...)
	}
	if p.collectErrors {
		for _, err := range errs {
			metadata.DqaErrors = append(metadata.DqaErrors, err.Error())
		}
	}

	metadata.ProfilingDurationMs = time.Since(startTime).Milliseconds()

	p.logger.Debug("finished data profiling for dataset",
		"dataset", dataset.Name(),
		"profile_duration_ms", metadata.ProfilingDurationMs)

	return metadata, nil
}

func (p *BaseProfiler) enrich(ctx context.Context, metadata *dqacore.DatasetMetadata, colMetrics []*dqacore.ColumnMetrics, sample *dqacore.Table) []error {
	taskPool := dqacore.NewTaskPool(p.maxConcurrent, p.logger)

	for _, metrics := range colMetrics {
		summary := dqacore.ColumnSummary{
			Dataset:        metadata.DatasetName,
			Column:         metrics.ColumnName,
			DataType:       metrics.DataType,
			NullRatio:      metrics.NullRatio,
			DuplicatedRows: metrics.DuplicatedRows,
			SampleValues:   sampleValues(sample, metrics.ColumnName),
		}

		taskPool.Enqueue(ctx, fmt.Sprintf("task:%s:enrich", metrics.ColumnName), func(ctx context.Context) error {
			annotations, err := p.enricher.Enrich(ctx, summary)
			if err != nil {
				p.logger.Warn("failed to enrich column", "error", err.Error(), "col_name", metrics.ColumnName)
				return err
			}
			metrics.Annotations = annotations
			return nil
		})
	}

	taskPool.Join()
	return taskPool.Errors()
}

func sampleRecords(sample *dqacore.Table) []map[string]interface{} {
	records := make([]map[string]interface{}, 0, len(sample.Rows))
	for _, row := range sample.Rows {
		record := make(map[string]interface{}, len(sample.Columns))
		for i, col := range sample.Columns {
			if i < len(row) {
				record[col] = row[i]
			}
		}
		records = append(records, record)
	}
	return records
}

func sampleValues(sample *dqacore.Table, column string) []string {
	if sample == nil {
		return nil
	}
	values, err := sample.ColumnValues(column)
	if err != nil {
		return nil
	}

	out := make([]string, 0, len(values))
	for _, v := range values {
		if !dqacore.IsNullValue(v) {
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}

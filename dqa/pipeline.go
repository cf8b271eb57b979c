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

package dqa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/DataBridgeTech/dqacore"
	"github.com/DataBridgeTech/dqacore/readers"
	"github.com/DataBridgeTech/dqacore/report"
	"golang.org/x/sync/errgroup"
)

// DatasetOutcome is the result of running one dataset through the pipeline.
type DatasetOutcome struct {
	Dataset    string
	Source     string
	ReportPath string
	Results    dqacore.ValidationResults
	Err        error
}

// Pipeline validates every dataset of a merged config and writes one report per dataset.
type Pipeline struct {
	dataSource    *dqacore.DataSource
	loader        dqacore.DatasetLoader
	validator     dqacore.DqaDataValidator
	emitter       report.Emitter
	registry      *readers.Registry
	maxConcurrent int
	logger        *slog.Logger
}

type PipelineOption func(*Pipeline)

// WithDatasetConcurrency sets how many datasets are processed at the same time.
func WithDatasetConcurrency(n int) PipelineOption {
	return func(p *Pipeline) {
		p.maxConcurrent = n
	}
}

// WithReaderRegistry sets the registry whose extensions are tried when resolving data files.
func WithReaderRegistry(registry *readers.Registry) PipelineOption {
	return func(p *Pipeline) {
		if registry != nil {
			p.registry = registry
		}
	}
}

func NewPipeline(dataSource *dqacore.DataSource, loader dqacore.DatasetLoader, validator dqacore.DqaDataValidator,
	emitter report.Emitter, logger *slog.Logger, opts ...PipelineOption) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	p := &Pipeline{
		dataSource:    dataSource,
		loader:        loader,
		validator:     validator,
		emitter:       emitter,
		registry:      readers.DefaultRegistry(),
		maxConcurrent: 1,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxConcurrent < 1 {
		p.maxConcurrent = 1
	}
	return p
}

// Run processes the datasets of cfg. A failing dataset is logged, gets no report and does not stop the
// others; the failures are returned joined after every dataset was attempted. Under the best-effort
// failure policy a dataset whose only failures are check aggregation errors still gets a report with an
// Error column, and those errors are returned as well. Outcomes follow the config order.
func (p *Pipeline) Run(ctx context.Context, cfg *dqacore.PipelineConfig) ([]DatasetOutcome, error) {
	outcomes := make([]DatasetOutcome, len(cfg.Datasets))

	var mu sync.Mutex
	var errs []error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrent)
	for i := range cfg.Datasets {
		dsCfg := &cfg.Datasets[i]
		g.Go(func() error {
			outcome := p.runDataset(gctx, dsCfg, &cfg.RulesConfig)
			outcomes[i] = outcome
			if outcome.Err == nil {
				return nil
			}
			if outcome.ReportPath != "" {
				p.logger.Warn("dataset validated with failed checks",
					"dataset", outcome.Dataset,
					"report", outcome.ReportPath,
					"error", outcome.Err.Error())
			} else {
				p.logger.Error("dataset validation failed",
					"dataset", outcome.Dataset,
					"source", outcome.Source,
					"error", outcome.Err.Error())
			}

			mu.Lock()
			errs = append(errs, fmt.Errorf("%s: %w", outcome.Dataset, outcome.Err))
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, errors.Join(errs...)
}

func (p *Pipeline) runDataset(ctx context.Context, cfg *dqacore.DatasetConfig, rules *dqacore.RulesConfig) DatasetOutcome {
	outcome := DatasetOutcome{Dataset: cfg.DatasetName}
	if err := ctx.Err(); err != nil {
		outcome.Err = err
		return outcome
	}

	startTime := time.Now()

	ref, err := p.ResolveSource(cfg.DatasetName)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Source = ref

	dataset, err := p.loader.Load(ctx, ref)
	if err != nil {
		outcome.Err = fmt.Errorf("failed to load %s: %w", ref, err)
		return outcome
	}

	results, checkErr := p.validator.Validate(ctx, dataset, cfg, rules)
	if checkErr != nil && (results == nil || !onlyAggregationErrors(checkErr)) {
		outcome.Err = checkErr
		return outcome
	}
	outcome.Results = results

	reportPath, err := p.emitter.Emit(ctx, cfg.DatasetName, results)
	if err != nil {
		outcome.Err = errors.Join(checkErr, err)
		return outcome
	}
	outcome.ReportPath = reportPath
	outcome.Err = checkErr

	p.logger.Info("dataset validated",
		"dataset", cfg.DatasetName,
		"checks", len(results),
		"report", reportPath,
		"duration_ms", time.Since(startTime).Milliseconds())

	return outcome
}

// onlyAggregationErrors reports whether err and every error joined into it is an *AggregationError.
func onlyAggregationErrors(err error) bool {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !onlyAggregationErrors(e) {
				return false
			}
		}
		return true
	}
	var aggErr *dqacore.AggregationError
	return errors.As(err, &aggErr)
}

// ResolveSource maps a dataset name to what the pipeline loader accepts.
func (p *Pipeline) ResolveSource(datasetName string) (string, error) {
	return ResolveSource(p.dataSource, p.registry, datasetName)
}

// ResolveSource maps a dataset name to a loader reference. File sources look up <data_dir>/<name><ext> for
// every extension of registry in sorted order; other sources use the name as a table reference.
func ResolveSource(dataSource *dqacore.DataSource, registry *readers.Registry, datasetName string) (string, error) {
	if dataSource == nil || (dataSource.Type != dqacore.DataSourceTypeFile && dataSource.Type != "") {
		return datasetName, nil
	}
	if registry == nil {
		registry = readers.DefaultRegistry()
	}

	for _, ext := range registry.Extensions() {
		candidate := filepath.Join(dataSource.DataDir, datasetName+ext)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no data file for dataset %s in %s", datasetName, dataSource.DataDir)
}

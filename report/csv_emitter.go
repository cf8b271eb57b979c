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

package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/DataBridgeTech/dqacore"
)

const TimestampLayout = "20060102_150405"

// Emitter persists the results of one validation run.
type Emitter interface {
	Emit(ctx context.Context, dataset string, results dqacore.ValidationResults) (string, error)
}

// CSVEmitter writes <dataset>_data_quality_<YYYYMMDD_HHMMSS>.csv files into a report directory.
// A report is written to a temporary file first and renamed into place, so readers never observe a
// partial report.
type CSVEmitter struct {
	dir       string
	now       func() time.Time
	publisher Publisher
	logger    *slog.Logger
}

type EmitterOption func(*CSVEmitter)

// WithClock replaces the time source used for report file names.
func WithClock(now func() time.Time) EmitterOption {
	return func(e *CSVEmitter) {
		e.now = now
	}
}

// WithPublisher uploads every written report.
func WithPublisher(publisher Publisher) EmitterOption {
	return func(e *CSVEmitter) {
		e.publisher = publisher
	}
}

func NewCSVEmitter(dir string, logger *slog.Logger, opts ...EmitterOption) *CSVEmitter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	emitter := &CSVEmitter{
		dir:    dir,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(emitter)
	}
	return emitter
}

// FileName returns the report file name of dataset at t.
func FileName(dataset string, t time.Time) string {
	return fmt.Sprintf("%s_data_quality_%s.csv", dataset, t.Format(TimestampLayout))
}

// Emit writes the report and returns its path. Results carrying an error add an Error column.
func (e *CSVEmitter) Emit(ctx context.Context, dataset string, results dqacore.ValidationResults) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory %s: %w", e.dir, err)
	}

	reportPath := filepath.Join(e.dir, FileName(dataset, e.now()))

	tmp, err := os.CreateTemp(e.dir, ".report-*.csv.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := writeResults(tmp, results); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write report %s: %w", reportPath, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", reportPath, err)
	}
	if err := os.Rename(tmpName, reportPath); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", reportPath, err)
	}

	e.logger.Info("report written",
		"dataset", dataset,
		"path", reportPath,
		"results", len(results))

	if e.publisher != nil {
		location, err := e.publisher.Publish(ctx, reportPath)
		if err != nil {
			return reportPath, fmt.Errorf("failed to publish report %s: %w", reportPath, err)
		}
		e.logger.Info("report published",
			"dataset", dataset,
			"location", location)
	}

	return reportPath, nil
}

func writeResults(w io.Writer, results dqacore.ValidationResults) error {
	withErrors := results.HasErrors()

	cw := csv.NewWriter(w)
	header := []string{"Column", "Check", "Failed_Count"}
	if withErrors {
		header = append(header, "Error")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, res := range results {
		record := []string{res.Column, res.Check, strconv.FormatUint(res.FailedCount, 10)}
		if withErrors {
			record = append(record, res.Error)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

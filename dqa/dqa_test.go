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
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/DataBridgeTech/dqacore"
	"github.com/DataBridgeTech/dqacore/report"
)

const employeesCsv = `employee_id,email,age
101,alice@company.com,34
102,bob@company.com,17
103,,45
104,david@company.com,101
104,david@company.com,
`

var fixedTime = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func TestGetDqaCoreLibVersion(t *testing.T) {
	if GetDqaCoreLibVersion() != Version {
		t.Errorf("unexpected version %s", GetDqaCoreLibVersion())
	}
}

func TestNewDatasetLoaderUnsupported(t *testing.T) {
	tests := []struct {
		name       string
		dataSource *dqacore.DataSource
	}{
		{name: "nil source", dataSource: nil},
		{name: "unknown type", dataSource: &dqacore.DataSource{Type: "oracle"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDatasetLoader(tt.dataSource, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func newFilePipeline(t *testing.T, dataDir, reportDir string) *Pipeline {
	t.Helper()
	source := &dqacore.DataSource{ID: "local", Type: dqacore.DataSourceTypeFile, DataDir: dataDir}
	loader, err := NewDatasetLoader(source, nil)
	if err != nil {
		t.Fatalf("NewDatasetLoader() error: %v", err)
	}
	t.Cleanup(func() { _ = loader.Close() })

	emitter := report.NewCSVEmitter(reportDir, nil, report.WithClock(func() time.Time { return fixedTime }))
	return NewPipeline(source, loader, dqacore.NewDqaDataValidator(nil), emitter, nil, WithDatasetConcurrency(2))
}

func TestPipelineRun(t *testing.T) {
	dataDir := t.TempDir()
	reportDir := filepath.Join(t.TempDir(), "reports")
	if err := os.WriteFile(filepath.Join(dataDir, "employees.csv"), []byte(employeesCsv), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &dqacore.PipelineConfig{
		Datasets: []dqacore.DatasetConfig{
			{
				DatasetName: "employees",
				Columns: dqacore.ColumnChecks{
					{Column: "employee_id", Checks: []string{"not_null", "unique"}},
					{Column: "email", Checks: []string{"regex"}},
				},
			},
			{
				DatasetName: "missing",
				Columns:     dqacore.ColumnChecks{{Column: "id", Checks: []string{"not_null"}}},
			},
		},
		RulesConfig: dqacore.DefaultRulesConfig(),
	}

	outcomes, err := newFilePipeline(t, dataDir, reportDir).Run(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected error naming the missing dataset, got %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}

	employees := outcomes[0]
	if employees.Err != nil {
		t.Fatalf("employees failed: %v", employees.Err)
	}
	expected := dqacore.ValidationResults{
		{Column: "employee_id", Check: "not_null", FailedCount: 0},
		{Column: "employee_id", Check: "unique", FailedCount: 2},
		{Column: "email", Check: "regex", FailedCount: 1},
	}
	if !reflect.DeepEqual(employees.Results, expected) {
		t.Errorf("Results = %+v, want %+v", employees.Results, expected)
	}

	data, err := os.ReadFile(employees.ReportPath)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	want := "Column,Check,Failed_Count\nemployee_id,not_null,0\nemployee_id,unique,2\nemail,regex,1\n"
	if string(data) != want {
		t.Errorf("report = %q, want %q", data, want)
	}

	if outcomes[1].Err == nil || outcomes[1].ReportPath != "" {
		t.Errorf("missing dataset must fail without a report: %+v", outcomes[1])
	}
	entries, err := os.ReadDir(reportDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly one report, got %d", len(entries))
	}
}

func TestResolveSource(t *testing.T) {
	dataDir := t.TempDir()
	for _, name := range []string{"a.json", "a.csv", "b.parquet"} {
		if err := os.WriteFile(filepath.Join(dataDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dataDir, "c.csv"), 0o755); err != nil {
		t.Fatal(err)
	}

	p := NewPipeline(&dqacore.DataSource{Type: dqacore.DataSourceTypeFile, DataDir: dataDir}, nil, nil, nil, nil)

	tests := []struct {
		name     string
		expected string
		wantErr  bool
	}{
		{name: "a", expected: filepath.Join(dataDir, "a.csv")},
		{name: "b", expected: filepath.Join(dataDir, "b.parquet")},
		{name: "c", wantErr: true},
		{name: "d", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ResolveSource(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s", got)
				}
				return
			}
			if err != nil || got != tt.expected {
				t.Errorf("ResolveSource(%s) = %s, %v; want %s", tt.name, got, err, tt.expected)
			}
		})
	}

	sqlPipeline := NewPipeline(&dqacore.DataSource{Type: dqacore.DataSourceTypePostgresql}, nil, nil, nil, nil)
	if got, err := sqlPipeline.ResolveSource("public.orders"); err != nil || got != "public.orders" {
		t.Errorf("table refs must pass through, got %s, %v", got, err)
	}
}

type failingRegexDataset struct {
	*dqacore.TableDataset
}

func (d *failingRegexDataset) CountPatternMismatches(context.Context, string, string) (uint64, error) {
	return 0, errors.New("backend unavailable")
}

type tableLoader struct {
	datasets map[string]dqacore.DatasetHandle
}

func (l *tableLoader) Load(_ context.Context, ref string) (dqacore.DatasetHandle, error) {
	ds, ok := l.datasets[ref]
	if !ok {
		return nil, errors.New("no such table")
	}
	return ds, nil
}

func (l *tableLoader) Close() error {
	return nil
}

func TestPipelineBestEffortWritesErrorColumn(t *testing.T) {
	table := &dqacore.Table{
		Columns: []string{"employee_id", "email"},
		Rows: [][]any{
			{int64(101), "alice@company.com"},
			{int64(102), nil},
		},
	}
	loader := &tableLoader{datasets: map[string]dqacore.DatasetHandle{
		"employees": &failingRegexDataset{TableDataset: dqacore.NewTableDataset("employees", table)},
	}}
	reportDir := filepath.Join(t.TempDir(), "reports")
	emitter := report.NewCSVEmitter(reportDir, nil, report.WithClock(func() time.Time { return fixedTime }))

	cfg := &dqacore.PipelineConfig{
		Datasets: []dqacore.DatasetConfig{{
			DatasetName: "employees",
			Columns: dqacore.ColumnChecks{
				{Column: "employee_id", Checks: []string{"not_null"}},
				{Column: "email", Checks: []string{"regex"}},
			},
		}},
		RulesConfig: dqacore.DefaultRulesConfig(),
	}

	source := &dqacore.DataSource{Type: dqacore.DataSourceTypePostgresql}
	validator := dqacore.NewDqaDataValidator(nil, dqacore.WithFailurePolicy(dqacore.BestEffort))
	outcomes, err := NewPipeline(source, loader, validator, emitter, nil).Run(context.Background(), cfg)

	var aggErr *dqacore.AggregationError
	if !errors.As(err, &aggErr) || aggErr.Check != "regex" {
		t.Fatalf("expected the regex aggregation error, got %v", err)
	}

	outcome := outcomes[0]
	if outcome.ReportPath == "" {
		t.Fatalf("expected a report for partial results, got %+v", outcome)
	}
	expected := dqacore.ValidationResults{
		{Column: "employee_id", Check: "not_null", FailedCount: 0},
		{Column: "email", Check: "regex", Error: "backend unavailable"},
	}
	if !reflect.DeepEqual(outcome.Results, expected) {
		t.Errorf("Results = %+v, want %+v", outcome.Results, expected)
	}

	data, err := os.ReadFile(outcome.ReportPath)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	want := "Column,Check,Failed_Count,Error\nemployee_id,not_null,0,\nemail,regex,0,backend unavailable\n"
	if string(data) != want {
		t.Errorf("report = %q, want %q", data, want)
	}
}

func TestPipelineFailFastWritesNoReport(t *testing.T) {
	table := &dqacore.Table{Columns: []string{"email"}, Rows: [][]any{{"a@b.com"}}}
	loader := &tableLoader{datasets: map[string]dqacore.DatasetHandle{
		"employees": &failingRegexDataset{TableDataset: dqacore.NewTableDataset("employees", table)},
	}}
	reportDir := filepath.Join(t.TempDir(), "reports")
	emitter := report.NewCSVEmitter(reportDir, nil)

	cfg := &dqacore.PipelineConfig{
		Datasets: []dqacore.DatasetConfig{{
			DatasetName: "employees",
			Columns:     dqacore.ColumnChecks{{Column: "email", Checks: []string{"regex"}}},
		}},
		RulesConfig: dqacore.DefaultRulesConfig(),
	}

	source := &dqacore.DataSource{Type: dqacore.DataSourceTypePostgresql}
	outcomes, err := NewPipeline(source, loader, dqacore.NewDqaDataValidator(nil), emitter, nil).
		Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected an error")
	}
	if outcomes[0].ReportPath != "" || outcomes[0].Results != nil {
		t.Errorf("fail fast must not produce a report: %+v", outcomes[0])
	}
	if _, statErr := os.Stat(reportDir); !os.IsNotExist(statErr) {
		t.Errorf("report directory should not exist, stat error %v", statErr)
	}
}

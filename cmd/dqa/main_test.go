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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DataBridgeTech/dqacore"
	"github.com/spf13/viper"
)

func TestLoadSettingsDefaultsAndEnv(t *testing.T) {
	t.Setenv("DQA_DATA_SOURCE_DATA_DIR", "/srv/data")
	t.Setenv("DQA_VALIDATION_FAILURE_POLICY", "best_effort")

	settings, err := loadSettings(viper.New(), "")
	if err != nil {
		t.Fatalf("loadSettings() error: %v", err)
	}

	if settings.DataSource.DataDir != "/srv/data" {
		t.Errorf("data dir = %q", settings.DataSource.DataDir)
	}
	if settings.DataSource.Type != dqacore.DataSourceTypeFile {
		t.Errorf("data source type = %q", settings.DataSource.Type)
	}
	if settings.Validation.FailurePolicy != string(dqacore.BestEffort) {
		t.Errorf("failure policy = %q", settings.Validation.FailurePolicy)
	}
	if settings.ConfigDir != "configs" || settings.ReportDir != "reports" {
		t.Errorf("unexpected dirs %q %q", settings.ConfigDir, settings.ReportDir)
	}
	if settings.Enrichment.RedisTTL != 720*time.Hour {
		t.Errorf("redis ttl = %v", settings.Enrichment.RedisTTL)
	}
}

func TestLoadSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dqa.yaml")
	content := `data_source:
  type: postgresql
  index_column: id
  partitions: 4
  configuration:
    host: db.internal
    port: 5432
s3:
  enabled: true
  bucket: reports
  region: eu-west-1
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	settings, err := loadSettings(viper.New(), path)
	if err != nil {
		t.Fatalf("loadSettings() error: %v", err)
	}
	ds := settings.DataSource
	if ds.Type != dqacore.DataSourceTypePostgresql || ds.IndexColumn != "id" || ds.Partitions != 4 {
		t.Errorf("unexpected data source %+v", ds)
	}
	if ds.Configuration.Host != "db.internal" || ds.Configuration.Port != 5432 {
		t.Errorf("unexpected connection config %+v", ds.Configuration)
	}
	if !settings.S3.Enabled || settings.S3.Bucket != "reports" || settings.S3.Region != "eu-west-1" {
		t.Errorf("unexpected s3 settings %+v", settings.S3)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		cfg     LogSettings
		wantErr bool
	}{
		{cfg: LogSettings{Level: "debug", Format: "text"}},
		{cfg: LogSettings{Level: "warn", Format: "json"}},
		{cfg: LogSettings{Level: "loud", Format: "text"}, wantErr: true},
		{cfg: LogSettings{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		_, err := newLogger(tt.cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("newLogger(%+v) error = %v, wantErr %v", tt.cfg, err, tt.wantErr)
		}
	}
}

func runCli(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := runCli(t, "version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Error("version printed nothing")
	}
}

func TestGenerateAndValidateCmd(t *testing.T) {
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	configDir := filepath.Join(root, "configs")
	reportDir := filepath.Join(root, "reports")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	csv := "employee_id,email,age\n101,alice@company.com,34\n102,bob@company.com,17\n"
	if err := os.WriteFile(filepath.Join(dataDir, "employees.csv"), []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCli(t, "generate-config", "--data-dir", dataDir, "--config-dir", configDir, "--log-level", "error")
	if err != nil {
		t.Fatalf("generate-config error: %v", err)
	}
	if !strings.Contains(out, "employees_config.json") {
		t.Errorf("unexpected output %q", out)
	}

	out, err = runCli(t, "validate", "--data-dir", dataDir, "--config-dir", configDir, "--report-dir", reportDir,
		"--log-level", "error")
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if !strings.Contains(out, "employees: ") {
		t.Errorf("unexpected output %q", out)
	}

	reports, err := filepath.Glob(filepath.Join(reportDir, "employees_data_quality_*.csv"))
	if err != nil || len(reports) != 1 {
		t.Fatalf("expected one report, got %v (%v)", reports, err)
	}
	data, err := os.ReadFile(reports[0])
	if err != nil {
		t.Fatal(err)
	}
	want := "Column,Check,Failed_Count\nemployee_id,not_null,0\nemail,not_null,0\nage,not_null,0\n"
	if string(data) != want {
		t.Errorf("report = %q, want %q", data, want)
	}
}

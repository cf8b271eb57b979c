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
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/DataBridgeTech/dqacore"
	"github.com/DataBridgeTech/dqacore/report"
	"github.com/spf13/viper"
)

// Settings holds everything the CLI reads from the settings file, DQA_ environment variables and flags.
type Settings struct {
	Log         LogSettings        `mapstructure:"log"`
	DataSource  dqacore.DataSource `mapstructure:"data_source"`
	ConfigDir   string             `mapstructure:"config_dir"`
	ReportDir   string             `mapstructure:"report_dir"`
	MetadataDir string             `mapstructure:"metadata_dir"`
	Validation  ValidationSettings `mapstructure:"validation"`
	S3          S3Settings         `mapstructure:"s3"`
	Enrichment  EnrichmentSettings `mapstructure:"enrichment"`
}

type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ValidationSettings struct {
	FailurePolicy      string `mapstructure:"failure_policy"`
	UnknownChecks      string `mapstructure:"unknown_checks"`
	MaxConcurrent      int    `mapstructure:"max_concurrent"`
	DatasetConcurrency int    `mapstructure:"dataset_concurrency"`
}

type S3Settings struct {
	Enabled         bool `mapstructure:"enabled"`
	report.S3Config `mapstructure:",squash"`
}

type EnrichmentSettings struct {
	Enabled       bool          `mapstructure:"enabled"`
	Endpoint      string        `mapstructure:"endpoint"`
	APIKey        string        `mapstructure:"api_key"`
	DeploymentID  string        `mapstructure:"deployment_id"`
	MaxRetries    uint64        `mapstructure:"max_retries"`
	KnowledgeBase string        `mapstructure:"knowledge_base"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisTTL      time.Duration `mapstructure:"redis_ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("data_source.id", "local")
	v.SetDefault("data_source.type", string(dqacore.DataSourceTypeFile))
	v.SetDefault("data_source.data_dir", "data")
	v.SetDefault("data_source.configuration.host", "localhost")
	v.SetDefault("data_source.configuration.port", 0)
	v.SetDefault("data_source.configuration.username", "")
	v.SetDefault("data_source.configuration.password", "")
	v.SetDefault("data_source.configuration.database", "")
	v.SetDefault("data_source.configuration.sslmode", "")
	v.SetDefault("data_source.index_column", "")
	v.SetDefault("data_source.partitions", 0)
	v.SetDefault("data_source.pool_size", 0)

	v.SetDefault("config_dir", "configs")
	v.SetDefault("report_dir", "reports")
	v.SetDefault("metadata_dir", "metadata")

	v.SetDefault("validation.failure_policy", string(dqacore.FailFast))
	v.SetDefault("validation.unknown_checks", string(dqacore.UnknownCheckIgnore))
	v.SetDefault("validation.max_concurrent", 1)
	v.SetDefault("validation.dataset_concurrency", 1)

	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.prefix", "")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.force_path_style", false)

	v.SetDefault("enrichment.enabled", false)
	v.SetDefault("enrichment.endpoint", "")
	v.SetDefault("enrichment.api_key", "")
	v.SetDefault("enrichment.deployment_id", "")
	v.SetDefault("enrichment.max_retries", 3)
	v.SetDefault("enrichment.knowledge_base", "")
	v.SetDefault("enrichment.redis_addr", "")
	v.SetDefault("enrichment.redis_ttl", "720h")
}

// loadSettings merges defaults, the optional settings file and DQA_ prefixed environment variables.
// Flags bound to v take precedence over all of them.
func loadSettings(v *viper.Viper, path string) (*Settings, error) {
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
	}

	v.SetEnvPrefix("DQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return &settings, nil
}

func newLogger(cfg LogSettings) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}
}

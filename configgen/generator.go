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

package configgen

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/DataBridgeTech/dqacore"
	"github.com/DataBridgeTech/dqacore/inference"
	"github.com/DataBridgeTech/dqacore/readers"
)

// SkippedFile names a data file for which no config was generated and why.
type SkippedFile struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// Summary is the outcome of a generation run.
type Summary struct {
	// Generated holds the written config paths in data file order.
	Generated []string      `json:"generated"`
	Skipped   []SkippedFile `json:"skipped"`
}

// Generator writes one starter rule config per supported data file.
type Generator struct {
	inferrer *inference.Inferrer
	defaults dqacore.RulesConfig
	logger   *slog.Logger
}

// NewGenerator returns a generator embedding defaults as the rules_config of every generated document.
func NewGenerator(inferrer *inference.Inferrer, defaults dqacore.RulesConfig, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if inferrer == nil {
		inferrer = inference.NewInferrer(nil, logger)
	}

	return &Generator{
		inferrer: inferrer,
		defaults: defaults,
		logger:   logger,
	}
}

// Generate scans dataDir in lexical order and writes <dataset>_config.json into configDir for each
// supported file. Files that cannot be read are skipped and logged. Only a failure to list dataDir or to
// create configDir is returned as an error.
func (g *Generator) Generate(ctx context.Context, dataDir string, configDir string) (*Summary, error) {
	startTime := time.Now()

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list data directory %s: %w", dataDir, err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	summary := &Summary{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if entry.IsDir() {
			continue
		}

		fileName := entry.Name()
		if !g.inferrer.Registry().Supports(fileName) {
			g.logger.Info("skipping unsupported file type", "file", fileName)
			summary.Skipped = append(summary.Skipped, SkippedFile{
				File:   fileName,
				Reason: (&dqacore.UnsupportedFormatError{Extension: readers.Extension(fileName)}).Error(),
			})
			continue
		}

		configPath, err := g.generateOne(filepath.Join(dataDir, fileName), configDir)
		if err != nil {
			g.logger.Warn("skipping file due to read error",
				"file", fileName,
				"error", err.Error())
			summary.Skipped = append(summary.Skipped, SkippedFile{File: fileName, Reason: err.Error()})
			continue
		}

		g.logger.Info("config generated",
			"file", fileName,
			"config", configPath)
		summary.Generated = append(summary.Generated, configPath)
	}

	g.logger.Info("config generation finished",
		"generated", len(summary.Generated),
		"skipped", len(summary.Skipped),
		"duration_ms", time.Since(startTime).Milliseconds())

	return summary, nil
}

func (g *Generator) generateOne(dataPath string, configDir string) (string, error) {
	schema, err := g.inferrer.InferSchema(dataPath)
	if err != nil {
		return "", err
	}

	cfg, err := BuildDatasetConfig(schema, g.defaults)
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(configDir, dqacore.DatasetConfigFileName(cfg.DatasetName))
	if err := dqacore.SaveDatasetConfig(cfg, configPath); err != nil {
		return "", err
	}
	return configPath, nil
}

// BuildDatasetConfig returns the starter config of a schema: every column gets not_null, and rules is
// copied into the document.
func BuildDatasetConfig(schema *dqacore.DatasetSchema, rules dqacore.RulesConfig) (*dqacore.DatasetConfig, error) {
	cfg := &dqacore.DatasetConfig{
		DatasetName: schema.Dataset,
		Columns:     make(dqacore.ColumnChecks, 0, len(schema.Columns)),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(schema.Columns))
	for _, col := range schema.Columns {
		if seen[col.Name] {
			return nil, fmt.Errorf("%w: %s", dqacore.ErrDuplicateColumn, col.Name)
		}
		seen[col.Name] = true
		cfg.Columns = append(cfg.Columns, dqacore.ColumnRule{
			Column: col.Name,
			Checks: []string{dqacore.CheckNotNull},
		})
	}

	defaults := rules.Clone()
	cfg.RulesConfig = &defaults
	return cfg, nil
}

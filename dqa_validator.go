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

package dqacore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// UnknownCheckPolicy decides what happens to check names missing from the registry.
type UnknownCheckPolicy string

const (
	// UnknownCheckIgnore skips unregistered checks; they produce no result entry.
	UnknownCheckIgnore UnknownCheckPolicy = "ignore"
	// UnknownCheckStrict rejects the whole run with an *UnknownCheckError.
	UnknownCheckStrict UnknownCheckPolicy = "error"
)

// FailurePolicy decides how a failing check resolution affects the run.
type FailurePolicy string

const (
	// FailFast aborts the run on the first failing check and returns no results.
	FailFast FailurePolicy = "fail_fast"
	// BestEffort runs every check, records failures on the affected results and reports them together.
	BestEffort FailurePolicy = "best_effort"
)

// ValidationResult is the outcome of one (column, check) pair.
type ValidationResult struct {
	Column      string `json:"column"`
	Check       string `json:"check"`
	FailedCount uint64 `json:"failed_count"`
	Error       string `json:"error,omitempty"`
}

// ValidationResults holds one entry per evaluated pair in configuration order.
type ValidationResults []ValidationResult

// HasErrors reports whether any entry failed to resolve.
func (r ValidationResults) HasErrors() bool {
	for _, res := range r {
		if res.Error != "" {
			return true
		}
	}
	return false
}

// DqaDataValidator is the interface that wraps the basic data validation method.
type DqaDataValidator interface {
	// Validate runs every configured check of cfg against dataset using parameters from rules.
	Validate(ctx context.Context, dataset DatasetHandle, cfg *DatasetConfig, rules *RulesConfig) (ValidationResults, error)
}

type ValidatorOption func(*DqaDataValidatorImpl)

// WithCheckRegistry replaces the built-in check registry.
func WithCheckRegistry(registry *CheckRegistry) ValidatorOption {
	return func(v *DqaDataValidatorImpl) {
		if registry != nil {
			v.registry = registry
		}
	}
}

func WithUnknownCheckPolicy(policy UnknownCheckPolicy) ValidatorOption {
	return func(v *DqaDataValidatorImpl) {
		v.unknownChecks = policy
	}
}

func WithFailurePolicy(policy FailurePolicy) ValidatorOption {
	return func(v *DqaDataValidatorImpl) {
		v.failures = policy
	}
}

// WithMaxConcurrent sets how many columns are validated at the same time. Checks of one column always run
// sequentially in configuration order.
func WithMaxConcurrent(n int) ValidatorOption {
	return func(v *DqaDataValidatorImpl) {
		v.maxConcurrent = n
	}
}

func NewDqaDataValidator(logger *slog.Logger, opts ...ValidatorOption) DqaDataValidator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	v := &DqaDataValidatorImpl{
		logger:        logger,
		registry:      DefaultCheckRegistry(),
		unknownChecks: UnknownCheckIgnore,
		failures:      FailFast,
		maxConcurrent: 1,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type DqaDataValidatorImpl struct {
	logger        *slog.Logger
	registry      *CheckRegistry
	unknownChecks UnknownCheckPolicy
	failures      FailurePolicy
	maxConcurrent int
}

type plannedCheck struct {
	index  int
	column string
	def    CheckDefinition
	params CheckParams
}

// plan resolves every configured pair before any query runs, so configuration defects abort the run
// without touching the backend.
func (v *DqaDataValidatorImpl) plan(cfg *DatasetConfig, rules *RulesConfig) ([][]plannedCheck, int, error) {
	var columns [][]plannedCheck
	total := 0

	for _, rule := range cfg.Columns {
		var checks []plannedCheck
		for _, name := range rule.Checks {
			def, ok := v.registry.Lookup(name)
			if !ok {
				if v.unknownChecks == UnknownCheckStrict {
					return nil, 0, &UnknownCheckError{Column: rule.Column, Check: name}
				}
				v.logger.Warn("skipping unknown check",
					"dataset", cfg.DatasetName,
					"col_name", rule.Column,
					"check", name)
				continue
			}

			params, err := def.ResolveParams(rule.Column, rules)
			if err != nil {
				return nil, 0, err
			}

			checks = append(checks, plannedCheck{index: total, column: rule.Column, def: def, params: params})
			total++
		}
		if len(checks) > 0 {
			columns = append(columns, checks)
		}
	}

	return columns, total, nil
}

func (v *DqaDataValidatorImpl) Validate(ctx context.Context, dataset DatasetHandle, cfg *DatasetConfig, rules *RulesConfig) (ValidationResults, error) {
	if dataset == nil {
		return nil, fmt.Errorf("dataset is not provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("dataset config is not provided")
	}

	columns, total, err := v.plan(cfg, rules)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	results := make(ValidationResults, total)
	errs := make([]error, total)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runColumn := func(ctx context.Context, checks []plannedCheck) error {
		for _, check := range checks {
			if err := ctx.Err(); err != nil {
				return err
			}

			res := ValidationResult{Column: check.column, Check: check.def.Name}
			checkStart := time.Now()
			count, err := check.def.Run(ctx, dataset, check.column, check.params)
			if err != nil {
				aggErr := &AggregationError{Dataset: dataset.Name(), Column: check.column, Check: check.def.Name, Err: err}
				res.Error = err.Error()
				results[check.index] = res
				errs[check.index] = aggErr

				v.logger.Error("check failed",
					"dataset", dataset.Name(),
					"col_name", check.column,
					"check", check.def.Name,
					"error", err.Error())

				if v.failures != BestEffort {
					cancel()
					return aggErr
				}
				continue
			}

			res.FailedCount = count
			results[check.index] = res

			v.logger.Debug("check completed",
				"dataset", dataset.Name(),
				"col_name", check.column,
				"check", check.def.Name,
				"failed_count", count,
				"duration_ms", time.Since(checkStart).Milliseconds())
		}
		return nil
	}

	if v.maxConcurrent <= 1 {
		for _, checks := range columns {
			if err := runColumn(runCtx, checks); err != nil && v.failures != BestEffort {
				break
			}
		}
	} else {
		pool := NewTaskPool(v.maxConcurrent, v.logger)
		for _, checks := range columns {
			pool.Enqueue(runCtx, "column:"+checks[0].column, func(ctx context.Context) error {
				return runColumn(ctx, checks)
			})
		}
		pool.Join()
	}

	v.logger.Debug("validation finished",
		"dataset", dataset.Name(),
		"checks", total,
		"duration_ms", time.Since(startTime).Milliseconds())

	if v.failures == BestEffort {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return results, errors.Join(errs...)
	}

	if err := firstError(errs); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// firstError prefers a real backend failure over cancellations caused by fail-fast propagation.
func firstError(errs []error) error {
	var canceled error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) {
			if canceled == nil {
				canceled = err
			}
			continue
		}
		return err
	}
	return canceled
}

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
	"fmt"
	"sort"
	"sync"
)

const (
	CheckNotNull = "not_null"
	CheckUnique  = "unique"
	CheckRange   = "range"
	CheckRegex   = "regex"
)

// CheckParamSource tells the validator which rules_config section a check draws its parameters from.
type CheckParamSource int

const (
	ParamsNone CheckParamSource = iota
	ParamsRange
	ParamsRegexPattern
)

func (s CheckParamSource) section() string {
	switch s {
	case ParamsRange:
		return "ranges"
	case ParamsRegexPattern:
		return "regex_patterns"
	default:
		return ""
	}
}

// CheckParams carries the parameters resolved from rules_config for one (column, check) pair.
type CheckParams struct {
	Range   Range
	Pattern string
}

// CheckFunc computes the failure count of a check over one column of a dataset.
type CheckFunc func(ctx context.Context, dataset DatasetHandle, column string, params CheckParams) (uint64, error)

// CheckDefinition binds a check name to its implementation and parameter source.
type CheckDefinition struct {
	Name   string
	Params CheckParamSource
	Run    CheckFunc
}

// ResolveParams looks up the parameters of the check for column in rules.
func (d CheckDefinition) ResolveParams(column string, rules *RulesConfig) (CheckParams, error) {
	var params CheckParams
	switch d.Params {
	case ParamsRange:
		bounds, ok := rules.RangeFor(column)
		if !ok {
			return params, &ConfigReferenceError{Column: column, Check: d.Name, Section: d.Params.section()}
		}
		params.Range = bounds
	case ParamsRegexPattern:
		pattern, ok := rules.PatternFor(column)
		if !ok {
			return params, &ConfigReferenceError{Column: column, Check: d.Name, Section: d.Params.section()}
		}
		params.Pattern = pattern
	}
	return params, nil
}

// CheckRegistry maps check names to their definitions. It is safe for concurrent use.
type CheckRegistry struct {
	mu     sync.RWMutex
	checks map[string]CheckDefinition
}

// NewCheckRegistry returns an empty registry.
func NewCheckRegistry() *CheckRegistry {
	return &CheckRegistry{checks: make(map[string]CheckDefinition)}
}

// DefaultCheckRegistry returns a registry holding the built-in checks.
func DefaultCheckRegistry() *CheckRegistry {
	registry := NewCheckRegistry()
	for _, def := range []CheckDefinition{
		{Name: CheckNotNull, Params: ParamsNone, Run: checkNotNull},
		{Name: CheckUnique, Params: ParamsNone, Run: checkUnique},
		{Name: CheckRange, Params: ParamsRange, Run: checkRange},
		{Name: CheckRegex, Params: ParamsRegexPattern, Run: checkRegex},
	} {
		// names are distinct, registration cannot fail
		_ = registry.Register(def)
	}
	return registry
}

// Register adds a check definition. Registering a name twice is an error.
func (r *CheckRegistry) Register(def CheckDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("check name is empty")
	}
	if def.Run == nil {
		return fmt.Errorf("check %q has no implementation", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.checks[def.Name]; exists {
		return fmt.Errorf("check %q is already registered", def.Name)
	}
	r.checks[def.Name] = def
	return nil
}

// Lookup returns the definition registered under name.
func (r *CheckRegistry) Lookup(name string) (CheckDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.checks[name]
	return def, ok
}

// Names returns the registered check names in lexical order.
func (r *CheckRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.checks))
	for name := range r.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkNotNull(ctx context.Context, dataset DatasetHandle, column string, _ CheckParams) (uint64, error) {
	return dataset.CountNulls(ctx, column)
}

func checkUnique(ctx context.Context, dataset DatasetHandle, column string, _ CheckParams) (uint64, error) {
	return dataset.CountDuplicatedRows(ctx, column)
}

func checkRange(ctx context.Context, dataset DatasetHandle, column string, params CheckParams) (uint64, error) {
	return dataset.CountOutOfRange(ctx, column, params.Range)
}

func checkRegex(ctx context.Context, dataset DatasetHandle, column string, params CheckParams) (uint64, error) {
	return dataset.CountPatternMismatches(ctx, column, params.Pattern)
}

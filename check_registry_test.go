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
	"reflect"
	"testing"
)

func TestDefaultCheckRegistry(t *testing.T) {
	registry := DefaultCheckRegistry()

	expected := []string{"not_null", "range", "regex", "unique"}
	if names := registry.Names(); !reflect.DeepEqual(names, expected) {
		t.Errorf("Names() = %v, want %v", names, expected)
	}

	tests := []struct {
		name   string
		params CheckParamSource
	}{
		{name: CheckNotNull, params: ParamsNone},
		{name: CheckUnique, params: ParamsNone},
		{name: CheckRange, params: ParamsRange},
		{name: CheckRegex, params: ParamsRegexPattern},
	}
	for _, tt := range tests {
		def, ok := registry.Lookup(tt.name)
		if !ok {
			t.Errorf("Lookup(%s) not found", tt.name)
			continue
		}
		if def.Params != tt.params {
			t.Errorf("%s params = %v, want %v", tt.name, def.Params, tt.params)
		}
	}

	if _, ok := registry.Lookup("freshness"); ok {
		t.Error("Lookup(freshness) should fail")
	}
}

func TestCheckRegistryRegister(t *testing.T) {
	registry := DefaultCheckRegistry()
	noop := func(context.Context, DatasetHandle, string, CheckParams) (uint64, error) { return 0, nil }

	tests := []struct {
		name    string
		def     CheckDefinition
		wantErr bool
	}{
		{name: "new check", def: CheckDefinition{Name: "positive", Run: noop}},
		{name: "duplicate", def: CheckDefinition{Name: CheckUnique, Run: noop}, wantErr: true},
		{name: "empty name", def: CheckDefinition{Run: noop}, wantErr: true},
		{name: "no implementation", def: CheckDefinition{Name: "broken"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.Register(tt.def)
			if (err != nil) != tt.wantErr {
				t.Errorf("Register() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCustomCheckThroughValidator(t *testing.T) {
	registry := DefaultCheckRegistry()
	err := registry.Register(CheckDefinition{
		Name:   "adult_count",
		Params: ParamsRange,
		Run: func(ctx context.Context, dataset DatasetHandle, column string, params CheckParams) (uint64, error) {
			outside, err := dataset.CountOutOfRange(ctx, column, params.Range)
			if err != nil {
				return 0, err
			}
			nulls, err := dataset.CountNulls(ctx, column)
			if err != nil {
				return 0, err
			}
			rows, err := dataset.CountRows(ctx)
			if err != nil {
				return 0, err
			}
			return rows - outside - nulls, nil
		},
	})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	cfg := &DatasetConfig{DatasetName: "employees", Columns: ColumnChecks{{Column: "age", Checks: []string{"adult_count"}}}}
	rules := DefaultRulesConfig()
	results, err := NewDqaDataValidator(nil, WithCheckRegistry(registry)).Validate(context.Background(),
		NewTableDataset("employees", employeesTable()), cfg, &rules)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	expected := ValidationResults{{Column: "age", Check: "adult_count", FailedCount: 2}}
	if !reflect.DeepEqual(results, expected) {
		t.Errorf("Validate() = %+v, want %+v", results, expected)
	}
}

func TestResolveParams(t *testing.T) {
	rules := DefaultRulesConfig()
	registry := DefaultCheckRegistry()

	regex, _ := registry.Lookup(CheckRegex)
	params, err := regex.ResolveParams("email", &rules)
	if err != nil || params.Pattern != `[^@]+@[^@]+\.[^@]+` {
		t.Errorf("ResolveParams(email) = %+v, %v", params, err)
	}

	rng, _ := registry.Lookup(CheckRange)
	params, err = rng.ResolveParams("salary", &rules)
	if err != nil || params.Range != (Range{Min: 20000, Max: 500000}) {
		t.Errorf("ResolveParams(salary) = %+v, %v", params, err)
	}

	_, err = rng.ResolveParams("salary", nil)
	var refErr *ConfigReferenceError
	if !errors.As(err, &refErr) {
		t.Errorf("expected ConfigReferenceError with nil rules, got %v", err)
	}
}

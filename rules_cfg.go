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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// RulesConfigKey is the reserved key of the shared rules section in a merged pipeline document.
	RulesConfigKey = "rules_config"

	// ConfigFileSuffix is appended to the dataset name to build a per-dataset config file name.
	ConfigFileSuffix = "_config.json"

	defaultDateFormat = "%Y-%m-%d"
)

// Range holds inclusive numeric bounds. It is serialised as a two element array.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within the inclusive bounds.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Min, r.Max})
}

func (r *Range) UnmarshalJSON(data []byte) error {
	var bounds []float64
	if err := json.Unmarshal(data, &bounds); err != nil {
		return fmt.Errorf("range must be a [min, max] array: %w", err)
	}
	return r.setBounds(bounds)
}

func (r Range) MarshalYAML() (interface{}, error) {
	return []float64{r.Min, r.Max}, nil
}

func (r *Range) UnmarshalYAML(node *yaml.Node) error {
	var bounds []float64
	if err := node.Decode(&bounds); err != nil {
		return fmt.Errorf("range must be a [min, max] sequence: %w", err)
	}
	return r.setBounds(bounds)
}

func (r *Range) setBounds(bounds []float64) error {
	if len(bounds) != 2 {
		return fmt.Errorf("range must have exactly 2 bounds, got %d", len(bounds))
	}
	if bounds[0] > bounds[1] {
		return fmt.Errorf("range min %v is greater than max %v", bounds[0], bounds[1])
	}
	r.Min, r.Max = bounds[0], bounds[1]
	return nil
}

// RulesConfig is the shared section holding check parameters keyed by column name.
// AllowedValues and DateFormat are declared for configuration authors but no check kind consumes them yet.
type RulesConfig struct {
	RegexPatterns map[string]string `json:"regex_patterns" yaml:"regex_patterns"`
	Ranges        map[string]Range  `json:"ranges" yaml:"ranges"`
	AllowedValues map[string][]any  `json:"allowed_values" yaml:"allowed_values"`
	DateFormat    string            `json:"date_format" yaml:"date_format"`
}

// DefaultRulesConfig returns the starting template attached to generated configs.
// A fresh value is returned on every call.
func DefaultRulesConfig() RulesConfig {
	return RulesConfig{
		RegexPatterns: map[string]string{
			"email": `[^@]+@[^@]+\.[^@]+`,
		},
		Ranges: map[string]Range{
			"age":    {Min: 18, Max: 100},
			"salary": {Min: 20000, Max: 500000},
		},
		AllowedValues: map[string][]any{},
		DateFormat:    defaultDateFormat,
	}
}

// Clone returns a deep copy with nil maps replaced by empty ones.
func (r RulesConfig) Clone() RulesConfig {
	clone := RulesConfig{
		RegexPatterns: make(map[string]string, len(r.RegexPatterns)),
		Ranges:        make(map[string]Range, len(r.Ranges)),
		AllowedValues: make(map[string][]any, len(r.AllowedValues)),
		DateFormat:    r.DateFormat,
	}
	for k, v := range r.RegexPatterns {
		clone.RegexPatterns[k] = v
	}
	for k, v := range r.Ranges {
		clone.Ranges[k] = v
	}
	for k, v := range r.AllowedValues {
		clone.AllowedValues[k] = append([]any{}, v...)
	}
	return clone
}

// RangeFor returns the configured bounds of a column.
func (r *RulesConfig) RangeFor(column string) (Range, bool) {
	if r == nil {
		return Range{}, false
	}
	bounds, ok := r.Ranges[column]
	return bounds, ok
}

// PatternFor returns the configured regular expression of a column.
func (r *RulesConfig) PatternFor(column string) (string, bool) {
	if r == nil {
		return "", false
	}
	pattern, ok := r.RegexPatterns[column]
	return pattern, ok
}

// merge adds the entries of other, failing on conflicting values for the same key.
func (r *RulesConfig) merge(other RulesConfig) error {
	for k, v := range other.RegexPatterns {
		if cur, ok := r.RegexPatterns[k]; ok && cur != v {
			return fmt.Errorf("conflicting regex_patterns entry for %q: %q vs %q", k, cur, v)
		}
		r.RegexPatterns[k] = v
	}
	for k, v := range other.Ranges {
		if cur, ok := r.Ranges[k]; ok && cur != v {
			return fmt.Errorf("conflicting ranges entry for %q: %v vs %v", k, cur, v)
		}
		r.Ranges[k] = v
	}
	for k, v := range other.AllowedValues {
		if cur, ok := r.AllowedValues[k]; ok && !reflect.DeepEqual(cur, v) {
			return fmt.Errorf("conflicting allowed_values entry for %q", k)
		}
		r.AllowedValues[k] = v
	}
	if other.DateFormat != "" {
		if r.DateFormat != "" && r.DateFormat != other.DateFormat {
			return fmt.Errorf("conflicting date_format: %q vs %q", r.DateFormat, other.DateFormat)
		}
		r.DateFormat = other.DateFormat
	}
	return nil
}

// ColumnRule is the ordered list of check names applied to one column.
type ColumnRule struct {
	Column string
	Checks []string
}

// ColumnChecks maps column names to check lists and keeps the order in which the columns were declared.
// It is serialised as a JSON or YAML object.
type ColumnChecks []ColumnRule

// Columns returns the column names in declaration order.
func (c ColumnChecks) Columns() []string {
	names := make([]string, 0, len(c))
	for _, rule := range c {
		names = append(names, rule.Column)
	}
	return names
}

// ChecksFor returns the check list of a column.
func (c ColumnChecks) ChecksFor(column string) ([]string, bool) {
	for _, rule := range c {
		if rule.Column == column {
			return rule.Checks, true
		}
	}
	return nil, false
}

func (c ColumnChecks) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, rule := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(rule.Column)
		if err != nil {
			return nil, err
		}
		checks := rule.Checks
		if checks == nil {
			checks = []string{}
		}
		value, err := json.Marshal(checks)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *ColumnChecks) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = nil
		return nil
	}

	rules := ColumnChecks{}
	err := decodeOrderedObject(data, func(key string, dec *json.Decoder) error {
		var checks []string
		if err := dec.Decode(&checks); err != nil {
			return fmt.Errorf("checks of column %q: %w", key, err)
		}
		if _, dup := rules.ChecksFor(key); dup {
			return fmt.Errorf("%w: %s", ErrDuplicateColumn, key)
		}
		rules = append(rules, ColumnRule{Column: key, Checks: checks})
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalid columns mapping: %w", err)
	}

	*c = rules
	return nil
}

func (c ColumnChecks) MarshalYAML() (interface{}, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, rule := range c {
		var value yaml.Node
		checks := rule.Checks
		if checks == nil {
			checks = []string{}
		}
		if err := value.Encode(checks); err != nil {
			return nil, err
		}
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: rule.Column},
			&value)
	}
	return mapping, nil
}

func (c *ColumnChecks) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("columns must be a mapping, line %d", node.Line)
	}

	rules := make(ColumnChecks, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var checks []string
		if err := node.Content[i+1].Decode(&checks); err != nil {
			return fmt.Errorf("checks of column %q: %w", key, err)
		}
		if _, dup := rules.ChecksFor(key); dup {
			return fmt.Errorf("%w: %s", ErrDuplicateColumn, key)
		}
		rules = append(rules, ColumnRule{Column: key, Checks: checks})
	}

	*c = rules
	return nil
}

// DatasetConfig is the rule configuration of one dataset.
type DatasetConfig struct {
	DatasetName string       `json:"dataset_name" yaml:"dataset_name"`
	Columns     ColumnChecks `json:"columns" yaml:"columns"`
	RulesConfig *RulesConfig `json:"rules_config,omitempty" yaml:"rules_config,omitempty"`
}

// Validate checks the invariants of a loaded config.
func (c *DatasetConfig) Validate() error {
	if strings.TrimSpace(c.DatasetName) == "" {
		return fmt.Errorf("dataset_name is empty")
	}
	if c.DatasetName == RulesConfigKey {
		return fmt.Errorf("%w: %s", ErrReservedDatasetName, c.DatasetName)
	}
	return nil
}

// DatasetConfigFileName returns the per-dataset config file name.
func DatasetConfigFileName(datasetName string) string {
	return datasetName + ConfigFileSuffix
}

// MarshalDatasetConfig renders the canonical JSON form: two space indentation, no HTML escaping,
// trailing newline.
func MarshalDatasetConfig(cfg *DatasetConfig) ([]byte, error) {
	return marshalIndented(cfg)
}

// SaveDatasetConfig writes the canonical JSON form of cfg to fileName, replacing any existing file.
func SaveDatasetConfig(cfg *DatasetConfig, fileName string) error {
	data, err := MarshalDatasetConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config for %s: %w", cfg.DatasetName, err)
	}
	if err := os.WriteFile(fileName, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", fileName, err)
	}
	return nil
}

// LoadDatasetConfig reads a per-dataset config. Files ending in .yaml or .yml are decoded as YAML,
// everything else as JSON.
func LoadDatasetConfig(fileName string) (*DatasetConfig, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	var cfg DatasetConfig
	if isYamlFile(fileName) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", fileName, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", fileName, err)
	}
	return &cfg, nil
}

// PipelineConfig is the merged document keyed by dataset name with the shared rules section stored under
// the reserved rules_config key.
type PipelineConfig struct {
	Datasets    []DatasetConfig
	RulesConfig RulesConfig
}

// Dataset returns the config of the named dataset.
func (p *PipelineConfig) Dataset(name string) (*DatasetConfig, bool) {
	for i := range p.Datasets {
		if p.Datasets[i].DatasetName == name {
			return &p.Datasets[i], true
		}
	}
	return nil, false
}

func (p *PipelineConfig) add(cfg DatasetConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, dup := p.Dataset(cfg.DatasetName); dup {
		return fmt.Errorf("duplicate dataset %q", cfg.DatasetName)
	}
	p.Datasets = append(p.Datasets, cfg)
	return nil
}

func (p PipelineConfig) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, ds := range p.Datasets {
		key, err := json.Marshal(ds.DatasetName)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(ds.Columns)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
		buf.WriteByte(',')
	}
	rules, err := json.Marshal(p.RulesConfig.Clone())
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"` + RulesConfigKey + `":`)
	buf.Write(rules)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *PipelineConfig) UnmarshalJSON(data []byte) error {
	out := PipelineConfig{RulesConfig: RulesConfig{}.Clone()}
	err := decodeOrderedObject(data, func(key string, dec *json.Decoder) error {
		if key == RulesConfigKey {
			var rules RulesConfig
			if err := dec.Decode(&rules); err != nil {
				return fmt.Errorf("%s: %w", RulesConfigKey, err)
			}
			out.RulesConfig = rules.Clone()
			return nil
		}

		var columns ColumnChecks
		if err := dec.Decode(&columns); err != nil {
			return fmt.Errorf("dataset %q: %w", key, err)
		}
		return out.add(DatasetConfig{DatasetName: key, Columns: columns})
	})
	if err != nil {
		return err
	}

	*p = out
	return nil
}

func (p *PipelineConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("pipeline config must be a mapping, line %d", node.Line)
	}

	out := PipelineConfig{RulesConfig: RulesConfig{}.Clone()}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value := node.Content[i+1]

		if key == RulesConfigKey {
			var rules RulesConfig
			if err := value.Decode(&rules); err != nil {
				return fmt.Errorf("%s: %w", RulesConfigKey, err)
			}
			out.RulesConfig = rules.Clone()
			continue
		}

		var columns ColumnChecks
		if err := value.Decode(&columns); err != nil {
			return fmt.Errorf("dataset %q: %w", key, err)
		}
		if err := out.add(DatasetConfig{DatasetName: key, Columns: columns}); err != nil {
			return err
		}
	}

	*p = out
	return nil
}

// LoadPipelineConfig reads a merged pipeline document in JSON or YAML form.
func LoadPipelineConfig(fileName string) (*PipelineConfig, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	var cfg PipelineConfig
	if isYamlFile(fileName) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode pipeline config %s: %w", fileName, err)
	}
	return &cfg, nil
}

// SavePipelineConfig writes the merged document in canonical JSON form.
func SavePipelineConfig(cfg *PipelineConfig, fileName string) error {
	data, err := marshalIndented(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode pipeline config: %w", err)
	}
	return os.WriteFile(fileName, data, 0o644)
}

// MergeDatasetConfigs builds a pipeline config from every per-dataset config file in dir, in file name
// order. The rules sections are unioned; conflicting entries are an error.
func MergeDatasetConfigs(dir string) (*PipelineConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list config directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(name, ConfigFileSuffix) ||
			strings.HasSuffix(name, "_config.yaml") || strings.HasSuffix(name, "_config.yml") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)

	merged := &PipelineConfig{RulesConfig: RulesConfig{}.Clone()}
	for _, file := range files {
		cfg, err := LoadDatasetConfig(file)
		if err != nil {
			return nil, err
		}
		if cfg.RulesConfig != nil {
			if err := merged.RulesConfig.merge(*cfg.RulesConfig); err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
		}
		if err := merged.add(DatasetConfig{DatasetName: cfg.DatasetName, Columns: cfg.Columns}); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	return merged, nil
}

func marshalIndented(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeOrderedObject walks the members of a JSON object in document order.
func decodeOrderedObject(data []byte, member func(key string, dec *json.Decoder) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected a JSON object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected an object key, got %v", tok)
		}
		if err := member(key, dec); err != nil {
			return err
		}
	}

	_, err = dec.Token()
	return err
}

func isYamlFile(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	return ext == ".yaml" || ext == ".yml"
}

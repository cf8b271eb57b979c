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

package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/DataBridgeTech/dqacore"
	"github.com/cenkalti/backoff/v4"
	"github.com/kaptinlin/jsonrepair"
)

const systemPrompt = `You annotate columns of tabular datasets for a data catalog.
Answer with a single JSON object and nothing else, using the keys:
"description" (one sentence), "semantic_type" (e.g. identifier, email, person_name, amount, date, category),
"contains_pii" (boolean) and "tags" (array of short lowercase strings).`

// DefaultInitialDelay is the first backoff delay between completion attempts.
const DefaultInitialDelay = 500 * time.Millisecond

// LLMEnricher annotates columns by asking a language model, consulting a knowledge base first.
type LLMEnricher struct {
	client        ChatCompleter
	kb            KnowledgeBase
	maxRetries    uint64
	initialDelay  time.Duration
	maxSampleVals int
	logger        *slog.Logger
}

type Option func(*LLMEnricher)

func WithKnowledgeBase(kb KnowledgeBase) Option {
	return func(e *LLMEnricher) {
		e.kb = kb
	}
}

// WithRetry sets the number of retries after a failed attempt and the first backoff delay.
func WithRetry(maxRetries uint64, initialDelay time.Duration) Option {
	return func(e *LLMEnricher) {
		e.maxRetries = maxRetries
		e.initialDelay = initialDelay
	}
}

func NewLLMEnricher(client ChatCompleter, logger *slog.Logger, opts ...Option) *LLMEnricher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	e := &LLMEnricher{
		client:        client,
		maxRetries:    3,
		initialDelay:  DefaultInitialDelay,
		maxSampleVals: 5,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *LLMEnricher) Enrich(ctx context.Context, summary dqacore.ColumnSummary) (*dqacore.SemanticAnnotations, error) {
	key := CacheKey(summary)
	if e.kb != nil {
		cached, ok, err := e.kb.Lookup(ctx, key)
		if err != nil {
			e.logger.Warn("knowledge base lookup failed", "col_name", summary.Column, "error", err.Error())
		} else if ok {
			e.logger.Debug("knowledge base hit", "col_name", summary.Column)
			return cached, nil
		}
	}

	prompt := e.buildPrompt(summary)

	var annotations *dqacore.SemanticAnnotations
	attempt := 0
	operation := func() error {
		attempt++
		answer, err := e.client.GetChatCompletion(ctx, systemPrompt, prompt)
		if err != nil {
			e.logger.Debug("completion failed", "col_name", summary.Column, "attempt", attempt, "error", err.Error())
			return err
		}
		annotations, err = ParseAnnotations(answer)
		if err != nil {
			e.logger.Debug("unusable completion", "col_name", summary.Column, "attempt", attempt, "error", err.Error())
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = e.initialDelay
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, e.maxRetries), ctx)
	if err := backoff.Retry(operation, retry); err != nil {
		return nil, fmt.Errorf("failed to enrich column %s after %d attempts: %w", summary.Column, attempt, err)
	}

	if e.kb != nil {
		if err := e.kb.Store(ctx, key, annotations); err != nil {
			e.logger.Warn("knowledge base store failed", "col_name", summary.Column, "error", err.Error())
		}
	}

	return annotations, nil
}

func (e *LLMEnricher) buildPrompt(summary dqacore.ColumnSummary) string {
	samples := summary.SampleValues
	if len(samples) > e.maxSampleVals {
		samples = samples[:e.maxSampleVals]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Dataset: %s\n", summary.Dataset)
	fmt.Fprintf(&sb, "Column: %s\n", summary.Column)
	fmt.Fprintf(&sb, "Data type: %s\n", summary.DataType)
	fmt.Fprintf(&sb, "Null ratio: %.4f\n", summary.NullRatio)
	fmt.Fprintf(&sb, "Duplicated rows: %d\n", summary.DuplicatedRows)
	if len(samples) > 0 {
		fmt.Fprintf(&sb, "Sample values: %s\n", strings.Join(samples, " | "))
	}
	return sb.String()
}

// ParseAnnotations decodes a model answer, tolerating markdown fences and slightly broken JSON.
func ParseAnnotations(answer string) (*dqacore.SemanticAnnotations, error) {
	s := strings.TrimSpace(answer)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty completion")
	}

	if !json.Valid([]byte(s)) {
		repaired, err := jsonrepair.JSONRepair(s)
		if err != nil {
			return nil, fmt.Errorf("completion is not json: %w", err)
		}
		s = repaired
	}

	var annotations dqacore.SemanticAnnotations
	if err := json.Unmarshal([]byte(s), &annotations); err != nil {
		return nil, fmt.Errorf("completion is not an annotation object: %w", err)
	}
	return &annotations, nil
}

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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/DataBridgeTech/dqacore"
	"github.com/redis/go-redis/v9"
	"github.com/zeebo/xxh3"
)

// KnowledgeBase remembers the annotations of columns already seen.
type KnowledgeBase interface {
	Lookup(ctx context.Context, key string) (*dqacore.SemanticAnnotations, bool, error)
	Store(ctx context.Context, key string, annotations *dqacore.SemanticAnnotations) error
}

// CacheKey identifies a column by name and type, so annotations are shared across datasets.
func CacheKey(summary dqacore.ColumnSummary) string {
	h := xxh3.HashString(summary.Column + "\x00" + summary.DataType)
	return strconv.FormatUint(h, 16)
}

// FileKnowledgeBase keeps annotations in a JSON document on disk.
type FileKnowledgeBase struct {
	path    string
	mu      sync.Mutex
	entries map[string]*dqacore.SemanticAnnotations
}

// NewFileKnowledgeBase loads path when it exists. A missing file starts an empty knowledge base.
func NewFileKnowledgeBase(path string) (*FileKnowledgeBase, error) {
	kb := &FileKnowledgeBase{
		path:    path,
		entries: make(map[string]*dqacore.SemanticAnnotations),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return kb, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &kb.entries); err != nil {
		return nil, fmt.Errorf("failed to decode knowledge base %s: %w", path, err)
	}
	return kb, nil
}

func (kb *FileKnowledgeBase) Lookup(_ context.Context, key string) (*dqacore.SemanticAnnotations, bool, error) {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	annotations, ok := kb.entries[key]
	return annotations, ok, nil
}

// Store records annotations and rewrites the file.
func (kb *FileKnowledgeBase) Store(_ context.Context, key string, annotations *dqacore.SemanticAnnotations) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	kb.entries[key] = annotations

	data, err := json.MarshalIndent(kb.entries, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(kb.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(kb.path, data, 0o644)
}

// RedisKnowledgeBase shares annotations between processes through Redis.
type RedisKnowledgeBase struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisKnowledgeBase(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisKnowledgeBase {
	if prefix == "" {
		prefix = "dqa:kb:"
	}
	return &RedisKnowledgeBase{client: client, prefix: prefix, ttl: ttl}
}

func (kb *RedisKnowledgeBase) Key(key string) string {
	return kb.prefix + key
}

func (kb *RedisKnowledgeBase) Lookup(ctx context.Context, key string) (*dqacore.SemanticAnnotations, bool, error) {
	data, err := kb.client.Get(ctx, kb.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var annotations dqacore.SemanticAnnotations
	if err := json.Unmarshal(data, &annotations); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached annotations: %w", err)
	}
	return &annotations, true, nil
}

func (kb *RedisKnowledgeBase) Store(ctx context.Context, key string, annotations *dqacore.SemanticAnnotations) error {
	data, err := json.Marshal(annotations)
	if err != nil {
		return err
	}
	return kb.client.Set(ctx, kb.Key(key), data, kb.ttl).Err()
}

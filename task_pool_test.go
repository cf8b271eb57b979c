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
	"sync/atomic"
	"testing"
	"time"
)

func TestTaskPoolBoundsConcurrency(t *testing.T) {
	pool := NewTaskPool(2, nil)

	var running, peak atomic.Int32
	for i := 0; i < 8; i++ {
		pool.Enqueue(context.Background(), "task", func(ctx context.Context) error {
			n := running.Add(1)
			for {
				cur := peak.Load()
				if n <= cur || peak.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil
		})
	}
	pool.Join()

	if p := peak.Load(); p > 2 || p < 1 {
		t.Errorf("peak concurrency = %d, want 1..2", p)
	}
	if errs := pool.Errors(); len(errs) != 0 {
		t.Errorf("unexpected errors %v", errs)
	}
}

func TestTaskPoolCollectsErrors(t *testing.T) {
	pool := NewTaskPool(3, nil)
	boom := errors.New("boom")

	pool.Enqueue(context.Background(), "ok", func(ctx context.Context) error { return nil })
	pool.Enqueue(context.Background(), "bad", func(ctx context.Context) error { return boom })
	pool.Join()

	errs := pool.Errors()
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
	var taskErr *TaskError
	if !errors.As(errs[0], &taskErr) || taskErr.ID != "bad" || !errors.Is(errs[0], boom) {
		t.Errorf("unexpected error %v", errs[0])
	}
}

func TestTaskPoolDropsTasksAfterCancel(t *testing.T) {
	pool := NewTaskPool(1, nil)
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	pool.Enqueue(ctx, "blocker", func(ctx context.Context) error {
		<-release
		return nil
	})

	var ran atomic.Bool
	// let the blocker take the only slot
	time.Sleep(10 * time.Millisecond)
	pool.Enqueue(ctx, "late", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	time.Sleep(10 * time.Millisecond)
	cancel()
	close(release)
	pool.Join()

	if ran.Load() {
		t.Error("task waiting for a slot ran after cancellation")
	}
}

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
	"io"
	"log/slog"
	"sync"
	"time"
)

// TaskError ties a task failure to the id it was enqueued with.
type TaskError struct {
	ID  string
	Err error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.ID, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// TaskPool runs enqueued tasks with bounded concurrency and collects their errors.
type TaskPool struct {
	semaphore chan struct{}
	logger    *slog.Logger
	wg        sync.WaitGroup
	mu        sync.Mutex
	errors    []error
}

func NewTaskPool(poolSize int, logger *slog.Logger) *TaskPool {
	if logger == nil {
		// noop logger by default
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if poolSize < 1 {
		poolSize = 1
	}

	return &TaskPool{
		semaphore: make(chan struct{}, poolSize),
		logger:    logger,
	}
}

// Enqueue schedules a task. A task still waiting for a slot when ctx is done is dropped without running.
func (tp *TaskPool) Enqueue(ctx context.Context, id string, task func(ctx context.Context) error) {
	tp.wg.Add(1)
	go func() {
		defer tp.wg.Done()

		select {
		case tp.semaphore <- struct{}{}:
		case <-ctx.Done():
			tp.logger.Debug("dropping task, context is done", "task_id", id)
			return
		}
		defer func() { <-tp.semaphore }()

		tp.logger.Debug("executing task", "task_id", id)
		exeStartTime := time.Now()
		if err := task(ctx); err != nil {
			tp.logger.Debug("task failed", "task_id", id, "error", err.Error())
			tp.mu.Lock()
			tp.errors = append(tp.errors, &TaskError{ID: id, Err: err})
			tp.mu.Unlock()
		}
		elapsed := time.Since(exeStartTime).Milliseconds()
		tp.logger.Debug("completed task", "task_id", id, "elapsed_ms", elapsed)
	}()
}

// Join blocks until every enqueued task has finished or was dropped.
func (tp *TaskPool) Join() {
	tp.wg.Wait()
}

// Errors returns a copy of the collected task errors in completion order.
func (tp *TaskPool) Errors() []error {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	errsCopy := make([]error, len(tp.errors))
	copy(errsCopy, tp.errors)
	return errsCopy
}

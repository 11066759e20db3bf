// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/marketlens/internal/logging"
)

// ErrTaskRunning is returned by Start when a task with the same key is in flight.
var ErrTaskRunning = errors.New("task already running")

// TaskSupervisor runs keyed one-shot tasks as suture services. At most one
// task per key is in flight; the key is released when the task returns.
// Tasks are never restarted; a panicking task is logged and released like
// any other.
type TaskSupervisor struct {
	sup *suture.Supervisor

	mu      sync.Mutex
	running map[string]struct{}
}

// NewTaskSupervisor creates a task supervisor adding services to sup.
func NewTaskSupervisor(sup *suture.Supervisor) *TaskSupervisor {
	return &TaskSupervisor{
		sup:     sup,
		running: make(map[string]struct{}),
	}
}

// Start schedules task under key. It returns ErrTaskRunning without scheduling
// anything if key is already in flight.
func (t *TaskSupervisor) Start(key string, task func(ctx context.Context) error) error {
	t.mu.Lock()
	if _, busy := t.running[key]; busy {
		t.mu.Unlock()
		return fmt.Errorf("%s: %w", key, ErrTaskRunning)
	}
	t.running[key] = struct{}{}
	t.mu.Unlock()

	t.sup.Add(&oneShotTask{
		key:     key,
		task:    task,
		release: func() { t.release(key) },
	})
	return nil
}

// Running reports whether a task with key is in flight.
func (t *TaskSupervisor) Running(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.running[key]
	return ok
}

// Len returns the number of in-flight tasks.
func (t *TaskSupervisor) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.running)
}

func (t *TaskSupervisor) release(key string) {
	t.mu.Lock()
	delete(t.running, key)
	t.mu.Unlock()
}

// oneShotTask adapts a function to suture.Service.
type oneShotTask struct {
	key     string
	task    func(ctx context.Context) error
	release func()
}

// Serve implements suture.Service. The returned suture.ErrDoNotRestart
// removes the service from its supervisor once the task is done.
func (s *oneShotTask) Serve(ctx context.Context) (err error) {
	defer s.release()
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Str("task", s.key).Msg("Background task panicked")
			err = suture.ErrDoNotRestart
		}
	}()

	if err := s.task(ctx); err != nil {
		logging.Warn().Err(err).Str("task", s.key).Msg("Background task failed")
	}
	return suture.ErrDoNotRestart
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *oneShotTask) String() string {
	return "task:" + s.key
}

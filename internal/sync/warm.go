// Marketlens - Seller Order Synchronization and Day-Bucketed Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marketlens

package sync

import (
	"context"
	"time"

	"github.com/tomtom215/marketlens/internal/logging"
	"github.com/tomtom215/marketlens/internal/metrics"
	"github.com/tomtom215/marketlens/internal/models"
)

// TaskStarter runs keyed one-shot tasks in the background, at most one per key.
// Satisfied by *supervisor.TaskSupervisor.
type TaskStarter interface {
	Start(key string, task func(ctx context.Context) error) error
}

// Warmer pre-populates a user's cache for the trailing warm-up window.
type Warmer struct {
	orch  *Orchestrator
	tasks TaskStarter
	days  int
}

// NewWarmer creates a Warmer covering warmDays days ending today.
func NewWarmer(orch *Orchestrator, tasks TaskStarter, warmDays int) *Warmer {
	if warmDays <= 0 {
		warmDays = 180
	}
	return &Warmer{orch: orch, tasks: tasks, days: warmDays}
}

// Warm starts a background warm-up for user. It returns false with the task
// starter's error (supervisor.ErrTaskRunning) when a warm-up for the same user
// is already in flight. Sync failures inside the task are logged, never
// returned.
func (w *Warmer) Warm(user, credential string) (bool, error) {
	err := w.tasks.Start(warmTaskKey(user), func(ctx context.Context) error {
		w.run(ctx, user, credential)
		return nil
	})
	if err != nil {
		metrics.WarmTasks.WithLabelValues("rejected").Inc()
		return false, err
	}
	return true, nil
}

func warmTaskKey(user string) string {
	return "warm:" + user
}

// Window returns the warm-up range ending on the current day.
func (w *Warmer) Window() (from, to time.Time) {
	to = models.StartOfDay(w.orch.now(), w.orch.loc)
	from = to.AddDate(0, 0, -(w.days - 1))
	return from, to
}

func (w *Warmer) run(ctx context.Context, user, credential string) {
	ctx = logging.ContextWithUserID(logging.ContextWithNewCorrelationID(ctx), user)
	log := logging.CtxWith(ctx).Str("component", "warmer").Logger()

	metrics.WarmTasksRunning.Inc()
	defer metrics.WarmTasksRunning.Dec()

	start := time.Now()
	from, to := w.Window()
	log.Info().Time("from", from).Time("to", to).Msg("Cache warm-up started")

	res, err := w.orch.Sync(ctx, user, credential, from, to, false)
	if err != nil {
		metrics.WarmTasks.WithLabelValues("error").Inc()
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Cache warm-up failed")
		return
	}

	fromDay, toDay := models.DayOf(from, w.orch.loc), models.DayOf(to, w.orch.loc)
	if err := w.orch.RecordWarmup(ctx, user, fromDay, toDay, len(res.Records)); err != nil {
		metrics.WarmTasks.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("Failed to record warm-up metadata")
		return
	}

	metrics.WarmTasks.WithLabelValues("success").Inc()
	log.Info().
		Int("records", len(res.Records)).
		Int("days_fetched", res.Meta.DaysFetched).
		Dur("duration", time.Since(start)).
		Msg("Cache warm-up completed")
}

// Package sweeper materializes expired one-time tasks as missed logs. The
// lifecycle resolver derives expired status on the fly; the sweeper is what
// makes a miss durable so streaks and history see it.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"starchart/internal/clock"
	"starchart/internal/ledger"
	"starchart/internal/model"
	"starchart/internal/store"
	"starchart/internal/task"
)

// Sweeper runs a periodic pass over every household's one-time tasks.
type Sweeper struct {
	mu         sync.RWMutex
	households *store.HouseholdStore
	tasks      *store.TaskStore
	logs       *store.CompletionStore
	engine     *ledger.Engine
	clock      clock.Clock
	interval   time.Duration
	onMiss     func(t model.Task, profileID int64)
	logger     *slog.Logger
	cancel     context.CancelFunc
	done       chan struct{}
}

// New creates a sweeper. onMiss fires once per newly recorded miss and may
// be nil.
func New(households *store.HouseholdStore, tasks *store.TaskStore, logs *store.CompletionStore, engine *ledger.Engine, clk clock.Clock, onMiss func(t model.Task, profileID int64), logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		households: households,
		tasks:      tasks,
		logs:       logs,
		engine:     engine,
		clock:      clk,
		interval:   60 * time.Second,
		onMiss:     onMiss,
		logger:     logger.With("component", "sweeper"),
	}
}

// Start begins the sweep loop: one eager pass, then one per interval. A
// freshly restarted server catches up on anything that expired while it was
// down instead of waiting a minute.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)

		s.tick(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for the in-flight pass to finish.
func (s *Sweeper) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	ids, err := s.households.ListIDs()
	if err != nil {
		s.logger.Error("list households", "error", err)
		return
	}

	now := s.clock.Now()
	for _, hid := range ids {
		if _, err := s.SweepExpired(ctx, hid, now); err != nil {
			s.logger.Error("sweep household", "household_id", hid, "error", err)
		}
	}
}

// SweepExpired records a miss for every assignee of each of the household's
// one-time tasks dated today whose deadline has passed without a log.
// Returns the ids of the logs actually written. Safe to call repeatedly;
// the deterministic log key absorbs overlap with concurrent completions.
func (s *Sweeper) SweepExpired(ctx context.Context, householdID int64, now time.Time) ([]string, error) {
	date := now.Format(model.DateLayout)
	due, err := s.tasks.ListOneTimeForDate(householdID, date)
	if err != nil {
		return nil, fmt.Errorf("list one-time tasks: %w", err)
	}

	var swept []string
	for _, t := range due {
		deadline, ok := task.Deadline(t, now)
		if !ok || !now.After(deadline) {
			continue
		}

		for _, pid := range t.AssigneeIDs {
			hasCompleted, hasMissed, err := s.logs.LogState(model.TaskActivityID(t.ID), pid, t.Date)
			if err != nil {
				return swept, err
			}
			if hasCompleted || hasMissed {
				continue
			}

			logID, inserted, err := s.engine.RecordMiss(ctx, t.ID, pid, t.Date)
			if err != nil {
				return swept, fmt.Errorf("record miss for task %d: %w", t.ID, err)
			}
			if !inserted {
				continue
			}

			swept = append(swept, logID)
			s.logger.Info("task expired", "task_id", t.ID, "profile_id", pid, "date", t.Date)
			if s.onMiss != nil {
				s.onMiss(t, pid)
			}
		}
	}
	return swept, nil
}

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mementohq/conduct/internal/store"
)

// WorkflowStore is the subset of store.Store the Scheduler needs.
// Satisfied by *store.LibSQLStore and test mocks.
type WorkflowStore interface {
	ListScheduledWorkflows(ctx context.Context) ([]*store.Workflow, error)
}

// RunFunc fires one workflow with trigger data and reports whether it
// succeeded. Satisfied by wrapping engine.WorkflowExecutor.Execute (the
// indirection avoids an import cycle).
type RunFunc func(ctx context.Context, tenantID, workflowID string, triggerData map[string]any) error

// Scheduler polls the store for enabled schedule-triggered workflows and
// fires those whose cron expression is due.
type Scheduler struct {
	store  WorkflowStore
	run    RunFunc
	parser cron.Parser
	logger *slog.Logger
	now    func() time.Time
	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex

	inflightMu sync.Mutex
	inflight   map[string]struct{} // workflow IDs currently executing (dedup)
}

// NewScheduler creates a new Scheduler.
func NewScheduler(s WorkflowStore, run RunFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:    s,
		run:      run,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		inflight: make(map[string]struct{}),
	}
}

// Start launches the background scheduling loop with a 60s ticker.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}

	schedCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(schedCtx)
	s.logger.Info("scheduler started")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	// Run an initial tick immediately.
	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick checks all enabled schedule-triggered workflows and fires those that
// are due.
func (s *Scheduler) Tick(ctx context.Context) {
	workflows, err := s.store.ListScheduledWorkflows(ctx)
	if err != nil {
		s.logger.Error("failed to list scheduled workflows", slog.String("error", err.Error()))
		return
	}

	now := s.now()
	for _, wf := range workflows {
		due, err := s.isDue(wf, now)
		if err != nil {
			s.logger.Error("invalid schedule expression",
				slog.String("workflow_id", wf.ID),
				slog.String("schedule", wf.Trigger.Schedule),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !due {
			continue
		}
		if !s.tryAcquire(wf.ID) {
			continue // already running (dedup)
		}
		s.fire(ctx, wf, now)
		s.release(wf.ID)
	}
}

// isDue reports whether the workflow's cron schedule has a firing time in
// (anchor, now], where the anchor is the last execution or, for workflows
// that never ran, creation time.
func (s *Scheduler) isDue(wf *store.Workflow, now time.Time) (bool, error) {
	if wf.Trigger.Schedule == "" {
		return false, fmt.Errorf("workflow %q has no schedule", wf.ID)
	}
	schedule, err := s.parser.Parse(wf.Trigger.Schedule)
	if err != nil {
		return false, fmt.Errorf("parse cron expression %q: %w", wf.Trigger.Schedule, err)
	}

	anchor := wf.CreatedAt
	if wf.LastExecutedAt != nil {
		anchor = *wf.LastExecutedAt
	}
	next := schedule.Next(anchor)
	return !next.After(now), nil
}

// fire runs one due workflow. The scheduled_at trigger datum keys the
// executor's idempotency window, so a tick retried within the same minute
// deduplicates downstream.
func (s *Scheduler) fire(ctx context.Context, wf *store.Workflow, now time.Time) {
	s.logger.Info("firing scheduled workflow",
		slog.String("workflow_id", wf.ID),
		slog.String("workflow_name", wf.Name),
	)

	triggerData := map[string]any{
		"scheduled_at": now.Truncate(time.Minute).Format(time.RFC3339),
	}
	if err := s.run(ctx, wf.TenantID, wf.ID, triggerData); err != nil {
		s.logger.Error("scheduled workflow failed",
			slog.String("workflow_id", wf.ID),
			slog.String("error", err.Error()),
		)
	}
}

// tryAcquire returns true and marks the workflow as in-flight if it is not
// already running.
func (s *Scheduler) tryAcquire(workflowID string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, ok := s.inflight[workflowID]; ok {
		return false
	}
	s.inflight[workflowID] = struct{}{}
	return true
}

func (s *Scheduler) release(workflowID string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, workflowID)
}

// CalculateNextRun computes the next firing time for a cron expression.
func (s *Scheduler) CalculateNextRun(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := s.parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.logger.Info("scheduler stopped")
	return nil
}

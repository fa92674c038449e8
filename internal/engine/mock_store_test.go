package engine

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mementohq/conduct/internal/entities"
	"github.com/mementohq/conduct/internal/store"
	"github.com/mementohq/conduct/internal/validation"
	"github.com/mementohq/conduct/pkg/schema"
)

// memStore is an in-memory stand-in for the libSQL store, implementing the
// narrow interfaces the engine consumes. Transition semantics mirror the real
// store's conditional updates.
type memStore struct {
	mu         sync.Mutex
	actions    map[string]*store.Action
	workflows  map[string]*store.Workflow
	executions []*store.WorkflowExecution
	plans      map[string]*store.Plan
	templates  map[string]*store.ActionTemplate

	// Error injection hooks, nil means succeed.
	transitionErr error
	recordErr     error
}

func newMemStore() *memStore {
	return &memStore{
		actions:   make(map[string]*store.Action),
		workflows: make(map[string]*store.Workflow),
		plans:     make(map[string]*store.Plan),
		templates: make(map[string]*store.ActionTemplate),
	}
}

func (m *memStore) CreateAction(_ context.Context, action *store.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	action.CreatedAt = now
	action.UpdatedAt = now
	m.actions[action.TenantID+"/"+action.ID] = action
	return nil
}

func (m *memStore) GetAction(_ context.Context, tenantID, id string) (*store.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actions[tenantID+"/"+id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "action %q not found", id)
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) TransitionAction(_ context.Context, tenantID, id string, from, to schema.ActionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transitionErr != nil {
		return m.transitionErr
	}
	a, ok := m.actions[tenantID+"/"+id]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "action %q not found", id)
	}
	if a.Status != from {
		return schema.NewErrorf(schema.ErrCodeConflict, "action %q is not in status %q", id, from)
	}
	a.Status = to
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) SetActionRollbackData(_ context.Context, tenantID, id string, snapshot map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actions[tenantID+"/"+id]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "action %q not found", id)
	}
	a.RollbackData = snapshot
	return nil
}

func (m *memStore) CompleteAction(_ context.Context, tenantID, id string, outcome store.ActionOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actions[tenantID+"/"+id]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "action %q not found", id)
	}
	if a.Status != schema.ActionStatusExecuting {
		return schema.NewErrorf(schema.ErrCodeConflict, "action %q is not executing", id)
	}
	now := time.Now().UTC()
	a.Status = outcome.Status
	a.Result = outcome.Result
	a.ErrorMessage = outcome.ErrorMessage
	a.UpdatedAt = now
	a.ExecutedAt = &now
	return nil
}

func (m *memStore) SetActionResult(_ context.Context, tenantID, id string, result json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actions[tenantID+"/"+id]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "action %q not found", id)
	}
	a.Result = result
	return nil
}

func (m *memStore) GetWorkflow(_ context.Context, tenantID, id string) (*store.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.workflows[tenantID+"/"+id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "workflow %q not found", id)
	}
	cp := *wf
	return &cp, nil
}

func (m *memStore) ListWorkflows(_ context.Context, tenantID string, filter store.WorkflowFilter) ([]*store.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Workflow
	for _, wf := range m.workflows {
		if wf.TenantID != tenantID {
			continue
		}
		if filter.Enabled != nil && wf.Enabled != *filter.Enabled {
			continue
		}
		cp := *wf
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) GetRecentExecution(_ context.Context, tenantID, idempotencyKey string, since time.Time) (*store.WorkflowExecution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.executions) - 1; i >= 0; i-- {
		e := m.executions[i]
		if e.TenantID == tenantID && e.IdempotencyKey == idempotencyKey && e.ExecutedAt.After(since) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) RecordExecution(_ context.Context, exec *store.WorkflowExecution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	m.executions = append(m.executions, exec)
	if wf, ok := m.workflows[exec.TenantID+"/"+exec.WorkflowID]; ok {
		wf.ExecutionCount++
		at := exec.ExecutedAt
		wf.LastExecutedAt = &at
	}
	return nil
}

func (m *memStore) GetPlan(_ context.Context, tenantID, id string) (*store.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[tenantID+"/"+id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "plan %q not found", id)
	}
	return p, nil
}

func (m *memStore) UpdatePlanStatus(_ context.Context, tenantID, id string, status schema.PlanStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[tenantID+"/"+id]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "plan %q not found", id)
	}
	p.Status = status
	return nil
}

func (m *memStore) UpdatePlanStep(_ context.Context, tenantID, planID string, step *store.PlanStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[tenantID+"/"+planID]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "plan %q not found", planID)
	}
	for i, s := range p.Steps {
		if s.StepOrder == step.StepOrder {
			p.Steps[i] = step
			return nil
		}
	}
	return schema.NewErrorf(schema.ErrCodeNotFound, "plan %q has no step %d", planID, step.StepOrder)
}

func (m *memStore) GetTemplate(_ context.Context, tenantID, id string) (*store.ActionTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tpl, ok := m.templates[tenantID+"/"+id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "template %q not found", id)
	}
	cp := *tpl
	return &cp, nil
}

// executionsFor returns the recorded executions for one workflow.
func (m *memStore) executionsFor(tenantID, workflowID string) []*store.WorkflowExecution {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.WorkflowExecution
	for _, e := range m.executions {
		if e.TenantID == tenantID && e.WorkflowID == workflowID {
			out = append(out, e)
		}
	}
	return out
}

// testEngine bundles a Runner over in-memory collaborators.
type testEngine struct {
	store     *memStore
	runner    *Runner
	notes     *entities.MemoryRepository
	links     *entities.MemoryLinkStore
	reminders *entities.MemoryReminderStore
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	validator, err := validation.NewParamsValidator()
	require.NoError(t, err)

	notes := entities.NewMemoryRepository()
	registry := entities.NewRegistry(map[string]entities.Repository{"note": notes})
	links := entities.NewMemoryLinkStore()
	reminders := entities.NewMemoryReminderStore()

	ms := newMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testEngine{
		store:     ms,
		runner:    NewRunner(ms, registry, links, reminders, validator, logger),
		notes:     notes,
		links:     links,
		reminders: reminders,
	}
}

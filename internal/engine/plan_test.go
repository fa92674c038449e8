package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mementohq/conduct/internal/store"
	"github.com/mementohq/conduct/pkg/schema"
)

func newTestPlanExecutor(te *testEngine) *PlanExecutor {
	return NewPlanExecutor(te.store, te.runner, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func seedPlan(te *testEngine, plan *store.Plan) {
	if plan.TenantID == "" {
		plan.TenantID = testTenant
	}
	if plan.Status == "" {
		plan.Status = schema.PlanStatusPending
	}
	for _, s := range plan.Steps {
		s.PlanID = plan.ID
		if s.Status == "" {
			s.Status = schema.StepStatusPending
		}
	}
	te.store.plans[plan.TenantID+"/"+plan.ID] = plan
}

func notifyStep(order int, title string, deps ...int) *store.PlanStep {
	return &store.PlanStep{
		StepOrder:    order,
		ActionType:   schema.ActionTypeNotify,
		ActionParams: map[string]any{"title": title},
		Dependencies: deps,
	}
}

func TestPlanExecute_SequentialSteps(t *testing.T) {
	te := newTestEngine(t)
	pe := newTestPlanExecutor(te)
	ctx := context.Background()

	plan := &store.Plan{
		ID: "plan-1",
		Steps: []*store.PlanStep{
			notifyStep(1, "first"),
			notifyStep(2, "second", 1),
			notifyStep(3, "third", 2),
		},
	}
	seedPlan(te, plan)

	res := pe.Execute(ctx, testTenant, "plan-1", "user-1")
	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.Equal(t, []int{1, 2, 3}, res.ExecutedSteps)
	assert.Equal(t, schema.PlanStatusCompleted, plan.Status)

	reminders := te.reminders.Reminders(testTenant)
	require.Len(t, reminders, 3)
	assert.Equal(t, "first", reminders[0].Title)
	assert.Equal(t, "third", reminders[2].Title)

	for _, s := range plan.Steps {
		assert.Equal(t, schema.StepStatusCompleted, s.Status)
		assert.NotEmpty(t, s.Result)
	}
}

func TestPlanExecute_OutOfOrderDependencies(t *testing.T) {
	te := newTestEngine(t)
	pe := newTestPlanExecutor(te)
	ctx := context.Background()

	// Step 1 depends on step 2: execution order must follow the dependency
	// graph, not the step numbering.
	plan := &store.Plan{
		ID: "plan-1",
		Steps: []*store.PlanStep{
			notifyStep(1, "dependent", 2),
			notifyStep(2, "prerequisite"),
		},
	}
	seedPlan(te, plan)

	res := pe.Execute(ctx, testTenant, "plan-1", "user-1")
	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.Equal(t, []int{2, 1}, res.ExecutedSteps)

	reminders := te.reminders.Reminders(testTenant)
	require.Len(t, reminders, 2)
	assert.Equal(t, "prerequisite", reminders[0].Title)
	assert.Equal(t, "dependent", reminders[1].Title)
}

func TestPlanExecute_FailedDependencyBlocksDownstream(t *testing.T) {
	te := newTestEngine(t)
	pe := newTestPlanExecutor(te)
	ctx := context.Background()

	plan := &store.Plan{
		ID: "plan-1",
		Steps: []*store.PlanStep{
			{
				StepOrder:    1,
				ActionType:   schema.ActionTypeUpdate,
				TargetType:   "note",
				TargetID:     "missing",
				ActionParams: map[string]any{"title": "x"},
			},
			notifyStep(2, "never", 1),
			notifyStep(3, "independent"),
		},
	}
	seedPlan(te, plan)

	res := pe.Execute(ctx, testTenant, "plan-1", "user-1")
	assert.False(t, res.Success)
	assert.Equal(t, []int{3}, res.ExecutedSteps)
	assert.Equal(t, schema.PlanStatusFailed, plan.Status)

	assert.Equal(t, schema.StepStatusFailed, plan.Steps[0].Status)
	assert.Equal(t, schema.StepStatusPending, plan.Steps[1].Status, "blocked step is never started")
	assert.Equal(t, schema.StepStatusCompleted, plan.Steps[2].Status)

	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "step 1")
	assert.Contains(t, res.Errors[1], "step 2 blocked")

	reminders := te.reminders.Reminders(testTenant)
	require.Len(t, reminders, 1)
	assert.Equal(t, "independent", reminders[0].Title)
}

func TestPlanExecute_CyclicDependenciesReportBlocked(t *testing.T) {
	te := newTestEngine(t)
	pe := newTestPlanExecutor(te)
	ctx := context.Background()

	plan := &store.Plan{
		ID: "plan-1",
		Steps: []*store.PlanStep{
			notifyStep(1, "a", 2),
			notifyStep(2, "b", 1),
		},
	}
	seedPlan(te, plan)

	res := pe.Execute(ctx, testTenant, "plan-1", "user-1")
	assert.False(t, res.Success)
	assert.Empty(t, res.ExecutedSteps)
	assert.Equal(t, schema.PlanStatusFailed, plan.Status)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "blocked")
	assert.Empty(t, te.reminders.Reminders(testTenant))
}

func TestPlanExecute_OnlyPendingPlansRun(t *testing.T) {
	te := newTestEngine(t)
	pe := newTestPlanExecutor(te)
	ctx := context.Background()

	plan := &store.Plan{
		ID:     "plan-1",
		Status: schema.PlanStatusCompleted,
		Steps:  []*store.PlanStep{notifyStep(1, "again")},
	}
	seedPlan(te, plan)

	res := pe.Execute(ctx, testTenant, "plan-1", "user-1")
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "only pending plans")
	assert.Empty(t, te.reminders.Reminders(testTenant))
}

func TestPlanExecute_MissingPlan(t *testing.T) {
	te := newTestEngine(t)
	pe := newTestPlanExecutor(te)

	res := pe.Execute(context.Background(), testTenant, "nope", "user-1")
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "not found")
}

package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mementohq/conduct/pkg/schema"
)

// Store defines the persistence layer contract. Every call is tenant-scoped;
// implementations must never return rows belonging to another tenant.
// All implementations must be safe for concurrent use.
type Store interface {
	// Actions (audit trail; rows are created and transitioned, never deleted)
	CreateAction(ctx context.Context, action *Action) error
	GetAction(ctx context.Context, tenantID, id string) (*Action, error)
	ListActions(ctx context.Context, tenantID string, filter ActionFilter) ([]*Action, error)
	// TransitionAction performs a conditional status transition: the update
	// applies only if the action is currently in the from status. Zero rows
	// affected yields a CONFLICT error, which is how concurrent Execute
	// callers lose the race.
	TransitionAction(ctx context.Context, tenantID, id string, from, to schema.ActionStatus) error
	SetActionRollbackData(ctx context.Context, tenantID, id string, snapshot map[string]any) error
	CompleteAction(ctx context.Context, tenantID, id string, outcome ActionOutcome) error
	SetActionResult(ctx context.Context, tenantID, id string, result json.RawMessage) error

	// Workflows
	CreateWorkflow(ctx context.Context, wf *Workflow) error
	GetWorkflow(ctx context.Context, tenantID, id string) (*Workflow, error)
	ListWorkflows(ctx context.Context, tenantID string, filter WorkflowFilter) ([]*Workflow, error)
	SetWorkflowEnabled(ctx context.Context, tenantID, id string, enabled bool) error
	// ListScheduledWorkflows returns enabled schedule-triggered workflows
	// across all tenants; used by the scheduler tick.
	ListScheduledWorkflows(ctx context.Context) ([]*Workflow, error)

	// Workflow executions (immutable bookkeeping)
	GetRecentExecution(ctx context.Context, tenantID, idempotencyKey string, since time.Time) (*WorkflowExecution, error)
	// RecordExecution inserts the execution row and bumps the workflow's
	// execution counters in a single transaction.
	RecordExecution(ctx context.Context, exec *WorkflowExecution) error
	ListExecutions(ctx context.Context, tenantID, workflowID string, limit int) ([]*WorkflowExecution, error)

	// Plans
	CreatePlan(ctx context.Context, plan *Plan) error
	GetPlan(ctx context.Context, tenantID, id string) (*Plan, error)
	UpdatePlanStatus(ctx context.Context, tenantID, id string, status schema.PlanStatus) error
	UpdatePlanStep(ctx context.Context, tenantID, planID string, step *PlanStep) error

	// Action templates
	CreateTemplate(ctx context.Context, tpl *ActionTemplate) error
	GetTemplate(ctx context.Context, tenantID, id string) (*ActionTemplate, error)

	// Maintenance
	Migrate(ctx context.Context) error

	// Lifecycle
	Close() error
}

package store

import (
	"encoding/json"
	"time"

	"github.com/mementohq/conduct/pkg/schema"
)

// Action is the persisted atomic unit of change. Actions are never deleted;
// together they form the audit trail of every mutation the engine performed.
type Action struct {
	ID               string              `json:"id"`
	TenantID         string              `json:"tenant_id"`
	ActionType       schema.ActionType   `json:"action_type"`
	TargetType       string              `json:"target_type,omitempty"`
	TargetID         string              `json:"target_id,omitempty"`
	Parameters       map[string]any      `json:"parameters,omitempty"`
	Status           schema.ActionStatus `json:"status"`
	RequiresApproval bool                `json:"requires_approval"`
	RollbackData     map[string]any      `json:"rollback_data,omitempty"`
	Result           json.RawMessage     `json:"result,omitempty"`
	ErrorMessage     string              `json:"error_message,omitempty"`
	CreatedBy        string              `json:"created_by,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	ExecutedAt       *time.Time          `json:"executed_at,omitempty"`
}

// Workflow is a standing rule: a trigger plus an ordered list of action
// templates.
type Workflow struct {
	ID             string              `json:"id"`
	TenantID       string              `json:"tenant_id"`
	Name           string              `json:"name"`
	Enabled        bool                `json:"enabled"`
	Priority       int                 `json:"priority"`
	Trigger        schema.Trigger      `json:"trigger"`
	Actions        []schema.ActionSpec `json:"actions"`
	ExecutionCount int64               `json:"execution_count"`
	LastExecutedAt *time.Time          `json:"last_executed_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// WorkflowExecution is one audited invocation of a workflow. Rows are
// immutable after creation; the idempotency key suppresses duplicates within
// the dedup window.
type WorkflowExecution struct {
	ID              string                 `json:"id"`
	TenantID        string                 `json:"tenant_id"`
	WorkflowID      string                 `json:"workflow_id"`
	IdempotencyKey  string                 `json:"idempotency_key"`
	TriggerData     map[string]any         `json:"trigger_data,omitempty"`
	ExecutedActions json.RawMessage        `json:"executed_actions,omitempty"`
	Status          schema.ExecutionStatus `json:"status"`
	ErrorMessage    string                 `json:"error_message,omitempty"`
	ExecutedAt      time.Time              `json:"executed_at"`
}

// Plan is an ordered multi-step unit of work with intra-plan dependencies.
type Plan struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenant_id"`
	Status    schema.PlanStatus `json:"status"`
	CreatedBy string            `json:"created_by,omitempty"`
	Steps     []*PlanStep       `json:"steps"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// PlanStep is one step of a plan. Dependencies reference step_order values
// within the same plan.
type PlanStep struct {
	PlanID       string                `json:"plan_id"`
	StepOrder    int                   `json:"step_order"`
	ActionType   schema.ActionType     `json:"action_type"`
	TargetType   string                `json:"target_type,omitempty"`
	TargetID     string                `json:"target_id,omitempty"`
	ActionParams map[string]any        `json:"action_params,omitempty"`
	Dependencies []int                 `json:"dependencies,omitempty"`
	Status       schema.PlanStepStatus `json:"status"`
	Result       json.RawMessage       `json:"result,omitempty"`
	Error        string                `json:"error,omitempty"`
}

// ActionTemplate is a named, reusable list of action definitions with
// parameter placeholders.
type ActionTemplate struct {
	ID          string              `json:"id"`
	TenantID    string              `json:"tenant_id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Actions     []schema.ActionSpec `json:"actions"`
	CreatedAt   time.Time           `json:"created_at"`
}

// --- Filter and update types ---

// WorkflowFilter specifies criteria for listing workflows.
type WorkflowFilter struct {
	Enabled     *bool               `json:"enabled,omitempty"`
	TriggerType *schema.TriggerType `json:"trigger_type,omitempty"`
	Limit       int                 `json:"limit,omitempty"`
}

// ActionFilter specifies criteria for listing actions.
type ActionFilter struct {
	Status     *schema.ActionStatus `json:"status,omitempty"`
	TargetType string               `json:"target_type,omitempty"`
	TargetID   string               `json:"target_id,omitempty"`
	Limit      int                  `json:"limit,omitempty"`
}

// ActionOutcome carries the terminal fields written when an executing action
// finishes.
type ActionOutcome struct {
	Status       schema.ActionStatus `json:"status"`
	Result       json.RawMessage     `json:"result,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`
}

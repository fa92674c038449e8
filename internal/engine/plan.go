package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/mementohq/conduct/internal/logging"
	"github.com/mementohq/conduct/internal/store"
	"github.com/mementohq/conduct/pkg/schema"
)

// PlanStore is the subset of store.Store the PlanExecutor needs.
// Satisfied by *store.LibSQLStore and test mocks.
type PlanStore interface {
	GetPlan(ctx context.Context, tenantID, id string) (*store.Plan, error)
	UpdatePlanStatus(ctx context.Context, tenantID, id string, status schema.PlanStatus) error
	UpdatePlanStep(ctx context.Context, tenantID, planID string, step *store.PlanStep) error
}

// PlanResult is the structured outcome of one plan execution.
type PlanResult struct {
	Success       bool     `json:"success"`
	PlanID        string   `json:"plan_id"`
	ExecutedSteps []int    `json:"executed_steps,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}

// PlanExecutor runs dependency-annotated multi-step plans, delegating each
// step to the Runner.
//
// Scheduling is a ready-queue sweep rather than a single linear pass: steps
// whose dependencies are satisfied execute in step order, and the sweep
// repeats until it makes no progress. A plan whose step order disagrees with
// its dependency order therefore still executes fully; only steps with
// genuinely unsatisfiable dependencies (failed, missing, or cyclic) are left
// behind and reported as blocked.
type PlanExecutor struct {
	store  PlanStore
	runner *Runner
	logger *slog.Logger
}

// NewPlanExecutor creates a PlanExecutor.
func NewPlanExecutor(s PlanStore, runner *Runner, logger *slog.Logger) *PlanExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanExecutor{store: s, runner: runner, logger: logger}
}

// Execute runs every step of a pending plan. The plan ends completed only if
// all steps executed and none failed; any failure or blocked step marks it
// failed with the reasons accumulated in Errors.
func (p *PlanExecutor) Execute(ctx context.Context, tenantID, planID, userID string) *PlanResult {
	ctx = logging.WithPlanID(logging.WithTenantID(ctx, tenantID), planID)

	plan, err := p.store.GetPlan(ctx, tenantID, planID)
	if err != nil {
		return planFailure(planID, err)
	}
	if plan.Status != schema.PlanStatusPending {
		return planFailure(planID, schema.NewErrorf(schema.ErrCodeConflict,
			"plan %q is %s, only pending plans can be executed", planID, plan.Status))
	}
	if err := p.store.UpdatePlanStatus(ctx, tenantID, planID, schema.PlanStatusExecuting); err != nil {
		return planFailure(planID, err)
	}

	var (
		executedSteps []int
		errs          *multierror.Error
	)
	completed := make(map[int]bool, len(plan.Steps))
	settled := make(map[int]bool, len(plan.Steps))

	for {
		progress := false
		for _, step := range plan.Steps {
			if settled[step.StepOrder] {
				continue
			}
			if !depsSatisfied(step, completed) {
				continue
			}

			settled[step.StepOrder] = true
			progress = true

			if ok := p.executeStep(ctx, tenantID, plan, step, userID); ok {
				completed[step.StepOrder] = true
				executedSteps = append(executedSteps, step.StepOrder)
			} else {
				errs = multierror.Append(errs, fmt.Errorf("step %d: %s", step.StepOrder, step.Error))
			}
		}
		if !progress {
			break
		}
	}

	for _, step := range plan.Steps {
		if settled[step.StepOrder] {
			continue
		}
		errs = multierror.Append(errs, fmt.Errorf("step %d blocked: dependencies %v not satisfied",
			step.StepOrder, step.Dependencies))
	}

	finalStatus := schema.PlanStatusCompleted
	if errs.ErrorOrNil() != nil {
		finalStatus = schema.PlanStatusFailed
	}
	if err := p.store.UpdatePlanStatus(ctx, tenantID, planID, finalStatus); err != nil {
		errs = multierror.Append(errs, err)
	}

	result := &PlanResult{
		Success:       errs.ErrorOrNil() == nil,
		PlanID:        planID,
		ExecutedSteps: executedSteps,
		Errors:        errorStrings(errs),
	}
	p.logger.InfoContext(ctx, "plan finished",
		slog.String("status", string(finalStatus)),
		slog.Int("executed_steps", len(executedSteps)))
	return result
}

// executeStep runs one step through the Runner and persists its outcome.
// Returns true when the step completed.
func (p *PlanExecutor) executeStep(ctx context.Context, tenantID string, plan *store.Plan, step *store.PlanStep, userID string) bool {
	step.Status = schema.StepStatusExecuting
	if err := p.store.UpdatePlanStep(ctx, tenantID, plan.ID, step); err != nil {
		step.Status = schema.StepStatusFailed
		step.Error = err.Error()
		return false
	}

	spec := schema.ActionSpec{
		ActionType:       step.ActionType,
		TargetType:       step.TargetType,
		TargetID:         step.TargetID,
		Parameters:       step.ActionParams,
		RequiresApproval: false,
	}

	action, err := p.runner.Create(ctx, tenantID, spec, userID)
	if err != nil {
		p.settleStep(ctx, tenantID, plan.ID, step, schema.StepStatusFailed, nil, err.Error())
		return false
	}

	res := p.runner.Execute(ctx, tenantID, action.ID)
	if !res.Success {
		p.settleStep(ctx, tenantID, plan.ID, step, schema.StepStatusFailed, nil, res.Error)
		return false
	}

	p.settleStep(ctx, tenantID, plan.ID, step, schema.StepStatusCompleted, res.Result, "")
	return true
}

func (p *PlanExecutor) settleStep(ctx context.Context, tenantID, planID string, step *store.PlanStep, status schema.PlanStepStatus, result []byte, errMsg string) {
	step.Status = status
	step.Result = result
	step.Error = errMsg
	if err := p.store.UpdatePlanStep(ctx, tenantID, planID, step); err != nil {
		p.logger.ErrorContext(ctx, "persist plan step",
			slog.Int("step_order", step.StepOrder), slog.String("error", err.Error()))
	}
}

func depsSatisfied(step *store.PlanStep, completed map[int]bool) bool {
	for _, dep := range step.Dependencies {
		if !completed[dep] {
			return false
		}
	}
	return true
}

func planFailure(planID string, err error) *PlanResult {
	return &PlanResult{Success: false, PlanID: planID, Errors: []string{err.Error()}}
}

package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	gocache "github.com/patrickmn/go-cache"

	"github.com/mementohq/conduct/internal/conditions"
	"github.com/mementohq/conduct/internal/logging"
	"github.com/mementohq/conduct/internal/params"
	"github.com/mementohq/conduct/internal/store"
	"github.com/mementohq/conduct/pkg/schema"
)

// DedupWindow is how long a workflow execution suppresses duplicates with the
// same idempotency key.
const DedupWindow = 60 * time.Minute

// WorkflowStore is the subset of store.Store the WorkflowExecutor needs.
// Satisfied by *store.LibSQLStore and test mocks.
type WorkflowStore interface {
	GetWorkflow(ctx context.Context, tenantID, id string) (*store.Workflow, error)
	ListWorkflows(ctx context.Context, tenantID string, filter store.WorkflowFilter) ([]*store.Workflow, error)
	GetRecentExecution(ctx context.Context, tenantID, idempotencyKey string, since time.Time) (*store.WorkflowExecution, error)
	RecordExecution(ctx context.Context, exec *store.WorkflowExecution) error
}

// ExecutedAction summarizes one action fired by a workflow execution.
type ExecutedAction struct {
	ActionID   string            `json:"action_id"`
	ActionType schema.ActionType `json:"action_type"`
	TargetType string            `json:"target_type,omitempty"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
}

// WorkflowResult is the structured outcome of one workflow execution.
type WorkflowResult struct {
	Success         bool             `json:"success"`
	WorkflowID      string           `json:"workflow_id"`
	Deduplicated    bool             `json:"deduplicated,omitempty"`
	ExecutedActions []ExecutedAction `json:"executed_actions,omitempty"`
	Errors          []string         `json:"errors,omitempty"`
}

// WorkflowExecutor matches domain events against registered workflows and
// drives the Runner for each matching workflow's action templates, guarded by
// an idempotency key with an hourly dedup window.
type WorkflowExecutor struct {
	store  WorkflowStore
	runner *Runner
	expr   *conditions.ExprEngine
	dedup  *gocache.Cache
	logger *slog.Logger

	wg sync.WaitGroup
}

// NewWorkflowExecutor creates a WorkflowExecutor.
func NewWorkflowExecutor(s WorkflowStore, runner *Runner, logger *slog.Logger) *WorkflowExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkflowExecutor{
		store:  s,
		runner: runner,
		expr:   conditions.NewExprEngine(),
		dedup:  gocache.New(DedupWindow, 10*time.Minute),
		logger: logger,
	}
}

// IdempotencyKey derives the deterministic fingerprint of one workflow
// invocation. Identical trigger data hashes to the same key; a workflow fired
// without trigger data collapses into a single "default" bucket, so all
// parameterless triggers of one workflow share a dedup window.
func IdempotencyKey(workflowID string, triggerData map[string]any) string {
	if len(triggerData) == 0 {
		return fmt.Sprintf("wf_%s_default", workflowID)
	}
	payload, err := json.Marshal(triggerData)
	if err != nil {
		payload = []byte(fmt.Sprintf("%v", triggerData))
	}
	inner := sha256.Sum256(payload)
	outer := sha256.Sum256([]byte(workflowID + ":" + hex.EncodeToString(inner[:])))
	return fmt.Sprintf("wf_%s_%s", workflowID, hex.EncodeToString(outer[:])[:16])
}

// EvaluateTrigger reports whether an event fires a trigger: the event type
// must match, the item type must match when the trigger names one, the
// optional expression must hold, and every condition must hold. Expression
// failures count as a non-match and are logged, not raised.
func (w *WorkflowExecutor) EvaluateTrigger(ctx context.Context, trigger schema.Trigger, event schema.Event) bool {
	if trigger.Type != event.Type {
		return false
	}
	if trigger.ItemType != "" && trigger.ItemType != event.ItemType {
		return false
	}
	if trigger.Expression != "" {
		ok, err := w.expr.EvaluateBool(trigger.Expression, event.Item)
		if err != nil {
			w.logger.WarnContext(ctx, "trigger expression error", slog.String("error", err.Error()))
			return false
		}
		if !ok {
			return false
		}
	}
	return conditions.All(trigger.Conditions, event.Item)
}

// Execute runs one workflow's action templates against the given trigger
// data. A repeat invocation with the same idempotency key inside the dedup
// window returns the recorded outcome without executing anything.
//
// The execution record is written exactly once, but action side effects are
// not mutually atomic: a failure partway through is reported in Errors and
// earlier actions stay applied.
func (w *WorkflowExecutor) Execute(ctx context.Context, tenantID, workflowID string, triggerData map[string]any) *WorkflowResult {
	ctx = logging.WithWorkflowID(logging.WithTenantID(ctx, tenantID), workflowID)

	wf, err := w.store.GetWorkflow(ctx, tenantID, workflowID)
	if err != nil {
		return workflowFailure(workflowID, err)
	}
	if !wf.Enabled {
		return workflowFailure(workflowID, schema.NewErrorf(schema.ErrCodeConflict,
			"workflow %q is disabled", workflowID))
	}

	key := IdempotencyKey(workflowID, triggerData)
	cacheKey := tenantID + "/" + key

	if cached, found := w.dedup.Get(cacheKey); found {
		return dedupedResult(cached.(*WorkflowResult))
	}
	prev, err := w.store.GetRecentExecution(ctx, tenantID, key, time.Now().UTC().Add(-DedupWindow))
	if err != nil {
		return workflowFailure(workflowID, schema.NewErrorf(schema.ErrCodeStore,
			"idempotency lookup: %s", err.Error()).WithCause(err))
	}
	if prev != nil {
		result := resultFromExecution(workflowID, prev)
		w.dedup.SetDefault(cacheKey, result)
		return dedupedResult(result)
	}

	var (
		executed []ExecutedAction
		errs     *multierror.Error
	)
	for i, tpl := range wf.Actions {
		spec := schema.ActionSpec{
			ActionType:       tpl.ActionType,
			TargetType:       tpl.TargetType,
			TargetID:         tpl.TargetID,
			Parameters:       params.Resolve(tpl.Parameters, triggerData),
			RequiresApproval: false,
		}

		action, err := w.runner.Create(ctx, tenantID, spec, "workflow:"+workflowID)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("action %d: %w", i, err))
			executed = append(executed, ExecutedAction{
				ActionType: tpl.ActionType,
				TargetType: tpl.TargetType,
				Error:      err.Error(),
			})
			continue
		}

		res := w.runner.Execute(ctx, tenantID, action.ID)
		entry := ExecutedAction{
			ActionID:   action.ID,
			ActionType: tpl.ActionType,
			TargetType: tpl.TargetType,
			Success:    res.Success,
			Error:      res.Error,
		}
		executed = append(executed, entry)
		if !res.Success {
			errs = multierror.Append(errs, fmt.Errorf("action %d (%s): %s", i, action.ID, res.Error))
		}
	}

	result := &WorkflowResult{
		Success:         errs.ErrorOrNil() == nil,
		WorkflowID:      workflowID,
		ExecutedActions: executed,
		Errors:          errorStrings(errs),
	}

	exec := &store.WorkflowExecution{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		WorkflowID:     workflowID,
		IdempotencyKey: key,
		TriggerData:    triggerData,
		Status:         schema.ExecutionSuccess,
		ExecutedAt:     time.Now().UTC(),
	}
	if !result.Success {
		exec.Status = schema.ExecutionFailed
		exec.ErrorMessage = errs.Error()
	}
	if b, err := json.Marshal(executed); err == nil {
		exec.ExecutedActions = b
	}
	if err := w.store.RecordExecution(ctx, exec); err != nil {
		w.logger.ErrorContext(ctx, "record workflow execution", slog.String("error", err.Error()))
		result.Errors = append(result.Errors, schema.NewErrorf(schema.ErrCodeStore,
			"record execution: %s", err.Error()).Error())
		result.Success = false
		return result
	}

	w.dedup.SetDefault(cacheKey, result)
	return result
}

// ProcessEvent is the event ingress: it evaluates every enabled workflow's
// trigger against the event and fires the matches without blocking the
// caller. Per-workflow failures are logged, never propagated.
func (w *WorkflowExecutor) ProcessEvent(ctx context.Context, tenantID string, event schema.Event) {
	ctx = logging.WithTenantID(ctx, tenantID)

	enabled := true
	workflows, err := w.store.ListWorkflows(ctx, tenantID, store.WorkflowFilter{Enabled: &enabled})
	if err != nil {
		w.logger.ErrorContext(ctx, "list workflows", slog.String("error", err.Error()))
		return
	}

	for _, wf := range workflows {
		if !w.EvaluateTrigger(ctx, wf.Trigger, event) {
			continue
		}
		workflowID := wf.ID
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			// Detached from the caller's cancellation: abandoning the request
			// must not stop in-flight executions.
			bg := context.WithoutCancel(ctx)
			result := w.Execute(bg, tenantID, workflowID, event.Item)
			if !result.Success {
				w.logger.Error("workflow execution failed",
					slog.String("tenant_id", tenantID),
					slog.String("workflow_id", workflowID),
					slog.Any("errors", result.Errors))
			}
		}()
	}
}

// Drain blocks until all fire-and-forget workflow executions finish.
// Used on shutdown and by tests.
func (w *WorkflowExecutor) Drain() {
	w.wg.Wait()
}

func resultFromExecution(workflowID string, exec *store.WorkflowExecution) *WorkflowResult {
	result := &WorkflowResult{
		Success:    exec.Status == schema.ExecutionSuccess,
		WorkflowID: workflowID,
	}
	if len(exec.ExecutedActions) > 0 {
		_ = json.Unmarshal(exec.ExecutedActions, &result.ExecutedActions)
	}
	if exec.ErrorMessage != "" {
		result.Errors = []string{exec.ErrorMessage}
	}
	return result
}

func dedupedResult(r *WorkflowResult) *WorkflowResult {
	cp := *r
	cp.Deduplicated = true
	return &cp
}

func workflowFailure(workflowID string, err error) *WorkflowResult {
	return &WorkflowResult{Success: false, WorkflowID: workflowID, Errors: []string{err.Error()}}
}

func errorStrings(errs *multierror.Error) []string {
	if errs.ErrorOrNil() == nil {
		return nil
	}
	out := make([]string, 0, len(errs.Errors))
	for _, e := range errs.Errors {
		out = append(out, e.Error())
	}
	return out
}

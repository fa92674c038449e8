package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/mementohq/conduct/internal/entities"
	"github.com/mementohq/conduct/internal/logging"
	"github.com/mementohq/conduct/internal/store"
	"github.com/mementohq/conduct/internal/validation"
	"github.com/mementohq/conduct/pkg/schema"
)

// ActionStore is the subset of store.Store the Runner needs.
// Satisfied by *store.LibSQLStore and test mocks.
type ActionStore interface {
	CreateAction(ctx context.Context, action *store.Action) error
	GetAction(ctx context.Context, tenantID, id string) (*store.Action, error)
	TransitionAction(ctx context.Context, tenantID, id string, from, to schema.ActionStatus) error
	SetActionRollbackData(ctx context.Context, tenantID, id string, snapshot map[string]any) error
	CompleteAction(ctx context.Context, tenantID, id string, outcome store.ActionOutcome) error
	SetActionResult(ctx context.Context, tenantID, id string, result json.RawMessage) error
}

// ActionResult is the structured outcome of executing one Action.
// Collaborator failures are reported here, never as a returned error.
type ActionResult struct {
	Success  bool            `json:"success"`
	ActionID string          `json:"action_id"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Runner executes single Actions against the entity collaborators. It owns
// the action state machine and the pre-image capture that makes rollback
// possible. Every execution path in the engine funnels through here.
type Runner struct {
	store     ActionStore
	entities  *entities.Registry
	links     entities.LinkStore
	reminders entities.ReminderStore
	validator *validation.ParamsValidator
	logger    *slog.Logger
}

// NewRunner creates a Runner over the given collaborators.
func NewRunner(s ActionStore, reg *entities.Registry, links entities.LinkStore, reminders entities.ReminderStore, validator *validation.ParamsValidator, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:     s,
		entities:  reg,
		links:     links,
		reminders: reminders,
		validator: validator,
		logger:    logger,
	}
}

// Create validates an ActionSpec and persists a new Action. Ungated actions
// start in approved; gated ones wait in pending for Approve or Reject.
func (r *Runner) Create(ctx context.Context, tenantID string, spec schema.ActionSpec, createdBy string) (*store.Action, error) {
	if r.validator != nil {
		if err := r.validator.ValidateSpec(spec); err != nil {
			return nil, err
		}
	} else if !schema.KnownActionTypes[spec.ActionType] {
		return nil, schema.NewErrorf(schema.ErrCodeUnknownActionType, "unknown action type %q", spec.ActionType)
	}

	status := schema.ActionStatusApproved
	if spec.RequiresApproval {
		status = schema.ActionStatusPending
	}

	action := &store.Action{
		ID:               uuid.New().String(),
		TenantID:         tenantID,
		ActionType:       spec.ActionType,
		TargetType:       spec.TargetType,
		TargetID:         spec.TargetID,
		Parameters:       spec.Parameters,
		Status:           status,
		RequiresApproval: spec.RequiresApproval,
		CreatedBy:        createdBy,
	}
	if err := r.store.CreateAction(ctx, action); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "create action: %s", err.Error()).WithCause(err)
	}
	return action, nil
}

// Approve transitions a pending action to approved.
func (r *Runner) Approve(ctx context.Context, tenantID, actionID string) error {
	return r.resolve(ctx, tenantID, actionID, schema.ActionStatusApproved)
}

// Reject transitions a pending action to rejected (terminal).
func (r *Runner) Reject(ctx context.Context, tenantID, actionID string) error {
	return r.resolve(ctx, tenantID, actionID, schema.ActionStatusRejected)
}

func (r *Runner) resolve(ctx context.Context, tenantID, actionID string, to schema.ActionStatus) error {
	action, err := r.store.GetAction(ctx, tenantID, actionID)
	if err != nil {
		return err
	}
	if err := checkTransition(actionID, action.Status, to); err != nil {
		return err
	}
	return r.store.TransitionAction(ctx, tenantID, actionID, action.Status, to)
}

// Execute runs a single Action to a terminal status. The returned result is
// always non-nil; Success=false carries the failure reason. The pre-image of
// the target entity is captured before any mutation so the action can be
// rolled back later.
func (r *Runner) Execute(ctx context.Context, tenantID, actionID string) *ActionResult {
	ctx = logging.WithActionID(logging.WithTenantID(ctx, tenantID), actionID)

	action, err := r.store.GetAction(ctx, tenantID, actionID)
	if err != nil {
		return failure(actionID, err)
	}

	if action.RequiresApproval && action.Status != schema.ActionStatusApproved {
		return failure(actionID, schema.NewErrorf(schema.ErrCodeApprovalRequired,
			"action %q requires approval (status %s)", actionID, action.Status))
	}

	// Conditional transition approved -> executing. A concurrent Execute on
	// the same action loses this compare-and-swap and stops here.
	if err := checkTransition(actionID, action.Status, schema.ActionStatusExecuting); err != nil {
		return failure(actionID, err)
	}
	if err := r.store.TransitionAction(ctx, tenantID, actionID, schema.ActionStatusApproved, schema.ActionStatusExecuting); err != nil {
		return failure(actionID, err)
	}

	// Pre-image snapshot, strictly before any mutation. Empty for create
	// actions and for actions without a target.
	if err := r.captureSnapshot(ctx, tenantID, action); err != nil {
		r.fail(ctx, tenantID, actionID, err)
		return failure(actionID, err)
	}

	result, err := r.dispatch(ctx, tenantID, action)
	if err != nil {
		r.fail(ctx, tenantID, actionID, err)
		return failure(actionID, err)
	}

	if err := r.store.CompleteAction(ctx, tenantID, actionID, store.ActionOutcome{
		Status: schema.ActionStatusExecuted,
		Result: result,
	}); err != nil {
		return failure(actionID, schema.NewErrorf(schema.ErrCodeStore, "record outcome: %s", err.Error()).WithCause(err))
	}

	r.logger.InfoContext(ctx, "action executed", slog.String("action_type", string(action.ActionType)))
	return &ActionResult{Success: true, ActionID: actionID, Result: result}
}

func (r *Runner) captureSnapshot(ctx context.Context, tenantID string, action *store.Action) error {
	if action.TargetType == "" || action.TargetID == "" {
		return nil
	}
	repo, err := r.entities.Lookup(action.TargetType)
	if err != nil {
		return err
	}
	snapshot, err := repo.GetByID(ctx, tenantID, action.TargetID)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeExecution, "snapshot %s/%s: %s",
			action.TargetType, action.TargetID, err.Error()).WithCause(err)
	}
	if len(snapshot) == 0 {
		return nil
	}
	return r.store.SetActionRollbackData(ctx, tenantID, action.ID, snapshot)
}

// dispatch routes an executing action to its collaborator. Each action type
// touches exactly one entity, one relationship edge, or one reminder.
func (r *Runner) dispatch(ctx context.Context, tenantID string, action *store.Action) (json.RawMessage, error) {
	switch action.ActionType {
	case schema.ActionTypeCreate:
		repo, err := r.entities.Lookup(action.TargetType)
		if err != nil {
			return nil, err
		}
		id, err := repo.Create(ctx, tenantID, action.Parameters)
		if err != nil {
			return nil, execFailure("create", err)
		}
		return jsonResult(map[string]any{"id": id})

	case schema.ActionTypeUpdate:
		if action.TargetID == "" {
			return nil, schema.NewError(schema.ErrCodeTargetMissing, "update action has no target id")
		}
		repo, err := r.entities.Lookup(action.TargetType)
		if err != nil {
			return nil, err
		}
		if err := repo.Update(ctx, tenantID, action.TargetID, action.Parameters); err != nil {
			return nil, execFailure("update", err)
		}
		return jsonResult(map[string]any{"id": action.TargetID, "updated": true})

	case schema.ActionTypeDelete:
		if action.TargetID == "" {
			return nil, schema.NewError(schema.ErrCodeTargetMissing, "delete action has no target id")
		}
		repo, err := r.entities.Lookup(action.TargetType)
		if err != nil {
			return nil, err
		}
		if err := repo.Delete(ctx, tenantID, action.TargetID); err != nil {
			return nil, execFailure("delete", err)
		}
		return jsonResult(map[string]any{"id": action.TargetID, "deleted": true})

	case schema.ActionTypeLink:
		link := entities.Link{
			SourceType: cast.ToString(action.Parameters["source_type"]),
			SourceID:   cast.ToString(action.Parameters["source_id"]),
			TargetType: cast.ToString(action.Parameters["target_type"]),
			TargetID:   cast.ToString(action.Parameters["target_id"]),
			Relation:   cast.ToString(action.Parameters["relation"]),
		}
		if err := r.links.Upsert(ctx, tenantID, link); err != nil {
			return nil, execFailure("link", err)
		}
		return jsonResult(map[string]any{"linked": true})

	case schema.ActionTypeNotify:
		id, err := r.reminders.Create(ctx, tenantID, entities.Reminder{
			Title:   cast.ToString(action.Parameters["title"]),
			Message: cast.ToString(action.Parameters["message"]),
		})
		if err != nil {
			return nil, execFailure("notify", err)
		}
		return jsonResult(map[string]any{"reminder_id": id})

	case schema.ActionTypeSchedule:
		dueAt, err := time.Parse(time.RFC3339, cast.ToString(action.Parameters["due_at"]))
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeValidation,
				"schedule action has invalid due_at: %s", err.Error()).WithCause(err)
		}
		id, err := r.reminders.Create(ctx, tenantID, entities.Reminder{
			Title:   cast.ToString(action.Parameters["title"]),
			Message: cast.ToString(action.Parameters["message"]),
			DueAt:   &dueAt,
		})
		if err != nil {
			return nil, execFailure("schedule", err)
		}
		return jsonResult(map[string]any{"reminder_id": id, "due_at": dueAt.Format(time.RFC3339)})

	default:
		return nil, schema.NewErrorf(schema.ErrCodeUnknownActionType, "unknown action type %q", action.ActionType)
	}
}

// fail records a terminal failed status; a second store failure at this point
// is only logged, the original error wins.
func (r *Runner) fail(ctx context.Context, tenantID, actionID string, cause error) {
	if err := r.store.CompleteAction(ctx, tenantID, actionID, store.ActionOutcome{
		Status:       schema.ActionStatusFailed,
		ErrorMessage: cause.Error(),
	}); err != nil {
		r.logger.ErrorContext(ctx, "record action failure", slog.String("error", err.Error()))
	}
}

func execFailure(op string, err error) error {
	if _, ok := err.(*schema.EngineError); ok {
		return err
	}
	return schema.NewErrorf(schema.ErrCodeExecution, "%s failed: %s", op, err.Error()).WithCause(err)
}

func failure(actionID string, err error) *ActionResult {
	return &ActionResult{Success: false, ActionID: actionID, Error: err.Error()}
}

func jsonResult(m map[string]any) (json.RawMessage, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExecution, "marshal result: %s", err.Error()).WithCause(err)
	}
	return b, nil
}

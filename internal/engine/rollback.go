package engine

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mementohq/conduct/internal/logging"
	"github.com/mementohq/conduct/pkg/schema"
)

// RollbackResult is the structured outcome of rolling back an Action.
type RollbackResult struct {
	Success          bool   `json:"success"`
	RollbackActionID string `json:"rollback_action_id,omitempty"`
	Error            string `json:"error,omitempty"`
}

// Rollbacker synthesizes and executes inverse Actions from captured
// pre-images. A rollback is a first-class, auditable Action in its own right,
// never a destructive rewrite of history.
//
// Only field values are restored: rolling back a create or delete does not
// resurrect the original entity identity, because the inverse is always a
// synthesized update against the pre-image snapshot.
type Rollbacker struct {
	store  ActionStore
	runner *Runner
	logger *slog.Logger
}

// NewRollbacker creates a Rollbacker that executes inverse actions through
// the given Runner.
func NewRollbacker(s ActionStore, runner *Runner, logger *slog.Logger) *Rollbacker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rollbacker{store: s, runner: runner, logger: logger}
}

// Rollback undoes a previously executed Action by applying its pre-image as
// a new auto-approved update. On success the original action's result is
// annotated with the rollback action's id.
func (rb *Rollbacker) Rollback(ctx context.Context, tenantID, actionID string) *RollbackResult {
	ctx = logging.WithActionID(logging.WithTenantID(ctx, tenantID), actionID)

	action, err := rb.store.GetAction(ctx, tenantID, actionID)
	if err != nil {
		return rollbackFailure(err)
	}
	if action.Status != schema.ActionStatusExecuted {
		return rollbackFailure(schema.NewErrorf(schema.ErrCodeConflict,
			"action %q is %s, only executed actions can be rolled back", actionID, action.Status))
	}
	if len(action.RollbackData) == 0 {
		return rollbackFailure(schema.NewErrorf(schema.ErrCodeConflict,
			"action %q has no rollback data", actionID))
	}

	inverse, err := rb.runner.Create(ctx, tenantID, schema.ActionSpec{
		ActionType:       schema.ActionTypeUpdate,
		TargetType:       action.TargetType,
		TargetID:         action.TargetID,
		Parameters:       action.RollbackData,
		RequiresApproval: false,
	}, "rollback:"+actionID)
	if err != nil {
		return rollbackFailure(err)
	}

	res := rb.runner.Execute(ctx, tenantID, inverse.ID)
	if !res.Success {
		return &RollbackResult{Success: false, RollbackActionID: inverse.ID, Error: res.Error}
	}

	if err := rb.annotateOriginal(ctx, tenantID, actionID, inverse.ID, action.Result); err != nil {
		rb.logger.WarnContext(ctx, "annotate rolled-back action", slog.String("error", err.Error()))
	}

	rb.logger.InfoContext(ctx, "action rolled back", slog.String("rollback_action_id", inverse.ID))
	return &RollbackResult{Success: true, RollbackActionID: inverse.ID}
}

// annotateOriginal merges rollback markers into the original action's result.
func (rb *Rollbacker) annotateOriginal(ctx context.Context, tenantID, actionID, rollbackID string, original json.RawMessage) error {
	merged := map[string]any{}
	if len(original) > 0 {
		if err := json.Unmarshal(original, &merged); err != nil {
			merged = map[string]any{"original_result": string(original)}
		}
	}
	merged["rolled_back"] = true
	merged["rollback_action_id"] = rollbackID

	b, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	return rb.store.SetActionResult(ctx, tenantID, actionID, b)
}

func rollbackFailure(err error) *RollbackResult {
	return &RollbackResult{Success: false, Error: err.Error()}
}

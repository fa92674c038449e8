package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/mementohq/conduct/internal/logging"
	"github.com/mementohq/conduct/internal/params"
	"github.com/mementohq/conduct/internal/store"
	"github.com/mementohq/conduct/pkg/schema"
)

// TemplateStore is the subset of store.Store the TemplateExecutor needs.
// Satisfied by *store.LibSQLStore and test mocks.
type TemplateStore interface {
	GetTemplate(ctx context.Context, tenantID, id string) (*store.ActionTemplate, error)
}

// TemplateResult is the structured outcome of one template instantiation.
type TemplateResult struct {
	Success    bool     `json:"success"`
	TemplateID string   `json:"template_id"`
	ActionIDs  []string `json:"action_ids,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// TemplateExecutor instantiates named action templates: each definition's
// parameters are resolved against caller-supplied values, then the resulting
// actions run sequentially without approval gating. Execution is best-effort;
// a failed definition is recorded and the remaining ones still run.
type TemplateExecutor struct {
	store  TemplateStore
	runner *Runner
	logger *slog.Logger
}

// NewTemplateExecutor creates a TemplateExecutor.
func NewTemplateExecutor(s TemplateStore, runner *Runner, logger *slog.Logger) *TemplateExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateExecutor{store: s, runner: runner, logger: logger}
}

// Execute instantiates and runs every action of the template. The result is
// successful only if all actions executed.
func (t *TemplateExecutor) Execute(ctx context.Context, tenantID, templateID string, values map[string]any, userID string) *TemplateResult {
	ctx = logging.WithTenantID(ctx, tenantID)

	tpl, err := t.store.GetTemplate(ctx, tenantID, templateID)
	if err != nil {
		return &TemplateResult{Success: false, TemplateID: templateID, Errors: []string{err.Error()}}
	}

	var (
		actionIDs []string
		errs      *multierror.Error
	)
	for i, def := range tpl.Actions {
		spec := schema.ActionSpec{
			ActionType:       def.ActionType,
			TargetType:       def.TargetType,
			TargetID:         def.TargetID,
			Parameters:       params.Resolve(def.Parameters, values),
			RequiresApproval: false,
		}

		action, err := t.runner.Create(ctx, tenantID, spec, userID)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("action %d (%s): %w", i, def.ActionType, err))
			continue
		}
		actionIDs = append(actionIDs, action.ID)

		if res := t.runner.Execute(ctx, tenantID, action.ID); !res.Success {
			errs = multierror.Append(errs, fmt.Errorf("action %d (%s): %s", i, def.ActionType, res.Error))
		}
	}

	t.logger.InfoContext(ctx, "template executed",
		slog.String("template_id", templateID),
		slog.String("template_name", tpl.Name),
		slog.Int("actions", len(tpl.Actions)),
		slog.Int("failed", len(errorStrings(errs))))

	return &TemplateResult{
		Success:    errs.ErrorOrNil() == nil,
		TemplateID: templateID,
		ActionIDs:  actionIDs,
		Errors:     errorStrings(errs),
	}
}

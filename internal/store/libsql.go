package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/mementohq/conduct/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// --- Actions ---

func (s *LibSQLStore) CreateAction(ctx context.Context, action *Action) error {
	params, err := marshalMapOrDefault(action.Parameters)
	if err != nil {
		return fmt.Errorf("marshal parameters: %w", err)
	}
	rollback, err := nullableMap(action.RollbackData)
	if err != nil {
		return fmt.Errorf("marshal rollback_data: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO actions (id, tenant_id, action_type, target_type, target_id, parameters, status, requires_approval, rollback_data, result, error_message, created_by, created_at, updated_at, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		action.ID, action.TenantID, string(action.ActionType),
		nullStr(action.TargetType), nullStr(action.TargetID),
		string(params), string(action.Status), boolInt(action.RequiresApproval),
		rollback, nullRaw(action.Result), nullStr(action.ErrorMessage), nullStr(action.CreatedBy),
		timeOrNow(action.CreatedAt), timeOrNow(action.UpdatedAt), nullTime(action.ExecutedAt),
	)
	return err
}

const actionColumns = `id, tenant_id, action_type, target_type, target_id, parameters, status, requires_approval, rollback_data, result, error_message, created_by, created_at, updated_at, executed_at`

func (s *LibSQLStore) GetAction(ctx context.Context, tenantID, id string) (*Action, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+actionColumns+` FROM actions WHERE tenant_id = ? AND id = ?`, tenantID, id)
	a, err := scanAction(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("action", id)
	}
	return a, err
}

func (s *LibSQLStore) ListActions(ctx context.Context, tenantID string, filter ActionFilter) ([]*Action, error) {
	where := []string{"tenant_id = ?"}
	args := []any{tenantID}

	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.TargetType != "" {
		where = append(where, "target_type = ?")
		args = append(args, filter.TargetType)
	}
	if filter.TargetID != "" {
		where = append(where, "target_id = ?")
		args = append(args, filter.TargetID)
	}

	query := `SELECT ` + actionColumns + ` FROM actions WHERE ` + strings.Join(where, " AND ") + " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []*Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func (s *LibSQLStore) TransitionAction(ctx context.Context, tenantID, id string, from, to schema.ActionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE actions SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE tenant_id = ? AND id = ? AND status = ?`,
		string(to), tenantID, id, string(from),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a missing action from a lost race.
		if _, getErr := s.GetAction(ctx, tenantID, id); getErr != nil {
			return getErr
		}
		return schema.NewErrorf(schema.ErrCodeConflict,
			"action %q is not in status %q", id, from)
	}
	return nil
}

func (s *LibSQLStore) SetActionRollbackData(ctx context.Context, tenantID, id string, snapshot map[string]any) error {
	data, err := nullableMap(snapshot)
	if err != nil {
		return fmt.Errorf("marshal rollback_data: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE actions SET rollback_data = ?, updated_at = CURRENT_TIMESTAMP WHERE tenant_id = ? AND id = ?`,
		data, tenantID, id,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "action", id)
}

func (s *LibSQLStore) CompleteAction(ctx context.Context, tenantID, id string, outcome ActionOutcome) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE actions SET status = ?, result = ?, error_message = ?, executed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE tenant_id = ? AND id = ? AND status = ?`,
		string(outcome.Status), nullRaw(outcome.Result), nullStr(outcome.ErrorMessage),
		tenantID, id, string(schema.ActionStatusExecuting),
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "action", id)
}

func (s *LibSQLStore) SetActionResult(ctx context.Context, tenantID, id string, result json.RawMessage) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE actions SET result = ?, updated_at = CURRENT_TIMESTAMP WHERE tenant_id = ? AND id = ?`,
		nullRaw(result), tenantID, id,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "action", id)
}

func scanAction(row interface{ Scan(...any) error }) (*Action, error) {
	a := &Action{}
	var (
		actionType, status                     string
		targetType, targetID, errMsg, creator  sql.NullString
		paramsJSON, rollbackJSON, resultJSON   sql.NullString
		requiresApproval                       int
		executedAt                             sql.NullTime
	)
	err := row.Scan(&a.ID, &a.TenantID, &actionType, &targetType, &targetID,
		&paramsJSON, &status, &requiresApproval, &rollbackJSON, &resultJSON,
		&errMsg, &creator, &a.CreatedAt, &a.UpdatedAt, &executedAt)
	if err != nil {
		return nil, err
	}
	a.ActionType = schema.ActionType(actionType)
	a.Status = schema.ActionStatus(status)
	a.TargetType = targetType.String
	a.TargetID = targetID.String
	a.ErrorMessage = errMsg.String
	a.CreatedBy = creator.String
	a.RequiresApproval = requiresApproval != 0
	if paramsJSON.Valid && paramsJSON.String != "" {
		if err := json.Unmarshal([]byte(paramsJSON.String), &a.Parameters); err != nil {
			return nil, fmt.Errorf("unmarshal parameters: %w", err)
		}
	}
	if rollbackJSON.Valid && rollbackJSON.String != "" {
		if err := json.Unmarshal([]byte(rollbackJSON.String), &a.RollbackData); err != nil {
			return nil, fmt.Errorf("unmarshal rollback_data: %w", err)
		}
	}
	a.Result = rawOrNil(resultJSON)
	if executedAt.Valid {
		a.ExecutedAt = &executedAt.Time
	}
	return a, nil
}

// --- Workflows ---

func (s *LibSQLStore) CreateWorkflow(ctx context.Context, wf *Workflow) error {
	trigger, err := json.Marshal(wf.Trigger)
	if err != nil {
		return fmt.Errorf("marshal trigger: %w", err)
	}
	actions, err := json.Marshal(wf.Actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO workflows (id, tenant_id, name, enabled, priority, trigger_type, trigger, actions, execution_count, last_executed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wf.ID, wf.TenantID, wf.Name, boolInt(wf.Enabled), wf.Priority,
		string(wf.Trigger.Type), string(trigger), string(actions),
		wf.ExecutionCount, nullTime(wf.LastExecutedAt),
		timeOrNow(wf.CreatedAt), timeOrNow(wf.UpdatedAt),
	)
	return err
}

const workflowColumns = `id, tenant_id, name, enabled, priority, trigger, actions, execution_count, last_executed_at, created_at, updated_at`

func (s *LibSQLStore) GetWorkflow(ctx context.Context, tenantID, id string) (*Workflow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE tenant_id = ? AND id = ?`, tenantID, id)
	wf, err := scanWorkflow(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("workflow", id)
	}
	return wf, err
}

func (s *LibSQLStore) ListWorkflows(ctx context.Context, tenantID string, filter WorkflowFilter) ([]*Workflow, error) {
	where := []string{"tenant_id = ?"}
	args := []any{tenantID}

	if filter.Enabled != nil {
		where = append(where, "enabled = ?")
		args = append(args, boolInt(*filter.Enabled))
	}
	if filter.TriggerType != nil {
		where = append(where, "trigger_type = ?")
		args = append(args, string(*filter.TriggerType))
	}

	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE ` + strings.Join(where, " AND ") +
		" ORDER BY priority DESC, created_at ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkflows(rows)
}

func (s *LibSQLStore) SetWorkflowEnabled(ctx context.Context, tenantID, id string, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE workflows SET enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE tenant_id = ? AND id = ?`,
		boolInt(enabled), tenantID, id,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "workflow", id)
}

func (s *LibSQLStore) ListScheduledWorkflows(ctx context.Context) ([]*Workflow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE trigger_type = ? AND enabled = 1`,
		string(schema.TriggerScheduled),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkflows(rows)
}

func scanWorkflows(rows *sql.Rows) ([]*Workflow, error) {
	var workflows []*Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	return workflows, rows.Err()
}

func scanWorkflow(row interface{ Scan(...any) error }) (*Workflow, error) {
	wf := &Workflow{}
	var (
		enabled                  int
		triggerJSON, actionsJSON string
		lastExecuted             sql.NullTime
	)
	err := row.Scan(&wf.ID, &wf.TenantID, &wf.Name, &enabled, &wf.Priority,
		&triggerJSON, &actionsJSON, &wf.ExecutionCount, &lastExecuted, &wf.CreatedAt, &wf.UpdatedAt)
	if err != nil {
		return nil, err
	}
	wf.Enabled = enabled != 0
	if err := json.Unmarshal([]byte(triggerJSON), &wf.Trigger); err != nil {
		return nil, fmt.Errorf("unmarshal trigger: %w", err)
	}
	if err := json.Unmarshal([]byte(actionsJSON), &wf.Actions); err != nil {
		return nil, fmt.Errorf("unmarshal actions: %w", err)
	}
	if lastExecuted.Valid {
		wf.LastExecutedAt = &lastExecuted.Time
	}
	return wf, nil
}

// --- Workflow executions ---

func (s *LibSQLStore) GetRecentExecution(ctx context.Context, tenantID, idempotencyKey string, since time.Time) (*WorkflowExecution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, workflow_id, idempotency_key, trigger_data, executed_actions, status, error_message, executed_at
		 FROM workflow_executions
		 WHERE tenant_id = ? AND idempotency_key = ? AND executed_at >= ?
		 ORDER BY executed_at DESC LIMIT 1`,
		tenantID, idempotencyKey, since,
	)
	exec, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return exec, err
}

func (s *LibSQLStore) RecordExecution(ctx context.Context, exec *WorkflowExecution) error {
	triggerData, err := nullableMap(exec.TriggerData)
	if err != nil {
		return fmt.Errorf("marshal trigger_data: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO workflow_executions (id, tenant_id, workflow_id, idempotency_key, trigger_data, executed_actions, status, error_message, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.ID, exec.TenantID, exec.WorkflowID, exec.IdempotencyKey,
		triggerData, nullRaw(exec.ExecutedActions), string(exec.Status),
		nullStr(exec.ErrorMessage), timeOrNow(exec.ExecutedAt),
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE workflows SET execution_count = execution_count + 1, last_executed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE tenant_id = ? AND id = ?`,
		exec.TenantID, exec.WorkflowID,
	)
	if err != nil {
		return fmt.Errorf("bump workflow counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit execution: %w", err)
	}
	return nil
}

func (s *LibSQLStore) ListExecutions(ctx context.Context, tenantID, workflowID string, limit int) ([]*WorkflowExecution, error) {
	query := `SELECT id, tenant_id, workflow_id, idempotency_key, trigger_data, executed_actions, status, error_message, executed_at
	 FROM workflow_executions WHERE tenant_id = ? AND workflow_id = ? ORDER BY executed_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query, tenantID, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var execs []*WorkflowExecution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, e)
	}
	return execs, rows.Err()
}

func scanExecution(row interface{ Scan(...any) error }) (*WorkflowExecution, error) {
	e := &WorkflowExecution{}
	var (
		status                        string
		triggerJSON, actionsJSON, msg sql.NullString
	)
	err := row.Scan(&e.ID, &e.TenantID, &e.WorkflowID, &e.IdempotencyKey,
		&triggerJSON, &actionsJSON, &status, &msg, &e.ExecutedAt)
	if err != nil {
		return nil, err
	}
	e.Status = schema.ExecutionStatus(status)
	e.ErrorMessage = msg.String
	if triggerJSON.Valid && triggerJSON.String != "" {
		if err := json.Unmarshal([]byte(triggerJSON.String), &e.TriggerData); err != nil {
			return nil, fmt.Errorf("unmarshal trigger_data: %w", err)
		}
	}
	e.ExecutedActions = rawOrNil(actionsJSON)
	return e, nil
}

// --- Plans ---

func (s *LibSQLStore) CreatePlan(ctx context.Context, plan *Plan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO plans (id, tenant_id, status, created_by, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.TenantID, string(plan.Status), nullStr(plan.CreatedBy),
		timeOrNow(plan.CreatedAt), timeOrNow(plan.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}

	for _, step := range plan.Steps {
		params, err := marshalMapOrDefault(step.ActionParams)
		if err != nil {
			return fmt.Errorf("marshal step %d params: %w", step.StepOrder, err)
		}
		deps, err := json.Marshal(step.Dependencies)
		if err != nil {
			return fmt.Errorf("marshal step %d dependencies: %w", step.StepOrder, err)
		}
		status := step.Status
		if status == "" {
			status = schema.StepStatusPending
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO plan_steps (plan_id, tenant_id, step_order, action_type, target_type, target_id, action_params, dependencies, status, result, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			plan.ID, plan.TenantID, step.StepOrder, string(step.ActionType),
			nullStr(step.TargetType), nullStr(step.TargetID),
			string(params), string(deps), string(status),
			nullRaw(step.Result), nullStr(step.Error),
		)
		if err != nil {
			return fmt.Errorf("insert step %d: %w", step.StepOrder, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit plan: %w", err)
	}
	return nil
}

func (s *LibSQLStore) GetPlan(ctx context.Context, tenantID, id string) (*Plan, error) {
	p := &Plan{}
	var status string
	var createdBy sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, status, created_by, created_at, updated_at FROM plans WHERE tenant_id = ? AND id = ?`,
		tenantID, id,
	).Scan(&p.ID, &p.TenantID, &status, &createdBy, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("plan", id)
	}
	if err != nil {
		return nil, err
	}
	p.Status = schema.PlanStatus(status)
	p.CreatedBy = createdBy.String

	rows, err := s.db.QueryContext(ctx,
		`SELECT plan_id, step_order, action_type, target_type, target_id, action_params, dependencies, status, result, error
		 FROM plan_steps WHERE tenant_id = ? AND plan_id = ? ORDER BY step_order ASC`,
		tenantID, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		step := &PlanStep{}
		var (
			actionType, stepStatus           string
			targetType, targetID, stepErr    sql.NullString
			paramsJSON, depsJSON, resultJSON sql.NullString
		)
		if err := rows.Scan(&step.PlanID, &step.StepOrder, &actionType, &targetType, &targetID,
			&paramsJSON, &depsJSON, &stepStatus, &resultJSON, &stepErr); err != nil {
			return nil, err
		}
		step.ActionType = schema.ActionType(actionType)
		step.TargetType = targetType.String
		step.TargetID = targetID.String
		step.Status = schema.PlanStepStatus(stepStatus)
		step.Error = stepErr.String
		step.Result = rawOrNil(resultJSON)
		if paramsJSON.Valid && paramsJSON.String != "" {
			if err := json.Unmarshal([]byte(paramsJSON.String), &step.ActionParams); err != nil {
				return nil, fmt.Errorf("unmarshal step %d params: %w", step.StepOrder, err)
			}
		}
		if depsJSON.Valid && depsJSON.String != "" {
			if err := json.Unmarshal([]byte(depsJSON.String), &step.Dependencies); err != nil {
				return nil, fmt.Errorf("unmarshal step %d dependencies: %w", step.StepOrder, err)
			}
		}
		p.Steps = append(p.Steps, step)
	}
	return p, rows.Err()
}

func (s *LibSQLStore) UpdatePlanStatus(ctx context.Context, tenantID, id string, status schema.PlanStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE plans SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE tenant_id = ? AND id = ?`,
		string(status), tenantID, id,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "plan", id)
}

func (s *LibSQLStore) UpdatePlanStep(ctx context.Context, tenantID, planID string, step *PlanStep) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE plan_steps SET status = ?, result = ?, error = ? WHERE tenant_id = ? AND plan_id = ? AND step_order = ?`,
		string(step.Status), nullRaw(step.Result), nullStr(step.Error),
		tenantID, planID, step.StepOrder,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "plan_step", fmt.Sprintf("%s/%d", planID, step.StepOrder))
}

// --- Action templates ---

func (s *LibSQLStore) CreateTemplate(ctx context.Context, tpl *ActionTemplate) error {
	actions, err := json.Marshal(tpl.Actions)
	if err != nil {
		return fmt.Errorf("marshal template actions: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO action_templates (id, tenant_id, name, description, actions, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		tpl.ID, tpl.TenantID, tpl.Name, nullStr(tpl.Description), string(actions), timeOrNow(tpl.CreatedAt),
	)
	return err
}

func (s *LibSQLStore) GetTemplate(ctx context.Context, tenantID, id string) (*ActionTemplate, error) {
	t := &ActionTemplate{}
	var desc sql.NullString
	var actionsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, description, actions, created_at FROM action_templates WHERE tenant_id = ? AND id = ?`,
		tenantID, id,
	).Scan(&t.ID, &t.TenantID, &t.Name, &desc, &actionsJSON, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("template", id)
	}
	if err != nil {
		return nil, err
	}
	t.Description = desc.String
	if err := json.Unmarshal([]byte(actionsJSON), &t.Actions); err != nil {
		return nil, fmt.Errorf("unmarshal template actions: %w", err)
	}
	return t, nil
}

// --- Helpers ---

func storeNotFound(resource, id string) *schema.EngineError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullRaw(r json.RawMessage) any {
	if len(r) == 0 {
		return nil
	}
	return string(r)
}

func rawOrNil(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableMap(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func marshalMapOrDefault(m map[string]any) (json.RawMessage, error) {
	if len(m) == 0 {
		return json.RawMessage("{}"), nil
	}
	return json.Marshal(m)
}

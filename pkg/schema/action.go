package schema

// ActionType enumerates the kinds of changes an Action can apply.
type ActionType string

const (
	ActionTypeCreate   ActionType = "create"
	ActionTypeUpdate   ActionType = "update"
	ActionTypeDelete   ActionType = "delete"
	ActionTypeLink     ActionType = "link"
	ActionTypeNotify   ActionType = "notify"
	ActionTypeSchedule ActionType = "schedule"
)

// KnownActionTypes is the set of recognized action types.
var KnownActionTypes = map[ActionType]bool{
	ActionTypeCreate:   true,
	ActionTypeUpdate:   true,
	ActionTypeDelete:   true,
	ActionTypeLink:     true,
	ActionTypeNotify:   true,
	ActionTypeSchedule: true,
}

// ActionStatus is the lifecycle state of an Action.
type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "pending"
	ActionStatusApproved  ActionStatus = "approved"
	ActionStatusRejected  ActionStatus = "rejected"
	ActionStatusExecuting ActionStatus = "executing"
	ActionStatusExecuted  ActionStatus = "executed"
	ActionStatusFailed    ActionStatus = "failed"
)

// IsTerminal reports whether s admits no further transitions.
func (s ActionStatus) IsTerminal() bool {
	return s == ActionStatusRejected || s == ActionStatusExecuted || s == ActionStatusFailed
}

// ActionSpec is the caller-facing definition of a new Action. It is also the
// shape of workflow and template action entries, where Parameters may contain
// {{placeholder}} tokens resolved at execution time.
type ActionSpec struct {
	ActionType       ActionType     `json:"action_type"`
	TargetType       string         `json:"target_type,omitempty"`
	TargetID         string         `json:"target_id,omitempty"`
	Parameters       map[string]any `json:"parameters,omitempty"`
	RequiresApproval bool           `json:"requires_approval,omitempty"`
}

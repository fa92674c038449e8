package engine

import "github.com/mementohq/conduct/pkg/schema"

// ValidActionTransitions defines the allowed status transitions for actions.
// Actions that do not require approval are created directly in approved, so
// the pending row only exists for gated actions.
var ValidActionTransitions = map[schema.ActionStatus][]schema.ActionStatus{
	schema.ActionStatusPending:   {schema.ActionStatusApproved, schema.ActionStatusRejected},
	schema.ActionStatusApproved:  {schema.ActionStatusExecuting},
	schema.ActionStatusExecuting: {schema.ActionStatusExecuted, schema.ActionStatusFailed},
	schema.ActionStatusRejected:  {},
	schema.ActionStatusExecuted:  {},
	schema.ActionStatusFailed:    {},
}

// CanTransition reports whether from -> to is a legal action transition.
func CanTransition(from, to schema.ActionStatus) bool {
	allowed, ok := ValidActionTransitions[from]
	if !ok {
		return false
	}
	for _, a := range allowed {
		if a == to {
			return true
		}
	}
	return false
}

// checkTransition returns an INVALID_TRANSITION error when from -> to is not
// legal. The store's conditional update remains the authoritative guard
// against concurrent transitions; this check only produces a clearer error
// for transitions that could never succeed.
func checkTransition(actionID string, from, to schema.ActionStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return schema.NewErrorf(schema.ErrCodeInvalidTransition,
		"invalid action transition: %s -> %s", from, to).
		WithDetails(map[string]any{"action_id": actionID, "from": string(from), "to": string(to)})
}

package schema

// TriggerType enumerates how a workflow is fired.
type TriggerType string

const (
	TriggerItemCreated TriggerType = "item_created"
	TriggerItemUpdated TriggerType = "item_updated"
	TriggerItemDeleted TriggerType = "item_deleted"
	TriggerScheduled   TriggerType = "scheduled"
	TriggerManual      TriggerType = "manual"
)

// ConditionOperator enumerates the comparison operators available in trigger
// conditions. The grammar is fixed; there is no disjunction support.
type ConditionOperator string

const (
	OpEquals         ConditionOperator = "equals"
	OpNotEquals      ConditionOperator = "not_equals"
	OpContains       ConditionOperator = "contains"
	OpNotContains    ConditionOperator = "not_contains"
	OpGreaterThan    ConditionOperator = "greater_than"
	OpLessThan       ConditionOperator = "less_than"
	OpGreaterOrEqual ConditionOperator = "greater_or_equal"
	OpLessOrEqual    ConditionOperator = "less_or_equal"
	OpIsEmpty        ConditionOperator = "is_empty"
	OpIsNotEmpty     ConditionOperator = "is_not_empty"
)

// Condition is one predicate in a trigger. Field is a dot-delimited path into
// the event's item payload.
type Condition struct {
	Field    string            `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    any               `json:"value,omitempty"`
}

// Trigger pairs an event type with the predicates that gate workflow firing.
// All conditions must hold (conjunction). Expression is an optional expr-lang
// boolean evaluated against the item payload; Schedule is a cron expression,
// only meaningful for TriggerScheduled.
type Trigger struct {
	Type       TriggerType `json:"type"`
	ItemType   string      `json:"item_type,omitempty"`
	Schedule   string      `json:"schedule,omitempty"`
	Expression string      `json:"expression,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`
}

// Event is a domain event entering the engine, e.g. a user edit or a
// scheduler tick. Item is the payload of the affected record.
type Event struct {
	Type     TriggerType    `json:"type"`
	ItemType string         `json:"item_type,omitempty"`
	Item     map[string]any `json:"item,omitempty"`
}

// ExecutionStatus is the recorded outcome of a workflow execution.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
)

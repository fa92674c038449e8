package schema

// PlanStatus is the lifecycle state of a Plan.
type PlanStatus string

const (
	PlanStatusPending   PlanStatus = "pending"
	PlanStatusExecuting PlanStatus = "executing"
	PlanStatusCompleted PlanStatus = "completed"
	PlanStatusFailed    PlanStatus = "failed"
)

// PlanStepStatus is the lifecycle state of one step within a Plan.
type PlanStepStatus string

const (
	StepStatusPending   PlanStepStatus = "pending"
	StepStatusExecuting PlanStepStatus = "executing"
	StepStatusCompleted PlanStepStatus = "completed"
	StepStatusFailed    PlanStepStatus = "failed"
)

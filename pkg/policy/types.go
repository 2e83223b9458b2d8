package policy

import (
	"time"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for warnings that should be reviewed but do not
	// block the operation.
	SeverityWarning Severity = "warning"

	// SeverityError is for violations that block the operation.
	SeverityError Severity = "error"
)

// Policy represents a policy rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`
}

// Plan describes the operation the reconciler is about to perform. It is
// the policy input, built before the first provider mutation.
type Plan struct {
	// Operation is "create" or "delete".
	Operation string `json:"operation"`

	// CreateCount is the number of machines that would be created.
	CreateCount int `json:"create_count,omitempty"`

	// TargetCount is the exact-count target, when set.
	TargetCount int `json:"target_count,omitempty"`

	// Tags are the tags applied to created machines or selecting
	// machines for deletion.
	Tags map[string]string `json:"tags,omitempty"`

	// CountTag is the exact-count selector tag set.
	CountTag map[string]string `json:"count_tag,omitempty"`

	// MachineID is the single machine selected for deletion, if any.
	MachineID string `json:"machine_id,omitempty"`
}

// Input is the document handed to Rego evaluation.
type Input struct {
	// Plan is the planned operation.
	Plan *Plan `json:"plan"`

	// Timestamp is when the evaluation occurs.
	Timestamp time.Time `json:"timestamp"`
}

// Violation represents a single policy violation.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`
}

// Result represents the result of policy evaluation.
type Result struct {
	// Allowed indicates if the operation may proceed.
	Allowed bool `json:"allowed"`

	// Violations lists blocking violations.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists non-blocking violations.
	Warnings []Violation `json:"warnings,omitempty"`

	// EvaluatedAt is when the policies were evaluated.
	EvaluatedAt time.Time `json:"evaluated_at"`
}

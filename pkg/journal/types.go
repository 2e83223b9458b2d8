package journal

import (
	"time"
)

// RunStatus represents the status of a provisioning run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents a single provisioning run: one invocation of the
// reconciler against the provider.
type Run struct {
	// ID is the unique run identifier.
	ID string `json:"id"`

	// Operation is "create" or "delete".
	Operation string `json:"operation"`

	// Location is the provider datacenter the run targeted.
	Location string `json:"location"`

	// Status is the run status.
	Status RunStatus `json:"status"`

	// Changed reports whether the run mutated provider state.
	Changed bool `json:"changed"`

	// MachineCount is the number of machines in the run result.
	MachineCount int `json:"machine_count"`

	// Error holds the failure message for failed runs.
	Error *string `json:"error,omitempty"`

	// Result is the JSON result payload for completed runs.
	Result *string `json:"result,omitempty"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the run finished, nil while pending.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

package machine

import (
	"context"
	"encoding/json"
	"time"
)

// Status represents the lifecycle status of a machine as reported by the
// cloud provider. Transitions are owned entirely by the provider; this
// package only observes them by polling.
type Status string

const (
	// StatusProvisioning means the machine is being created.
	StatusProvisioning Status = "provisioning"

	// StatusRunning means the machine is up.
	StatusRunning Status = "running"

	// StatusStopping means a stop has been requested but not completed.
	StatusStopping Status = "stopping"

	// StatusStopped means the machine is halted but still allocated.
	StatusStopped Status = "stopped"

	// StatusDeleted means the machine has been destroyed.
	StatusDeleted Status = "deleted"

	// StatusFailed means provisioning failed.
	StatusFailed Status = "failed"
)

// Machine is a provisioned machine on the cloud provider.
type Machine struct {
	// ID is the provider-assigned machine identifier (opaque).
	ID string `json:"id"`

	// Name is the friendly machine name.
	Name string `json:"name,omitempty"`

	// Status is the machine status as of the last observation.
	Status Status `json:"state"`

	// Tags are the key/value labels attached to the machine.
	Tags map[string]string `json:"tags,omitempty"`
}

// ListFilter selects machines when listing.
type ListFilter struct {
	// Tags matches machines carrying all of these tags.
	Tags map[string]string

	// Status restricts the listing to machines in this status.
	// Empty means any status.
	Status Status
}

// CreateOptions are the provider-specific fields required to create a
// machine.
type CreateOptions struct {
	// Name is the friendly name for the machine. Empty lets the provider
	// pick a random one.
	Name string `json:"name,omitempty"`

	// Image is the image UUID to provision from.
	Image string `json:"image"`

	// Package is the package (plan) UUID.
	Package string `json:"package,omitempty"`

	// Networks are the network UUIDs to attach.
	Networks []string `json:"networks,omitempty"`

	// Tags are applied to the created machine.
	Tags map[string]string `json:"tags,omitempty"`
}

// CloudAPI is the compute-provider client the reconciler drives. The
// production implementation lives in pkg/cloudapi; tests supply fakes.
type CloudAPI interface {
	// ListMachines returns the machines matching the filter.
	ListMachines(ctx context.Context, filter ListFilter) ([]*Machine, error)

	// GetMachine returns a single machine by ID.
	GetMachine(ctx context.Context, id string) (*Machine, error)

	// CreateMachine provisions a new machine.
	CreateMachine(ctx context.Context, opts CreateOptions) (*Machine, error)

	// StopMachine requests a stop of the machine.
	StopMachine(ctx context.Context, id string) error

	// DeleteMachine destroys the machine.
	DeleteMachine(ctx context.Context, id string) error

	// RawMachine returns the full provider record for the machine,
	// unmodified.
	RawMachine(ctx context.Context, id string) (json.RawMessage, error)
}

// EnsureRequest describes a desired machine count.
//
// CountTag and ExactCount together select exact-count reconciliation:
// machines carrying CountTag and running are counted toward ExactCount and
// only the shortfall is created. Otherwise Count machines are created
// unconditionally.
type EnsureRequest struct {
	// Tags is the base tag set applied to created machines.
	Tags map[string]string

	// CountTag is the selector tag set for exact-count reconciliation.
	// Required whenever ExactCount is set.
	CountTag map[string]string

	// ExactCount is the target total of running machines matching
	// CountTag. Nil disables exact-count reconciliation.
	ExactCount *int

	// Count is the absolute number of machines to create when
	// exact-count reconciliation is not in effect.
	Count int

	// Create supplies the provider fields for new machines. Create.Tags
	// is ignored; the merged Tags/CountTag union is used instead.
	Create CreateOptions

	// Wait blocks until all created machines report "running".
	Wait bool

	// WaitTimeout bounds the convergence poll.
	WaitTimeout time.Duration
}

// DeleteRequest selects machines for deletion. Tags takes precedence over
// MachineID; with neither set the request selects nothing.
type DeleteRequest struct {
	// Tags selects all machines carrying these tags, in any status.
	Tags map[string]string

	// MachineID selects a single machine by ID.
	MachineID string

	// WaitTimeout bounds the poll for the "stopped" status between the
	// stop and delete calls.
	WaitTimeout time.Duration
}

// Result is the terminal payload of a provider invocation.
type Result struct {
	// Changed reports whether any machine was created or deleted.
	Changed bool `json:"changed"`

	// Machines are the full provider records of all matched and created
	// machines.
	Machines []json.RawMessage `json:"machines"`
}

// MergeTags returns the union of base and overlay without mutating either.
// Overlay keys win on conflict, so selector tags merged over base tags
// always survive into created machines and remain discoverable by a later
// exact-count listing.
func MergeTags(base, overlay map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}

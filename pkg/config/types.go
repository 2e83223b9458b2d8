package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// State selects the desired end state of the matching machines.
type State string

const (
	// StatePresent creates machines.
	StatePresent State = "present"

	// StateAbsent stops and deletes machines.
	StateAbsent State = "absent"
)

// Defaults for optional configuration values.
const (
	// DefaultSecretKeyPath is the private key used for CloudAPI request
	// signing when secret_key_path is not set.
	DefaultSecretKeyPath = "~/.ssh/id_rsa"

	// DefaultCount is the number of machines created when neither count
	// nor exact_count is set.
	DefaultCount = 1

	// DefaultWaitTimeout bounds the convergence poll, in seconds.
	DefaultWaitTimeout = 600
)

// Config carries every recognized option of the machine provider. Pointer
// fields distinguish "not set" from an explicit zero so that mutually
// exclusive options can be detected.
type Config struct {
	// MachineID selects a single machine. Used only for deletion.
	MachineID string `json:"machine_id,omitempty" yaml:"machine_id"`

	// Name is the friendly name for created machines. Empty lets the
	// provider generate one.
	Name string `json:"name,omitempty" yaml:"name"`

	// Location is the hostname or FQDN of the datacenter endpoint.
	Location string `json:"location" yaml:"location" validate:"required"`

	// Account is the provider account name.
	Account string `json:"account" yaml:"account" validate:"required"`

	// KeyID is the fingerprint of an SSH public key registered with the
	// account; CloudAPI requests are signed with the matching private
	// key.
	KeyID string `json:"key_id" yaml:"key_id" validate:"required"`

	// SecretKeyPath is the path to the private key corresponding to
	// KeyID.
	SecretKeyPath string `json:"secret_key_path,omitempty" yaml:"secret_key_path"`

	// Image is the image UUID to provision from. Required for
	// state=present.
	Image string `json:"image,omitempty" yaml:"image"`

	// Package is the package (plan) UUID for provisioning.
	Package string `json:"package,omitempty" yaml:"package"`

	// Networks lists desired network UUIDs.
	Networks []string `json:"networks,omitempty" yaml:"networks"`

	// Count is the absolute number of machines to create. Mutually
	// exclusive with ExactCount.
	Count *int `json:"count,omitempty" yaml:"count" validate:"omitempty,min=0"`

	// ExactCount is the target total of running machines matching
	// CountTag. Requires CountTag.
	ExactCount *int `json:"exact_count,omitempty" yaml:"exact_count" validate:"omitempty,min=0"`

	// CountTag is the selector tag set for exact-count reconciliation.
	// These tags are always added to created machines.
	CountTag map[string]string `json:"count_tag,omitempty" yaml:"count_tag"`

	// Tags are assigned to created machines and select machines for
	// deletion.
	Tags map[string]string `json:"tags,omitempty" yaml:"tags"`

	// Wait blocks until created machines report "running".
	Wait *bool `json:"wait,omitempty" yaml:"wait"`

	// WaitTimeout is how long the convergence poll may run, in seconds.
	WaitTimeout int `json:"wait_timeout,omitempty" yaml:"wait_timeout" validate:"omitempty,min=1"`

	// State is the desired end state.
	State State `json:"state,omitempty" yaml:"state" validate:"omitempty,oneof=present absent"`
}

var validate = validator.New()

// ApplyDefaults fills unset optional fields with their documented
// defaults.
func (c *Config) ApplyDefaults() {
	if c.SecretKeyPath == "" {
		c.SecretKeyPath = DefaultSecretKeyPath
	}
	if c.WaitTimeout == 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	if c.State == "" {
		c.State = StatePresent
	}
}

// Validate checks struct tags and the cross-field rules the tags cannot
// express.
func (c *Config) Validate() error {
	if c.Account == "" {
		return fmt.Errorf("no account provided")
	}
	if c.KeyID == "" {
		return fmt.Errorf("no key_id provided")
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if c.Count != nil && c.ExactCount != nil {
		return fmt.Errorf("count and exact_count are mutually exclusive; set one or the other")
	}
	if c.ExactCount != nil && len(c.CountTag) == 0 {
		return fmt.Errorf("count_tag is required when exact_count is set")
	}

	return nil
}

// CreateCount returns the absolute creation count, defaulting to
// DefaultCount when count is unset.
func (c *Config) CreateCount() int {
	if c.Count != nil {
		return *c.Count
	}
	return DefaultCount
}

// WaitEnabled reports whether the convergence wait is enabled; the
// default is true.
func (c *Config) WaitEnabled() bool {
	if c.Wait != nil {
		return *c.Wait
	}
	return true
}

// WaitTimeoutDuration returns wait_timeout as a duration.
func (c *Config) WaitTimeoutDuration() time.Duration {
	return time.Duration(c.WaitTimeout) * time.Second
}

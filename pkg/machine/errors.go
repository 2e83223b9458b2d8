package machine

import (
	"errors"
	"fmt"
	"time"
)

// ConfigError reports an invalid or incomplete configuration. It is always
// a caller mistake, never a provider failure, and is never retried.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// configErrorf builds a ConfigError from a format string.
func configErrorf(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// TimeoutError reports that a convergence poll did not observe all tracked
// machines at the target status before the deadline. Machines that did
// reach the target remain allocated on the provider; there is no rollback.
type TimeoutError struct {
	// Target is the status the poll was waiting for.
	Target Status

	// Timeout is the deadline that elapsed.
	Timeout time.Duration

	// Machines is the number of machines being tracked.
	Machines int
}

func (e *TimeoutError) Error() string {
	if e.Target == StatusStopped {
		return fmt.Sprintf("timed out stopping %d machine(s) after %s", e.Machines, e.Timeout)
	}
	return fmt.Sprintf("timed out creating %d machine(s) after %s", e.Machines, e.Timeout)
}

// IsTimeoutError reports whether err is (or wraps) a TimeoutError.
func IsTimeoutError(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

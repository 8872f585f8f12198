package settings

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError indicates that no settings file could be found.
type NotFoundError struct {
	Checked []string // Paths that were searched
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return "uplink is unable to find a settings file. The following " +
		"(XDG compliant) paths have been searched: " + strings.Join(e.Checked, ", ")
}

// NewNotFoundError creates a new NotFoundError for the given search paths
func NewNotFoundError(checked ...string) *NotFoundError {
	return &NotFoundError{Checked: checked}
}

// IsNotFoundError returns true if the error indicates a missing settings file
func IsNotFoundError(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// ValidationError indicates that a settings file has validation problems.
// It carries one message per failed check.
type ValidationError struct {
	Messages []string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return "settings file is not valid:\n\n" + strings.Join(e.Messages, "\n")
}

// NewValidationError creates a new ValidationError from the given messages
func NewValidationError(messages []string) *ValidationError {
	return &ValidationError{Messages: messages}
}

// IsValidationError returns true if the error indicates invalid settings
func IsValidationError(err error) bool {
	var invalid *ValidationError
	return errors.As(err, &invalid)
}

// NoKnownBrokerError indicates that the AMQP broker for a system cannot be
// determined. An "AMQP broker" is a tool such as RabbitMQ or Apache Qpid.
type NoKnownBrokerError struct {
	Hostname string
	Service  string // The unrecognized service name, if one was configured
}

// Error implements the error interface
func (e *NoKnownBrokerError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("system %s names unknown AMQP broker service %q", e.Hostname, e.Service)
	}
	return fmt.Sprintf("cannot determine the AMQP broker used by system %s", e.Hostname)
}

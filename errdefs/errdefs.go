// Package errdefs defines the error types shared by the feature extraction
// pipeline packages.  Callers match them with errors.As.
package errdefs

import (
	"fmt"
)

// ConfigError is returned when a pipeline parameter is outside its valid
// range.  It is raised before any pixel work is done and is never recovered.
type ConfigError struct {
	// Field is the name of the offending parameter
	Field string
	// Reason describes the constraint that was violated
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// NewConfigError returns a ConfigError for the given field
func NewConfigError(field, format string, args ...any) error {
	return &ConfigError{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

// AcquisitionError is returned when the source image is missing, can not be
// downloaded or can not be decoded
type AcquisitionError struct {
	// Source is the URL or file path of the image
	Source string
	// Err is the underlying cause
	Err error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquiring %s: %v", e.Source, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// InvariantViolation signals a bug in an earlier pipeline stage, such as a
// region bounding box that escapes the source image.  It must not be hidden
// by clamping.
type InvariantViolation struct {
	What string
}

func (e *InvariantViolation) Error() string {
	return "invariant violation: " + e.What
}

// NewInvariantViolation returns an InvariantViolation with a formatted message
func NewInvariantViolation(format string, args ...any) error {
	return &InvariantViolation{What: fmt.Sprintf(format, args...)}
}

package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error taxonomy. None of these are fatal to the process; every failure
// leaves the screen interactive.
var (
	// ErrDeviceEnumeration means the platform denied camera access or has
	// no media capability. Scanning is disabled, manual entry stays up.
	ErrDeviceEnumeration = errors.New("camera enumeration failed")

	// ErrDecodeSession means the camera could not be acquired (busy or
	// denied). The session stays idle so the operator can retry.
	ErrDecodeSession = errors.New("decode session failed")

	// ErrLookupFailure covers network errors and 404 on barcode lookup.
	// Both are handled as "new product", never surfaced as errors.
	ErrLookupFailure = errors.New("product lookup failed")

	// ErrMutationFailure means a remote create/delete was rejected. The
	// draft and list are left unchanged so the operator can retry.
	ErrMutationFailure = errors.New("catalog mutation failed")

	// ErrMutationInFlight rejects a second mutation while one is pending.
	ErrMutationInFlight = errors.New("a catalog mutation is already in flight")

	// ErrUnknownDevice rejects selecting a camera id outside the snapshot.
	ErrUnknownDevice = errors.New("unknown camera device")
)

// ValidationError blocks a submission; Field and Reason feed the inline
// message next to the offending input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// NewValidationError builds a field-level validation failure.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a field validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

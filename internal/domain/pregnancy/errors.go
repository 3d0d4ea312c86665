package pregnancy

import "errors"

var (
	// ErrNotFound is returned when a patient, visit, alert or archived
	// delivery does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when a pregnancy cycle operation is
	// not allowed from the patient's current state.
	ErrInvalidTransition = errors.New("invalid pregnancy cycle transition")
	// ErrValidation wraps input validation failures.
	ErrValidation = errors.New("validation failed")
)

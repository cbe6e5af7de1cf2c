package scheduling

import (
	"errors"
	"fmt"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrClinicNotFound      = errors.New("clinic not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrTemplateNotFound    = errors.New("availability template not found")
	ErrExceptionNotFound   = errors.New("schedule exception not found")

	// ErrSlotUnavailable covers both the fail-fast read check and a unique
	// index violation at commit time. Callers must re-query and pick another
	// slot; the engine never retries.
	ErrSlotUnavailable = errors.New("slot is not available")

	// ErrSlotBeingBooked means the advisory lock for the slot is held by a
	// concurrent request.
	ErrSlotBeingBooked = errors.New("slot is currently being booked, please retry")

	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnauthorized      = errors.New("actor may not perform this transition")
	ErrValidation        = errors.New("validation failed")
)

// InvalidTransitionError identifies the current and requested status.
// errors.Is(err, ErrInvalidTransition) matches it.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// ValidationError carries the offending field. errors.Is(err, ErrValidation)
// matches it.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalidf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

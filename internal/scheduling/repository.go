package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the engine.
//
// Status-changing methods are compare-and-swap: they only apply when the row
// still holds the expected status and return ErrAppointmentNotFound when the
// swap misses. Methods that (re)occupy a slot must map a unique violation on
// the live-slot index to ErrSlotUnavailable.
type Repository interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetClinicByID(ctx context.Context, id uuid.UUID) (*Clinic, error)

	CreateTemplate(ctx context.Context, t *AvailabilityTemplate) error
	DeactivateTemplate(ctx context.Context, id, doctorID uuid.UUID) error
	ListActiveTemplates(ctx context.Context, doctorID uuid.UUID) ([]AvailabilityTemplate, error)

	CreateException(ctx context.Context, e *ScheduleException) error
	DeleteException(ctx context.Context, id, doctorID uuid.UUID) error
	ListExceptions(ctx context.Context, doctorID uuid.UUID) ([]ScheduleException, error)

	CreateAppointment(ctx context.Context, a *Appointment) error
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListLiveAppointmentsForDay(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error)

	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status, statusReason *string) (*Appointment, error)
	RescheduleAppointment(ctx context.Context, id uuid.UUID, from, to Status, newDate time.Time, newStart, newEnd MinuteOfDay, statusReason *string) (*Appointment, error)
	MarkPaymentDone(ctx context.Context, id uuid.UUID, from Status, paymentID *uuid.UUID) (*Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}

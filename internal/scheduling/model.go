package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the canonical appointment status set. The legacy "booked" value
// is folded into approved; ParseStatus still accepts it on input.
type Status string

const (
	StatusPending     Status = "pending"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusPaymentDone Status = "payment_done"
)

// Terminal reports whether no further transitions leave this status.
// PaymentDone is deliberately not terminal: a paid visit can still be
// completed or called off.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Live reports whether the appointment still occupies its slot.
func (s Status) Live() bool {
	return s != StatusCancelled && s != StatusRejected
}

func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted, StatusCancelled, StatusPaymentDone:
		return Status(raw), nil
	}
	if raw == "booked" {
		return StatusApproved, nil
	}
	return "", fmt.Errorf("unknown appointment status %q", raw)
}

// Role identifies who is acting on an appointment. The pair (UserID, Role)
// arrives already verified by the upstream gateway.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

type Actor struct {
	UserID uuid.UUID
	Role   Role
}

func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RolePatient, RoleDoctor, RoleAdmin:
		return Role(raw), nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// MinuteOfDay is a clock time expressed as minutes since midnight. All slot
// arithmetic is done on this grid so appointments can never drift off it.
type MinuteOfDay int

const MinutesPerDay = 24 * 60

func (m MinuteOfDay) Valid() bool {
	return m >= 0 && m <= MinutesPerDay
}

func (m MinuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

func (m MinuteOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *MinuteOfDay) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("time of day must be a %q string", "HH:MM")
	}
	parsed, err := ParseMinuteOfDay(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func ParseMinuteOfDay(raw string) (MinuteOfDay, error) {
	var h, min int
	if _, err := fmt.Sscanf(raw, "%d:%d", &h, &min); err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", raw, err)
	}
	if h < 0 || h > 24 || min < 0 || min > 59 || (h == 24 && min != 0) {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	return MinuteOfDay(h*60 + min), nil
}

// NormalizeDate truncates t to a calendar date at UTC midnight. Every date
// stored or compared by the engine goes through this.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const DateLayout = "2006-01-02"

func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return NormalizeDate(t), nil
}

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Clinic struct {
	ID        uuid.UUID
	Name      string
	Address   *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AvailabilityTemplate is a recurring weekly block during which a doctor
// accepts bookings. ClinicID nil means the template applies at any clinic.
// Templates are soft-deleted by clearing Active.
type AvailabilityTemplate struct {
	ID          uuid.UUID   `json:"id"`
	DoctorID    uuid.UUID   `json:"doctor_id"`
	ClinicID    *uuid.UUID  `json:"clinic_id,omitempty"`
	DayOfWeek   time.Weekday `json:"day_of_week"`
	StartMinute MinuteOfDay `json:"start_time"`
	EndMinute   MinuteOfDay `json:"end_time"`
	Active      bool        `json:"active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type ExceptionKind string

const (
	ExceptionDayOff          ExceptionKind = "day_off"
	ExceptionBlockedInterval ExceptionKind = "blocked_interval"
)

// ScheduleException removes availability a template would otherwise imply.
// A day off covers the whole date; a blocked interval covers a time range,
// optionally scoped to one clinic.
type ScheduleException struct {
	ID          uuid.UUID     `json:"id"`
	DoctorID    uuid.UUID     `json:"doctor_id"`
	Kind        ExceptionKind `json:"kind"`
	Date        time.Time     `json:"date"`
	StartMinute MinuteOfDay   `json:"start_time,omitempty"`
	EndMinute   MinuteOfDay   `json:"end_time,omitempty"`
	ClinicID    *uuid.UUID    `json:"clinic_id,omitempty"`
	Reason      *string       `json:"reason,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Covers reports whether the exception removes a slot starting at start on
// the given date, at the given clinic.
func (e ScheduleException) Covers(date time.Time, start MinuteOfDay, clinicID *uuid.UUID) bool {
	if !e.Date.Equal(NormalizeDate(date)) {
		return false
	}
	switch e.Kind {
	case ExceptionDayOff:
		return true
	case ExceptionBlockedInterval:
		if e.ClinicID != nil && clinicID != nil && *e.ClinicID != *clinicID {
			return false
		}
		return start >= e.StartMinute && start < e.EndMinute
	}
	return false
}

// Appointment rows are append-mostly: status transitions overwrite status,
// reschedules overwrite date and time, nothing is ever deleted.
type Appointment struct {
	ID           uuid.UUID
	PatientID    uuid.UUID
	DoctorID     uuid.UUID
	ClinicID     uuid.UUID
	Date         time.Time
	StartMinute  MinuteOfDay
	EndMinute    MinuteOfDay
	Status       Status
	Reason       string
	StatusReason *string
	PaymentID    *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TimeSlot is one bookable candidate produced by the resolver.
type TimeSlot struct {
	Start     MinuteOfDay `json:"start_time"`
	End       MinuteOfDay `json:"end_time"`
	ClinicID  *uuid.UUID  `json:"clinic_id,omitempty"`
	Available bool        `json:"available"`
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

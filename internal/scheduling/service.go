package scheduling

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/scheduling/internal/config"
	redisclient "github.com/clinicdesk/scheduling/internal/redis"
)

const (
	EventAppointmentBooked      = "APPOINTMENT_BOOKED"
	EventAppointmentApproved    = "APPOINTMENT_APPROVED"
	EventAppointmentRejected    = "APPOINTMENT_REJECTED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted   = "APPOINTMENT_COMPLETED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventPaymentConfirmed       = "PAYMENT_CONFIRMED"
)

// Notifier delivers a message to the external dispatcher. Fire-and-forget:
// the engine logs failures and never lets them fail an appointment mutation.
type Notifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, title, message string) error
}

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	cache    *AvailabilityCache // nil disables caching
	notifier Notifier           // nil disables notifications
	cfg      config.Config
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, cache *AvailabilityCache, notifier Notifier, cfg config.Config, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		cache:    cache,
		notifier: notifier,
		cfg:      cfg,
		log:      log.With().Str("component", "scheduling").Logger(),
		now:      time.Now,
	}
}

func (s *Service) slotLen() MinuteOfDay {
	return MinuteOfDay(s.cfg.SlotMinutes())
}

// GetAppointment retrieves an appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

// ListAppointmentsByPatient retrieves a page of a patient's appointments.
func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
}

// ListAppointmentsByDoctor retrieves a page of a doctor's appointments.
func (s *Service) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListAppointmentsByDoctor(ctx, doctorID, limit, offset)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// notify dispatches a single notification and swallows any failure. Delivery
// is decoupled from the transactional boundary on purpose.
func (s *Service) notify(ctx context.Context, recipientID uuid.UUID, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, recipientID, title, message); err != nil {
		s.log.Error().Err(err).
			Str("recipient_id", recipientID.String()).
			Str("title", title).
			Msg("notification dispatch failed")
	}
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("insert event log")
	}
}

func (s *Service) invalidateAvailability(ctx context.Context, doctorID uuid.UUID) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, doctorID)
}

// loadAvailability returns a doctor's active templates and exceptions, from
// cache when possible.
func (s *Service) loadAvailability(ctx context.Context, doctorID uuid.UUID) ([]AvailabilityTemplate, []ScheduleException, error) {
	if s.cache != nil {
		if templates, exceptions, ok := s.cache.Get(ctx, doctorID); ok {
			return templates, exceptions, nil
		}
	}

	templates, err := s.repo.ListActiveTemplates(ctx, doctorID)
	if err != nil {
		return nil, nil, err
	}
	exceptions, err := s.repo.ListExceptions(ctx, doctorID)
	if err != nil {
		return nil, nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, doctorID, templates, exceptions)
	}

	return templates, exceptions, nil
}

package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/clinicdesk/scheduling/internal/redis"
)

type BookingRequest struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	ClinicID  uuid.UUID
	Date      time.Time
	Start     MinuteOfDay
	Reason    string
}

// Book validates a booking request against the resolver and creates the
// appointment in pending status. The re-resolve inside the slot lock is the
// fail-fast check; the partial unique index on live appointments is what
// actually prevents a double booking under concurrency.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetDoctorByID(ctx, req.DoctorID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetClinicByID(ctx, req.ClinicID); err != nil {
		return nil, err
	}

	date := NormalizeDate(req.Date)
	if err := s.validateSlotRequest(date, req.Start); err != nil {
		return nil, err
	}

	var created *Appointment

	lockKey := slotLockKey(req.DoctorID, req.ClinicID, date, req.Start)
	err := s.locker.WithLock(ctx, lockKey, func(lockCtx context.Context) error {
		slots, err := s.resolve(lockCtx, req.DoctorID, date, &req.ClinicID, nil)
		if err != nil {
			return fmt.Errorf("resolve slots: %w", err)
		}
		if !slotOffered(slots, req.Start, req.ClinicID) {
			return ErrSlotUnavailable
		}

		appt := &Appointment{
			ID:          uuid.New(),
			PatientID:   req.PatientID,
			DoctorID:    req.DoctorID,
			ClinicID:    req.ClinicID,
			Date:        date,
			StartMinute: req.Start,
			EndMinute:   req.Start + s.slotLen(),
			Status:      StatusPending,
			Reason:      req.Reason,
		}

		if err := s.repo.CreateAppointment(lockCtx, appt); err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"patient_id": req.PatientID.String(),
			"doctor_id":  req.DoctorID.String(),
			"clinic_id":  req.ClinicID.String(),
			"date":       date.Format(DateLayout),
			"start_time": req.Start.String(),
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.notify(ctx, created.DoctorID, "New appointment request",
		fmt.Sprintf("A patient requested %s at %s.", created.Date.Format(DateLayout), created.StartMinute))
	s.notify(ctx, created.PatientID, "Booking received",
		fmt.Sprintf("Your booking for %s at %s is awaiting the doctor's approval.", created.Date.Format(DateLayout), created.StartMinute))

	return created, nil
}

// validateSlotRequest rejects malformed date/time input before any slot work.
func (s *Service) validateSlotRequest(date time.Time, start MinuteOfDay) error {
	if !start.Valid() || start >= MinutesPerDay {
		return invalidf("start_time", "must be between 00:00 and 23:59")
	}
	if start+s.slotLen() > MinutesPerDay {
		return invalidf("start_time", "slot would cross midnight")
	}
	today := NormalizeDate(s.now())
	if date.Before(today) {
		return invalidf("date", "must not be in the past")
	}
	return nil
}

func slotLockKey(doctorID, clinicID uuid.UUID, date time.Time, start MinuteOfDay) string {
	return fmt.Sprintf("lock:slot:%s:%s:%s:%d", doctorID, clinicID, date.Format(DateLayout), int(start))
}

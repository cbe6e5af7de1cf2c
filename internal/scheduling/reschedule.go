package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/clinicdesk/scheduling/internal/redis"
)

// PatientReschedule moves a pending or approved appointment to a new slot.
// The status always resets to pending: the doctor has to approve the new
// time. The appointment itself is excluded from the conflict check — it is
// moving, not duplicating.
func (s *Service) PatientReschedule(ctx context.Context, appointmentID uuid.UUID, newDate time.Time, newStart MinuteOfDay, reason string, actingPatientID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := requirePatient(appt, Actor{UserID: actingPatientID, Role: RolePatient}); err != nil {
		return nil, err
	}
	if appt.Status != StatusPending && appt.Status != StatusApproved {
		return nil, &InvalidTransitionError{From: appt.Status, To: StatusPending}
	}

	updated, err := s.moveAppointment(ctx, appt, StatusPending, newDate, newStart, reason)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("The appointment was moved to %s at %s and awaits approval.", updated.Date.Format(DateLayout), updated.StartMinute)
	if reason != "" {
		msg += " Reason: " + reason
	}
	s.notify(ctx, updated.DoctorID, "Appointment rescheduled", msg)
	s.notify(ctx, updated.PatientID, "Reschedule requested", msg)

	return updated, nil
}

// DoctorReschedule moves a pending appointment to a new slot chosen by the
// doctor. No re-approval round trip: the doctor is the approving party, so
// the appointment lands directly in approved.
func (s *Service) DoctorReschedule(ctx context.Context, appointmentID uuid.UUID, newDate time.Time, newStart MinuteOfDay, reason string, actingDoctorID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := requireDoctor(appt, Actor{UserID: actingDoctorID, Role: RoleDoctor}); err != nil {
		return nil, err
	}
	if appt.Status != StatusPending {
		return nil, &InvalidTransitionError{From: appt.Status, To: StatusApproved}
	}

	updated, err := s.moveAppointment(ctx, appt, StatusApproved, newDate, newStart, reason)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("The doctor moved your appointment to %s at %s.", updated.Date.Format(DateLayout), updated.StartMinute)
	if reason != "" {
		msg += " Reason: " + reason
	}
	s.notify(ctx, updated.PatientID, "Appointment rescheduled", msg)

	return updated, nil
}

// moveAppointment re-validates the target slot under the slot lock and
// commits the date/time overwrite together with the status change. The old
// slot is released by the same UPDATE that claims the new one.
func (s *Service) moveAppointment(ctx context.Context, appt *Appointment, toStatus Status, newDate time.Time, newStart MinuteOfDay, reason string) (*Appointment, error) {
	date := NormalizeDate(newDate)
	if err := s.validateSlotRequest(date, newStart); err != nil {
		return nil, err
	}

	var statusReason *string
	if reason != "" {
		statusReason = &reason
	}

	var updated *Appointment

	lockKey := slotLockKey(appt.DoctorID, appt.ClinicID, date, newStart)
	err := s.locker.WithLock(ctx, lockKey, func(lockCtx context.Context) error {
		exclude := appt.ID
		slots, err := s.resolve(lockCtx, appt.DoctorID, date, &appt.ClinicID, &exclude)
		if err != nil {
			return fmt.Errorf("resolve slots: %w", err)
		}
		if !slotOffered(slots, newStart, appt.ClinicID) {
			return ErrSlotUnavailable
		}

		moved, err := s.repo.RescheduleAppointment(lockCtx, appt.ID, appt.Status, toStatus, date, newStart, newStart+s.slotLen(), statusReason)
		if err != nil {
			return fmt.Errorf("reschedule appointment: %w", err)
		}

		updated = moved

		s.logEvent(lockCtx, moved.ID, EventAppointmentRescheduled, map[string]any{
			"from_date":  appt.Date.Format(DateLayout),
			"from_time":  appt.StartMinute.String(),
			"to_date":    date.Format(DateLayout),
			"to_time":    newStart.String(),
			"new_status": string(toStatus),
			"reason":     reason,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return updated, nil
}

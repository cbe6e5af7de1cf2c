package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Approve moves a pending appointment to approved. Only the appointment's
// doctor (or an admin) may approve.
func (s *Service) Approve(ctx context.Context, appointmentID uuid.UUID, actor Actor) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := requireDoctor(appt, actor); err != nil {
		return nil, err
	}
	if err := checkTransition(appt.Status, StatusApproved); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, StatusApproved, nil)
	if err != nil {
		return nil, fmt.Errorf("approve appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentApproved, map[string]any{
		"actor_id": actor.UserID.String(),
	})
	s.notify(ctx, updated.PatientID, "Appointment approved",
		fmt.Sprintf("Your appointment on %s at %s was approved.", updated.Date.Format(DateLayout), updated.StartMinute))

	return updated, nil
}

// Reject moves a pending appointment to rejected. When blockSlot is set the
// freed slot is also blocked so it is not offered again; that write happens
// after the rejection commits and its failure does not roll it back.
func (s *Service) Reject(ctx context.Context, appointmentID uuid.UUID, actor Actor, reason string, blockSlot bool) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := requireDoctor(appt, actor); err != nil {
		return nil, err
	}
	if err := checkTransition(appt.Status, StatusRejected); err != nil {
		return nil, err
	}

	var statusReason *string
	if reason != "" {
		statusReason = &reason
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, StatusRejected, statusReason)
	if err != nil {
		return nil, fmt.Errorf("reject appointment: %w", err)
	}

	if blockSlot {
		clinicID := updated.ClinicID
		exc := &ScheduleException{
			ID:          uuid.New(),
			DoctorID:    updated.DoctorID,
			Kind:        ExceptionBlockedInterval,
			Date:        updated.Date,
			StartMinute: updated.StartMinute,
			EndMinute:   updated.EndMinute,
			ClinicID:    &clinicID,
			Reason:      statusReason,
		}
		if err := s.repo.CreateException(ctx, exc); err != nil {
			s.log.Error().Err(err).
				Str("appointment_id", updated.ID.String()).
				Msg("block rejected slot")
		} else {
			s.invalidateAvailability(ctx, updated.DoctorID)
		}
	}

	s.logEvent(ctx, updated.ID, EventAppointmentRejected, map[string]any{
		"actor_id":   actor.UserID.String(),
		"reason":     reason,
		"block_slot": blockSlot,
	})

	msg := fmt.Sprintf("Your appointment on %s at %s was declined.", updated.Date.Format(DateLayout), updated.StartMinute)
	if reason != "" {
		msg += " Reason: " + reason
	}
	s.notify(ctx, updated.PatientID, "Appointment declined", msg)

	return updated, nil
}

// Cancel abandons any non-terminal appointment. Either party may cancel;
// a doctor must give a reason.
func (s *Service) Cancel(ctx context.Context, appointmentID uuid.UUID, actor Actor, reason string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := requireParty(appt, actor); err != nil {
		return nil, err
	}
	if actor.Role == RoleDoctor && reason == "" {
		return nil, invalidf("reason", "required for doctor-initiated cancellation")
	}
	if err := checkTransition(appt.Status, StatusCancelled); err != nil {
		return nil, err
	}

	var statusReason *string
	if reason != "" {
		statusReason = &reason
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, StatusCancelled, statusReason)
	if err != nil {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{
		"actor_id": actor.UserID.String(),
		"role":     string(actor.Role),
		"reason":   reason,
	})

	msg := fmt.Sprintf("The appointment on %s at %s was cancelled.", updated.Date.Format(DateLayout), updated.StartMinute)
	if reason != "" {
		msg += " Reason: " + reason
	}
	for _, recipient := range counterparties(updated, actor) {
		s.notify(ctx, recipient, "Appointment cancelled", msg)
	}

	return updated, nil
}

// Complete marks the visit done. Only the doctor may complete, and only on or
// after the appointment's date.
func (s *Service) Complete(ctx context.Context, appointmentID uuid.UUID, actor Actor) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := requireDoctor(appt, actor); err != nil {
		return nil, err
	}
	if err := checkTransition(appt.Status, StatusCompleted); err != nil {
		return nil, err
	}
	if NormalizeDate(s.now()).Before(appt.Date) {
		return nil, invalidf("date", "appointment can only be completed on or after %s", appt.Date.Format(DateLayout))
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, StatusCompleted, nil)
	if err != nil {
		return nil, fmt.Errorf("complete appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCompleted, map[string]any{
		"actor_id": actor.UserID.String(),
	})
	s.notify(ctx, updated.PatientID, "Appointment completed",
		fmt.Sprintf("Your visit on %s was marked as completed.", updated.Date.Format(DateLayout)))

	return updated, nil
}

// counterparties picks who gets notified about a transition: the other side
// of the appointment, or both sides when an admin acted.
func counterparties(appt *Appointment, actor Actor) []uuid.UUID {
	switch actor.Role {
	case RolePatient:
		return []uuid.UUID{appt.DoctorID}
	case RoleDoctor:
		return []uuid.UUID{appt.PatientID}
	default:
		return []uuid.UUID{appt.PatientID, appt.DoctorID}
	}
}

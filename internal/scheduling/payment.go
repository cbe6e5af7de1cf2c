package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// OnPaymentConfirmed is the narrow hook for the payment gateway callback.
// It moves an approved appointment to payment_done. A duplicate callback is
// an idempotent no-op: no error, no second notification.
func (s *Service) OnPaymentConfirmed(ctx context.Context, appointmentID uuid.UUID, paymentID *uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if appt.Status == StatusPaymentDone {
		return appt, nil
	}

	if err := checkTransition(appt.Status, StatusPaymentDone); err != nil {
		return nil, err
	}

	updated, err := s.repo.MarkPaymentDone(ctx, appt.ID, appt.Status, paymentID)
	if err != nil {
		// A concurrent duplicate callback can win the CAS; treat that the
		// same as arriving second.
		if errors.Is(err, ErrAppointmentNotFound) {
			current, getErr := s.repo.GetAppointmentByID(ctx, appointmentID)
			if getErr == nil && current.Status == StatusPaymentDone {
				return current, nil
			}
		}
		return nil, fmt.Errorf("mark payment done: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventPaymentConfirmed, map[string]any{
		"payment_id": paymentIDString(paymentID),
	})
	s.notify(ctx, updated.PatientID, "Payment confirmed",
		fmt.Sprintf("Payment for your appointment on %s at %s was received.", updated.Date.Format(DateLayout), updated.StartMinute))

	return updated, nil
}

func paymentIDString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/scheduling/internal/scheduling"
)

type BookAppointmentRequest struct {
	PatientID string `json:"patient_id,omitempty"` // admin booking on behalf of a patient
	DoctorID  string `json:"doctor_id"`
	ClinicID  string `json:"clinic_id"`
	Date      string `json:"date"`       // YYYY-MM-DD
	StartTime string `json:"start_time"` // HH:MM
	Reason    string `json:"reason,omitempty"`
}

type RescheduleRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	Reason    string `json:"reason,omitempty"`
}

type RejectRequest struct {
	Reason    string `json:"reason,omitempty"`
	BlockSlot bool   `json:"block_slot,omitempty"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type PaymentConfirmedRequest struct {
	AppointmentID string `json:"appointment_id"`
	PaymentID     string `json:"payment_id,omitempty"`
}

type CreateTemplateRequest struct {
	DoctorID  string `json:"doctor_id,omitempty"` // defaults to the acting doctor
	ClinicID  string `json:"clinic_id,omitempty"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type CreateExceptionRequest struct {
	DoctorID  string `json:"doctor_id,omitempty"`
	Kind      string `json:"kind"` // day_off or blocked_interval
	Date      string `json:"date"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	ClinicID  string `json:"clinic_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type AppointmentResponse struct {
	ID           uuid.UUID  `json:"id"`
	PatientID    uuid.UUID  `json:"patient_id"`
	DoctorID     uuid.UUID  `json:"doctor_id"`
	ClinicID     uuid.UUID  `json:"clinic_id"`
	Date         string     `json:"date"`
	StartTime    string     `json:"start_time"`
	EndTime      string     `json:"end_time"`
	Status       string     `json:"status"`
	Reason       string     `json:"reason,omitempty"`
	StatusReason *string    `json:"status_reason,omitempty"`
	PaymentID    *uuid.UUID `json:"payment_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		PatientID:    a.PatientID,
		DoctorID:     a.DoctorID,
		ClinicID:     a.ClinicID,
		Date:         a.Date.Format(scheduling.DateLayout),
		StartTime:    a.StartMinute.String(),
		EndTime:      a.EndMinute.String(),
		Status:       string(a.Status),
		Reason:       a.Reason,
		StatusReason: a.StatusReason,
		PaymentID:    a.PaymentID,
		CreatedAt:    a.CreatedAt,
	}
}

type SlotsResponse struct {
	DoctorID uuid.UUID             `json:"doctor_id"`
	Date     string                `json:"date"`
	Slots    []scheduling.TimeSlot `json:"slots"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

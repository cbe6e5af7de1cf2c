package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// liveSlotIndex is the partial unique index enforcing the no-double-booking
// invariant at commit time.
const liveSlotIndex = "appointments_live_slot_idx"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func isLiveSlotConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == liveSlotIndex
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialty,
		&d.Active,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Address,
		&c.Active,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClinicNotFound
		}
		return nil, err
	}

	return &c, nil
}

func scanTemplate(row pgx.Row) (*AvailabilityTemplate, error) {
	var t AvailabilityTemplate
	var day int16
	var start, end int16

	err := row.Scan(
		&t.ID,
		&t.DoctorID,
		&t.ClinicID,
		&day,
		&start,
		&end,
		&t.Active,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	t.DayOfWeek = time.Weekday(day)
	t.StartMinute = MinuteOfDay(start)
	t.EndMinute = MinuteOfDay(end)
	return &t, nil
}

func scanException(row pgx.Row) (*ScheduleException, error) {
	var e ScheduleException
	var kind string
	var start, end *int16

	err := row.Scan(
		&e.ID,
		&e.DoctorID,
		&kind,
		&e.Date,
		&start,
		&end,
		&e.ClinicID,
		&e.Reason,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExceptionNotFound
		}
		return nil, err
	}

	e.Kind = ExceptionKind(kind)
	if start != nil {
		e.StartMinute = MinuteOfDay(*start)
	}
	if end != nil {
		e.EndMinute = MinuteOfDay(*end)
	}
	return &e, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	var start, end int16

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.ClinicID,
		&a.Date,
		&start,
		&end,
		&status,
		&a.Reason,
		&a.StatusReason,
		&a.PaymentID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Status = Status(status)
	a.StartMinute = MinuteOfDay(start)
	a.EndMinute = MinuteOfDay(end)
	return &a, nil
}

const appointmentColumns = `id, patient_id, doctor_id, clinic_id, on_date, start_minute, end_minute, status, reason, status_reason, payment_id, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, active, created_at, updated_at
		FROM doctors
		WHERE id = $1 AND active
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, active, created_at, updated_at
		FROM patients
		WHERE id = $1 AND active
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetClinicByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, address, active, created_at, updated_at
		FROM clinics
		WHERE id = $1 AND active
	`, id)
	return scanClinic(row)
}

func (r *PgRepository) CreateTemplate(ctx context.Context, t *AvailabilityTemplate) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_templates (id, doctor_id, clinic_id, day_of_week, start_minute, end_minute, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at
	`, t.ID, t.DoctorID, t.ClinicID, int16(t.DayOfWeek), int16(t.StartMinute), int16(t.EndMinute), t.Active)

	if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (r *PgRepository) DeactivateTemplate(ctx context.Context, id, doctorID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE availability_templates
		SET active = false,
		    updated_at = now()
		WHERE id = $1
		  AND doctor_id = $2
		  AND active
	`, id, doctorID)
	if err != nil {
		return fmt.Errorf("deactivate template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func (r *PgRepository) ListActiveTemplates(ctx context.Context, doctorID uuid.UUID) ([]AvailabilityTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, clinic_id, day_of_week, start_minute, end_minute, active, created_at, updated_at
		FROM availability_templates
		WHERE doctor_id = $1 AND active
		ORDER BY day_of_week, start_minute
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailabilityTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateException(ctx context.Context, e *ScheduleException) error {
	var start, end *int16
	if e.Kind == ExceptionBlockedInterval {
		s := int16(e.StartMinute)
		en := int16(e.EndMinute)
		start, end = &s, &en
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO schedule_exceptions (id, doctor_id, kind, on_date, start_minute, end_minute, clinic_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING created_at
	`, e.ID, e.DoctorID, string(e.Kind), e.Date, start, end, e.ClinicID, e.Reason)

	if err := row.Scan(&e.CreatedAt); err != nil {
		return fmt.Errorf("insert exception: %w", err)
	}
	return nil
}

func (r *PgRepository) DeleteException(ctx context.Context, id, doctorID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM schedule_exceptions
		WHERE id = $1 AND doctor_id = $2
	`, id, doctorID)
	if err != nil {
		return fmt.Errorf("delete exception: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExceptionNotFound
	}
	return nil
}

func (r *PgRepository) ListExceptions(ctx context.Context, doctorID uuid.UUID) ([]ScheduleException, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, kind, on_date, start_minute, end_minute, clinic_id, reason, created_at
		FROM schedule_exceptions
		WHERE doctor_id = $1
		ORDER BY on_date, start_minute NULLS FIRST
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ScheduleException
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, clinic_id, on_date, start_minute, end_minute, status, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING created_at, updated_at
	`, a.ID, a.PatientID, a.DoctorID, a.ClinicID, a.Date, int16(a.StartMinute), int16(a.EndMinute), string(a.Status), a.Reason)

	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		if isLiveSlotConflict(err) {
			return ErrSlotUnavailable
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListLiveAppointmentsForDay(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND on_date = $2
		  AND status NOT IN ('cancelled', 'rejected')
		ORDER BY start_minute
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY on_date DESC, start_minute DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY on_date DESC, start_minute DESC
		LIMIT $2 OFFSET $3
	`, doctorID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status, statusReason *string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    status_reason = COALESCE($3, status_reason),
		    updated_at = now()
		WHERE id = $1
		  AND status = $4
		RETURNING `+appointmentColumns+`
	`, id, string(to), statusReason, string(from))

	return scanAppointment(row)
}

func (r *PgRepository) RescheduleAppointment(ctx context.Context, id uuid.UUID, from, to Status, newDate time.Time, newStart, newEnd MinuteOfDay, statusReason *string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET on_date = $2,
		    start_minute = $3,
		    end_minute = $4,
		    status = $5,
		    status_reason = COALESCE($6, status_reason),
		    updated_at = now()
		WHERE id = $1
		  AND status = $7
		RETURNING `+appointmentColumns+`
	`, id, newDate, int16(newStart), int16(newEnd), string(to), statusReason, string(from))

	appt, err := scanAppointment(row)
	if err != nil {
		if isLiveSlotConflict(err) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}
	return appt, nil
}

func (r *PgRepository) MarkPaymentDone(ctx context.Context, id uuid.UUID, from Status, paymentID *uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    payment_id = COALESCE($3, payment_id),
		    updated_at = now()
		WHERE id = $1
		  AND status = $4
		RETURNING `+appointmentColumns+`
	`, id, string(StatusPaymentDone), paymentID, string(from))

	return scanAppointment(row)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	var appID *uuid.UUID
	if ev.AppointmentID != nil {
		appID = ev.AppointmentID
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, appID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

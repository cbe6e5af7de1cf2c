package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/scheduling/internal/config"
)

// memRepo is an in-memory Repository. It enforces the same live-slot
// uniqueness the partial index does, so commit-time conflict behavior is
// testable without Postgres.
type memRepo struct {
	mu           sync.Mutex
	doctors      map[uuid.UUID]*Doctor
	patients     map[uuid.UUID]*Patient
	clinics      map[uuid.UUID]*Clinic
	templates    map[uuid.UUID]*AvailabilityTemplate
	exceptions   map[uuid.UUID]*ScheduleException
	appointments map[uuid.UUID]*Appointment
	events       []EventLog
}

func newMemRepo() *memRepo {
	return &memRepo{
		doctors:      make(map[uuid.UUID]*Doctor),
		patients:     make(map[uuid.UUID]*Patient),
		clinics:      make(map[uuid.UUID]*Clinic),
		templates:    make(map[uuid.UUID]*AvailabilityTemplate),
		exceptions:   make(map[uuid.UUID]*ScheduleException),
		appointments: make(map[uuid.UUID]*Appointment),
	}
}

func (m *memRepo) addDoctor() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.doctors[id] = &Doctor{ID: id, Name: "Dr. Test", Active: true}
	return id
}

func (m *memRepo) addPatient() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.patients[id] = &Patient{ID: id, Name: "Test Patient", Active: true}
	return id
}

func (m *memRepo) addClinic() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.clinics[id] = &Clinic{ID: id, Name: "Test Clinic", Active: true}
	return id
}

func (m *memRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok || !d.Active {
		return nil, ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok || !p.Active {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) GetClinicByID(_ context.Context, id uuid.UUID) (*Clinic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clinics[id]
	if !ok || !c.Active {
		return nil, ErrClinicNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) CreateTemplate(_ context.Context, t *AvailabilityTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	m.templates[t.ID] = &cp
	return nil
}

func (m *memRepo) DeactivateTemplate(_ context.Context, id, doctorID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok || t.DoctorID != doctorID || !t.Active {
		return ErrTemplateNotFound
	}
	t.Active = false
	return nil
}

func (m *memRepo) ListActiveTemplates(_ context.Context, doctorID uuid.UUID) ([]AvailabilityTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []AvailabilityTemplate
	for _, t := range m.templates {
		if t.DoctorID == doctorID && t.Active {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DayOfWeek != result[j].DayOfWeek {
			return result[i].DayOfWeek < result[j].DayOfWeek
		}
		return result[i].StartMinute < result[j].StartMinute
	})
	return result, nil
}

func (m *memRepo) CreateException(_ context.Context, e *ScheduleException) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.CreatedAt = time.Now()
	cp := *e
	m.exceptions[e.ID] = &cp
	return nil
}

func (m *memRepo) DeleteException(_ context.Context, id, doctorID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exceptions[id]
	if !ok || e.DoctorID != doctorID {
		return ErrExceptionNotFound
	}
	delete(m.exceptions, id)
	return nil
}

func (m *memRepo) ListExceptions(_ context.Context, doctorID uuid.UUID) ([]ScheduleException, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []ScheduleException
	for _, e := range m.exceptions {
		if e.DoctorID == doctorID {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *memRepo) CreateAppointment(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slotConflictLocked(a.DoctorID, a.ClinicID, a.Date, a.StartMinute, uuid.Nil) {
		return ErrSlotUnavailable
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

func (m *memRepo) slotConflictLocked(doctorID, clinicID uuid.UUID, date time.Time, start MinuteOfDay, exclude uuid.UUID) bool {
	for _, other := range m.appointments {
		if other.ID == exclude {
			continue
		}
		if other.DoctorID == doctorID && other.ClinicID == clinicID &&
			other.Date.Equal(date) && other.StartMinute == start && other.Status.Live() {
			return true
		}
	}
	return false
}

func (m *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) ListLiveAppointmentsForDay(_ context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Appointment
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Status.Live() {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *memRepo) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Appointment
	for _, a := range m.appointments {
		if a.PatientID == patientID {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *memRepo) ListAppointmentsByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Appointment
	for _, a := range m.appointments {
		if a.DoctorID == doctorID {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *memRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to Status, statusReason *string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	if statusReason != nil {
		a.StatusReason = statusReason
	}
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (m *memRepo) RescheduleAppointment(_ context.Context, id uuid.UUID, from, to Status, newDate time.Time, newStart, newEnd MinuteOfDay, statusReason *string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	if m.slotConflictLocked(a.DoctorID, a.ClinicID, newDate, newStart, id) {
		return nil, ErrSlotUnavailable
	}
	a.Date = newDate
	a.StartMinute = newStart
	a.EndMinute = newEnd
	a.Status = to
	if statusReason != nil {
		a.StatusReason = statusReason
	}
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (m *memRepo) MarkPaymentDone(_ context.Context, id uuid.UUID, from Status, paymentID *uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = StatusPaymentDone
	if paymentID != nil {
		a.PaymentID = paymentID
	}
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (m *memRepo) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memRepo) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.events))
	for _, ev := range m.events {
		types = append(types, ev.EventType)
	}
	return types
}

// noopLocker runs the critical section without any locking.
type noopLocker struct{}

func (noopLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type sentNotification struct {
	RecipientID uuid.UUID
	Title       string
	Message     string
}

// recordingNotifier captures dispatched notifications.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, recipientID uuid.UUID, title, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{RecipientID: recipientID, Title: title, Message: message})
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *recordingNotifier) last() sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}

func newTestService(repo *memRepo, notifier Notifier) *Service {
	cfg := config.Config{SlotDuration: 30 * time.Minute}
	return NewService(repo, noopLocker{}, nil, notifier, cfg, zerolog.Nop())
}

// fixed dates used across tests; both are in the future relative to frozenNow.
var (
	frozenNow  = time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC) // a Tuesday
	monday     = time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)
	nextMonday = time.Date(2026, time.September, 14, 0, 0, 0, 0, time.UTC)
)

func freezeTime(s *Service) {
	s.now = func() time.Time { return frozenNow }
}

func addTemplate(repo *memRepo, doctorID uuid.UUID, clinicID *uuid.UUID, day time.Weekday, start, end MinuteOfDay) {
	t := &AvailabilityTemplate{
		ID:          uuid.New(),
		DoctorID:    doctorID,
		ClinicID:    clinicID,
		DayOfWeek:   day,
		StartMinute: start,
		EndMinute:   end,
		Active:      true,
	}
	_ = repo.CreateTemplate(context.Background(), t)
}

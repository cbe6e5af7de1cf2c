package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	nineAM     = MinuteOfDay(9 * 60)
	nineThirty = MinuteOfDay(9*60 + 30)
	tenAM      = MinuteOfDay(10 * 60)
)

func TestResolveSlotsBasicGrid(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	freezeTime(svc)

	doctorID := repo.addDoctor()
	clinicID := repo.addClinic()
	addTemplate(repo, doctorID, &clinicID, time.Monday, nineAM, tenAM)

	slots, err := svc.ResolveSlots(context.Background(), doctorID, monday, nil)
	require.NoError(t, err)
	require.Len(t, slots, 2)

	assert.Equal(t, nineAM, slots[0].Start)
	assert.Equal(t, nineThirty, slots[0].End)
	assert.Equal(t, nineThirty, slots[1].Start)
	assert.Equal(t, tenAM, slots[1].End)
	for _, sl := range slots {
		assert.True(t, sl.Available)
		require.NotNil(t, sl.ClinicID)
		assert.Equal(t, clinicID, *sl.ClinicID)
	}
}

func TestResolveSlotsWrongWeekday(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	freezeTime(svc)

	doctorID := repo.addDoctor()
	clinicID := repo.addClinic()
	addTemplate(repo, doctorID, &clinicID, time.Monday, nineAM, tenAM)

	tuesday := monday.AddDate(0, 0, 1)
	slots, err := svc.ResolveSlots(context.Background(), doctorID, tuesday, nil)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestResolveSlotsDropsTrailingPartialSlot(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	freezeTime(svc)

	doctorID := repo.addDoctor()
	clinicID := repo.addClinic()
	// 45-minute window holds exactly one 30-minute slot
	addTemplate(repo, doctorID, &clinicID, time.Monday, nineAM, nineAM+45)

	slots, err := svc.ResolveSlots(context.Background(), doctorID, monday, nil)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, nineAM, slots[0].Start)
}

func TestResolveSlotsBlockedInterval(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	freezeTime(svc)

	doctorID := repo.addDoctor()
	clinicID := repo.addClinic()
	addTemplate(repo, doctorID, &clinicID, time.Monday, nineAM, tenAM)

	require.NoError(t, repo.CreateException(context.Background(), &ScheduleException{
		ID:          uuid.New(),
		DoctorID:    doctorID,
		Kind:        ExceptionBlockedInterval,
		Date:        monday,
		StartMinute: nineThirty,
		EndMinute:   tenAM,
	}))

	slots, err := svc.ResolveSlots(context.Background(), doctorID, monday, nil)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, nineAM, slots[0].Start)
}

func TestResolveSlotsDayOff(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	freezeTime(svc)

	doctorID := repo.addDoctor()
	clinicID := repo.addClinic()
	addTemplate(repo, doctorID, &clinicID, time.Monday, nineAM, tenAM)

	require.NoError(t, repo.CreateException(context.Background(), &ScheduleException{
		ID:       uuid.New(),
		DoctorID: doctorID,
		Kind:     ExceptionDayOff,
		Date:     monday,
	}))

	slots, err := svc.ResolveSlots(context.Background(), doctorID, monday, nil)
	require.NoError(t, err)
	assert.Empty(t, slots)

	// the next week is unaffected
	slots, err = svc.ResolveSlots(context.Background(), doctorID, nextMonday, nil)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestResolveSlotsLiveAppointmentRemovesSlot(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	freezeTime(svc)

	doctorID := repo.addDoctor()
	patientID := repo.addPatient()
	clinicID := repo.addClinic()
	addTemplate(repo, doctorID, &clinicID, time.Monday, nineAM, tenAM)

	appt := &Appointment{
		ID:          uuid.New(),
		PatientID:   patientID,
		DoctorID:    doctorID,
		ClinicID:    clinicID,
		Date:        monday,
		StartMinute: nineAM,
		EndMinute:   nineThirty,
		Status:      StatusPending,
	}
	require.NoError(t, repo.CreateAppointment(context.Background(), appt))

	slots, err := svc.ResolveSlots(context.Background(), doctorID, monday, nil)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, nineThirty, slots[0].Start)
}

func TestResolveSlotsCancelledAppointmentFreesSlot(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	freezeTime(svc)

	doctorID := repo.addDoctor()
	patientID := repo.addPatient()
	clinicID := repo.addClinic()
	addTemplate(repo, doctorID, &clinicID, time.Monday, nineAM, tenAM)

	appt := &Appointment{
		ID:          uuid.New(),
		PatientID:   patientID,
		DoctorID:    doctorID,
		ClinicID:    clinicID,
		Date:        monday,
		StartMinute: nineAM,
		EndMinute:   nineThirty,
		Status:      StatusCancelled,
	}
	require.NoError(t, repo.CreateAppointment(context.Background(), appt))

	slots, err := svc.ResolveSlots(context.Background(), doctorID, monday, nil)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestResolveSlotsTwoClinics(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	freezeTime(svc)

	doctorID := repo.addDoctor()
	clinicA := repo.addClinic()
	clinicB := repo.addClinic()
	addTemplate(repo, doctorID, &clinicA, time.Monday, nineAM, nineThirty)
	addTemplate(repo, doctorID, &clinicB, time.Monday, nineAM, nineThirty)

	slots, err := svc.ResolveSlots(context.Background(), doctorID, monday, nil)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, slots[0].Start, slots[1].Start)
	assert.NotEqual(t, *slots[0].ClinicID, *slots[1].ClinicID)

	// clinic filter narrows to one
	slots, err = svc.ResolveSlots(context.Background(), doctorID, monday, &clinicA)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, clinicA, *slots[0].ClinicID)
}

func TestResolveSlotsUnknownDoctor(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	freezeTime(svc)

	_, err := svc.ResolveSlots(context.Background(), uuid.New(), monday, nil)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestBuildSlotsExcludesMovingAppointment(t *testing.T) {
	clinicID := uuid.New()
	movingID := uuid.New()

	templates := []AvailabilityTemplate{{
		ID:          uuid.New(),
		ClinicID:    &clinicID,
		DayOfWeek:   time.Monday,
		StartMinute: nineAM,
		EndMinute:   tenAM,
		Active:      true,
	}}
	appointments := []Appointment{{
		ID:          movingID,
		ClinicID:    clinicID,
		Date:        monday,
		StartMinute: nineAM,
		Status:      StatusApproved,
	}}

	// without exclusion the occupied slot is gone
	slots := buildSlots(templates, nil, appointments, monday, nil, nil, 30)
	require.Len(t, slots, 1)
	assert.Equal(t, nineThirty, slots[0].Start)

	// excluding the moving appointment frees its own slot
	slots = buildSlots(templates, nil, appointments, monday, nil, &movingID, 30)
	require.Len(t, slots, 2)
	assert.Equal(t, nineAM, slots[0].Start)
}

func TestSlotOffered(t *testing.T) {
	clinicA := uuid.New()
	clinicB := uuid.New()
	slots := []TimeSlot{
		{Start: nineAM, End: nineThirty, ClinicID: &clinicA, Available: true},
		{Start: nineThirty, End: tenAM, ClinicID: nil, Available: true},
	}

	assert.True(t, slotOffered(slots, nineAM, clinicA))
	assert.False(t, slotOffered(slots, nineAM, clinicB))
	// nil template clinic accepts any clinic
	assert.True(t, slotOffered(slots, nineThirty, clinicA))
	assert.True(t, slotOffered(slots, nineThirty, clinicB))
	assert.False(t, slotOffered(slots, tenAM, clinicA))
}

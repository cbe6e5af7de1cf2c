package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTemplate(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	freezeTime(svc)
	ctx := context.Background()

	doctorID := repo.addDoctor()
	clinicID := repo.addClinic()
	actor := Actor{UserID: doctorID, Role: RoleDoctor}

	tpl, err := svc.CreateTemplate(ctx, TemplateInput{
		DoctorID:  doctorID,
		ClinicID:  &clinicID,
		DayOfWeek: time.Monday,
		Start:     nineAM,
		End:       tenAM,
	}, actor)
	require.NoError(t, err)
	assert.True(t, tpl.Active)

	slots, err := svc.ResolveSlots(ctx, doctorID, monday, nil)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestCreateTemplateValidation(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	freezeTime(svc)
	ctx := context.Background()

	doctorID := repo.addDoctor()
	actor := Actor{UserID: doctorID, Role: RoleDoctor}

	cases := []struct {
		name string
		in   TemplateInput
		want error
	}{
		{
			name: "end before start",
			in:   TemplateInput{DoctorID: doctorID, DayOfWeek: time.Monday, Start: tenAM, End: nineAM},
			want: ErrValidation,
		},
		{
			name: "range shorter than one slot",
			in:   TemplateInput{DoctorID: doctorID, DayOfWeek: time.Monday, Start: nineAM, End: nineAM + 15},
			want: ErrValidation,
		},
		{
			name: "unknown doctor",
			in:   TemplateInput{DoctorID: uuid.New(), DayOfWeek: time.Monday, Start: nineAM, End: tenAM},
			want: ErrUnauthorized, // not the actor's schedule
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateTemplate(ctx, tc.in, actor)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("unknown doctor as admin", func(t *testing.T) {
		_, err := svc.CreateTemplate(ctx, TemplateInput{
			DoctorID: uuid.New(), DayOfWeek: time.Monday, Start: nineAM, End: tenAM,
		}, Actor{UserID: uuid.New(), Role: RoleAdmin})
		assert.ErrorIs(t, err, ErrDoctorNotFound)
	})

	t.Run("patient may not manage schedules", func(t *testing.T) {
		_, err := svc.CreateTemplate(ctx, TemplateInput{
			DoctorID: doctorID, DayOfWeek: time.Monday, Start: nineAM, End: tenAM,
		}, Actor{UserID: uuid.New(), Role: RolePatient})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestRemoveTemplate(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	freezeTime(svc)
	ctx := context.Background()

	doctorID := repo.addDoctor()
	clinicID := repo.addClinic()
	actor := Actor{UserID: doctorID, Role: RoleDoctor}

	tpl, err := svc.CreateTemplate(ctx, TemplateInput{
		DoctorID:  doctorID,
		ClinicID:  &clinicID,
		DayOfWeek: time.Monday,
		Start:     nineAM,
		End:       tenAM,
	}, actor)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveTemplate(ctx, tpl.ID, doctorID, actor))

	slots, err := svc.ResolveSlots(ctx, doctorID, monday, nil)
	require.NoError(t, err)
	assert.Empty(t, slots)

	// removing twice fails, soft delete already happened
	err = svc.RemoveTemplate(ctx, tpl.ID, doctorID, actor)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestCreateException(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	freezeTime(svc)
	ctx := context.Background()

	doctorID := repo.addDoctor()
	actor := Actor{UserID: doctorID, Role: RoleDoctor}

	t.Run("day off needs no time range", func(t *testing.T) {
		exc, err := svc.CreateException(ctx, ExceptionInput{
			DoctorID: doctorID,
			Kind:     ExceptionDayOff,
			Date:     monday,
		}, actor)
		require.NoError(t, err)
		assert.Equal(t, ExceptionDayOff, exc.Kind)
		assert.Equal(t, monday, exc.Date)
	})

	t.Run("blocked interval needs a valid range", func(t *testing.T) {
		_, err := svc.CreateException(ctx, ExceptionInput{
			DoctorID: doctorID,
			Kind:     ExceptionBlockedInterval,
			Date:     monday,
			Start:    tenAM,
			End:      nineAM,
		}, actor)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := svc.CreateException(ctx, ExceptionInput{
			DoctorID: doctorID,
			Kind:     ExceptionKind("vacation"),
			Date:     monday,
		}, actor)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("blocked interval at unknown clinic", func(t *testing.T) {
		bogus := uuid.New()
		_, err := svc.CreateException(ctx, ExceptionInput{
			DoctorID: doctorID,
			Kind:     ExceptionBlockedInterval,
			Date:     monday,
			Start:    nineAM,
			End:      tenAM,
			ClinicID: &bogus,
		}, actor)
		assert.ErrorIs(t, err, ErrClinicNotFound)
	})
}

func TestRemoveException(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	freezeTime(svc)
	ctx := context.Background()

	doctorID := repo.addDoctor()
	clinicID := repo.addClinic()
	actor := Actor{UserID: doctorID, Role: RoleDoctor}
	addTemplate(repo, doctorID, &clinicID, time.Monday, nineAM, tenAM)

	exc, err := svc.CreateException(ctx, ExceptionInput{
		DoctorID: doctorID,
		Kind:     ExceptionDayOff,
		Date:     monday,
	}, actor)
	require.NoError(t, err)

	slots, err := svc.ResolveSlots(ctx, doctorID, monday, nil)
	require.NoError(t, err)
	assert.Empty(t, slots)

	require.NoError(t, svc.RemoveException(ctx, exc.ID, doctorID, actor))

	slots, err = svc.ResolveSlots(ctx, doctorID, monday, nil)
	require.NoError(t, err)
	assert.Len(t, slots, 2)

	err = svc.RemoveException(ctx, exc.ID, doctorID, actor)
	assert.ErrorIs(t, err, ErrExceptionNotFound)
}

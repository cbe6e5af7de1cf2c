package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TemplateInput struct {
	DoctorID  uuid.UUID
	ClinicID  *uuid.UUID
	DayOfWeek time.Weekday
	Start     MinuteOfDay
	End       MinuteOfDay
}

// CreateTemplate adds a recurring weekly availability block. Doctors manage
// their own schedule; an admin may act on any doctor's behalf.
func (s *Service) CreateTemplate(ctx context.Context, in TemplateInput, actor Actor) (*AvailabilityTemplate, error) {
	if err := requireScheduleOwner(in.DoctorID, actor); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetDoctorByID(ctx, in.DoctorID); err != nil {
		return nil, err
	}
	if in.ClinicID != nil {
		if _, err := s.repo.GetClinicByID(ctx, *in.ClinicID); err != nil {
			return nil, err
		}
	}
	if in.DayOfWeek < time.Sunday || in.DayOfWeek > time.Saturday {
		return nil, invalidf("day_of_week", "must be 0-6")
	}
	if !in.Start.Valid() || !in.End.Valid() {
		return nil, invalidf("time_range", "times must be within the day")
	}
	if in.End <= in.Start {
		return nil, invalidf("time_range", "end time must be after start time")
	}
	if in.End-in.Start < s.slotLen() {
		return nil, invalidf("time_range", "range shorter than one %s slot", s.cfg.SlotDuration)
	}

	t := &AvailabilityTemplate{
		ID:          uuid.New(),
		DoctorID:    in.DoctorID,
		ClinicID:    in.ClinicID,
		DayOfWeek:   in.DayOfWeek,
		StartMinute: in.Start,
		EndMinute:   in.End,
		Active:      true,
	}

	if err := s.repo.CreateTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}

	s.invalidateAvailability(ctx, in.DoctorID)
	return t, nil
}

// RemoveTemplate soft-deletes a template by clearing its active flag.
// Historical slot computations keep referencing the row.
func (s *Service) RemoveTemplate(ctx context.Context, id, doctorID uuid.UUID, actor Actor) error {
	if err := requireScheduleOwner(doctorID, actor); err != nil {
		return err
	}
	if err := s.repo.DeactivateTemplate(ctx, id, doctorID); err != nil {
		return err
	}
	s.invalidateAvailability(ctx, doctorID)
	return nil
}

func (s *Service) ListTemplates(ctx context.Context, doctorID uuid.UUID) ([]AvailabilityTemplate, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.repo.ListActiveTemplates(ctx, doctorID)
}

type ExceptionInput struct {
	DoctorID uuid.UUID
	Kind     ExceptionKind
	Date     time.Time
	Start    MinuteOfDay
	End      MinuteOfDay
	ClinicID *uuid.UUID
	Reason   *string
}

// CreateException records a day off or a blocked interval. Exceptions always
// take precedence over templates in the resolver.
func (s *Service) CreateException(ctx context.Context, in ExceptionInput, actor Actor) (*ScheduleException, error) {
	if err := requireScheduleOwner(in.DoctorID, actor); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetDoctorByID(ctx, in.DoctorID); err != nil {
		return nil, err
	}

	e := &ScheduleException{
		ID:       uuid.New(),
		DoctorID: in.DoctorID,
		Kind:     in.Kind,
		Date:     NormalizeDate(in.Date),
		ClinicID: in.ClinicID,
		Reason:   in.Reason,
	}

	switch in.Kind {
	case ExceptionDayOff:
		// whole-day exception, no time range
	case ExceptionBlockedInterval:
		if !in.Start.Valid() || !in.End.Valid() || in.End <= in.Start {
			return nil, invalidf("time_range", "blocked interval needs a valid time range")
		}
		if in.ClinicID != nil {
			if _, err := s.repo.GetClinicByID(ctx, *in.ClinicID); err != nil {
				return nil, err
			}
		}
		e.StartMinute = in.Start
		e.EndMinute = in.End
	default:
		return nil, invalidf("kind", "must be %s or %s", ExceptionDayOff, ExceptionBlockedInterval)
	}

	if err := s.repo.CreateException(ctx, e); err != nil {
		return nil, fmt.Errorf("create exception: %w", err)
	}

	s.invalidateAvailability(ctx, in.DoctorID)
	return e, nil
}

func (s *Service) RemoveException(ctx context.Context, id, doctorID uuid.UUID, actor Actor) error {
	if err := requireScheduleOwner(doctorID, actor); err != nil {
		return err
	}
	if err := s.repo.DeleteException(ctx, id, doctorID); err != nil {
		return err
	}
	s.invalidateAvailability(ctx, doctorID)
	return nil
}

func (s *Service) ListExceptions(ctx context.Context, doctorID uuid.UUID) ([]ScheduleException, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.repo.ListExceptions(ctx, doctorID)
}

func requireScheduleOwner(doctorID uuid.UUID, actor Actor) error {
	if actor.Role == RoleAdmin {
		return nil
	}
	if actor.Role != RoleDoctor || actor.UserID != doctorID {
		return ErrUnauthorized
	}
	return nil
}

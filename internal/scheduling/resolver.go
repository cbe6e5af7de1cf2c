package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ResolveSlots computes the ordered set of bookable slots for a doctor on a
// date, optionally narrowed to one clinic. It is a pure read: no state is
// mutated and concurrent calls are safe. A doctor with no matching templates
// yields an empty sequence, not an error.
func (s *Service) ResolveSlots(ctx context.Context, doctorID uuid.UUID, date time.Time, clinicID *uuid.UUID) ([]TimeSlot, error) {
	return s.resolve(ctx, doctorID, date, clinicID, nil)
}

// resolve is ResolveSlots plus an optional appointment to ignore in the
// conflict check. Reschedules pass the moving appointment's own id so it does
// not collide with itself.
func (s *Service) resolve(ctx context.Context, doctorID uuid.UUID, date time.Time, clinicID *uuid.UUID, excludeAppt *uuid.UUID) ([]TimeSlot, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	date = NormalizeDate(date)

	templates, exceptions, err := s.loadAvailability(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}

	appointments, err := s.repo.ListLiveAppointmentsForDay(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	return buildSlots(templates, exceptions, appointments, date, clinicID, excludeAppt, s.slotLen()), nil
}

// buildSlots is the slot arithmetic, kept free of I/O. For each template
// matching the weekday (and clinic filter, when given) it walks the time
// range in fixed increments, dropping the trailing partial slot, slots inside
// exceptions, and slots whose start is taken by a live appointment.
func buildSlots(templates []AvailabilityTemplate, exceptions []ScheduleException, appointments []Appointment, date time.Time, clinicID *uuid.UUID, excludeAppt *uuid.UUID, slotLen MinuteOfDay) []TimeSlot {
	day := date.Weekday()

	taken := make(map[MinuteOfDay]bool, len(appointments))
	for _, a := range appointments {
		if !a.Status.Live() {
			continue
		}
		if excludeAppt != nil && a.ID == *excludeAppt {
			continue
		}
		taken[a.StartMinute] = true
	}

	var slots []TimeSlot
	for _, t := range templates {
		if !t.Active || t.DayOfWeek != day {
			continue
		}
		if clinicID != nil && t.ClinicID != nil && *t.ClinicID != *clinicID {
			continue
		}

		for start := t.StartMinute; start+slotLen <= t.EndMinute; start += slotLen {
			if coveredByException(exceptions, date, start, t.ClinicID) {
				continue
			}
			if taken[start] {
				continue
			}
			slots = append(slots, TimeSlot{
				Start:     start,
				End:       start + slotLen,
				ClinicID:  t.ClinicID,
				Available: true,
			})
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Start != slots[j].Start {
			return slots[i].Start < slots[j].Start
		}
		return clinicKey(slots[i].ClinicID) < clinicKey(slots[j].ClinicID)
	})

	return slots
}

func coveredByException(exceptions []ScheduleException, date time.Time, start MinuteOfDay, clinicID *uuid.UUID) bool {
	for _, e := range exceptions {
		if e.Covers(date, start, clinicID) {
			return true
		}
	}
	return false
}

func clinicKey(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// slotOffered reports whether the resolved set contains an available slot at
// start that can be booked at the given clinic.
func slotOffered(slots []TimeSlot, start MinuteOfDay, clinicID uuid.UUID) bool {
	for _, sl := range slots {
		if sl.Start != start || !sl.Available {
			continue
		}
		if sl.ClinicID == nil || *sl.ClinicID == clinicID {
			return true
		}
	}
	return false
}

package scheduling

// transitions is the canonical table. A reschedule is a date/time overwrite
// plus one of these status moves: pending->pending or approved->pending for
// the patient flow, pending->approved for the doctor flow.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusPending:   true, // patient reschedule of a pending appointment
		StatusApproved:  true, // doctor accepts, or doctor reschedule
		StatusRejected:  true,
		StatusCancelled: true,
	},
	StatusApproved: {
		StatusPending:     true, // patient reschedule, re-approval required
		StatusCompleted:   true,
		StatusCancelled:   true,
		StatusPaymentDone: true,
	},
	StatusPaymentDone: {
		StatusCompleted: true,
		StatusCancelled: true,
	},
	StatusRejected:  {},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition reports whether the table permits from -> to.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// checkTransition returns a typed error naming both statuses when the table
// forbids the move.
func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// requireDoctor guards transitions only the appointment's own doctor may
// trigger. Admins pass as well; anyone else gets ErrUnauthorized.
func requireDoctor(appt *Appointment, actor Actor) error {
	if actor.Role == RoleAdmin {
		return nil
	}
	if actor.Role != RoleDoctor || actor.UserID != appt.DoctorID {
		return ErrUnauthorized
	}
	return nil
}

// requirePatient guards transitions only the appointment's own patient may
// trigger.
func requirePatient(appt *Appointment, actor Actor) error {
	if actor.Role == RoleAdmin {
		return nil
	}
	if actor.Role != RolePatient || actor.UserID != appt.PatientID {
		return ErrUnauthorized
	}
	return nil
}

// requireParty guards transitions either side of the appointment may trigger
// (cancellation).
func requireParty(appt *Appointment, actor Actor) error {
	if actor.Role == RoleAdmin {
		return nil
	}
	switch actor.Role {
	case RolePatient:
		if actor.UserID == appt.PatientID {
			return nil
		}
	case RoleDoctor:
		if actor.UserID == appt.DoctorID {
			return nil
		}
	}
	return ErrUnauthorized
}

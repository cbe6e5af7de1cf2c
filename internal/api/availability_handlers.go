package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicdesk/scheduling/internal/scheduling"
)

func createTemplateHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		var req CreateTemplateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, ok := scheduleOwner(w, req.DoctorID, actor)
		if !ok {
			return
		}

		var clinicID *uuid.UUID
		if req.ClinicID != "" {
			id, err := uuid.Parse(req.ClinicID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinic_id must be a valid UUID")
				return
			}
			clinicID = &id
		}

		start, err := scheduling.ParseMinuteOfDay(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", err.Error())
			return
		}
		end, err := scheduling.ParseMinuteOfDay(req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_time", err.Error())
			return
		}

		tmpl, err := svc.CreateTemplate(r.Context(), scheduling.TemplateInput{
			DoctorID:  doctorID,
			ClinicID:  clinicID,
			DayOfWeek: time.Weekday(req.DayOfWeek),
			Start:     start,
			End:       end,
		}, actor)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, tmpl)
	}
}

func removeTemplateHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_template_id", "id must be a valid UUID")
			return
		}

		doctorID, ok := scheduleOwner(w, r.URL.Query().Get("doctor_id"), actor)
		if !ok {
			return
		}

		if err := svc.RemoveTemplate(r.Context(), id, doctorID, actor); err != nil {
			handleServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listTemplatesHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		templates, err := svc.ListTemplates(r.Context(), doctorID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		if templates == nil {
			templates = []scheduling.AvailabilityTemplate{}
		}
		writeJSON(w, http.StatusOK, templates)
	}
}

func createExceptionHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		var req CreateExceptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, ok := scheduleOwner(w, req.DoctorID, actor)
		if !ok {
			return
		}

		date, err := scheduling.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}

		in := scheduling.ExceptionInput{
			DoctorID: doctorID,
			Kind:     scheduling.ExceptionKind(req.Kind),
			Date:     date,
		}

		if req.Kind == string(scheduling.ExceptionBlockedInterval) {
			start, err := scheduling.ParseMinuteOfDay(req.StartTime)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_start_time", err.Error())
				return
			}
			end, err := scheduling.ParseMinuteOfDay(req.EndTime)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_end_time", err.Error())
				return
			}
			in.Start = start
			in.End = end

			if req.ClinicID != "" {
				id, err := uuid.Parse(req.ClinicID)
				if err != nil {
					writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinic_id must be a valid UUID")
					return
				}
				in.ClinicID = &id
			}
		}

		if req.Reason != "" {
			reason := req.Reason
			in.Reason = &reason
		}

		exc, err := svc.CreateException(r.Context(), in, actor)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, exc)
	}
}

func removeExceptionHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_exception_id", "id must be a valid UUID")
			return
		}

		doctorID, ok := scheduleOwner(w, r.URL.Query().Get("doctor_id"), actor)
		if !ok {
			return
		}

		if err := svc.RemoveException(r.Context(), id, doctorID, actor); err != nil {
			handleServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listExceptionsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		exceptions, err := svc.ListExceptions(r.Context(), doctorID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		if exceptions == nil {
			exceptions = []scheduling.ScheduleException{}
		}
		writeJSON(w, http.StatusOK, exceptions)
	}
}

// scheduleOwner resolves which doctor's schedule is being edited: the acting
// doctor's own, or an explicit doctor_id when an admin acts.
func scheduleOwner(w http.ResponseWriter, raw string, actor scheduling.Actor) (uuid.UUID, bool) {
	if raw == "" {
		if actor.Role == scheduling.RoleAdmin {
			writeError(w, http.StatusBadRequest, "missing_doctor_id", "doctor_id is required for admin requests")
			return uuid.Nil, false
		}
		return actor.UserID, true
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

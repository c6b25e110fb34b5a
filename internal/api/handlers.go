package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
)

func listAppointmentsHandler(svc AppointmentService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFrom(r.Context())

		appts, err := svc.List(r.Context(), caller)
		if err != nil {
			handleServiceError(w, log, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createAppointmentHandler(svc AppointmentService, loc *time.Location, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if code, details, ok := decodeAndValidate(r, &req); !ok {
			writeError(w, http.StatusBadRequest, code, details)
			return
		}

		// both were checked by the validate tags
		practitionerID, _ := uuid.Parse(req.PractitionerID)
		at, _ := appointment.ParseInstant(req.ScheduledAt, loc)

		caller, _ := CallerFrom(r.Context())
		appt, err := svc.Create(r.Context(), caller, appointment.CreateInput{
			PractitionerID: practitionerID,
			ScheduledAt:    at,
			Reason:         req.Reason,
		})
		if err != nil {
			handleServiceError(w, log, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func updateAppointmentHandler(svc AppointmentService, loc *time.Location, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req UpdateAppointmentRequest
		if code, details, ok := decodeAndValidate(r, &req); !ok {
			writeError(w, http.StatusBadRequest, code, details)
			return
		}

		in := appointment.UpdateInput{
			Reason:      req.Reason,
			OutcomeNote: req.OutcomeNote,
			Attended:    req.Attended,
		}
		if req.ScheduledAt != nil {
			at, _ := appointment.ParseInstant(*req.ScheduledAt, loc)
			in.ScheduledAt = &at
		}

		caller, _ := CallerFrom(r.Context())
		appt, err := svc.Update(r.Context(), caller, id, in)
		if err != nil {
			handleServiceError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func deleteAppointmentHandler(svc AppointmentService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		caller, _ := CallerFrom(r.Context())
		if err := svc.Delete(r.Context(), caller, id); err != nil {
			handleServiceError(w, log, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listPractitionersHandler(svc AppointmentService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.Practitioners(r.Context())
		if err != nil {
			handleServiceError(w, log, err)
			return
		}

		resp := make([]PractitionerResponse, 0, len(list))
		for _, p := range list {
			resp = append(resp, PractitionerResponse{ID: p.ID, Name: p.Name, Specialty: p.Specialty, Email: p.Email})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func availabilityHandler(svc AppointmentService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		practitionerID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "id must be a valid UUID")
			return
		}

		date, err := appointment.ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}

		slots, err := svc.Availability(r.Context(), practitionerID, date)
		if err != nil {
			handleServiceError(w, log, err)
			return
		}
		if slots == nil {
			slots = []appointment.TimeOfDay{}
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			PractitionerID: practitionerID,
			Date:           date.Format(appointment.DateLayout),
			Slots:          slots,
		})
	}
}

func dashboardHandler(svc AppointmentService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFrom(r.Context())

		dash, err := svc.Stats(r.Context(), caller)
		if err != nil {
			handleServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, dash)
	}
}

func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, appointment.ErrClosedDay):
		writeError(w, http.StatusUnprocessableEntity, "closed_day", err.Error())
	case errors.Is(err, appointment.ErrOutOfHours):
		writeError(w, http.StatusUnprocessableEntity, "out_of_hours", err.Error())
	case errors.Is(err, appointment.ErrSlotConflict):
		writeError(w, http.StatusConflict, "slot_conflict", err.Error())
	case errors.Is(err, appointment.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, appointment.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, appointment.ErrTransient):
		log.Warn("transient failure", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "temporarily_unavailable", "please retry shortly")
	default:
		log.Error("unexpected service error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}

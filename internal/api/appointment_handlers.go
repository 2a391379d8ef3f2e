package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/homevisit/scheduling-service/internal/scheduling"
)

func bookSlotHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}

		var req BookSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		slotID, err := uuid.Parse(req.SlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
			return
		}

		patientID, ok := parseOptionalUUID(req.PatientID)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		appt, err := svc.Book(r.Context(), actor, slotID, patientID, req.Notes)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(*appt))
	}
}

func transitionAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req TransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		status, ok := scheduling.ParseStatus(req.Status)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_status", "status must be PENDING, CONFIRMED, CANCELLED or COMPLETED")
			return
		}

		appt, err := svc.Transition(r.Context(), actor, id, status)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func statusFilter(r *http.Request) (*scheduling.AppointmentStatus, bool) {
	v := r.URL.Query().Get("status")
	if v == "" {
		return nil, true
	}
	status, ok := scheduling.ParseStatus(v)
	if !ok {
		return nil, false
	}
	return &status, true
}

func listMyAppointmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}

		status, ok := statusFilter(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_status", "unknown status filter")
			return
		}

		items, err := svc.ListMine(r.Context(), actor, status)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(items))
	}
}

func listDoctorAppointmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}

		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		status, ok := statusFilter(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_status", "unknown status filter")
			return
		}

		items, err := svc.ListForDoctor(r.Context(), actor, doctorID, status)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(items))
	}
}

func listCompletedAppointmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}

		var q scheduling.CompletedQuery

		patientID, ok := parseOptionalUUID(r.URL.Query().Get("patient_id"))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		q.PatientID = patientID

		doctorID, ok := parseOptionalUUID(r.URL.Query().Get("doctor_id"))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		q.DoctorID = doctorID

		if v := r.URL.Query().Get("from"); v != "" {
			t, ok := parseInstant(v)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_from", "from must be an RFC3339 instant")
				return
			}
			q.From = &t
		}
		if v := r.URL.Query().Get("to"); v != "" {
			t, ok := parseInstant(v)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_to", "to must be an RFC3339 instant")
				return
			}
			q.To = &t
		}
		q.Ascending = r.URL.Query().Get("order") == "ASC"

		items, err := svc.ListCompleted(r.Context(), actor, q)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(items))
	}
}

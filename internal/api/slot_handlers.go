package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/homevisit/scheduling-service/internal/scheduling"
)

// parseInstant accepts RFC3339 or a bare "YYYY-MM-DDTHH:mm", both read as UTC.
func parseInstant(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02T15:04", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// parseOptionalUUID parses an optional id field; empty means absent.
func parseOptionalUUID(s string) (*uuid.UUID, bool) {
	if s == "" {
		return nil, true
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, false
	}
	return &id, true
}

func createSlotHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}

		var req CreateSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		start, ok := parseInstant(req.StartsAt)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_starts_at", "starts_at must be an RFC3339 instant")
			return
		}
		end, ok := parseInstant(req.EndsAt)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_ends_at", "ends_at must be an RFC3339 instant")
			return
		}
		doctorID, ok := parseOptionalUUID(req.DoctorID)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		slot, err := svc.OpenSlot(r.Context(), actor, doctorID, start, end)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toSlotResponse(*slot))
	}
}

func openDayHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}

		var req OpenDayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, ok := parseOptionalUUID(req.DoctorID)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		opening, err := svc.OpenDay(r.Context(), actor, doctorID, req.Date, req.StartTime, req.EndTime, req.DurationMin)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, OpenDayResponse{
			Generated: opening.Generated,
			Created:   opening.Created,
			Skipped:   opening.Skipped,
			Slots:     toSlotResponses(opening.Slots),
		})
	}
}

func listFreeSlotsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f scheduling.SlotFilter

		doctorID, ok := parseOptionalUUID(r.URL.Query().Get("doctor_id"))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		f.DoctorID = doctorID

		if v := r.URL.Query().Get("from"); v != "" {
			t, ok := parseInstant(v)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_from", "from must be an RFC3339 instant")
				return
			}
			f.From = &t
		}
		if v := r.URL.Query().Get("to"); v != "" {
			t, ok := parseInstant(v)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_to", "to must be an RFC3339 instant")
				return
			}
			f.To = &t
		}

		slots, err := svc.ListFreeSlots(r.Context(), f)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func deleteUnusedSlotsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}

		var req DeleteUnusedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		from, ok := parseInstant(req.From)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be an RFC3339 instant")
			return
		}
		to, ok := parseInstant(req.To)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_to", "to must be an RFC3339 instant")
			return
		}
		doctorID, ok := parseOptionalUUID(req.DoctorID)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		deleted, err := svc.RemoveUnbooked(r.Context(), actor, doctorID, from, to)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, DeletedResponse{Deleted: deleted})
	}
}

func deleteSlotHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a valid UUID")
			return
		}

		if err := svc.RemoveSlot(r.Context(), actor, id); err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, OkResponse{Ok: true})
	}
}

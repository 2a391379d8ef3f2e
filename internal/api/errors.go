package api

import (
	"errors"
	"net/http"

	"github.com/homevisit/scheduling-service/internal/scheduling"
)

// handleServiceError maps each scheduling error kind to a stable response.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, "invalid_window", err.Error())
	case errors.Is(err, scheduling.ErrInvalidDuration):
		writeError(w, http.StatusBadRequest, "invalid_duration", err.Error())
	case errors.Is(err, scheduling.ErrInvalidTimeFormat):
		writeError(w, http.StatusBadRequest, "invalid_time_format", err.Error())
	case errors.Is(err, scheduling.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
	case errors.Is(err, scheduling.ErrNoSlotsGenerated):
		writeError(w, http.StatusBadRequest, "no_slots_generated", err.Error())
	case errors.Is(err, scheduling.ErrInvalidPatient):
		writeError(w, http.StatusBadRequest, "invalid_patient", err.Error())
	case errors.Is(err, scheduling.ErrInvalidDoctor):
		writeError(w, http.StatusBadRequest, "invalid_doctor", err.Error())
	case errors.Is(err, scheduling.ErrMissingFilter):
		writeError(w, http.StatusBadRequest, "missing_filter", err.Error())
	case errors.Is(err, scheduling.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, scheduling.ErrSlotOverlap):
		writeError(w, http.StatusConflict, "slot_overlap", err.Error())
	case errors.Is(err, scheduling.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, scheduling.ErrSlotAlreadyBooked):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, scheduling.ErrSlotContended):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, scheduling.ErrIllegalTransition):
		writeError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, scheduling.ErrStateConflict):
		writeError(w, http.StatusConflict, "state_conflict", err.Error())
	case errors.Is(err, scheduling.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}

package scheduling

import "errors"

// Input validation failures. The caller can correct and resubmit.
var (
	ErrInvalidWindow     = errors.New("window end must be after start")
	ErrInvalidDuration   = errors.New("duration must be between 5 and 480 minutes")
	ErrInvalidTimeFormat = errors.New("time of day must be HH:mm")
	ErrInvalidDate       = errors.New("date must be YYYY-MM-DD")
	ErrNoSlotsGenerated  = errors.New("no slots generated for the given window")
)

// State conflicts. Surfaced to the caller as a rejected request, never
// retried by the core itself.
var (
	ErrSlotOverlap       = errors.New("slot overlaps an existing slot")
	ErrSlotNotFound      = errors.New("slot not found")
	ErrSlotUnavailable   = errors.New("slot does not exist or is already booked")
	ErrSlotAlreadyBooked = errors.New("slot is already booked")
	ErrSlotContended     = errors.New("slot is being booked by another request, retry")
)

// Authorization and appointment state errors.
var (
	ErrInvalidPatient      = errors.New("patient id missing or not a patient")
	ErrInvalidDoctor       = errors.New("doctor id missing or not a doctor")
	ErrForbidden           = errors.New("operation not allowed for this actor")
	ErrIllegalTransition   = errors.New("status transition not allowed")
	ErrStateConflict       = errors.New("appointment is not in the required status")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrMissingFilter       = errors.New("a patient or doctor filter is required")
)

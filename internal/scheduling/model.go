package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCancelled AppointmentStatus = "CANCELLED"
	StatusCompleted AppointmentStatus = "COMPLETED"
)

// ParseStatus validates a caller-supplied status value.
func ParseStatus(s string) (AppointmentStatus, bool) {
	switch AppointmentStatus(s) {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return AppointmentStatus(s), true
	default:
		return "", false
	}
}

// Slot is one unit of bookable doctor time. The interval never overlaps
// another slot of the same doctor, and the booked flag flips to true exactly
// once, when the claim transaction commits. It is never reverted, even when
// the appointment is later cancelled.
type Slot struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	StartsAt  time.Time
	EndsAt    time.Time
	IsBooked  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is the record of a patient claiming a slot. Interval and
// participants are copied from the slot at booking time and immutable after;
// only the status moves, through the transition table.
type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	StartsAt  time.Time
	EndsAt    time.Time
	Status    AppointmentStatus
	Notes     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Interval is a candidate (start, end) produced by the slot generator.
type Interval struct {
	Start time.Time
	End   time.Time
}

// DayOpening reports the outcome of opening a day of slots. The batch is not
// all-or-nothing: candidates overlapping an existing slot are skipped.
type DayOpening struct {
	Generated int
	Created   int
	Skipped   int
	Slots     []Slot
}

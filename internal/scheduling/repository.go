package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SlotFilter narrows free-slot listings. Nil fields match everything.
type SlotFilter struct {
	DoctorID *uuid.UUID
	From     *time.Time
	To       *time.Time
}

// AppointmentFilter narrows appointment listings. Nil fields match
// everything; results are ordered by start time, descending when Descending
// is set.
type AppointmentFilter struct {
	PatientID  *uuid.UUID
	DoctorID   *uuid.UUID
	Status     *AppointmentStatus
	From       *time.Time
	To         *time.Time
	Descending bool
}

// Repository contains all store interactions needed by the scheduling
// service. Every method is atomic: a failed call leaves the store exactly as
// it found it.
type Repository interface {
	// CreateSlot inserts a free slot after verifying no slot of the same
	// doctor intersects [start, end). Check and insert happen in one atomic
	// unit; concurrent calls cannot produce overlapping slots.
	CreateSlot(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (*Slot, error)

	GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error)

	// ListFreeSlots returns unbooked slots ordered by start time.
	ListFreeSlots(ctx context.Context, f SlotFilter) ([]Slot, error)

	// DeleteSlot removes an unbooked slot. A booked slot is refused with
	// ErrSlotAlreadyBooked.
	DeleteSlot(ctx context.Context, id uuid.UUID) error

	// DeleteUnbookedInRange removes unbooked slots of the doctor whose
	// interval lies within [from, to], returning the count removed.
	DeleteUnbookedInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) (int64, error)

	// ClaimSlot locks the slot row, verifies it is free, marks it booked and
	// creates the pending appointment, all in one transaction. A missing or
	// already booked slot fails with ErrSlotUnavailable and writes nothing.
	ClaimSlot(ctx context.Context, slotID, patientID uuid.UUID, notes *string) (*Appointment, error)

	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)

	ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error)

	// UpdateAppointmentStatus is a compare-and-set on (id, from) -> to.
	// When the appointment is no longer in the expected status it fails with
	// ErrStateConflict and mutates nothing.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)
}

// Locker serializes booking attempts per slot. The booking coordinator holds
// the lock for the whole claim transaction.
type Locker interface {
	WithSlotLock(ctx context.Context, slotID uuid.UUID, fn func(ctx context.Context) error) error
}

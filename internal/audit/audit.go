// Package audit records who did what to which entity. Emission is
// fire-and-forget: a failing or slow sink must never abort or delay the
// business operation that produced the record.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Actions emitted by the scheduling core.
const (
	ActionAppointmentCreate        = "APPOINTMENT_CREATE"
	ActionAppointmentStatusUpdate  = "APPOINTMENT_STATUS_UPDATE"
	ActionAppointmentListMy        = "APPOINTMENT_LIST_MY"
	ActionAppointmentListDoctor    = "APPOINTMENT_LIST_DOCTOR"
	ActionAppointmentListCompleted = "APPOINTMENT_LIST_COMPLETED"
	ActionSlotCreate               = "SLOT_CREATE"
	ActionSlotOpenDay              = "SLOT_OPEN_DAY"
	ActionSlotDelete               = "SLOT_DELETE"
	ActionSlotDeleteUnused         = "SLOT_DELETE_UNUSED"
)

// Entity types referenced by records.
const (
	EntityAppointment = "APPOINTMENT"
	EntitySlot        = "AVAILABILITY_SLOT"
	EntityUser        = "USER"
)

// Record is a non-sensitive trail entry. Metadata carries identifiers and
// enumerated values only, never notes or addresses.
type Record struct {
	ActorID    *uuid.UUID
	ActorRole  string
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	Metadata   map[string]any
	CreatedAt  time.Time
}

// Recorder accepts records without returning errors; delivery is best effort.
type Recorder interface {
	Record(ctx context.Context, rec Record)
}

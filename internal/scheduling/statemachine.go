package scheduling

import (
	"context"

	"github.com/google/uuid"

	"github.com/homevisit/scheduling-service/internal/audit"
	"github.com/homevisit/scheduling-service/internal/identity"
)

// ownerGuard names the ownership check a transition rule carries.
type ownerGuard int

const (
	guardNone ownerGuard = iota
	guardOwnPatient
	guardOwnDoctor
)

type transitionRule struct {
	target AppointmentStatus
	source AppointmentStatus
	guard  ownerGuard
}

// transitionTable is the full set of legal role-gated transitions. Pending
// and Confirmed are the only non-terminal states; anything outside this table
// is illegal regardless of source state.
var transitionTable = map[identity.Role][]transitionRule{
	identity.RolePatient: {
		{target: StatusCancelled, source: StatusPending, guard: guardOwnPatient},
	},
	identity.RoleStaff: {
		{target: StatusConfirmed, source: StatusPending},
		{target: StatusCancelled, source: StatusPending},
	},
	identity.RoleDoctor: {
		{target: StatusConfirmed, source: StatusPending, guard: guardOwnDoctor},
		{target: StatusCompleted, source: StatusConfirmed, guard: guardOwnDoctor},
		{target: StatusCancelled, source: StatusConfirmed, guard: guardOwnDoctor},
	},
}

// Transition moves an appointment to newStatus under the transition table.
// The persisted update is a compare-and-set on the required source status, so
// two concurrent attempts resolve into one success and one ErrStateConflict.
// Cancelling never reverts the slot's booked flag; a cancelled slot is not
// re-offered.
func (s *Service) Transition(ctx context.Context, actor identity.Actor, id uuid.UUID, newStatus AppointmentStatus) (*Appointment, error) {
	rules, ok := transitionTable[actor.Role]
	if !ok {
		return nil, ErrForbidden
	}

	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	var rule *transitionRule
	for i := range rules {
		if rules[i].target == newStatus {
			rule = &rules[i]
			break
		}
	}
	if rule == nil {
		return nil, ErrIllegalTransition
	}

	switch rule.guard {
	case guardOwnPatient:
		if appt.PatientID != actor.ID {
			return nil, ErrForbidden
		}
	case guardOwnDoctor:
		if appt.DoctorID != actor.ID {
			return nil, ErrForbidden
		}
	}

	if appt.Status != rule.source {
		return nil, ErrStateConflict
	}

	prev := appt.Status
	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, rule.source, newStatus)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, actor, audit.Record{
		Action:     audit.ActionAppointmentStatusUpdate,
		EntityType: audit.EntityAppointment,
		EntityID:   &id,
		Metadata: map[string]any{
			"from": string(prev),
			"to":   string(newStatus),
		},
	})

	return updated, nil
}

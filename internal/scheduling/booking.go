package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/homevisit/scheduling-service/internal/audit"
	"github.com/homevisit/scheduling-service/internal/identity"
	redisclient "github.com/homevisit/scheduling-service/internal/redis"
)

// Book claims a free slot and creates the Pending appointment as one atomic
// unit. The per-slot lock plus the claim transaction guarantee that of N
// concurrent attempts on the same slot exactly one succeeds; the rest observe
// ErrSlotUnavailable (or ErrSlotContended when shed at the lock).
func (s *Service) Book(ctx context.Context, actor identity.Actor, slotID uuid.UUID, patientID *uuid.UUID, notes *string) (*Appointment, error) {
	target, err := s.resolveTargetPatient(ctx, actor, patientID)
	if err != nil {
		return nil, err
	}

	var created *Appointment
	err = s.locker.WithSlotLock(ctx, slotID, func(lockCtx context.Context) error {
		appt, err := s.repo.ClaimSlot(lockCtx, slotID, target, notes)
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		// Losing the lock race and running out the lock TTL are both
		// transient: the caller retries, nothing was written.
		if errors.Is(err, redisclient.ErrLockNotAcquired) || errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrSlotContended
		}
		return nil, err
	}

	// Only after the claim committed. Notes never enter the trail.
	s.audit(ctx, actor, audit.Record{
		Action:     audit.ActionAppointmentCreate,
		EntityType: audit.EntityAppointment,
		EntityID:   &created.ID,
		Metadata: map[string]any{
			"slotId":    slotID.String(),
			"doctorId":  created.DoctorID.String(),
			"patientId": target.String(),
		},
	})

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("slot_id", slotID.String()).
		Msg("slot booked")

	return created, nil
}

// resolveTargetPatient applies the booking role rules: a patient books only
// for themself, staff must name an existing patient.
func (s *Service) resolveTargetPatient(ctx context.Context, actor identity.Actor, requested *uuid.UUID) (uuid.UUID, error) {
	switch actor.Role {
	case identity.RolePatient:
		if requested != nil && *requested != actor.ID {
			return uuid.Nil, ErrForbidden
		}
		return actor.ID, nil
	case identity.RoleStaff:
		if requested == nil {
			return uuid.Nil, ErrInvalidPatient
		}
		pat, err := s.users.FindUser(ctx, *requested)
		if err != nil {
			if errors.Is(err, identity.ErrUserNotFound) {
				return uuid.Nil, ErrInvalidPatient
			}
			return uuid.Nil, fmt.Errorf("resolve patient: %w", err)
		}
		if pat.Role != identity.RolePatient {
			return uuid.Nil, ErrInvalidPatient
		}
		return pat.ID, nil
	default:
		return uuid.Nil, ErrForbidden
	}
}

package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/homevisit/scheduling-service/internal/audit"
	"github.com/homevisit/scheduling-service/internal/identity"
)

// Service is the scheduling core: slot generation and management, race-free
// booking, and the appointment status state machine. Identity resolution and
// audit delivery are collaborators behind narrow interfaces.
type Service struct {
	repo    Repository
	users   identity.Repository
	locker  Locker
	auditor audit.Recorder
	log     zerolog.Logger
}

func NewService(repo Repository, users identity.Repository, locker Locker, auditor audit.Recorder, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		locker:  locker,
		auditor: auditor,
		log:     log.With().Str("component", "scheduling").Logger(),
	}
}

// resolveTargetDoctor applies the slot-management role rules: a doctor acts
// only for themself, staff must name an existing doctor.
func (s *Service) resolveTargetDoctor(ctx context.Context, actor identity.Actor, requested *uuid.UUID) (uuid.UUID, error) {
	switch actor.Role {
	case identity.RoleDoctor:
		if requested != nil && *requested != actor.ID {
			return uuid.Nil, ErrForbidden
		}
		return actor.ID, nil
	case identity.RoleStaff, identity.RoleAdmin:
		if requested == nil {
			return uuid.Nil, ErrInvalidDoctor
		}
		doc, err := s.users.FindUser(ctx, *requested)
		if err != nil {
			if errors.Is(err, identity.ErrUserNotFound) {
				return uuid.Nil, ErrInvalidDoctor
			}
			return uuid.Nil, fmt.Errorf("resolve doctor: %w", err)
		}
		if doc.Role != identity.RoleDoctor {
			return uuid.Nil, ErrInvalidDoctor
		}
		return doc.ID, nil
	default:
		return uuid.Nil, ErrForbidden
	}
}

// OpenSlot creates a single free slot.
func (s *Service) OpenSlot(ctx context.Context, actor identity.Actor, doctorID *uuid.UUID, start, end time.Time) (*Slot, error) {
	if !start.Before(end) {
		return nil, ErrInvalidWindow
	}

	target, err := s.resolveTargetDoctor(ctx, actor, doctorID)
	if err != nil {
		return nil, err
	}

	slot, err := s.repo.CreateSlot(ctx, target, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}

	s.audit(ctx, actor, audit.Record{
		Action:     audit.ActionSlotCreate,
		EntityType: audit.EntitySlot,
		EntityID:   &slot.ID,
		Metadata:   map[string]any{"doctorId": target.String()},
	})

	return slot, nil
}

// OpenDay generates the day's candidate intervals and inserts them one by
// one. Candidates overlapping an existing slot are skipped, not retried; the
// batch is not all-or-nothing.
func (s *Service) OpenDay(ctx context.Context, actor identity.Actor, doctorID *uuid.UUID, dateISO, startTime, endTime string, durationMin int) (*DayOpening, error) {
	target, err := s.resolveTargetDoctor(ctx, actor, doctorID)
	if err != nil {
		return nil, err
	}

	candidates, err := GenerateDailySlots(dateISO, startTime, endTime, durationMin)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoSlotsGenerated
	}

	opening := &DayOpening{Generated: len(candidates)}
	for _, c := range candidates {
		slot, err := s.repo.CreateSlot(ctx, target, c.Start, c.End)
		if err != nil {
			if errors.Is(err, ErrSlotOverlap) {
				opening.Skipped++
				continue
			}
			return nil, err
		}
		opening.Created++
		opening.Slots = append(opening.Slots, *slot)
	}

	s.audit(ctx, actor, audit.Record{
		Action:     audit.ActionSlotOpenDay,
		EntityType: audit.EntityUser,
		EntityID:   &target,
		Metadata: map[string]any{
			"date":    dateISO,
			"created": opening.Created,
			"skipped": opening.Skipped,
		},
	})

	return opening, nil
}

// ListFreeSlots returns unbooked slots; callers need no authentication.
func (s *Service) ListFreeSlots(ctx context.Context, f SlotFilter) ([]Slot, error) {
	return s.repo.ListFreeSlots(ctx, f)
}

// RemoveSlot deletes a single unbooked slot. A doctor may only remove their
// own slots; patients may not remove any.
func (s *Service) RemoveSlot(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	switch actor.Role {
	case identity.RoleDoctor, identity.RoleStaff, identity.RoleAdmin:
	default:
		return ErrForbidden
	}

	slot, err := s.repo.GetSlot(ctx, id)
	if err != nil {
		return err
	}
	if actor.Role == identity.RoleDoctor && slot.DoctorID != actor.ID {
		return ErrForbidden
	}

	if err := s.repo.DeleteSlot(ctx, id); err != nil {
		return err
	}

	s.audit(ctx, actor, audit.Record{
		Action:     audit.ActionSlotDelete,
		EntityType: audit.EntitySlot,
		EntityID:   &id,
		Metadata:   map[string]any{"doctorId": slot.DoctorID.String()},
	})

	return nil
}

// RemoveUnbooked bulk-deletes unbooked slots of one doctor inside [from, to].
func (s *Service) RemoveUnbooked(ctx context.Context, actor identity.Actor, doctorID *uuid.UUID, from, to time.Time) (int64, error) {
	if !from.Before(to) {
		return 0, ErrInvalidWindow
	}

	target, err := s.resolveTargetDoctor(ctx, actor, doctorID)
	if err != nil {
		return 0, err
	}

	deleted, err := s.repo.DeleteUnbookedInRange(ctx, target, from.UTC(), to.UTC())
	if err != nil {
		return 0, err
	}

	s.audit(ctx, actor, audit.Record{
		Action:     audit.ActionSlotDeleteUnused,
		EntityType: audit.EntityUser,
		EntityID:   &target,
		Metadata:   map[string]any{"deleted": deleted},
	})

	return deleted, nil
}

// audit emits a record with the actor attached. Delivery is best effort and
// never fails the calling operation.
func (s *Service) audit(ctx context.Context, actor identity.Actor, rec audit.Record) {
	actorID := actor.ID
	rec.ActorID = &actorID
	rec.ActorRole = string(actor.Role)
	rec.CreatedAt = time.Now().UTC()
	s.auditor.Record(ctx, rec)
}

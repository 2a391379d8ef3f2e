package scheduling

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/homevisit/scheduling-service/internal/audit"
	"github.com/homevisit/scheduling-service/internal/identity"
)

type testEnv struct {
	svc     *Service
	repo    *MemoryRepository
	users   *identity.MemoryRepository
	auditor *audit.MemoryRecorder
}

func newTestEnv() *testEnv {
	repo := NewMemoryRepository()
	users := identity.NewMemoryRepository()
	auditor := audit.NewMemoryRecorder()
	svc := NewService(repo, users, NewKeyLocker(), auditor, zerolog.Nop())
	return &testEnv{svc: svc, repo: repo, users: users, auditor: auditor}
}

func (e *testEnv) addActor(role identity.Role) identity.Actor {
	u := identity.User{
		ID:        uuid.New(),
		Name:      "test user",
		Role:      role,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	e.users.Put(u)
	return identity.Actor{ID: u.ID, Role: role}
}

func TestOpenSlotRejectsOverlap(t *testing.T) {
	env := newTestEnv()
	doctor := env.addActor(identity.RoleDoctor)
	ctx := context.Background()

	start := mustUTC(t, "2024-03-01T09:00:00Z")
	end := mustUTC(t, "2024-03-01T10:00:00Z")

	if _, err := env.svc.OpenSlot(ctx, doctor, nil, start, end); err != nil {
		t.Fatalf("first slot: %v", err)
	}

	// Straddles the existing interval.
	_, err := env.svc.OpenSlot(ctx, doctor, nil, start.Add(30*time.Minute), end.Add(30*time.Minute))
	if !errors.Is(err, ErrSlotOverlap) {
		t.Fatalf("got %v, want ErrSlotOverlap", err)
	}

	// Adjacent is fine: intervals are half-open.
	if _, err := env.svc.OpenSlot(ctx, doctor, nil, end, end.Add(time.Hour)); err != nil {
		t.Fatalf("adjacent slot: %v", err)
	}
}

func TestOpenSlotRoleRules(t *testing.T) {
	env := newTestEnv()
	doctor := env.addActor(identity.RoleDoctor)
	other := env.addActor(identity.RoleDoctor)
	staff := env.addActor(identity.RoleStaff)
	patient := env.addActor(identity.RolePatient)
	ctx := context.Background()

	start := mustUTC(t, "2024-03-01T09:00:00Z")
	end := start.Add(time.Hour)

	// A doctor cannot open slots for a colleague.
	if _, err := env.svc.OpenSlot(ctx, doctor, &other.ID, start, end); !errors.Is(err, ErrForbidden) {
		t.Errorf("doctor for other doctor: got %v, want ErrForbidden", err)
	}

	// Staff must name a doctor, and it must resolve to one.
	if _, err := env.svc.OpenSlot(ctx, staff, nil, start, end); !errors.Is(err, ErrInvalidDoctor) {
		t.Errorf("staff without doctor id: got %v, want ErrInvalidDoctor", err)
	}
	if _, err := env.svc.OpenSlot(ctx, staff, &patient.ID, start, end); !errors.Is(err, ErrInvalidDoctor) {
		t.Errorf("staff naming a patient: got %v, want ErrInvalidDoctor", err)
	}
	if _, err := env.svc.OpenSlot(ctx, staff, &doctor.ID, start, end); err != nil {
		t.Errorf("staff naming a doctor: %v", err)
	}

	// Patients never manage availability.
	if _, err := env.svc.OpenSlot(ctx, patient, nil, start.Add(2*time.Hour), end.Add(2*time.Hour)); !errors.Is(err, ErrForbidden) {
		t.Errorf("patient: got %v, want ErrForbidden", err)
	}
}

func TestOpenSlotInvalidWindow(t *testing.T) {
	env := newTestEnv()
	doctor := env.addActor(identity.RoleDoctor)

	start := mustUTC(t, "2024-03-01T10:00:00Z")
	_, err := env.svc.OpenSlot(context.Background(), doctor, nil, start, start)
	if !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("got %v, want ErrInvalidWindow", err)
	}
}

func TestOpenDaySkipsConflicts(t *testing.T) {
	env := newTestEnv()
	doctor := env.addActor(identity.RoleDoctor)
	ctx := context.Background()

	// Pre-existing slot collides with the second candidate.
	if _, err := env.svc.OpenSlot(ctx, doctor, nil,
		mustUTC(t, "2024-01-10T10:00:00Z"), mustUTC(t, "2024-01-10T11:00:00Z")); err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	opening, err := env.svc.OpenDay(ctx, doctor, nil, "2024-01-10", "09:00", "12:00", 60)
	if err != nil {
		t.Fatalf("open day: %v", err)
	}

	if opening.Generated != 3 || opening.Created != 2 || opening.Skipped != 1 {
		t.Fatalf("got generated=%d created=%d skipped=%d, want 3/2/1",
			opening.Generated, opening.Created, opening.Skipped)
	}
	if len(opening.Slots) != 2 {
		t.Fatalf("got %d created slots, want 2", len(opening.Slots))
	}

	if recs := env.auditor.ByAction(audit.ActionSlotOpenDay); len(recs) != 1 {
		t.Errorf("got %d SLOT_OPEN_DAY audit records, want 1", len(recs))
	}
}

func TestOpenDayEmptyWindow(t *testing.T) {
	env := newTestEnv()
	doctor := env.addActor(identity.RoleDoctor)

	// 30 minutes cannot fit a 60 minute visit.
	_, err := env.svc.OpenDay(context.Background(), doctor, nil, "2024-01-10", "09:00", "09:30", 60)
	if !errors.Is(err, ErrNoSlotsGenerated) {
		t.Fatalf("got %v, want ErrNoSlotsGenerated", err)
	}
}

func TestListFreeSlotsIdempotent(t *testing.T) {
	env := newTestEnv()
	doctor := env.addActor(identity.RoleDoctor)
	ctx := context.Background()

	if _, err := env.svc.OpenDay(ctx, doctor, nil, "2024-01-10", "09:00", "12:00", 60); err != nil {
		t.Fatalf("open day: %v", err)
	}

	first, err := env.svc.ListFreeSlots(ctx, SlotFilter{DoctorID: &doctor.ID})
	if err != nil {
		t.Fatalf("first list: %v", err)
	}
	second, err := env.svc.ListFreeSlots(ctx, SlotFilter{DoctorID: &doctor.ID})
	if err != nil {
		t.Fatalf("second list: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatal("two reads with no intervening writes returned different results")
	}
	for i := 1; i < len(first); i++ {
		if first[i].StartsAt.Before(first[i-1].StartsAt) {
			t.Fatal("slots are not ordered by start time")
		}
	}
}

func TestRemoveSlotRules(t *testing.T) {
	env := newTestEnv()
	doctor := env.addActor(identity.RoleDoctor)
	other := env.addActor(identity.RoleDoctor)
	patient := env.addActor(identity.RolePatient)
	ctx := context.Background()

	slot, err := env.svc.OpenSlot(ctx, doctor, nil,
		mustUTC(t, "2024-03-01T09:00:00Z"), mustUTC(t, "2024-03-01T10:00:00Z"))
	if err != nil {
		t.Fatalf("open slot: %v", err)
	}

	if err := env.svc.RemoveSlot(ctx, patient, slot.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("patient delete: got %v, want ErrForbidden", err)
	}
	if err := env.svc.RemoveSlot(ctx, other, slot.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("other doctor delete: got %v, want ErrForbidden", err)
	}

	// Booked slots can never be removed.
	if _, err := env.repo.ClaimSlot(ctx, slot.ID, patient.ID, nil); err != nil {
		t.Fatalf("claim slot: %v", err)
	}
	if err := env.svc.RemoveSlot(ctx, doctor, slot.ID); !errors.Is(err, ErrSlotAlreadyBooked) {
		t.Errorf("booked delete: got %v, want ErrSlotAlreadyBooked", err)
	}

	if err := env.svc.RemoveSlot(ctx, doctor, uuid.New()); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("missing delete: got %v, want ErrSlotNotFound", err)
	}
}

func TestRemoveUnbookedSparesBookedSlots(t *testing.T) {
	env := newTestEnv()
	doctor := env.addActor(identity.RoleDoctor)
	patient := env.addActor(identity.RolePatient)
	ctx := context.Background()

	opening, err := env.svc.OpenDay(ctx, doctor, nil, "2024-01-10", "09:00", "12:00", 60)
	if err != nil {
		t.Fatalf("open day: %v", err)
	}
	if _, err := env.repo.ClaimSlot(ctx, opening.Slots[0].ID, patient.ID, nil); err != nil {
		t.Fatalf("claim slot: %v", err)
	}

	deleted, err := env.svc.RemoveUnbooked(ctx, doctor, nil,
		mustUTC(t, "2024-01-10T00:00:00Z"), mustUTC(t, "2024-01-11T00:00:00Z"))
	if err != nil {
		t.Fatalf("remove unbooked: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("got %d deleted, want 2", deleted)
	}

	free, err := env.svc.ListFreeSlots(ctx, SlotFilter{DoctorID: &doctor.ID})
	if err != nil {
		t.Fatalf("list free: %v", err)
	}
	if len(free) != 0 {
		t.Fatalf("expected no free slots left, got %d", len(free))
	}

	// The claimed slot survives.
	if _, err := env.repo.GetSlot(ctx, opening.Slots[0].ID); err != nil {
		t.Fatalf("booked slot was deleted: %v", err)
	}
}

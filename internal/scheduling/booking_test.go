package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/homevisit/scheduling-service/internal/audit"
	"github.com/homevisit/scheduling-service/internal/identity"
)

func TestBookCreatesPendingAppointment(t *testing.T) {
	env := newTestEnv()
	doctor := env.addActor(identity.RoleDoctor)
	patient := env.addActor(identity.RolePatient)
	ctx := context.Background()

	start := mustUTC(t, "2024-03-01T09:00:00Z")
	slot, err := env.svc.OpenSlot(ctx, doctor, nil, start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("open slot: %v", err)
	}

	notes := "ring twice"
	appt, err := env.svc.Book(ctx, patient, slot.ID, nil, &notes)
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	if appt.Status != StatusPending {
		t.Errorf("got status %s, want PENDING", appt.Status)
	}
	if appt.PatientID != patient.ID || appt.DoctorID != doctor.ID {
		t.Errorf("appointment parties = %s/%s, want %s/%s",
			appt.PatientID, appt.DoctorID, patient.ID, doctor.ID)
	}
	if !appt.StartsAt.Equal(slot.StartsAt) || !appt.EndsAt.Equal(slot.EndsAt) {
		t.Errorf("appointment window does not match slot")
	}

	got, err := env.repo.GetSlot(ctx, slot.ID)
	if err != nil {
		t.Fatalf("get slot: %v", err)
	}
	if !got.IsBooked {
		t.Error("slot not marked booked after claim")
	}
}

func TestBookSameSlotTwice(t *testing.T) {
	env := newTestEnv()
	doctor := env.addActor(identity.RoleDoctor)
	first := env.addActor(identity.RolePatient)
	second := env.addActor(identity.RolePatient)
	ctx := context.Background()

	start := mustUTC(t, "2024-03-01T09:00:00Z")
	slot, err := env.svc.OpenSlot(ctx, doctor, nil, start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("open slot: %v", err)
	}

	if _, err := env.svc.Book(ctx, first, slot.ID, nil, nil); err != nil {
		t.Fatalf("first book: %v", err)
	}
	if _, err := env.svc.Book(ctx, second, slot.ID, nil, nil); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("second book: got %v, want ErrSlotUnavailable", err)
	}
}

func TestBookConcurrentSingleWinner(t *testing.T) {
	env := newTestEnv()
	doctor := env.addActor(identity.RoleDoctor)
	ctx := context.Background()

	start := mustUTC(t, "2024-03-01T09:00:00Z")
	slot, err := env.svc.OpenSlot(ctx, doctor, nil, start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("open slot: %v", err)
	}

	const contenders = 32
	patients := make([]identity.Actor, contenders)
	for i := range patients {
		patients[i] = env.addActor(identity.RolePatient)
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Book(ctx, patients[i], slot.ID, nil, nil)
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrSlotUnavailable):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Fatalf("got %d winners, want exactly 1", won)
	}
	if lost != contenders-1 {
		t.Fatalf("got %d losers, want %d", lost, contenders-1)
	}

	// The one success is the only appointment and the only audit record.
	appts, err := env.repo.ListAppointments(ctx, AppointmentFilter{DoctorID: &doctor.ID})
	if err != nil {
		t.Fatalf("list appointments: %v", err)
	}
	if len(appts) != 1 {
		t.Fatalf("got %d appointments, want 1", len(appts))
	}
	if recs := env.auditor.ByAction(audit.ActionAppointmentCreate); len(recs) != 1 {
		t.Fatalf("got %d APPOINTMENT_CREATE records, want 1", len(recs))
	}
}

// expiredLocker simulates a claim that outlived the lock TTL: the lock scope
// ends with a deadline error before the claim commits.
type expiredLocker struct{}

func (expiredLocker) WithSlotLock(_ context.Context, _ uuid.UUID, _ func(ctx context.Context) error) error {
	return context.DeadlineExceeded
}

func TestBookLockTimeoutIsRetryable(t *testing.T) {
	repo := NewMemoryRepository()
	users := identity.NewMemoryRepository()
	auditor := audit.NewMemoryRecorder()
	svc := NewService(repo, users, expiredLocker{}, auditor, zerolog.Nop())

	patient := identity.Actor{ID: uuid.New(), Role: identity.RolePatient}
	slot, err := repo.CreateSlot(context.Background(), uuid.New(),
		mustUTC(t, "2024-03-01T09:00:00Z"), mustUTC(t, "2024-03-01T10:00:00Z"))
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}

	_, err = svc.Book(context.Background(), patient, slot.ID, nil, nil)
	if !errors.Is(err, ErrSlotContended) {
		t.Fatalf("got %v, want ErrSlotContended", err)
	}

	// Nothing committed, nothing audited.
	got, err := repo.GetSlot(context.Background(), slot.ID)
	if err != nil {
		t.Fatalf("get slot: %v", err)
	}
	if got.IsBooked {
		t.Error("slot marked booked despite the timed-out claim")
	}
	if recs := auditor.ByAction(audit.ActionAppointmentCreate); len(recs) != 0 {
		t.Errorf("got %d APPOINTMENT_CREATE records, want 0", len(recs))
	}
}

func TestBookUnknownSlot(t *testing.T) {
	env := newTestEnv()
	patient := env.addActor(identity.RolePatient)

	_, err := env.svc.Book(context.Background(), patient, uuid.New(), nil, nil)
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("got %v, want ErrSlotUnavailable", err)
	}
}

func TestBookTargetPatientResolution(t *testing.T) {
	env := newTestEnv()
	doctor := env.addActor(identity.RoleDoctor)
	patient := env.addActor(identity.RolePatient)
	other := env.addActor(identity.RolePatient)
	staff := env.addActor(identity.RoleStaff)
	ctx := context.Background()

	start := mustUTC(t, "2024-03-01T09:00:00Z")
	slot, err := env.svc.OpenSlot(ctx, doctor, nil, start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("open slot: %v", err)
	}

	// A patient cannot book on someone else's behalf.
	if _, err := env.svc.Book(ctx, patient, slot.ID, &other.ID, nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("patient for other: got %v, want ErrForbidden", err)
	}

	// Staff must name a valid patient.
	if _, err := env.svc.Book(ctx, staff, slot.ID, nil, nil); !errors.Is(err, ErrInvalidPatient) {
		t.Errorf("staff without patient: got %v, want ErrInvalidPatient", err)
	}
	if _, err := env.svc.Book(ctx, staff, slot.ID, &doctor.ID, nil); !errors.Is(err, ErrInvalidPatient) {
		t.Errorf("staff naming a doctor: got %v, want ErrInvalidPatient", err)
	}
	missing := uuid.New()
	if _, err := env.svc.Book(ctx, staff, slot.ID, &missing, nil); !errors.Is(err, ErrInvalidPatient) {
		t.Errorf("staff naming a stranger: got %v, want ErrInvalidPatient", err)
	}

	// Doctors do not book at all.
	if _, err := env.svc.Book(ctx, doctor, slot.ID, &patient.ID, nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("doctor booking: got %v, want ErrForbidden", err)
	}

	// Staff booking for a real patient works, and the slot stays untouched by
	// all the failed attempts above.
	appt, err := env.svc.Book(ctx, staff, slot.ID, &patient.ID, nil)
	if err != nil {
		t.Fatalf("staff book: %v", err)
	}
	if appt.PatientID != patient.ID {
		t.Errorf("appointment patient = %s, want %s", appt.PatientID, patient.ID)
	}
}

func TestBookNoAuditOnFailure(t *testing.T) {
	env := newTestEnv()
	doctor := env.addActor(identity.RoleDoctor)
	patient := env.addActor(identity.RolePatient)
	ctx := context.Background()

	start := mustUTC(t, "2024-03-01T09:00:00Z")
	slot, err := env.svc.OpenSlot(ctx, doctor, nil, start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("open slot: %v", err)
	}
	if _, err := env.svc.Book(ctx, patient, slot.ID, nil, nil); err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := env.svc.Book(ctx, patient, slot.ID, nil, nil); err == nil {
		t.Fatal("expected second booking to fail")
	}

	if recs := env.auditor.ByAction(audit.ActionAppointmentCreate); len(recs) != 1 {
		t.Fatalf("got %d APPOINTMENT_CREATE records, want 1", len(recs))
	}
}

func TestBookAuditOmitsNotes(t *testing.T) {
	env := newTestEnv()
	doctor := env.addActor(identity.RoleDoctor)
	patient := env.addActor(identity.RolePatient)
	ctx := context.Background()

	start := mustUTC(t, "2024-03-01T09:00:00Z")
	slot, err := env.svc.OpenSlot(ctx, doctor, nil, start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("open slot: %v", err)
	}

	notes := "gate code 4711, second floor"
	if _, err := env.svc.Book(ctx, patient, slot.ID, nil, &notes); err != nil {
		t.Fatalf("book: %v", err)
	}

	recs := env.auditor.ByAction(audit.ActionAppointmentCreate)
	if len(recs) != 1 {
		t.Fatalf("got %d APPOINTMENT_CREATE records, want 1", len(recs))
	}
	for k, v := range recs[0].Metadata {
		if s, ok := v.(string); ok && s == notes {
			t.Errorf("metadata key %q leaks visit notes", k)
		}
	}
}

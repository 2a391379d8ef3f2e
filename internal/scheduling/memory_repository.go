package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository implements Repository on mutex-guarded maps with the same
// atomicity guarantees as the Postgres adapter. Tests and single-node runs
// use it; every mutating method holds the lock for its whole check-then-write
// sequence.
type MemoryRepository struct {
	mu           sync.Mutex
	slots        map[uuid.UUID]Slot
	appointments map[uuid.UUID]Appointment
	now          func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		slots:        make(map[uuid.UUID]Slot),
		appointments: make(map[uuid.UUID]Appointment),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

func (r *MemoryRepository) CreateSlot(_ context.Context, doctorID uuid.UUID, start, end time.Time) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.slots {
		if s.DoctorID == doctorID && overlaps(start, end, s.StartsAt, s.EndsAt) {
			return nil, ErrSlotOverlap
		}
	}

	now := r.now()
	slot := Slot{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		StartsAt:  start,
		EndsAt:    end,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.slots[slot.ID] = slot
	return &slot, nil
}

func (r *MemoryRepository) GetSlot(_ context.Context, id uuid.UUID) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) ListFreeSlots(_ context.Context, f SlotFilter) ([]Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Slot
	for _, s := range r.slots {
		if s.IsBooked {
			continue
		}
		if f.DoctorID != nil && s.DoctorID != *f.DoctorID {
			continue
		}
		if f.From != nil && s.StartsAt.Before(*f.From) {
			continue
		}
		if f.To != nil && s.EndsAt.After(*f.To) {
			continue
		}
		result = append(result, s)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartsAt.Before(result[j].StartsAt)
	})
	return result, nil
}

func (r *MemoryRepository) DeleteSlot(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	if s.IsBooked {
		return ErrSlotAlreadyBooked
	}
	delete(r.slots, id)
	return nil
}

func (r *MemoryRepository) DeleteUnbookedInRange(_ context.Context, doctorID uuid.UUID, from, to time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, s := range r.slots {
		if s.DoctorID != doctorID || s.IsBooked {
			continue
		}
		if s.StartsAt.Before(from) || s.EndsAt.After(to) {
			continue
		}
		delete(r.slots, id)
		deleted++
	}
	return deleted, nil
}

func (r *MemoryRepository) ClaimSlot(_ context.Context, slotID, patientID uuid.UUID, notes *string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[slotID]
	if !ok || s.IsBooked {
		return nil, ErrSlotUnavailable
	}

	now := r.now()
	s.IsBooked = true
	s.UpdatedAt = now
	r.slots[slotID] = s

	appt := Appointment{
		ID:        uuid.New(),
		PatientID: patientID,
		DoctorID:  s.DoctorID,
		StartsAt:  s.StartsAt,
		EndsAt:    s.EndsAt,
		Status:    StatusPending,
		Notes:     notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.appointments[appt.ID] = appt
	return &appt, nil
}

func (r *MemoryRepository) GetAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) ListAppointments(_ context.Context, f AppointmentFilter) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Appointment
	for _, a := range r.appointments {
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.DoctorID != nil && a.DoctorID != *f.DoctorID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.From != nil && a.StartsAt.Before(*f.From) {
			continue
		}
		if f.To != nil && a.StartsAt.After(*f.To) {
			continue
		}
		result = append(result, a)
	}

	sort.Slice(result, func(i, j int) bool {
		if f.Descending {
			return result[i].StartsAt.After(result[j].StartsAt)
		}
		return result[i].StartsAt.Before(result[j].StartsAt)
	})
	return result, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if a.Status != from {
		return nil, ErrStateConflict
	}

	a.Status = to
	a.UpdatedAt = r.now()
	r.appointments[id] = a
	return &a, nil
}

package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.StartsAt,
		&s.EndsAt,
		&s.IsBooked,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var notes *string
	var status string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.StartsAt,
		&a.EndsAt,
		&status,
		&notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Status = AppointmentStatus(status)
	a.Notes = notes
	return &a, nil
}

const slotColumns = "id, doctor_id, starts_at, ends_at, is_booked, created_at, updated_at"
const appointmentColumns = "id, patient_id, doctor_id, starts_at, ends_at, status, notes, created_at, updated_at"

// Interface methods

func (r *PgRepository) CreateSlot(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (*Slot, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create slot: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize slot creation per doctor so two transactions cannot both
	// pass the overlap check and insert intersecting intervals.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, doctorID); err != nil {
		return nil, fmt.Errorf("acquire doctor lock: %w", err)
	}

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM availability_slots
			WHERE doctor_id = $1 AND starts_at < $3 AND ends_at > $2
		)
	`, doctorID, start, end).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check slot overlap: %w", err)
	}
	if exists {
		return nil, ErrSlotOverlap
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO availability_slots (id, doctor_id, starts_at, ends_at, is_booked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, false, now(), now())
		RETURNING `+slotColumns+`
	`, uuid.New(), doctorID, start, end)

	slot, err := scanSlot(row)
	if err != nil {
		return nil, fmt.Errorf("insert slot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create slot: %w", err)
	}

	return slot, nil
}

func (r *PgRepository) GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) ListFreeSlots(ctx context.Context, f SlotFilter) ([]Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM availability_slots
		WHERE is_booked = false`
	args := make([]any, 0, 3)

	if f.DoctorID != nil {
		args = append(args, *f.DoctorID)
		query += fmt.Sprintf(" AND doctor_id = $%d", len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		query += fmt.Sprintf(" AND starts_at >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		query += fmt.Sprintf(" AND ends_at <= $%d", len(args))
	}
	query += " ORDER BY starts_at ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list free slots: %w", err)
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete slot: %w", err)
	}
	defer tx.Rollback(ctx)

	var booked bool
	err = tx.QueryRow(ctx, `
		SELECT is_booked FROM availability_slots WHERE id = $1 FOR UPDATE
	`, id).Scan(&booked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSlotNotFound
		}
		return fmt.Errorf("load slot for delete: %w", err)
	}
	if booked {
		return ErrSlotAlreadyBooked
	}

	if _, err := tx.Exec(ctx, `DELETE FROM availability_slots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete slot: %w", err)
	}

	return nil
}

func (r *PgRepository) DeleteUnbookedInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_slots
		WHERE doctor_id = $1
		  AND is_booked = false
		  AND starts_at >= $2
		  AND ends_at <= $3
	`, doctorID, from, to)
	if err != nil {
		return 0, fmt.Errorf("delete unbooked slots: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *PgRepository) ClaimSlot(ctx context.Context, slotID, patientID uuid.UUID, notes *string) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim slot: %w", err)
	}
	defer tx.Rollback(ctx)

	// Exclusive row lock for the lifetime of the claim. A concurrent claim
	// on the same slot blocks here until this transaction commits, then sees
	// is_booked = true.
	row := tx.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE id = $1
		FOR UPDATE
	`, slotID)

	slot, err := scanSlot(row)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("lock slot: %w", err)
	}
	if slot.IsBooked {
		return nil, ErrSlotUnavailable
	}

	if _, err := tx.Exec(ctx, `
		UPDATE availability_slots SET is_booked = true, updated_at = now() WHERE id = $1
	`, slotID); err != nil {
		return nil, fmt.Errorf("mark slot booked: %w", err)
	}

	apptRow := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, starts_at, ends_at, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING `+appointmentColumns+`
	`, uuid.New(), patientID, slot.DoctorID, slot.StartsAt, slot.EndsAt, StatusPending, notes)

	appt, err := scanAppointment(apptRow)
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim slot: %w", err)
	}

	return appt, nil
}

func (r *PgRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE true`
	args := make([]any, 0, 5)

	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		query += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}
	if f.DoctorID != nil {
		args = append(args, *f.DoctorID)
		query += fmt.Sprintf(" AND doctor_id = $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		query += fmt.Sprintf(" AND starts_at >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		query += fmt.Sprintf(" AND starts_at <= $%d", len(args))
	}

	if f.Descending {
		query += " ORDER BY starts_at DESC"
	} else {
		query += " ORDER BY starts_at ASC"
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, string(to), string(from))

	appt, err := scanAppointment(row)
	if err != nil {
		// The caller has already loaded the appointment; no matching row
		// means the status moved underneath us.
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrStateConflict
		}
		return nil, err
	}

	return appt, nil
}

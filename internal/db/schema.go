package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the schema. Statements are idempotent so restart is safe.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id         uuid PRIMARY KEY,
			name       text NOT NULL,
			email      text,
			role       text NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS availability_slots (
			id         uuid PRIMARY KEY,
			doctor_id  uuid NOT NULL REFERENCES users(id),
			starts_at  timestamptz NOT NULL,
			ends_at    timestamptz NOT NULL,
			is_booked  boolean NOT NULL DEFAULT false,
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz NOT NULL DEFAULT now(),
			CHECK (starts_at < ends_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_slots_doctor_starts
			ON availability_slots (doctor_id, starts_at)`,
		`CREATE TABLE IF NOT EXISTS appointments (
			id         uuid PRIMARY KEY,
			patient_id uuid NOT NULL REFERENCES users(id),
			doctor_id  uuid NOT NULL REFERENCES users(id),
			starts_at  timestamptz NOT NULL,
			ends_at    timestamptz NOT NULL,
			status     text NOT NULL,
			notes      text,
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz NOT NULL DEFAULT now(),
			CHECK (starts_at < ends_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_patient ON appointments (patient_id)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_doctor ON appointments (doctor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_status_starts ON appointments (status, starts_at)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id          bigserial PRIMARY KEY,
			actor_id    uuid,
			actor_role  text,
			action      text NOT NULL,
			entity_type text,
			entity_id   uuid,
			metadata    jsonb,
			created_at  timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_actor ON audit_logs (actor_id)`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	return nil
}

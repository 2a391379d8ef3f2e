package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homevisit/scheduling-service/internal/db"
	"github.com/homevisit/scheduling-service/internal/identity"
	"github.com/homevisit/scheduling-service/internal/scheduling"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("apply schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs, err := seedUsers(context.Background(), pool, identity.RoleDoctor, 20)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if _, err := seedUsers(context.Background(), pool, identity.RolePatient, 500); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if _, err := seedUsers(context.Background(), pool, identity.RoleStaff, 5); err != nil {
		log.Fatalf("seed staff: %v", err)
	}

	if err := seedOpenDays(context.Background(), pool, doctorIDs); err != nil {
		log.Fatalf("seed slots: %v", err)
	}

	log.Println("seed complete")
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, role identity.Role, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d users with role %s", count, role)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		email := gofakeit.Email()

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, name, email, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, email, string(role))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return ids, nil
}

// seedOpenDays opens the next five weekdays for every doctor, 09:00-17:00
// in 30 minute visits.
func seedOpenDays(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	log.Printf("opening agendas for %d doctors", len(doctorIDs))

	day := time.Now().UTC().AddDate(0, 0, 1)
	var dates []string
	for len(dates) < 5 {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, day.Format("2006-01-02"))
		}
		day = day.AddDate(0, 0, 1)
	}

	total := 0
	for _, doctorID := range doctorIDs {
		for _, date := range dates {
			candidates, err := scheduling.GenerateDailySlots(date, "09:00", "17:00", 30)
			if err != nil {
				return err
			}

			tx, err := pool.Begin(ctx)
			if err != nil {
				return err
			}

			for _, c := range candidates {
				_, err := tx.Exec(ctx, `
					INSERT INTO availability_slots (id, doctor_id, starts_at, ends_at, is_booked, created_at, updated_at)
					VALUES ($1, $2, $3, $4, false, now(), now())
				`, uuid.New(), doctorID, c.Start, c.End)
				if err != nil {
					_ = tx.Rollback(ctx)
					return err
				}
				total++
			}

			if err := tx.Commit(ctx); err != nil {
				return err
			}
		}
	}

	log.Printf("slots seeded: %d", total)
	return nil
}

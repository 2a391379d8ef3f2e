// simulate hammers the booking endpoint with concurrent patients competing
// for the same slots and verifies the single-winner property: every slot is
// booked at most once no matter how many requests race for it.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homevisit/scheduling-service/internal/db"
	"github.com/homevisit/scheduling-service/internal/identity"
)

type SimConfig struct {
	APIBaseURL  string
	Workers     int
	SlotLimit   int
	PostgresDSN string
	JWTSecret   string
}

type DataPool struct {
	Patients []uuid.UUID
	Slots    []uuid.UUID
}

type Metrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
	winners   map[uuid.UUID]int
}

func (m *Metrics) Record(slotID uuid.UUID, latency time.Duration, status int) {
	atomic.AddInt64(&m.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.Success, 1)
		m.mu.Lock()
		m.winners[slotID]++
		m.mu.Unlock()
	case status == http.StatusConflict:
		atomic.AddInt64(&m.Conflict, 1)
	default:
		atomic.AddInt64(&m.Error, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *Metrics) Percentile(p int) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func (m *Metrics) DoubleBookings() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []uuid.UUID
	for slotID, n := range m.winners {
		if n > 1 {
			out = append(out, slotID)
		}
	}
	return out
}

func main() {
	log.SetFlags(log.LstdFlags)

	cfg := loadSimConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	data, err := loadDataPool(context.Background(), pool, cfg.SlotLimit)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	if len(data.Patients) == 0 || len(data.Slots) == 0 {
		log.Fatal("no patients or free slots available, run cmd/seed first")
	}

	log.Printf("simulating: %d workers, %d slots, %d patients", cfg.Workers, len(data.Slots), len(data.Patients))

	metrics := &Metrics{winners: make(map[uuid.UUID]int)}
	client := &http.Client{Timeout: 10 * time.Second}

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			for _, slotID := range data.Slots {
				patientID := data.Patients[rng.Intn(len(data.Patients))]
				token, err := signPatientToken(cfg.JWTSecret, patientID)
				if err != nil {
					log.Printf("sign token: %v", err)
					continue
				}
				bookOnce(client, cfg.APIBaseURL, token, slotID, metrics)
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()

	fmt.Printf("\nrequests:  %d\n", metrics.Total)
	fmt.Printf("success:   %d\n", metrics.Success)
	fmt.Printf("conflict:  %d\n", metrics.Conflict)
	fmt.Printf("error:     %d\n", metrics.Error)
	fmt.Printf("p50:       %s\n", metrics.Percentile(50))
	fmt.Printf("p95:       %s\n", metrics.Percentile(95))

	if doubles := metrics.DoubleBookings(); len(doubles) > 0 {
		log.Fatalf("DOUBLE BOOKINGS DETECTED on %d slots: %v", len(doubles), doubles)
	}
	fmt.Println("no slot was booked more than once")
}

func loadSimConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:  getEnv("API_BASE_URL", "http://127.0.0.1:8080"),
		Workers:     getEnvInt("SIM_WORKERS", 20),
		SlotLimit:   getEnvInt("SIM_SLOT_LIMIT", 50),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	return cfg
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, slotLimit int) (*DataPool, error) {
	data := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM users WHERE role = $1 LIMIT 200`, string(identity.RolePatient))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		data.Patients = append(data.Patients, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slotRows, err := pool.Query(ctx, `
		SELECT id FROM availability_slots WHERE is_booked = false ORDER BY starts_at LIMIT $1
	`, slotLimit)
	if err != nil {
		return nil, err
	}
	defer slotRows.Close()
	for slotRows.Next() {
		var id uuid.UUID
		if err := slotRows.Scan(&id); err != nil {
			return nil, err
		}
		data.Slots = append(data.Slots, id)
	}
	if err := slotRows.Err(); err != nil {
		return nil, err
	}

	return data, nil
}

func signPatientToken(secret string, patientID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"sub":  patientID.String(),
		"role": string(identity.RolePatient),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func bookOnce(client *http.Client, baseURL, token string, slotID uuid.UUID, metrics *Metrics) {
	body, _ := json.Marshal(map[string]string{"slot_id": slotID.String()})

	req, err := http.NewRequest(http.MethodPost, baseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		log.Printf("build request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		metrics.Record(slotID, latency, 0)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	metrics.Record(slotID, latency, resp.StatusCode)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

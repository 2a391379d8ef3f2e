package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/homevisit/scheduling-service/internal/identity"
	"github.com/homevisit/scheduling-service/internal/scheduling"
)

type RouterConfig struct {
	Service  *scheduling.Service
	Verifier *identity.Verifier
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Logger   zerolog.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints stay outside auth so probes work without tokens.
	if cfg.PgPool != nil && cfg.Redis != nil {
		health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
		r.Get("/health/live", health.Liveness)
		r.Get("/health/ready", health.Readiness)
	}

	requireAuth := AuthMiddleware(cfg.Verifier, true)
	optionalAuth := AuthMiddleware(cfg.Verifier, false)

	r.Group(func(r chi.Router) {
		r.Use(optionalAuth)
		r.Get("/slots", listFreeSlotsHandler(cfg.Service))
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/slots", createSlotHandler(cfg.Service))
		r.Post("/slots/day-openings", openDayHandler(cfg.Service))
		// /slots/unused before /slots/{id} so "unused" never parses as an id.
		r.Delete("/slots/unused", deleteUnusedSlotsHandler(cfg.Service))
		r.Delete("/slots/{id}", deleteSlotHandler(cfg.Service))

		r.Post("/appointments", bookSlotHandler(cfg.Service))
		r.Get("/appointments/my", listMyAppointmentsHandler(cfg.Service))
		r.Get("/appointments/completed", listCompletedAppointmentsHandler(cfg.Service))
		r.Get("/appointments/doctor/{doctorID}", listDoctorAppointmentsHandler(cfg.Service))
		r.Patch("/appointments/{id}/status", transitionAppointmentHandler(cfg.Service))
	})

	return r
}

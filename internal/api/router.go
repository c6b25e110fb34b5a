package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
)

// AppointmentService is the part of *appointment.Service the API calls.
type AppointmentService interface {
	Availability(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]appointment.TimeOfDay, error)
	Practitioners(ctx context.Context) ([]appointment.Practitioner, error)
	List(ctx context.Context, caller appointment.Caller) ([]appointment.Appointment, error)
	Create(ctx context.Context, caller appointment.Caller, in appointment.CreateInput) (*appointment.Appointment, error)
	Update(ctx context.Context, caller appointment.Caller, id uuid.UUID, in appointment.UpdateInput) (*appointment.Appointment, error)
	Delete(ctx context.Context, caller appointment.Caller, id uuid.UUID) error
	Stats(ctx context.Context, caller appointment.Caller) (*appointment.Dashboard, error)
}

type RouterConfig struct {
	Service     AppointmentService
	Postgres    Pinger
	Redis       Pinger
	Log         *zap.Logger
	Env         string
	Version     string
	JWTSecret   []byte
	Location    *time.Location
	RateLimit   int
	CORSOrigins []string
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimit, time.Second))
	}

	// Health endpoints
	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	svc, log, loc := cfg.Service, cfg.Log, cfg.Location

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(cfg.JWTSecret))

		r.Get("/appointments", listAppointmentsHandler(svc, log))
		r.Post("/appointments", createAppointmentHandler(svc, loc, log))
		r.Patch("/appointments/{id}", updateAppointmentHandler(svc, loc, log))
		r.Delete("/appointments/{id}", deleteAppointmentHandler(svc, log))

		r.Get("/practitioners", listPractitionersHandler(svc, log))
		r.Get("/practitioners/{id}/availability", availabilityHandler(svc, log))

		r.Get("/stats/dashboard", dashboardHandler(svc, log))
	})

	return r
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/scheduling/internal/scheduling"
)

type RouterConfig struct {
	Service *scheduling.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
	Logger  zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(IdentityMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Slot resolution and availability management
	r.Get("/doctors/{doctorID}/slots", resolveSlotsHandler(cfg.Service))
	r.Get("/doctors/{doctorID}/templates", listTemplatesHandler(cfg.Service))
	r.Get("/doctors/{doctorID}/exceptions", listExceptionsHandler(cfg.Service))
	r.Post("/availability/templates", createTemplateHandler(cfg.Service))
	r.Delete("/availability/templates/{id}", removeTemplateHandler(cfg.Service))
	r.Post("/availability/exceptions", createExceptionHandler(cfg.Service))
	r.Delete("/availability/exceptions/{id}", removeExceptionHandler(cfg.Service))

	// Appointment lifecycle
	r.Post("/appointments", bookAppointmentHandler(cfg.Service))
	r.Get("/appointments", listAppointmentsHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/approve", approveAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/reject", rejectAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/reschedule", patientRescheduleHandler(cfg.Service))
	r.Post("/appointments/{id}/doctor-reschedule", doctorRescheduleHandler(cfg.Service))

	// Payment gateway callback
	r.Post("/payments/confirmed", paymentConfirmedHandler(cfg.Service))

	return r
}

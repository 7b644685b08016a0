package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dohanimedicare/medicare-platform/internal/appointments"
	"github.com/dohanimedicare/medicare-platform/internal/http/handlers"
	httpmiddleware "github.com/dohanimedicare/medicare-platform/internal/http/middleware"
	"github.com/dohanimedicare/medicare-platform/internal/messages"
	"github.com/dohanimedicare/medicare-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AppointmentsHandler *appointments.Handler
	MessagesHandler     *messages.Handler
	HealthHandler       *handlers.HealthHandler
	StatsHandler        *handlers.StatsHandler
	MetricsHandler      http.Handler
	RateLimiter         httpmiddleware.Limiter
	AdminAuthSecret     string
	CORSAllowedOrigins  []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	r.MethodNotAllowed(methodNotAllowed)
	r.NotFound(notFound)

	health := cfg.HealthHandler
	if health == nil {
		health = handlers.NewHealthHandler()
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", health.Health)

		// Public form submissions
		api.Group(func(public chi.Router) {
			if cfg.RateLimiter != nil {
				public.Use(httpmiddleware.RateLimit(cfg.RateLimiter, cfg.Logger))
			}
			if cfg.AppointmentsHandler != nil {
				public.Post("/book-appointment", cfg.AppointmentsHandler.Book)
				public.Post("/appointment-status-update", cfg.AppointmentsHandler.UpdateStatus)
			}
			if cfg.MessagesHandler != nil {
				public.Post("/submit-message", cfg.MessagesHandler.Submit)
				public.Post("/chatbot/notify", cfg.MessagesHandler.Chatbot)
			}
		})
	})

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Admin routes (protected by HS256 JWT)
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.StatsHandler != nil {
				admin.Get("/stats", cfg.StatsHandler.Stats)
			}
			if h := cfg.AppointmentsHandler; h != nil {
				admin.Route("/appointments", func(r chi.Router) {
					r.Get("/", h.List)
					r.Get("/export.csv", h.ExportCSV)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", h.Get)
						r.Post("/status", h.AdminUpdateStatus)
						r.Patch("/status", h.AdminUpdateStatus)
						r.Post("/reschedule", h.Reschedule)
					})
				})
			}
			if h := cfg.MessagesHandler; h != nil {
				admin.Route("/messages", func(r chi.Router) {
					r.Get("/", h.List)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", h.Get)
						r.Patch("/status", h.MarkStatus)
						r.Delete("/", h.Delete)
					})
				})
			}
		})
	}

	return r
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, `{"error":"Method not allowed"}`)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, `{"error":"Not found"}`)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body + "\n"))
}

package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"eventhub/internal/delivery/http/controllers"
	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"
)

// Controllers groups the main service's handlers.
type Controllers struct {
	Events   *controllers.EventController
	Requests *controllers.RequestController
	Admin    *controllers.AdminController
}

// NewRouter initializes the HTTP router with all main service routes
func NewRouter(c Controllers, verifier domain.TokenVerifier, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return auth(middleware.RequireRole(domain.RoleAdmin)(h))
	}

	// Public
	mux.HandleFunc("GET /events", c.Events.SearchEvents)
	mux.HandleFunc("GET /events/{eventID}", c.Events.GetEvent)

	// Owner
	mux.HandleFunc("POST /users/me/events", auth(c.Events.CreateEvent))
	mux.HandleFunc("GET /users/me/events", auth(c.Events.ListMyEvents))
	mux.HandleFunc("GET /users/me/events/{eventID}", auth(c.Events.GetMyEvent))
	mux.HandleFunc("PATCH /users/me/events/{eventID}", auth(c.Events.UpdateMyEvent))
	mux.HandleFunc("GET /users/me/events/{eventID}/requests", auth(c.Requests.ListEventRequests))
	mux.HandleFunc("PATCH /users/me/events/{eventID}/requests", auth(c.Requests.UpdateRequestStatuses))

	// Requester
	mux.HandleFunc("POST /users/me/requests", auth(c.Requests.CreateRequest))
	mux.HandleFunc("GET /users/me/requests", auth(c.Requests.ListMyRequests))
	mux.HandleFunc("PATCH /users/me/requests/{requestID}/cancel", auth(c.Requests.CancelRequest))

	// Admin
	mux.HandleFunc("GET /admin/events", admin(c.Admin.SearchEvents))
	mux.HandleFunc("PATCH /admin/events/{eventID}", admin(c.Admin.UpdateEvent))

	// Ops
	mux.HandleFunc("GET /health", health)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// NewStatsRouter builds the statistics service router.
func NewStatsRouter(stats *controllers.StatsController, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(func(next http.Handler) http.Handler { return middleware.LoggingMiddleware(logger, next) })

	r.Get("/health", health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/stats", stats.GetStats)
	r.Post("/hit", stats.RecordHit)
	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Package rest wires the HTTP surface: health probes, the catalog API and
// the operator admin endpoints.
package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"skillcourt-backend/application/ports"
	"skillcourt-backend/interfaces/http/rest/handlers"
	"skillcourt-backend/interfaces/http/rest/middleware"
	"skillcourt-backend/pkg/common"
)

// Router creates and configures the HTTP router
type Router struct {
	store   ports.DocumentStore
	admin   *handlers.AdminHandler
	catalog *handlers.CatalogHandler
	logger  *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	store ports.DocumentStore,
	admin *handlers.AdminHandler,
	catalog *handlers.CatalogHandler,
	logger *zap.Logger,
) *Router {
	return &Router{
		store:   store,
		admin:   admin,
		catalog: catalog,
		logger:  logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:3000", "https://*.skillcourt.app"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", rt.healthCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/sports", func(r chi.Router) {
			r.Get("/", rt.catalog.ListSports)
			r.Get("/{sportID}", rt.catalog.GetSport)
			r.Delete("/{sportID}", rt.catalog.DeleteSport)
			r.Get("/{sportID}/skills", rt.catalog.ListSkillsBySport)
		})
		r.Get("/skills/{skillID}", rt.catalog.GetSkill)

		r.Route("/admin", func(r chi.Router) {
			// Admin operations are heavyweight (full-store scans, reseeds),
			// so each client gets a small burst budget.
			r.Use(middleware.NewRateLimiter(30, 2*time.Second).Handler)
			r.Get("/status", rt.admin.Status)
			r.Get("/migrations", rt.admin.MigrationStatus)
			r.Post("/migrations/run", rt.admin.RunMigrations)
			r.Post("/migrations/rollback", rt.admin.Rollback)
			r.Post("/seed", rt.admin.Seed)
			r.Post("/reset", rt.admin.Reset)
		})
	})

	return router
}

// healthCheck reports store reachability with measured latency
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := rt.store.HealthCheck(r.Context())
	httpStatus := http.StatusOK
	if status.Status != ports.HealthStatusHealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	common.RespondJSON(w, httpStatus, status)
}

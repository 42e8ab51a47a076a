// Package handlers exposes the operator-facing admin endpoints over the
// bootstrap services.
package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"skillcourt-backend/application/migration"
	"skillcourt-backend/application/seed"
	"skillcourt-backend/application/services"
	"skillcourt-backend/pkg/common"
	apperrors "skillcourt-backend/pkg/errors"
)

// AdminHandler serves migration, seeding and reset operations
type AdminHandler struct {
	manager *services.DatabaseManager
	engine  *migration.Engine
	seeder  *seed.Loader
	logger  *zap.Logger
}

// NewAdminHandler creates the admin handler
func NewAdminHandler(
	manager *services.DatabaseManager,
	engine *migration.Engine,
	seeder *seed.Loader,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		manager: manager,
		engine:  engine,
		seeder:  seeder,
		logger:  logger,
	}
}

// MigrationStatus handles GET /api/v1/admin/migrations
func (h *AdminHandler) MigrationStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.Status(r.Context())
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, status)
}

// RunMigrations handles POST /api/v1/admin/migrations/run
func (h *AdminHandler) RunMigrations(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.RunPendingMigrations(r.Context())
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondMessage(w, http.StatusOK, report, "migrations applied")
}

type rollbackRequest struct {
	TargetVersion string `json:"targetVersion"`
}

// Rollback handles POST /api/v1/admin/migrations/rollback
func (h *AdminHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if err := common.ParseJSONBody(r, &req, 1<<16); err != nil {
		common.RespondError(w, apperrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if req.TargetVersion == "" {
		common.RespondError(w, apperrors.NewValidationError("targetVersion is required"))
		return
	}

	report, err := h.engine.RollbackToVersion(r.Context(), req.TargetVersion)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondMessage(w, http.StatusOK, report, "rollback completed")
}

type seedRequest struct {
	Force bool `json:"force"`
}

// Seed handles POST /api/v1/admin/seed
func (h *AdminHandler) Seed(w http.ResponseWriter, r *http.Request) {
	var req seedRequest
	if r.ContentLength > 0 {
		if err := common.ParseJSONBody(r, &req, 1<<16); err != nil {
			common.RespondError(w, apperrors.NewValidationError("invalid request body").WithCause(err))
			return
		}
	}

	result, err := h.seeder.SeedAll(r.Context(), seed.Options{Force: req.Force})
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondMessage(w, http.StatusOK, result, "seeding completed")
}

// Reset handles POST /api/v1/admin/reset
func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.logger.Warn("database reset requested", zap.String("remoteAddr", r.RemoteAddr))

	report, err := h.manager.Reset(r.Context())
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondMessage(w, http.StatusOK, report, "database reset completed")
}

// Status handles GET /api/v1/admin/status
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.manager.GetStatus(r.Context())
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, status)
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"skillcourt-backend/application/services"
	"skillcourt-backend/pkg/common"
)

// CatalogHandler serves the sports/skills catalog
type CatalogHandler struct {
	catalog *services.CatalogService
	logger  *zap.Logger
}

// NewCatalogHandler creates the catalog handler
func NewCatalogHandler(catalog *services.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// ListSports handles GET /api/v1/sports
func (h *CatalogHandler) ListSports(w http.ResponseWriter, r *http.Request) {
	sports, err := h.catalog.ListSports(r.Context())
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, sports)
}

// GetSport handles GET /api/v1/sports/{sportID}
func (h *CatalogHandler) GetSport(w http.ResponseWriter, r *http.Request) {
	sport, err := h.catalog.GetSport(r.Context(), chi.URLParam(r, "sportID"))
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, sport)
}

// DeleteSport handles DELETE /api/v1/sports/{sportID}
func (h *CatalogHandler) DeleteSport(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteSport(r.Context(), chi.URLParam(r, "sportID")); err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondMessage(w, http.StatusOK, nil, "sport deleted")
}

// ListSkillsBySport handles GET /api/v1/sports/{sportID}/skills
func (h *CatalogHandler) ListSkillsBySport(w http.ResponseWriter, r *http.Request) {
	skills, err := h.catalog.ListSkillsBySport(r.Context(), chi.URLParam(r, "sportID"))
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, skills)
}

// GetSkill handles GET /api/v1/skills/{skillID}
func (h *CatalogHandler) GetSkill(w http.ResponseWriter, r *http.Request) {
	skill, err := h.catalog.GetSkill(r.Context(), chi.URLParam(r, "skillID"))
	if err != nil {
		common.RespondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, skill)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/bizdir_api/internal/location"
	"github.com/GTDGit/bizdir_api/internal/utils"
)

// AdminHierarchyHandler lets operators force a hierarchy reload after
// catalog edits.
type AdminHierarchyHandler struct {
	cache *location.HierarchyCache
}

// NewAdminHierarchyHandler creates an AdminHierarchyHandler.
func NewAdminHierarchyHandler(cache *location.HierarchyCache) *AdminHierarchyHandler {
	return &AdminHierarchyHandler{cache: cache}
}

// Refresh handles POST /v1/admin/hierarchy/refresh
func (h *AdminHierarchyHandler) Refresh(c *gin.Context) {
	if err := h.cache.Refresh(c.Request.Context()); err != nil {
		log.Error().Err(err).Int("user_id", c.GetInt("user_id")).Msg("hierarchy refresh failed")
		utils.Error(c, http.StatusBadGateway, location.ErrHierarchyUnavailable.Error(), "Failed to refresh location hierarchy")
		return
	}
	log.Info().Int("user_id", c.GetInt("user_id")).Msg("hierarchy refreshed by admin")
	utils.Success(c, http.StatusOK, "Location hierarchy refreshed", h.cache.Stats())
}

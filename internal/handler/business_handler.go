package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/bizdir_api/internal/location"
	"github.com/GTDGit/bizdir_api/internal/models"
	"github.com/GTDGit/bizdir_api/internal/utils"
)

// BusinessHandler serves location-scoped business search.
type BusinessHandler struct {
	widener *location.Widener
}

// NewBusinessHandler creates a BusinessHandler.
func NewBusinessHandler(widener *location.Widener) *BusinessHandler {
	return &BusinessHandler{widener: widener}
}

// Search handles GET /v1/businesses?q=&category=&locationId=&locationType=&page=&limit=
// A location search with no results is widened to the owning region, then country.
func (h *BusinessHandler) Search(c *gin.Context) {
	page, err := intQuery(c, "page", 1, 1, 10000)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, utils.ErrInvalidPageParam.Error(), "page must be a positive integer")
		return
	}
	limit, err := intQuery(c, "limit", 20, 1, 100)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, utils.ErrInvalidPageParam.Error(), "limit must be between 1 and 100")
		return
	}

	q := models.BusinessQuery{
		Text:     c.Query("q"),
		Category: c.Query("category"),
		Page:     page,
		Limit:    limit,
	}

	var filter *models.LocationFilter
	if id := c.Query("locationId"); id != "" {
		locType := models.LocationType(c.DefaultQuery("locationType", string(models.LocationCity)))
		if !locType.Valid() {
			utils.Error(c, http.StatusBadRequest, utils.ErrInvalidLocation.Error(), "locationType must be one of city, region, country")
			return
		}
		filter = &models.LocationFilter{ID: id, Type: locType}
	}

	result, err := h.widener.SearchWithFallback(c.Request.Context(), q, filter)
	if err != nil {
		if errors.Is(err, location.ErrLocationNotFound) {
			utils.Error(c, http.StatusNotFound, location.ErrLocationNotFound.Error(), "Location not found")
			return
		}
		log.Error().Err(err).Msg("business search failed")
		utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to search businesses")
		return
	}

	utils.SuccessWithPagination(c, http.StatusOK, "Successfully searched businesses", result, page, limit, len(result.Results))
}

func intQuery(c *gin.Context, key string, def, lo, hi int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, strconv.ErrRange
	}
	return n, nil
}

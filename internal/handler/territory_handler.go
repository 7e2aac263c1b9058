package handler

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/GTDGit/bizdir_api/internal/location"
	"github.com/GTDGit/bizdir_api/internal/models"
)

// PlaceSearcher is the unified place search used by the search endpoint.
type PlaceSearcher interface {
	SearchPlaces(ctx context.Context, level models.LocationType, text string, limit int) ([]location.Place, error)
	SearchAll(ctx context.Context, text string, limit int) ([]location.Place, error)
}

// TerritoryHandler serves the cached location hierarchy and unified search.
type TerritoryHandler struct {
	cache    *location.HierarchyCache
	searcher PlaceSearcher
}

// NewTerritoryHandler creates a new TerritoryHandler
func NewTerritoryHandler(cache *location.HierarchyCache, searcher PlaceSearcher) *TerritoryHandler {
	return &TerritoryHandler{cache: cache, searcher: searcher}
}

// TerritoryResponse is the standard response structure for territory endpoints
type TerritoryResponse struct {
	Success bool                `json:"success"`
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Data    interface{}         `json:"data,omitempty"`
	Error   *TerritoryErrorInfo `json:"error,omitempty"`
	Meta    TerritoryMeta       `json:"meta"`
}

// TerritoryErrorInfo contains error details
type TerritoryErrorInfo struct {
	Type    string `json:"type"`
	Details string `json:"details"`
}

// TerritoryMeta contains metadata for the response
type TerritoryMeta struct {
	Total       int    `json:"total"`
	CountryID   string `json:"countryId,omitempty"`
	CountryName string `json:"countryName,omitempty"`
	RegionID    string `json:"regionId,omitempty"`
	RegionName  string `json:"regionName,omitempty"`
	Query       string `json:"query,omitempty"`
	RequestID   string `json:"requestId"`
	Timestamp   string `json:"timestamp"`
}

var territoryIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// GetCountries returns all countries
// GET /v1/locations/countries
func (h *TerritoryHandler) GetCountries(c *gin.Context) {
	countries, err := h.cache.Countries(c.Request.Context())
	if err != nil {
		h.errorResponse(c, http.StatusServiceUnavailable, "HIERARCHY_UNAVAILABLE", "Failed to retrieve countries")
		return
	}

	response := make([]models.CountryResponse, 0, len(countries))
	for _, co := range countries {
		response = append(response, models.CountryResponse{ID: co.ID, Name: co.Name, Slug: co.Slug})
	}

	h.success(c, "Successfully retrieved countries", response, TerritoryMeta{Total: len(response)})
}

// GetRegions returns all regions, or the regions of one country
// GET /v1/locations/regions?countryId=
func (h *TerritoryHandler) GetRegions(c *gin.Context) {
	ctx := c.Request.Context()
	countryID := c.Query("countryId")

	meta := TerritoryMeta{}
	if countryID != "" {
		if !territoryIDPattern.MatchString(countryID) {
			h.errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "countryId is malformed")
			return
		}
		country, err := h.cache.Place(ctx, models.LocationCountry, countryID)
		if err != nil {
			h.lookupError(c, err, "Country with id '"+countryID+"' does not exist")
			return
		}
		meta.CountryID = country.ID
		meta.CountryName = country.Name
	}

	regions, err := h.cache.Regions(ctx)
	if err != nil {
		h.errorResponse(c, http.StatusServiceUnavailable, "HIERARCHY_UNAVAILABLE", "Failed to retrieve regions")
		return
	}

	response := make([]models.RegionResponse, 0, len(regions))
	for _, r := range regions {
		if countryID != "" && r.CountryID != countryID {
			continue
		}
		response = append(response, models.RegionResponse{ID: r.ID, Name: r.Name, Slug: r.Slug, CountryID: r.CountryID})
	}

	meta.Total = len(response)
	h.success(c, "Successfully retrieved regions", response, meta)
}

// GetCities returns all cities, or the cities of one region
// GET /v1/locations/cities?regionId=
func (h *TerritoryHandler) GetCities(c *gin.Context) {
	ctx := c.Request.Context()
	regionID := c.Query("regionId")

	meta := TerritoryMeta{}
	if regionID != "" {
		if !territoryIDPattern.MatchString(regionID) {
			h.errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "regionId is malformed")
			return
		}
		region, err := h.cache.Place(ctx, models.LocationRegion, regionID)
		if err != nil {
			h.lookupError(c, err, "Region with id '"+regionID+"' does not exist")
			return
		}
		meta.RegionID = region.ID
		meta.RegionName = region.Name
	}

	cities, err := h.cache.Cities(ctx)
	if err != nil {
		h.errorResponse(c, http.StatusServiceUnavailable, "HIERARCHY_UNAVAILABLE", "Failed to retrieve cities")
		return
	}

	response := make([]models.CityResponse, 0, len(cities))
	for _, city := range cities {
		if regionID != "" && city.RegionID != regionID {
			continue
		}
		response = append(response, models.CityResponse{ID: city.ID, Name: city.Name, Slug: city.Slug, RegionID: city.RegionID})
	}

	meta.Total = len(response)
	h.success(c, "Successfully retrieved cities", response, meta)
}

// Search runs the unified place search
// GET /v1/locations/search?q=&type=&limit=
func (h *TerritoryHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()
	q := c.Query("q")
	if len(q) < 2 {
		h.errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "q must be at least 2 characters")
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 50 {
			h.errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and 50")
			return
		}
		limit = n
	}

	var (
		places []location.Place
		err    error
	)
	if raw := c.Query("type"); raw != "" {
		level := models.LocationType(raw)
		if !level.Valid() {
			h.errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "type must be one of city, region, country")
			return
		}
		places, err = h.searcher.SearchPlaces(ctx, level, q, limit)
	} else {
		places, err = h.searcher.SearchAll(ctx, q, limit)
	}
	if err != nil {
		h.errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to search locations")
		return
	}

	h.success(c, "Successfully searched locations", places, TerritoryMeta{Total: len(places), Query: q})
}

// Helper functions

func (h *TerritoryHandler) lookupError(c *gin.Context, err error, notFound string) {
	if errors.Is(err, location.ErrLocationNotFound) {
		h.errorResponse(c, http.StatusNotFound, "NOT_FOUND", notFound)
		return
	}
	h.errorResponse(c, http.StatusServiceUnavailable, "HIERARCHY_UNAVAILABLE", "Failed to retrieve location hierarchy")
}

func (h *TerritoryHandler) generateRequestID() string {
	return "req_loc_" + uuid.New().String()[:8]
}

func (h *TerritoryHandler) success(c *gin.Context, message string, data interface{}, meta TerritoryMeta) {
	meta.RequestID = h.generateRequestID()
	meta.Timestamp = time.Now().Format(time.RFC3339)
	c.JSON(http.StatusOK, TerritoryResponse{
		Success: true,
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
		Meta:    meta,
	})
}

func (h *TerritoryHandler) errorResponse(c *gin.Context, statusCode int, errorType, details string) {
	c.JSON(statusCode, TerritoryResponse{
		Success: false,
		Code:    statusCode,
		Message: details,
		Error: &TerritoryErrorInfo{
			Type:    errorType,
			Details: details,
		},
		Meta: TerritoryMeta{
			RequestID: h.generateRequestID(),
			Timestamp: time.Now().Format(time.RFC3339),
		},
	})
}

package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/bizdir_api/internal/location"
	"github.com/GTDGit/bizdir_api/internal/models"
	"github.com/GTDGit/bizdir_api/internal/utils"
)

// SelectionReader returns the last selection persisted for a session, or nil.
type SelectionReader interface {
	Get(ctx context.Context, sessionID string) (*location.SelectionEvent, error)
}

// LocationHandler drives location sessions: detection, device position
// reports and manual picks.
type LocationHandler struct {
	baseCtx      context.Context
	registry     *location.Registry
	orchestrator *location.Orchestrator
	places       location.PlaceResolver
	selections   SelectionReader
}

// NewLocationHandler creates a LocationHandler. Detection runs are bound to
// baseCtx rather than to the request that started them. selections may be nil.
func NewLocationHandler(baseCtx context.Context, registry *location.Registry, orchestrator *location.Orchestrator, places location.PlaceResolver, selections SelectionReader) *LocationHandler {
	return &LocationHandler{
		baseCtx:      baseCtx,
		registry:     registry,
		orchestrator: orchestrator,
		places:       places,
		selections:   selections,
	}
}

// PositionRequest is a device position report. Either both coordinates or an
// error code (1 permission denied, 2 position unavailable, 3 timeout) is set.
type PositionRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	ErrorCode int      `json:"errorCode"`
	Message   string   `json:"message"`
}

// SelectRequest is a manual location pick.
type SelectRequest struct {
	Type string `json:"type" binding:"required"`
	ID   string `json:"id" binding:"required"`
}

// CreateSession handles POST /v1/location/sessions
func (h *LocationHandler) CreateSession(c *gin.Context) {
	s := h.registry.Create()
	utils.Success(c, http.StatusCreated, "Location session created", s.Snapshot())
}

// GetSession handles GET /v1/location/sessions/:id
// A session no longer held in memory is answered from the selection store.
func (h *LocationHandler) GetSession(c *gin.Context) {
	id := c.Param("id")
	s, err := h.registry.Get(id)
	if err == nil {
		utils.Success(c, http.StatusOK, "Location session retrieved", s.Snapshot())
		return
	}

	if h.selections != nil {
		ev, serr := h.selections.Get(c.Request.Context(), id)
		if serr != nil {
			log.Warn().Err(serr).Str("session_id", id).Msg("failed to read stored selection")
		}
		if ev != nil {
			sel := ev.Selection
			utils.Success(c, http.StatusOK, "Location session restored", location.SessionSnapshot{
				ID:        id,
				State:     location.StateIdle,
				Locked:    ev.Locked,
				Selection: &sel,
				Source:    ev.Source,
			})
			return
		}
	}
	utils.Error(c, http.StatusNotFound, location.ErrSessionNotFound.Error(), "Location session not found")
}

// StartDetection handles POST /v1/location/sessions/:id/detect
// Returns 202 when a run started and 200 when the request was a no-op.
func (h *LocationHandler) StartDetection(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	err := h.orchestrator.Start(h.baseCtx, s, location.DetectRequest{ClientIP: c.ClientIP()}, func(out *location.Outcome, err error) {
		if err != nil && !errors.Is(err, location.ErrRunSuperseded) && !errors.Is(err, location.ErrSelectionLocked) {
			log.Error().Err(err).Str("session_id", s.ID).Msg("location detection failed")
		}
	})
	switch {
	case err == nil:
		utils.Success(c, http.StatusAccepted, "Location detection started", gin.H{"started": true, "session": s.Snapshot()})
	case errors.Is(err, location.ErrSelectionLocked):
		utils.Success(c, http.StatusOK, "Location already chosen by user", gin.H{"started": false, "reason": "locked", "session": s.Snapshot()})
	case errors.Is(err, location.ErrAlreadyStarted):
		utils.Success(c, http.StatusOK, "Location detection already ran", gin.H{"started": false, "reason": "already_started", "session": s.Snapshot()})
	default:
		utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start location detection")
	}
}

// CancelDetection handles DELETE /v1/location/sessions/:id/detect
func (h *LocationHandler) CancelDetection(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	cancelled := s.CancelDetection()
	utils.Success(c, http.StatusOK, "Location detection cancel processed", gin.H{"cancelled": cancelled})
}

// ReportPosition handles POST /v1/location/sessions/:id/position
func (h *LocationHandler) ReportPosition(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, utils.ErrInvalidPosition.Error(), "Invalid request body")
		return
	}

	var delivered bool
	switch {
	case req.ErrorCode != 0:
		code := location.PositionErrorCode(req.ErrorCode)
		if code < location.PositionPermissionDenied || code > location.PositionTimeout {
			utils.Error(c, http.StatusBadRequest, utils.ErrInvalidPosition.Error(), "errorCode must be 1, 2 or 3")
			return
		}
		delivered = s.Device.Fail(code, req.Message)
	case req.Latitude != nil && req.Longitude != nil:
		delivered = s.Device.Report(models.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude})
	default:
		utils.Error(c, http.StatusBadRequest, utils.ErrInvalidPosition.Error(), "latitude and longitude, or errorCode, are required")
		return
	}

	if !delivered {
		utils.Error(c, http.StatusConflict, "POSITION_ALREADY_REPORTED", "A position was already reported for this session")
		return
	}
	utils.Success(c, http.StatusAccepted, "Position received", gin.H{"accepted": true})
}

// Select handles POST /v1/location/sessions/:id/select
// A manual pick locks the session against detection for good.
func (h *LocationHandler) Select(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, utils.ErrInvalidLocation.Error(), "type and id are required")
		return
	}
	level := models.LocationType(req.Type)
	if !level.Valid() {
		utils.Error(c, http.StatusBadRequest, utils.ErrInvalidLocation.Error(), "type must be one of city, region, country")
		return
	}

	place, err := h.places.Place(c.Request.Context(), level, req.ID)
	if err != nil {
		if errors.Is(err, location.ErrLocationNotFound) {
			utils.Error(c, http.StatusNotFound, location.ErrLocationNotFound.Error(), "Location not found")
			return
		}
		log.Error().Err(err).Str("session_id", s.ID).Msg("failed to resolve manual location")
		utils.Error(c, http.StatusServiceUnavailable, location.ErrHierarchyUnavailable.Error(), "Location hierarchy unavailable")
		return
	}

	s.SelectManual(c.Request.Context(), place.Selection())
	utils.Success(c, http.StatusOK, "Location selected", s.Snapshot())
}

func (h *LocationHandler) session(c *gin.Context) (*location.Session, bool) {
	s, err := h.registry.Get(c.Param("id"))
	if err != nil {
		utils.Error(c, http.StatusNotFound, location.ErrSessionNotFound.Error(), "Location session not found")
		return nil, false
	}
	return s, true
}

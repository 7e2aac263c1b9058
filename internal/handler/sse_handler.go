package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/bizdir_api/internal/location"
	"github.com/GTDGit/bizdir_api/internal/sse"
	"github.com/GTDGit/bizdir_api/internal/utils"
)

// SSEHandler streams selection changes of one location session.
type SSEHandler struct {
	hub          *sse.Hub
	registry     *location.Registry
	pingInterval time.Duration
}

// NewSSEHandler creates a new SSEHandler.
func NewSSEHandler(hub *sse.Hub, registry *location.Registry) *SSEHandler {
	return &SSEHandler{hub: hub, registry: registry, pingInterval: 30 * time.Second}
}

// Stream handles GET /v1/location/sessions/:id/events
func (h *SSEHandler) Stream(c *gin.Context) {
	s, err := h.registry.Get(c.Param("id"))
	if err != nil {
		utils.Error(c, 404, location.ErrSessionNotFound.Error(), "Location session not found")
		return
	}

	clientID := "loc-" + uuid.New().String()[:8]

	// SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering

	client := h.hub.Register(clientID, s.ID)
	defer h.hub.Unregister(clientID)

	// Current state first, so a late subscriber does not miss a selection.
	c.SSEvent("session", s.Snapshot())
	c.Writer.Flush()

	log.Debug().Str("client_id", clientID).Str("session_id", s.ID).Msg("Location SSE stream started")

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case data, ok := <-client.Events:
			if !ok {
				return false
			}
			c.SSEvent(string(sse.EventLocationSelected), string(data))
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"timestamp": time.Now().Format(time.RFC3339)})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

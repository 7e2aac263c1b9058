package sse

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType defines the SSE event name.
type EventType string

const (
	EventLocationSelected EventType = "location.selected"
)

// SelectionMessage is the payload streamed to the clients of one session.
type SelectionMessage struct {
	Event     EventType `json:"event"`
	SessionID string    `json:"sessionId"`
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	RegionID  string    `json:"regionId,omitempty"`
	Source    string    `json:"source"`
	Locked    bool      `json:"locked"`
	Timestamp time.Time `json:"timestamp"`
}

// Client is one open event stream, bound to a location session.
type Client struct {
	ID        string
	SessionID string
	Events    chan []byte
}

// Hub manages SSE client connections and fans events out per session.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a new SSE hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a new client listening to sessionID.
func (h *Hub) Register(clientID, sessionID string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &Client{
		ID:        clientID,
		SessionID: sessionID,
		Events:    make(chan []byte, 16),
	}
	h.clients[clientID] = c
	log.Debug().Str("client_id", clientID).Str("session_id", sessionID).Int("total_clients", len(h.clients)).Msg("SSE client connected")
	return c
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		close(c.Events)
		delete(h.clients, clientID)
		log.Debug().Str("client_id", clientID).Int("total_clients", len(h.clients)).Msg("SSE client disconnected")
	}
}

// Broadcast sends msg to every client of its session.
// Non-blocking: drops the message if a client buffer is full.
func (h *Hub) Broadcast(msg *SelectionMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if c.SessionID != msg.SessionID {
			continue
		}
		select {
		case c.Events <- data:
		default:
			log.Warn().Str("client_id", c.ID).Msg("SSE client buffer full, dropping event")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

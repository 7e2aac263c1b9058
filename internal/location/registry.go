package location

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/bizdir_api/internal/metrics"
)

// Registry keeps the in-memory location sessions of this process.
type Registry struct {
	publisher SelectionPublisher
	idleTTL   time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a Registry whose sessions publish through publisher.
// Sessions untouched for longer than idleTTL are dropped by Sweep.
func NewRegistry(publisher SelectionPublisher, idleTTL time.Duration) *Registry {
	return &Registry{
		publisher: publisher,
		idleTTL:   idleTTL,
		sessions:  make(map[string]*Session),
	}
}

// Create registers a new session with a random id.
func (r *Registry) Create() *Session {
	s := NewSession(uuid.New().String(), r.publisher)

	r.mu.Lock()
	r.sessions[s.ID] = s
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	return s
}

// Get returns a session by id and marks it as recently used.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch()
	return s, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the registry's TTL, cancelling
// any detection still in flight. It returns the number removed.
func (r *Registry) Sweep(now time.Time) int {
	if r.idleTTL <= 0 {
		return 0
	}
	r.mu.Lock()
	var removed []*Session
	for id, s := range r.sessions {
		if now.Sub(s.idleSince()) > r.idleTTL {
			removed = append(removed, s)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, s := range removed {
		s.CancelDetection()
	}
	metrics.ActiveSessions.Set(float64(n))
	if len(removed) > 0 {
		log.Debug().Int("removed", len(removed)).Int("remaining", n).Msg("location sessions swept")
	}
	return len(removed)
}

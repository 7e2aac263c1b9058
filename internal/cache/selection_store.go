package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GTDGit/bizdir_api/internal/location"
)

// SelectionStore keeps the last published selection of every session.
// Key: location:selection:{sessionId}, TTL refreshed on each write.
type SelectionStore struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewSelectionStore creates a SelectionStore.
func NewSelectionStore(redis *RedisClient, ttl time.Duration) *SelectionStore {
	return &SelectionStore{redis: redis, ttl: ttl}
}

func (s *SelectionStore) key(sessionID string) string {
	return fmt.Sprintf("location:selection:%s", sessionID)
}

// PublishSelection implements location.SelectionPublisher.
func (s *SelectionStore) PublishSelection(ctx context.Context, ev location.SelectionEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal selection: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(ev.SessionID), raw, s.ttl); err != nil {
		return fmt.Errorf("failed to store selection: %w", err)
	}
	return nil
}

// Get returns the stored selection of a session, or nil when none exists.
func (s *SelectionStore) Get(ctx context.Context, sessionID string) (*location.SelectionEvent, error) {
	raw, err := s.redis.Get(ctx, s.key(sessionID))
	if errors.Is(err, ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ev location.SelectionEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal selection: %w", err)
	}
	return &ev, nil
}

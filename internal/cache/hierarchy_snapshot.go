package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// HierarchySnapshot shares fetched hierarchy lists between API instances so
// a cold process does not hit the catalog database.
// Keys: hierarchy:snapshot:{kind}, JSON encoded, expiring after ttl.
type HierarchySnapshot struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewHierarchySnapshot creates a snapshot store. A zero ttl keeps snapshots
// until the next save.
func NewHierarchySnapshot(redis *RedisClient, ttl time.Duration) *HierarchySnapshot {
	return &HierarchySnapshot{redis: redis, ttl: ttl}
}

func (s *HierarchySnapshot) key(kind string) string {
	return fmt.Sprintf("hierarchy:snapshot:%s", kind)
}

// Load decodes the snapshot for kind into dst. It reports false when there
// is none.
func (s *HierarchySnapshot) Load(ctx context.Context, kind string, dst any) (bool, error) {
	raw, err := s.redis.Get(ctx, s.key(kind))
	if errors.Is(err, ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s snapshot: %w", kind, err)
	}
	return true, nil
}

// Save stores v as the snapshot for kind.
func (s *HierarchySnapshot) Save(ctx context.Context, kind string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s snapshot: %w", kind, err)
	}
	return s.redis.Set(ctx, s.key(kind), raw, s.ttl)
}

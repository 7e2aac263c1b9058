package location

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/bizdir_api/internal/metrics"
	"github.com/GTDGit/bizdir_api/internal/models"
)

// UnifiedSearcher is the catalog's free-text place search scoped to one level.
// Results are returned in catalog order.
type UnifiedSearcher interface {
	SearchPlaces(ctx context.Context, level models.LocationType, text string, limit int) ([]Place, error)
}

// PlaceLister supplies the cached list for one level.
type PlaceLister interface {
	Places(ctx context.Context, level models.LocationType) ([]Place, error)
}

// Match strategies, in the order they are attempted.
const (
	StrategyExact     = "exact"
	StrategySubstring = "substring"
	StrategyRemote    = "remote"
	StrategyMiss      = "miss"
)

// MatchResult is a hit of the cascade together with the strategy that found it.
type MatchResult struct {
	Place    Place
	Strategy string
}

// Matcher resolves a candidate name at one hierarchy level by trying an exact
// match, then a substring match, then a remote unified search.
type Matcher struct {
	places PlaceLister
	remote UnifiedSearcher
}

// NewMatcher creates a Matcher. remote may be nil to disable the remote step.
func NewMatcher(places PlaceLister, remote UnifiedSearcher) *Matcher {
	return &Matcher{places: places, remote: remote}
}

// Match returns the first place at level matching name, or false.
// Local list failures and remote errors count as a miss for that step.
func (m *Matcher) Match(ctx context.Context, level models.LocationType, name string) (MatchResult, bool) {
	want := Canonicalize(name)
	if want == "" {
		return MatchResult{}, false
	}

	places, err := m.places.Places(ctx, level)
	if err != nil {
		log.Warn().Err(err).Str("level", string(level)).Msg("matcher: local list unavailable")
	}

	if p, ok := exactMatch(places, want); ok {
		return m.hit(level, p, StrategyExact), true
	}
	if p, ok := substringMatch(places, want); ok {
		return m.hit(level, p, StrategySubstring), true
	}
	if p, ok := m.remoteMatch(ctx, level, name); ok {
		return m.hit(level, p, StrategyRemote), true
	}

	metrics.MatcherResultTotal.WithLabelValues(string(level), StrategyMiss).Inc()
	log.Debug().Str("level", string(level)).Str("candidate", name).Msg("matcher: no match")
	return MatchResult{}, false
}

func (m *Matcher) hit(level models.LocationType, p Place, strategy string) MatchResult {
	metrics.MatcherResultTotal.WithLabelValues(string(level), strategy).Inc()
	log.Debug().
		Str("level", string(level)).
		Str("strategy", strategy).
		Str("id", p.ID).
		Str("name", p.Name).
		Msg("matcher: hit")
	return MatchResult{Place: p, Strategy: strategy}
}

func exactMatch(places []Place, want string) (Place, bool) {
	for _, p := range places {
		if Canonicalize(p.Name) == want || Canonicalize(p.Slug) == want {
			return p, true
		}
	}
	return Place{}, false
}

// substringMatch accepts containment in either direction with no length
// threshold, so very short names can match broadly.
func substringMatch(places []Place, want string) (Place, bool) {
	for _, p := range places {
		have := Canonicalize(p.Name)
		if have == "" {
			continue
		}
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return p, true
		}
	}
	return Place{}, false
}

func (m *Matcher) remoteMatch(ctx context.Context, level models.LocationType, raw string) (Place, bool) {
	if m.remote == nil {
		return Place{}, false
	}
	results, err := m.remote.SearchPlaces(ctx, level, raw, 1)
	if err != nil {
		log.Warn().Err(err).Str("level", string(level)).Str("candidate", raw).Msg("matcher: remote search failed")
		return Place{}, false
	}
	if len(results) == 0 {
		return Place{}, false
	}
	return results[0], true
}

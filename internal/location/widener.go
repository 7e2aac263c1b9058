package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/bizdir_api/internal/metrics"
	"github.com/GTDGit/bizdir_api/internal/models"
)

// BusinessSearcher executes one business search. A nil scope means no
// location filter.
type BusinessSearcher interface {
	SearchBusinesses(ctx context.Context, q models.BusinessQuery, scope *models.LocationFilter) ([]models.Business, error)
}

// PlaceResolver looks up a hierarchy node by level and id.
type PlaceResolver interface {
	Place(ctx context.Context, level models.LocationType, id string) (Place, error)
}

// Widener re-scopes zero-result location searches to the next broader level.
type Widener struct {
	searcher BusinessSearcher
	places   PlaceResolver
}

// NewWidener creates a Widener.
func NewWidener(searcher BusinessSearcher, places PlaceResolver) *Widener {
	return &Widener{searcher: searcher, places: places}
}

// SearchWithFallback runs q scoped to filter. When the scope has no matches
// at all it retries at the owning region, then the owning country, once per
// level. Partial result sets and empty later pages are returned as-is. When every level is empty the result carries no
// scopes and FallbackApplied is false.
func (w *Widener) SearchWithFallback(ctx context.Context, q models.BusinessQuery, filter *models.LocationFilter) (*models.BusinessSearchResult, error) {
	if filter == nil || filter.ID == "" {
		results, err := w.searcher.SearchBusinesses(ctx, q, nil)
		if err != nil {
			return nil, err
		}
		return &models.BusinessSearchResult{Results: nonNil(results)}, nil
	}
	if !filter.Type.Valid() {
		return nil, fmt.Errorf("location type %q: %w", filter.Type, ErrLocationNotFound)
	}

	requested, err := w.places.Place(ctx, filter.Type, filter.ID)
	if err != nil {
		return nil, err
	}

	current := requested
	for {
		scope := &models.LocationFilter{ID: current.ID, Type: current.Type}
		results, err := w.searcher.SearchBusinesses(ctx, q, scope)
		if err != nil {
			return nil, fmt.Errorf("search %s %s: %w", current.Type, current.ID, err)
		}
		found := len(results) > 0
		if !found && q.Page > 1 {
			// An empty later page is not an empty scope.
			found, err = w.hasMatches(ctx, q, scope)
			if err != nil {
				return nil, fmt.Errorf("search %s %s: %w", current.Type, current.ID, err)
			}
		}
		if found {
			res := &models.BusinessSearchResult{Results: nonNil(results)}
			if current.ID != requested.ID || current.Type != requested.Type {
				res.FallbackApplied = true
				res.Requested = requested.Scope()
				res.Applied = current.Scope()
				metrics.SearchFallbackTotal.WithLabelValues(string(requested.Type), string(current.Type)).Inc()
				log.Debug().
					Str("requested", requested.ID).
					Str("applied", current.ID).
					Str("applied_type", string(current.Type)).
					Msg("search widened")
			}
			return res, nil
		}

		parent, ok, err := w.parent(ctx, current)
		if err != nil {
			return nil, err
		}
		if !ok {
			if current.ID != requested.ID || current.Type != requested.Type {
				metrics.SearchFallbackTotal.WithLabelValues(string(requested.Type), "none").Inc()
			}
			return &models.BusinessSearchResult{Results: []models.Business{}}, nil
		}
		current = parent
	}
}

// hasMatches reports whether scope has at least one match for q on any page.
func (w *Widener) hasMatches(ctx context.Context, q models.BusinessQuery, scope *models.LocationFilter) (bool, error) {
	first := q
	first.Page = 1
	first.Limit = 1
	results, err := w.searcher.SearchBusinesses(ctx, first, scope)
	if err != nil {
		return false, err
	}
	return len(results) > 0, nil
}

// parent returns the owning node one level up. ok is false at country level
// or when the owner is not known to the hierarchy.
func (w *Widener) parent(ctx context.Context, p Place) (Place, bool, error) {
	broader, ok := p.Type.Broader()
	if !ok {
		return Place{}, false, nil
	}
	var id string
	switch broader {
	case models.LocationRegion:
		id = p.RegionID
	case models.LocationCountry:
		id = p.CountryID
	}
	if id == "" {
		return Place{}, false, nil
	}
	parent, err := w.places.Place(ctx, broader, id)
	if err != nil {
		if !errors.Is(err, ErrLocationNotFound) {
			return Place{}, false, err
		}
		log.Warn().Err(err).Str("type", string(broader)).Str("id", id).Msg("owning location not in hierarchy, widening stopped")
		return Place{}, false, nil
	}
	return parent, true, nil
}

func nonNil(b []models.Business) []models.Business {
	if b == nil {
		return []models.Business{}
	}
	return b
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/GTDGit/bizdir_api/internal/location"
	"github.com/GTDGit/bizdir_api/internal/models"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// TerritoryStore is the catalog search surface of the territory repository.
type TerritoryStore interface {
	SearchCountries(ctx context.Context, text string, limit int) ([]models.Country, error)
	SearchRegions(ctx context.Context, text string, limit int) ([]models.Region, error)
	SearchCities(ctx context.Context, text string, limit int) ([]models.City, error)
}

// TerritoryService runs the unified place search against the catalog.
type TerritoryService struct {
	store TerritoryStore
}

// NewTerritoryService constructs a TerritoryService.
func NewTerritoryService(store TerritoryStore) *TerritoryService {
	return &TerritoryService{store: store}
}

// SearchPlaces implements location.UnifiedSearcher. Results come back in
// catalog order, at most limit of them.
func (s *TerritoryService) SearchPlaces(ctx context.Context, level models.LocationType, text string, limit int) ([]location.Place, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []location.Place{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	switch level {
	case models.LocationCity:
		cities, err := s.store.SearchCities(ctx, text, limit)
		if err != nil {
			return nil, fmt.Errorf("search cities: %w", err)
		}
		out := make([]location.Place, 0, len(cities))
		for _, c := range cities {
			out = append(out, location.CityPlace(c))
		}
		return out, nil
	case models.LocationRegion:
		regions, err := s.store.SearchRegions(ctx, text, limit)
		if err != nil {
			return nil, fmt.Errorf("search regions: %w", err)
		}
		out := make([]location.Place, 0, len(regions))
		for _, r := range regions {
			out = append(out, location.RegionPlace(r))
		}
		return out, nil
	case models.LocationCountry:
		countries, err := s.store.SearchCountries(ctx, text, limit)
		if err != nil {
			return nil, fmt.Errorf("search countries: %w", err)
		}
		out := make([]location.Place, 0, len(countries))
		for _, c := range countries {
			out = append(out, location.CountryPlace(c))
		}
		return out, nil
	}
	return nil, fmt.Errorf("location type %q: %w", level, location.ErrLocationNotFound)
}

// SearchAll runs the unified search on every level, cities first.
func (s *TerritoryService) SearchAll(ctx context.Context, text string, limit int) ([]location.Place, error) {
	var out []location.Place
	for _, level := range []models.LocationType{models.LocationCity, models.LocationRegion, models.LocationCountry} {
		places, err := s.SearchPlaces(ctx, level, text, limit)
		if err != nil {
			return nil, err
		}
		out = append(out, places...)
	}
	if out == nil {
		out = []location.Place{}
	}
	return out, nil
}

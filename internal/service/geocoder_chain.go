package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/bizdir_api/internal/location"
	"github.com/GTDGit/bizdir_api/internal/metrics"
	"github.com/GTDGit/bizdir_api/internal/models"
)

// errEmptyCandidate marks a provider answer that carried no place names.
var errEmptyCandidate = errors.New("provider returned no place names")

// GeocodeProvider is one reverse-geocoding source in the chain.
type GeocodeProvider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Reverse extracts place-name candidates for the request.
	Reverse(ctx context.Context, req location.ReverseGeocodeRequest) (models.GeocodeCandidate, error)
}

// GeocoderChain tries providers in registration order and returns the first
// usable answer. Provider failures are logged, never returned individually.
type GeocoderChain struct {
	providers []GeocodeProvider
}

// NewGeocoderChain creates a chain; the first provider is the primary.
func NewGeocoderChain(providers ...GeocodeProvider) *GeocoderChain {
	return &GeocoderChain{providers: providers}
}

// Register appends a fallback provider.
func (c *GeocoderChain) Register(p GeocodeProvider) {
	c.providers = append(c.providers, p)
}

// Names returns the provider names in the order they are tried.
func (c *GeocoderChain) Names() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// ReverseGeocode implements location.ReverseGeocoder.
// Flow: primary -> if it fails, next -> ... -> error when all failed.
func (c *GeocoderChain) ReverseGeocode(ctx context.Context, req location.ReverseGeocodeRequest) (*location.GeocodeResult, error) {
	if len(c.providers) == 0 {
		return nil, location.ErrNoProviders
	}

	var lastErr error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		candidate, err := p.Reverse(ctx, req)
		metrics.GeocodeDurationMs.WithLabelValues(p.Name()).Observe(float64(time.Since(start).Milliseconds()))

		if err == nil && candidate.Empty() {
			err = errEmptyCandidate
		}
		if err != nil {
			metrics.GeocodeRequestsTotal.WithLabelValues(p.Name(), "error").Inc()
			log.Warn().
				Err(err).
				Str("provider", p.Name()).
				Msg("Reverse geocode failed, moving to next provider")
			lastErr = err
			continue
		}

		metrics.GeocodeRequestsTotal.WithLabelValues(p.Name(), "ok").Inc()
		log.Debug().
			Str("provider", p.Name()).
			Str("city", candidate.CityName).
			Str("region", candidate.RegionName).
			Str("country", candidate.CountryName).
			Msg("Reverse geocode succeeded")
		return &location.GeocodeResult{Candidate: candidate, Provider: p.Name()}, nil
	}

	return nil, fmt.Errorf("all geocode providers exhausted: %w", lastErr)
}

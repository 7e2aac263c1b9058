package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/bizdir_api/internal/metrics"
	"github.com/GTDGit/bizdir_api/internal/models"
)

// StatusUnresolved is the only failure message shown to users.
const StatusUnresolved = "Couldn't detect your location, please pick manually"

// Unresolved reasons recorded on the outcome and in metrics.
const (
	ReasonPermissionDenied = "permission_denied"
	ReasonUnavailable      = "position_unavailable"
	ReasonTimeout          = "timeout"
	ReasonGeocodeFailed    = "geocode_failed"
	ReasonNoCandidates     = "no_candidates"
	ReasonNoMatch          = "no_match"
	ReasonHierarchy        = "hierarchy_unavailable"
)

// ReverseGeocodeRequest carries everything a provider may key on.
type ReverseGeocodeRequest struct {
	Coordinates models.Coordinates
	ClientIP    string
}

// GeocodeResult is a provider's answer reduced to place-name candidates.
type GeocodeResult struct {
	Candidate models.GeocodeCandidate
	Provider  string
}

// ReverseGeocoder turns a position into place-name candidates.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, req ReverseGeocodeRequest) (*GeocodeResult, error)
}

// DetectRequest parameterises one detection run.
type DetectRequest struct {
	// Geolocator overrides the session's device position source.
	Geolocator Geolocator
	ClientIP   string
}

// Outcome describes how a detection run ended.
type Outcome struct {
	State     State                     `json:"state"`
	Selection *models.LocationSelection `json:"selection,omitempty"`
	Source    SelectionSource           `json:"source,omitempty"`
	Level     models.LocationType       `json:"level,omitempty"`
	Strategy  string                    `json:"strategy,omitempty"`
	Provider  string                    `json:"provider,omitempty"`
	Reason    string                    `json:"reason,omitempty"`
	Status    string                    `json:"status,omitempty"`
}

// OrchestratorConfig holds the tunables of detection.
type OrchestratorConfig struct {
	// HomeCity is the id or slug of the default city. Empty means the first
	// cached city.
	HomeCity string
	Position PositionOptions
}

// Orchestrator turns a device position into one LocationSelection per
// session: position, reverse geocode, then city, region and country matching
// in that order, falling back to a default city.
type Orchestrator struct {
	cache    *HierarchyCache
	matcher  *Matcher
	geocoder ReverseGeocoder
	cfg      OrchestratorConfig
}

// NewOrchestrator wires the detection pipeline.
func NewOrchestrator(cache *HierarchyCache, matcher *Matcher, geocoder ReverseGeocoder, cfg OrchestratorConfig) *Orchestrator {
	if cfg.Position.Timeout <= 0 {
		cfg.Position = DefaultPositionOptions()
	}
	return &Orchestrator{cache: cache, matcher: matcher, geocoder: geocoder, cfg: cfg}
}

// Detect runs detection for s at most once. It returns ErrSelectionLocked or
// ErrAlreadyStarted without touching the session when the run may not start,
// and ErrHierarchyUnavailable when not even the city list can be loaded.
func (o *Orchestrator) Detect(ctx context.Context, s *Session, req DetectRequest) (*Outcome, error) {
	runCtx, run, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	return o.execute(runCtx, s, run, req)
}

// Start evaluates the entry guard synchronously and, when the run may start,
// continues it in a new goroutine. done, if non-nil, receives the result.
func (o *Orchestrator) Start(ctx context.Context, s *Session, req DetectRequest, done func(*Outcome, error)) error {
	runCtx, run, err := s.begin(ctx)
	if err != nil {
		return err
	}
	go func() {
		out, err := o.execute(runCtx, s, run, req)
		if done != nil {
			done(out, err)
		}
	}()
	return nil
}

func (o *Orchestrator) execute(runCtx context.Context, s *Session, run uint64, req DetectRequest) (out *Outcome, err error) {
	defer s.abort(run)
	defer func() {
		if out != nil {
			s.recordOutcome(run, out)
		}
	}()

	logger := log.With().Str("session_id", s.ID).Logger()

	if err := s.advance(runCtx, run, StateFetching); err != nil {
		return nil, err
	}
	geolocator := req.Geolocator
	if geolocator == nil {
		geolocator = s.Device
	}
	coords, err := AcquirePosition(runCtx, geolocator, o.cfg.Position)
	if err != nil {
		reason := ReasonUnavailable
		var perr *PositionError
		if errors.As(err, &perr) {
			reason = positionReason(perr.Code)
			logger.Info().Int("code", int(perr.Code)).Str("reason", reason).Msg("device position not available")
		}
		return o.fallback(runCtx, s, run, reason, logger)
	}

	if err := s.advance(runCtx, run, StateGeocoding); err != nil {
		return nil, err
	}
	res, err := o.geocoder.ReverseGeocode(runCtx, ReverseGeocodeRequest{Coordinates: coords, ClientIP: req.ClientIP})
	if err != nil {
		logger.Warn().Err(err).Msg("reverse geocoding failed on every provider")
		return o.fallback(runCtx, s, run, ReasonGeocodeFailed, logger)
	}
	if res.Candidate.Empty() {
		logger.Info().Str("provider", res.Provider).Msg("reverse geocoding returned no place names")
		return o.fallback(runCtx, s, run, ReasonNoCandidates, logger)
	}

	if err := s.advance(runCtx, run, StateMatching); err != nil {
		return nil, err
	}
	if _, err := o.cache.Cities(runCtx); err != nil {
		return o.hierarchyFailure(runCtx, s, run, err, logger)
	}

	steps := []struct {
		level models.LocationType
		name  string
	}{
		{models.LocationCity, res.Candidate.CityName},
		{models.LocationRegion, res.Candidate.RegionName},
		{models.LocationCountry, res.Candidate.CountryName},
	}
	for _, step := range steps {
		if step.name == "" {
			continue
		}
		if err := runCtx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRunSuperseded, err)
		}
		m, ok := o.matcher.Match(runCtx, step.level, step.name)
		if !ok {
			continue
		}
		sel := m.Place.Selection()
		if err := s.commit(runCtx, run, StateResolved, &sel, SourceDetected); err != nil {
			return nil, err
		}
		metrics.ResolutionsTotal.WithLabelValues(string(StateResolved), string(step.level)).Inc()
		logger.Info().
			Str("level", string(step.level)).
			Str("strategy", m.Strategy).
			Str("provider", res.Provider).
			Str("location_id", sel.ID).
			Msg("location resolved")
		return &Outcome{
			State:     StateResolved,
			Selection: &sel,
			Source:    SourceDetected,
			Level:     step.level,
			Strategy:  m.Strategy,
			Provider:  res.Provider,
		}, nil
	}

	return o.fallback(runCtx, s, run, ReasonNoMatch, logger)
}

// fallback ends the run unresolved while still selecting the default city.
func (o *Orchestrator) fallback(ctx context.Context, s *Session, run uint64, reason string, logger zerolog.Logger) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRunSuperseded, err)
	}
	city, err := o.defaultCity(ctx)
	if err != nil {
		return o.hierarchyFailure(ctx, s, run, err, logger)
	}
	sel := city.Selection()
	if err := s.commit(ctx, run, StateUnresolved, &sel, SourceDefault); err != nil {
		return nil, err
	}
	metrics.ResolutionsTotal.WithLabelValues(string(StateUnresolved), reason).Inc()
	logger.Info().Str("reason", reason).Str("location_id", sel.ID).Msg("location unresolved, default city applied")
	return &Outcome{
		State:     StateUnresolved,
		Selection: &sel,
		Source:    SourceDefault,
		Reason:    reason,
		Status:    StatusUnresolved,
	}, nil
}

func (o *Orchestrator) hierarchyFailure(ctx context.Context, s *Session, run uint64, cause error, logger zerolog.Logger) (*Outcome, error) {
	if err := s.commit(ctx, run, StateUnresolved, nil, ""); err != nil {
		return nil, err
	}
	metrics.ResolutionsTotal.WithLabelValues(string(StateUnresolved), ReasonHierarchy).Inc()
	logger.Error().Err(cause).Msg("location hierarchy unavailable, no selection written")
	return &Outcome{
		State:  StateUnresolved,
		Reason: ReasonHierarchy,
		Status: StatusUnresolved,
	}, fmt.Errorf("%w: %v", ErrHierarchyUnavailable, cause)
}

// defaultCity picks the configured home city, else the first cached city.
func (o *Orchestrator) defaultCity(ctx context.Context) (Place, error) {
	cities, err := o.cache.Cities(ctx)
	if err != nil {
		return Place{}, err
	}
	if len(cities) == 0 {
		return Place{}, errors.New("city list is empty")
	}
	if o.cfg.HomeCity != "" {
		home := Canonicalize(o.cfg.HomeCity)
		for _, c := range cities {
			if c.ID == o.cfg.HomeCity || Canonicalize(c.Slug) == home {
				return CityPlace(c), nil
			}
		}
		log.Warn().Str("home_city", o.cfg.HomeCity).Msg("configured home city not in catalog, using first city")
	}
	return CityPlace(cities[0]), nil
}

func positionReason(code PositionErrorCode) string {
	switch code {
	case PositionPermissionDenied:
		return ReasonPermissionDenied
	case PositionTimeout:
		return ReasonTimeout
	}
	return ReasonUnavailable
}

package location

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/GTDGit/bizdir_api/internal/models"
)

func testCountries() []models.Country {
	return []models.Country{
		{ID: "country-idn", Name: "Indonesia", Slug: "indonesia"},
		{ID: "country-mys", Name: "Malaysia", Slug: "malaysia"},
	}
}

func testRegions() []models.Region {
	return []models.Region{
		{ID: "region-jkt", Name: "DKI Jakarta", Slug: "dki-jakarta", CountryID: "country-idn"},
		{ID: "region-abc", Name: "Jawa Barat", Slug: "jawa-barat", CountryID: "country-idn"},
		{ID: "region-sgr", Name: "Selangor", Slug: "selangor", CountryID: "country-mys"},
	}
}

func testCity(id, name, slug, regionID string) models.City {
	var region models.Region
	for _, r := range testRegions() {
		if r.ID == regionID {
			region = r
		}
	}
	return models.City{
		ID:       id,
		Name:     name,
		Slug:     slug,
		RegionID: regionID,
		Region:   &models.RegionRef{Region: region},
	}
}

func testCities() []models.City {
	return []models.City{
		testCity("city-jks", "Jakarta Selatan", "jakarta-selatan", "region-jkt"),
		testCity("city-jku", "Jakarta Utara", "jakarta-utara", "region-jkt"),
		testCity("city-xyz", "Bandung", "bandung", "region-abc"),
		testCity("city-def", "Bogor", "bogor", "region-abc"),
	}
}

// fakeCatalog serves fixed lists and counts how often each one is fetched.
type fakeCatalog struct {
	mu        sync.Mutex
	countries []models.Country
	regions   []models.Region
	cities    []models.City
	err       error
	gate      chan struct{}

	countryCalls atomic.Int32
	regionCalls  atomic.Int32
	cityCalls    atomic.Int32
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{countries: testCountries(), regions: testRegions(), cities: testCities()}
}

func (f *fakeCatalog) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeCatalog) setCities(cities []models.City) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cities = cities
}

func (f *fakeCatalog) wait(ctx context.Context) error {
	if f.gate == nil {
		return nil
	}
	select {
	case <-f.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeCatalog) ListCountries(ctx context.Context) ([]models.Country, error) {
	f.countryCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Country(nil), f.countries...), nil
}

func (f *fakeCatalog) ListRegions(ctx context.Context) ([]models.Region, error) {
	f.regionCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Region(nil), f.regions...), nil
}

func (f *fakeCatalog) ListCities(ctx context.Context) ([]models.City, error) {
	f.cityCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.City(nil), f.cities...), nil
}

// memorySnapshots is an in-process SnapshotStore.
type memorySnapshots struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{data: make(map[string][]byte)}
}

func (m *memorySnapshots) Load(_ context.Context, kind string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[kind]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *memorySnapshots) Save(_ context.Context, kind string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[kind] = raw
	return nil
}

// recordingPublisher keeps every published selection event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []SelectionEvent
	err    error
}

func (p *recordingPublisher) PublishSelection(_ context.Context, ev SelectionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Events() []SelectionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SelectionEvent(nil), p.events...)
}

// fakeGeocoder answers every request with the same candidate or error.
type fakeGeocoder struct {
	candidate models.GeocodeCandidate
	err       error
	block     bool
	entered   chan struct{}

	mu       sync.Mutex
	requests []ReverseGeocodeRequest
	calls    atomic.Int32
}

func (g *fakeGeocoder) ReverseGeocode(ctx context.Context, req ReverseGeocodeRequest) (*GeocodeResult, error) {
	g.calls.Add(1)
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if g.entered != nil {
		close(g.entered)
	}
	if g.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	return &GeocodeResult{Candidate: g.candidate, Provider: "fake"}, nil
}

// fakeSearcher is a UnifiedSearcher with canned results per level.
type fakeSearcher struct {
	results map[models.LocationType][]Place
	err     error

	mu    sync.Mutex
	calls []string
}

func (s *fakeSearcher) SearchPlaces(_ context.Context, level models.LocationType, text string, limit int) ([]Place, error) {
	s.mu.Lock()
	s.calls = append(s.calls, string(level)+":"+text)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	res := s.results[level]
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func fixedPosition(lat, lng float64) Geolocator {
	return GeolocatorFunc(func(context.Context, PositionOptions) (models.Coordinates, error) {
		return models.Coordinates{Latitude: lat, Longitude: lng}, nil
	})
}

func failingPosition(code PositionErrorCode) Geolocator {
	return GeolocatorFunc(func(context.Context, PositionOptions) (models.Coordinates, error) {
		return models.Coordinates{}, &PositionError{Code: code, Message: "test"}
	})
}

func blockingPosition() Geolocator {
	return GeolocatorFunc(func(ctx context.Context, _ PositionOptions) (models.Coordinates, error) {
		<-ctx.Done()
		return models.Coordinates{}, ctx.Err()
	})
}

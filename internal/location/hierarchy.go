package location

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/GTDGit/bizdir_api/internal/metrics"
	"github.com/GTDGit/bizdir_api/internal/models"
)

// Catalog is the backend source of the administrative hierarchy.
type Catalog interface {
	ListCountries(ctx context.Context) ([]models.Country, error)
	ListRegions(ctx context.Context) ([]models.Region, error)
	ListCities(ctx context.Context) ([]models.City, error)
}

// SnapshotStore is an optional second-level store shared between processes.
// Load reports false when no snapshot exists for kind.
type SnapshotStore interface {
	Load(ctx context.Context, kind string, dst any) (bool, error)
	Save(ctx context.Context, kind string, v any) error
}

const (
	kindCountries = "countries"
	kindRegions   = "regions"
	kindCities    = "cities"

	defaultFetchTimeout = 30 * time.Second
)

// snapshot is the stored form of one list, stamped with the time it was
// read from the catalog.
type snapshot[T any] struct {
	FetchedAt time.Time `json:"fetchedAt"`
	Items     []T       `json:"items"`
}

type slot[T any] struct {
	items     []T
	index     map[string]int
	fetchedAt time.Time
	loaded    bool
}

// HierarchyCache mirrors the catalog's countries, regions and cities.
// Lists are fetched on first access, shared by all readers and only ever
// replaced wholesale. Concurrent misses for the same kind share one fetch.
// Returned slices must be treated as read-only.
type HierarchyCache struct {
	catalog Catalog
	store   SnapshotStore
	now     func() time.Time
	maxAge  time.Duration
	timeout time.Duration

	group singleflight.Group

	mu        sync.RWMutex
	countries slot[models.Country]
	regions   slot[models.Region]
	cities    slot[models.City]
}

// HierarchyOption configures a HierarchyCache.
type HierarchyOption func(*HierarchyCache)

// WithSnapshotStore adds a second-level store consulted before the catalog.
func WithSnapshotStore(s SnapshotStore) HierarchyOption {
	return func(c *HierarchyCache) { c.store = s }
}

// WithClock injects the time source used for max-age checks.
func WithClock(now func() time.Time) HierarchyOption {
	return func(c *HierarchyCache) { c.now = now }
}

// WithMaxAge bounds how long a fetched list is served before the next access
// refetches it. Zero keeps lists for the lifetime of the cache.
func WithMaxAge(d time.Duration) HierarchyOption {
	return func(c *HierarchyCache) { c.maxAge = d }
}

// WithFetchTimeout bounds one shared fetch. The fetch is detached from the
// callers' contexts, so this is the only deadline it observes.
func WithFetchTimeout(d time.Duration) HierarchyOption {
	return func(c *HierarchyCache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewHierarchyCache creates an empty cache backed by catalog.
func NewHierarchyCache(catalog Catalog, opts ...HierarchyOption) *HierarchyCache {
	c := &HierarchyCache{catalog: catalog, now: time.Now, timeout: defaultFetchTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Countries returns the cached country list, fetching it if needed.
func (c *HierarchyCache) Countries(ctx context.Context) ([]models.Country, error) {
	return getOrFetch(ctx, c, kindCountries, &c.countries, c.catalog.ListCountries, func(v models.Country) string { return v.ID })
}

// Regions returns the cached region list, fetching it if needed.
func (c *HierarchyCache) Regions(ctx context.Context) ([]models.Region, error) {
	return getOrFetch(ctx, c, kindRegions, &c.regions, c.catalog.ListRegions, func(v models.Region) string { return v.ID })
}

// Cities returns the cached city list, fetching it if needed.
func (c *HierarchyCache) Cities(ctx context.Context) ([]models.City, error) {
	return getOrFetch(ctx, c, kindCities, &c.cities, c.catalog.ListCities, func(v models.City) string { return v.ID })
}

// Places returns the list for one level in catalog order.
func (c *HierarchyCache) Places(ctx context.Context, level models.LocationType) ([]Place, error) {
	switch level {
	case models.LocationCity:
		cities, err := c.Cities(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]Place, len(cities))
		for i, city := range cities {
			out[i] = CityPlace(city)
		}
		return out, nil
	case models.LocationRegion:
		regions, err := c.Regions(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]Place, len(regions))
		for i, r := range regions {
			out[i] = RegionPlace(r)
		}
		return out, nil
	case models.LocationCountry:
		countries, err := c.Countries(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]Place, len(countries))
		for i, co := range countries {
			out[i] = CountryPlace(co)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown location type %q", level)
}

// Place looks up a single node by level and id.
func (c *HierarchyCache) Place(ctx context.Context, level models.LocationType, id string) (Place, error) {
	switch level {
	case models.LocationCity:
		if _, err := c.Cities(ctx); err != nil {
			return Place{}, err
		}
		c.mu.RLock()
		defer c.mu.RUnlock()
		if i, ok := c.cities.index[id]; ok {
			p := CityPlace(c.cities.items[i])
			if p.CountryID == "" {
				if ri, ok := c.regions.index[p.RegionID]; ok {
					p.CountryID = c.regions.items[ri].CountryID
				}
			}
			return p, nil
		}
	case models.LocationRegion:
		if _, err := c.Regions(ctx); err != nil {
			return Place{}, err
		}
		c.mu.RLock()
		defer c.mu.RUnlock()
		if i, ok := c.regions.index[id]; ok {
			return RegionPlace(c.regions.items[i]), nil
		}
	case models.LocationCountry:
		if _, err := c.Countries(ctx); err != nil {
			return Place{}, err
		}
		c.mu.RLock()
		defer c.mu.RUnlock()
		if i, ok := c.countries.index[id]; ok {
			return CountryPlace(c.countries.items[i]), nil
		}
	default:
		return Place{}, fmt.Errorf("unknown location type %q", level)
	}
	return Place{}, fmt.Errorf("%s %q: %w", level, id, ErrLocationNotFound)
}

// Refresh refetches every list from the catalog and replaces the cached
// copies. A kind whose fetch fails keeps its previous list. A refresh that
// arrives while a fetch of the same kind is in flight shares that fetch.
func (c *HierarchyCache) Refresh(ctx context.Context) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	record(refresh(ctx, c, kindCountries, &c.countries, c.catalog.ListCountries, func(v models.Country) string { return v.ID }))
	record(refresh(ctx, c, kindRegions, &c.regions, c.catalog.ListRegions, func(v models.Region) string { return v.ID }))
	record(refresh(ctx, c, kindCities, &c.cities, c.catalog.ListCities, func(v models.City) string { return v.ID }))
	return firstErr
}

// HierarchyStats summarises what is currently cached.
type HierarchyStats struct {
	Countries int       `json:"countries"`
	Regions   int       `json:"regions"`
	Cities    int       `json:"cities"`
	CitiesAt  time.Time `json:"citiesFetchedAt"`
}

// Stats reports the sizes of the cached lists without fetching.
func (c *HierarchyCache) Stats() HierarchyStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return HierarchyStats{
		Countries: len(c.countries.items),
		Regions:   len(c.regions.items),
		Cities:    len(c.cities.items),
		CitiesAt:  c.cities.fetchedAt,
	}
}

func (c *HierarchyCache) fresh(loaded bool, fetchedAt time.Time) bool {
	if !loaded {
		return false
	}
	return c.maxAge <= 0 || c.now().Sub(fetchedAt) < c.maxAge
}

func getOrFetch[T any](ctx context.Context, c *HierarchyCache, kind string, s *slot[T], fetch func(context.Context) ([]T, error), id func(T) string) ([]T, error) {
	c.mu.RLock()
	if c.fresh(s.loaded, s.fetchedAt) {
		items := s.items
		c.mu.RUnlock()
		return items, nil
	}
	c.mu.RUnlock()
	return load(ctx, c, kind, s, fetch, id, false)
}

func refresh[T any](ctx context.Context, c *HierarchyCache, kind string, s *slot[T], fetch func(context.Context) ([]T, error), id func(T) string) error {
	_, err := load(ctx, c, kind, s, fetch, id, true)
	return err
}

// load runs at most one fetch per kind. The fetch is detached from ctx so a
// caller that gives up does not fail the others waiting on it; ctx only
// bounds how long this caller waits.
func load[T any](ctx context.Context, c *HierarchyCache, kind string, s *slot[T], fetch func(context.Context) ([]T, error), id func(T) string, force bool) ([]T, error) {
	ch := c.group.DoChan(kind, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		if !force {
			c.mu.RLock()
			if c.fresh(s.loaded, s.fetchedAt) {
				items := s.items
				c.mu.RUnlock()
				return items, nil
			}
			c.mu.RUnlock()

			if items, ok := loadSnapshot(fctx, c, kind, s, id); ok {
				return items, nil
			}
		}

		op := "fetch"
		if force {
			op = "refresh"
		}
		items, err := fetch(fctx)
		if err != nil {
			metrics.HierarchyFetchTotal.WithLabelValues(kind, "catalog", "error").Inc()
			return nil, fmt.Errorf("%s %s: %w", op, kind, err)
		}
		metrics.HierarchyFetchTotal.WithLabelValues(kind, "catalog", "ok").Inc()
		at := c.now()
		c.save(fctx, kind, snapshot[T]{FetchedAt: at, Items: items})
		replace(c, s, items, id, at)
		return items, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]T), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for %s: %w", kind, ctx.Err())
	}
}

// loadSnapshot installs the shared snapshot for kind when it is still within
// max age. The slot keeps the snapshot's original fetch time.
func loadSnapshot[T any](ctx context.Context, c *HierarchyCache, kind string, s *slot[T], id func(T) string) ([]T, bool) {
	if c.store == nil {
		return nil, false
	}
	var snap snapshot[T]
	ok, err := c.store.Load(ctx, kind, &snap)
	if err != nil {
		log.Warn().Err(err).Str("kind", kind).Msg("hierarchy snapshot load failed")
		return nil, false
	}
	if !ok || !c.fresh(true, snap.FetchedAt) {
		return nil, false
	}
	metrics.HierarchyFetchTotal.WithLabelValues(kind, "snapshot", "ok").Inc()
	replace(c, s, snap.Items, id, snap.FetchedAt)
	return snap.Items, true
}

func (c *HierarchyCache) save(ctx context.Context, kind string, v any) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, kind, v); err != nil {
		log.Warn().Err(err).Str("kind", kind).Msg("hierarchy snapshot save failed")
	}
}

func replace[T any](c *HierarchyCache, s *slot[T], items []T, id func(T) string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*s = newSlot(items, id, at)
}

func newSlot[T any](items []T, id func(T) string, at time.Time) slot[T] {
	index := make(map[string]int, len(items))
	for i, it := range items {
		k := id(it)
		if _, dup := index[k]; !dup {
			index[k] = i
		}
	}
	return slot[T]{items: items, index: index, fetchedAt: at, loaded: true}
}

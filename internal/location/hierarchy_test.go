package location

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GTDGit/bizdir_api/internal/models"
)

func TestHierarchyCacheCoalescesConcurrentFetches(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.gate = make(chan struct{})
	cache := NewHierarchyCache(catalog)

	var wg sync.WaitGroup
	results := make([][]models.City, 20)
	errs := make([]error, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Cities(context.Background())
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(catalog.gate)
	wg.Wait()

	require.EqualValues(t, 1, catalog.cityCalls.Load())
	for i := range results {
		require.NoError(t, errs[i])
		require.Len(t, results[i], len(testCities()))
	}
}

func TestHierarchyCacheFetchErrorIsNotCached(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.setErr(errors.New("connection refused"))
	cache := NewHierarchyCache(catalog)

	_, err := cache.Cities(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "fetch cities")

	catalog.setErr(nil)
	cities, err := cache.Cities(context.Background())
	require.NoError(t, err)
	require.Len(t, cities, 4)
	require.EqualValues(t, 2, catalog.cityCalls.Load())
}

func TestHierarchyCacheMaxAge(t *testing.T) {
	catalog := newFakeCatalog()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewHierarchyCache(catalog,
		WithMaxAge(time.Minute),
		WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	_, err := cache.Countries(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, catalog.countryCalls.Load())

	now = now.Add(30 * time.Second)
	_, err = cache.Countries(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, catalog.countryCalls.Load())

	now = now.Add(2 * time.Minute)
	_, err = cache.Countries(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, catalog.countryCalls.Load())
}

func TestHierarchyCacheUsesSnapshotStore(t *testing.T) {
	store := newMemorySnapshots()
	ctx := context.Background()

	warm := newFakeCatalog()
	_, err := NewHierarchyCache(warm, WithSnapshotStore(store)).Cities(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, warm.cityCalls.Load())

	cold := newFakeCatalog()
	cold.setErr(errors.New("catalog down"))
	cities, err := NewHierarchyCache(cold, WithSnapshotStore(store)).Cities(ctx)
	require.NoError(t, err)
	require.Equal(t, testCities(), cities)
	require.EqualValues(t, 0, cold.cityCalls.Load())
}

func TestHierarchyCachePlace(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.setCities([]models.City{
		{ID: "city-xyz", Name: "Bandung", Slug: "bandung", RegionID: "region-abc"},
	})
	cache := NewHierarchyCache(catalog)
	ctx := context.Background()

	_, err := cache.Regions(ctx)
	require.NoError(t, err)

	p, err := cache.Place(ctx, models.LocationCity, "city-xyz")
	require.NoError(t, err)
	require.Equal(t, Place{
		Type:      models.LocationCity,
		ID:        "city-xyz",
		Name:      "Bandung",
		Slug:      "bandung",
		RegionID:  "region-abc",
		CountryID: "country-idn",
	}, p)

	region, err := cache.Place(ctx, models.LocationRegion, "region-abc")
	require.NoError(t, err)
	require.Equal(t, "country-idn", region.CountryID)

	_, err = cache.Place(ctx, models.LocationCountry, "country-nope")
	require.ErrorIs(t, err, ErrLocationNotFound)

	_, err = cache.Place(ctx, models.LocationType("district"), "x")
	require.Error(t, err)
}

func TestHierarchyCacheRefreshReplacesWholesale(t *testing.T) {
	catalog := newFakeCatalog()
	cache := NewHierarchyCache(catalog)
	ctx := context.Background()

	_, err := cache.Cities(ctx)
	require.NoError(t, err)

	catalog.setCities(testCities()[:1])
	require.NoError(t, cache.Refresh(ctx))
	cities, err := cache.Cities(ctx)
	require.NoError(t, err)
	require.Len(t, cities, 1)

	stats := cache.Stats()
	require.Equal(t, 2, stats.Countries)
	require.Equal(t, 3, stats.Regions)
	require.Equal(t, 1, stats.Cities)

	catalog.setErr(errors.New("catalog down"))
	require.Error(t, cache.Refresh(ctx))
	cities, err = cache.Cities(ctx)
	require.NoError(t, err)
	require.Len(t, cities, 1)
}

func TestHierarchyCachePlacesKeepsCatalogOrder(t *testing.T) {
	cache := NewHierarchyCache(newFakeCatalog())

	places, err := cache.Places(context.Background(), models.LocationCity)
	require.NoError(t, err)
	ids := make([]string, len(places))
	for i, p := range places {
		ids[i] = p.ID
	}
	require.Equal(t, []string{"city-jks", "city-jku", "city-xyz", "city-def"}, ids)
	require.Equal(t, "country-idn", places[2].CountryID)
}

func TestHierarchyCacheCancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.gate = make(chan struct{})
	cache := NewHierarchyCache(catalog)

	reqCtx, cancelReq := context.WithCancel(context.Background())
	readerErr := make(chan error, 1)
	go func() {
		_, err := cache.Cities(reqCtx)
		readerErr <- err
	}()
	require.Eventually(t, func() bool { return catalog.cityCalls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		cities []models.City
		err    error
	}
	other := make(chan result, 1)
	go func() {
		cities, err := cache.Cities(context.Background())
		other <- result{cities: cities, err: err}
	}()

	cancelReq()
	require.ErrorIs(t, <-readerErr, context.Canceled)

	close(catalog.gate)
	res := <-other
	require.NoError(t, res.err)
	require.Len(t, res.cities, len(testCities()))
	require.EqualValues(t, 1, catalog.cityCalls.Load())
}

func TestHierarchyCacheFetchTimeout(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.gate = make(chan struct{})
	cache := NewHierarchyCache(catalog, WithFetchTimeout(20*time.Millisecond))

	_, err := cache.Cities(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(catalog.gate)
	cities, err := cache.Cities(context.Background())
	require.NoError(t, err)
	require.Len(t, cities, len(testCities()))
}

func TestHierarchyCacheSnapshotKeepsFetchTime(t *testing.T) {
	store := newMemorySnapshots()
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	warm := newFakeCatalog()
	_, err := NewHierarchyCache(warm,
		WithSnapshotStore(store),
		WithMaxAge(time.Minute),
		WithClock(func() time.Time { return start }),
	).Countries(ctx)
	require.NoError(t, err)

	now := start.Add(30 * time.Second)
	cold := newFakeCatalog()
	cache := NewHierarchyCache(cold,
		WithSnapshotStore(store),
		WithMaxAge(time.Minute),
		WithClock(func() time.Time { return now }),
	)
	_, err = cache.Countries(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, cold.countryCalls.Load())

	// Past max age of the original fetch, not of the snapshot load.
	now = start.Add(70 * time.Second)
	_, err = cache.Countries(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, cold.countryCalls.Load())
}

func TestHierarchyCacheIgnoresStaleSnapshot(t *testing.T) {
	store := newMemorySnapshots()
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	_, err := NewHierarchyCache(newFakeCatalog(),
		WithSnapshotStore(store),
		WithClock(func() time.Time { return start }),
	).Regions(ctx)
	require.NoError(t, err)

	cold := newFakeCatalog()
	_, err = NewHierarchyCache(cold,
		WithSnapshotStore(store),
		WithMaxAge(time.Minute),
		WithClock(func() time.Time { return start.Add(2 * time.Minute) }),
	).Regions(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, cold.regionCalls.Load())
}

func TestHierarchyCacheRefreshSharesInFlightFetch(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.gate = make(chan struct{})
	cache := NewHierarchyCache(catalog)
	ctx := context.Background()

	lazy := make(chan error, 1)
	go func() {
		_, err := cache.Cities(ctx)
		lazy <- err
	}()
	require.Eventually(t, func() bool { return catalog.cityCalls.Load() == 1 }, time.Second, time.Millisecond)

	refreshed := make(chan error, 1)
	go func() { refreshed <- cache.Refresh(ctx) }()
	require.Eventually(t, func() bool { return catalog.regionCalls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	close(catalog.gate)
	require.NoError(t, <-lazy)
	require.NoError(t, <-refreshed)
	require.EqualValues(t, 1, catalog.cityCalls.Load())
}

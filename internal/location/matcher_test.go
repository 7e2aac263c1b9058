package location

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GTDGit/bizdir_api/internal/models"
)

func newTestMatcher(remote UnifiedSearcher) *Matcher {
	return NewMatcher(NewHierarchyCache(newFakeCatalog()), remote)
}

func TestMatcherExact(t *testing.T) {
	remote := &fakeSearcher{}
	m := newTestMatcher(remote)

	res, ok := m.Match(context.Background(), models.LocationCity, "  BANDUNG ")
	require.True(t, ok)
	require.Equal(t, "city-xyz", res.Place.ID)
	require.Equal(t, StrategyExact, res.Strategy)

	res, ok = m.Match(context.Background(), models.LocationRegion, "jawa-barat")
	require.True(t, ok)
	require.Equal(t, "region-abc", res.Place.ID)
	require.Equal(t, StrategyExact, res.Strategy)

	require.Empty(t, remote.calls)
}

func TestMatcherExactBeatsEarlierSubstring(t *testing.T) {
	m := newTestMatcher(nil)

	// "Jakarta Utara" is exact even though "Jakarta Selatan" comes first.
	res, ok := m.Match(context.Background(), models.LocationCity, "jakarta utara")
	require.True(t, ok)
	require.Equal(t, "city-jku", res.Place.ID)
	require.Equal(t, StrategyExact, res.Strategy)
}

func TestMatcherSubstring(t *testing.T) {
	m := newTestMatcher(nil)
	ctx := context.Background()

	// candidate contains the catalog name
	res, ok := m.Match(ctx, models.LocationCity, "Kota Bandung")
	require.True(t, ok)
	require.Equal(t, "city-xyz", res.Place.ID)
	require.Equal(t, StrategySubstring, res.Strategy)

	// catalog name contains the candidate; first in catalog order wins
	res, ok = m.Match(ctx, models.LocationCity, "Jakarta")
	require.True(t, ok)
	require.Equal(t, "city-jks", res.Place.ID)
	require.Equal(t, StrategySubstring, res.Strategy)
}

func TestMatcherRemote(t *testing.T) {
	remote := &fakeSearcher{results: map[models.LocationType][]Place{
		models.LocationCity: {
			{Type: models.LocationCity, ID: "city-xyz", Name: "Bandung", RegionID: "region-abc"},
			{Type: models.LocationCity, ID: "city-def", Name: "Bogor", RegionID: "region-abc"},
		},
	}}
	m := newTestMatcher(remote)

	res, ok := m.Match(context.Background(), models.LocationCity, "Paris van Java")
	require.True(t, ok)
	require.Equal(t, "city-xyz", res.Place.ID)
	require.Equal(t, StrategyRemote, res.Strategy)
	require.Equal(t, []string{"city:Paris van Java"}, remote.calls)
}

func TestMatcherMiss(t *testing.T) {
	ctx := context.Background()

	t.Run("remote error is a miss", func(t *testing.T) {
		m := newTestMatcher(&fakeSearcher{err: errors.New("timeout")})
		_, ok := m.Match(ctx, models.LocationCity, "Atlantis")
		require.False(t, ok)
	})

	t.Run("remote empty", func(t *testing.T) {
		m := newTestMatcher(&fakeSearcher{})
		_, ok := m.Match(ctx, models.LocationCountry, "Narnia")
		require.False(t, ok)
	})

	t.Run("empty candidate", func(t *testing.T) {
		remote := &fakeSearcher{}
		m := newTestMatcher(remote)
		_, ok := m.Match(ctx, models.LocationCity, "   ")
		require.False(t, ok)
		require.Empty(t, remote.calls)
	})
}

func TestMatcherFallsThroughToRemoteWhenListUnavailable(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.setErr(errors.New("catalog down"))
	remote := &fakeSearcher{results: map[models.LocationType][]Place{
		models.LocationCity: {{Type: models.LocationCity, ID: "city-xyz", Name: "Bandung"}},
	}}
	m := NewMatcher(NewHierarchyCache(catalog), remote)

	res, ok := m.Match(context.Background(), models.LocationCity, "Bandung")
	require.True(t, ok)
	require.Equal(t, StrategyRemote, res.Strategy)
}

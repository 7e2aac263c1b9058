package location

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewRegistry(nil, time.Minute)

	s := r.Create()
	require.NotEmpty(t, s.ID)
	require.Equal(t, 1, r.Len())

	got, err := r.Get(s.ID)
	require.NoError(t, err)
	require.Same(t, s, got)

	_, err = r.Get("missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistrySweep(t *testing.T) {
	r := NewRegistry(nil, time.Minute)
	r.Create()
	r.Create()

	require.Zero(t, r.Sweep(time.Now()))
	require.Equal(t, 2, r.Sweep(time.Now().Add(2*time.Minute)))
	require.Zero(t, r.Len())
}

func TestRegistrySweepDisabled(t *testing.T) {
	r := NewRegistry(nil, 0)
	r.Create()

	require.Zero(t, r.Sweep(time.Now().Add(24*time.Hour)))
	require.Equal(t, 1, r.Len())
}

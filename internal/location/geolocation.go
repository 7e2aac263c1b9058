package location

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GTDGit/bizdir_api/internal/models"
)

// PositionOptions mirrors the device geolocation request options.
type PositionOptions struct {
	EnableHighAccuracy bool
	Timeout            time.Duration
	MaximumAge         time.Duration
}

// DefaultPositionOptions requests a fresh, low-accuracy fix within 15 seconds.
func DefaultPositionOptions() PositionOptions {
	return PositionOptions{EnableHighAccuracy: false, Timeout: 15 * time.Second, MaximumAge: 0}
}

// Geolocator acquires the device position. Implementations return a
// *PositionError on denial, unavailability or timeout.
type Geolocator interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (models.Coordinates, error)
}

// GeolocatorFunc adapts a function to Geolocator.
type GeolocatorFunc func(ctx context.Context, opts PositionOptions) (models.Coordinates, error)

func (f GeolocatorFunc) CurrentPosition(ctx context.Context, opts PositionOptions) (models.Coordinates, error) {
	return f(ctx, opts)
}

// AcquirePosition asks g for a fix bounded by opts.Timeout and normalizes
// every failure into a *PositionError.
func AcquirePosition(ctx context.Context, g Geolocator, opts PositionOptions) (models.Coordinates, error) {
	if g == nil {
		return models.Coordinates{}, &PositionError{Code: PositionUnavailable, Message: "no geolocation capability"}
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	coords, err := g.CurrentPosition(ctx, opts)
	if err != nil {
		var perr *PositionError
		if errors.As(err, &perr) {
			return models.Coordinates{}, perr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return models.Coordinates{}, &PositionError{Code: PositionTimeout, Message: err.Error()}
		}
		return models.Coordinates{}, &PositionError{Code: PositionUnavailable, Message: err.Error()}
	}
	if !validCoordinates(coords) {
		return models.Coordinates{}, &PositionError{
			Code:    PositionUnavailable,
			Message: fmt.Sprintf("invalid coordinates %.6f,%.6f", coords.Latitude, coords.Longitude),
		}
	}
	return coords, nil
}

func validCoordinates(c models.Coordinates) bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

type positionReport struct {
	coords models.Coordinates
	err    *PositionError
}

// DevicePosition is a Geolocator fed by the client device. The device posts
// exactly one report (a fix or an error code) per session; the report is
// consumed by the first CurrentPosition call and never reused.
type DevicePosition struct {
	mu       sync.Mutex
	reported bool
	ch       chan positionReport
}

// NewDevicePosition creates a DevicePosition awaiting its report.
func NewDevicePosition() *DevicePosition {
	return &DevicePosition{ch: make(chan positionReport, 1)}
}

// Report delivers a fix. It returns false if a report was already delivered.
func (d *DevicePosition) Report(coords models.Coordinates) bool {
	return d.deliver(positionReport{coords: coords})
}

// Fail delivers a device-side error code. It returns false if a report was
// already delivered.
func (d *DevicePosition) Fail(code PositionErrorCode, message string) bool {
	return d.deliver(positionReport{err: &PositionError{Code: code, Message: message}})
}

func (d *DevicePosition) deliver(r positionReport) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reported {
		return false
	}
	d.reported = true
	d.ch <- r
	return true
}

// CurrentPosition waits for the device report until ctx ends.
func (d *DevicePosition) CurrentPosition(ctx context.Context, _ PositionOptions) (models.Coordinates, error) {
	select {
	case r := <-d.ch:
		if r.err != nil {
			return models.Coordinates{}, r.err
		}
		return r.coords, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.Coordinates{}, &PositionError{Code: PositionTimeout, Message: "no position reported in time"}
		}
		return models.Coordinates{}, ctx.Err()
	}
}

package location

import (
	"errors"
	"fmt"
)

var (
	ErrSelectionLocked      = errors.New("SELECTION_LOCKED")
	ErrAlreadyStarted       = errors.New("DETECTION_ALREADY_STARTED")
	ErrHierarchyUnavailable = errors.New("HIERARCHY_UNAVAILABLE")
	ErrLocationNotFound     = errors.New("LOCATION_NOT_FOUND")
	ErrIllegalTransition    = errors.New("ILLEGAL_STATE_TRANSITION")
	ErrNoProviders          = errors.New("NO_GEOCODE_PROVIDERS")
	ErrSessionNotFound      = errors.New("SESSION_NOT_FOUND")
	ErrRunSuperseded        = errors.New("DETECTION_RUN_SUPERSEDED")
)

// PositionErrorCode mirrors the device geolocation error codes.
type PositionErrorCode int

const (
	PositionPermissionDenied PositionErrorCode = 1
	PositionUnavailable      PositionErrorCode = 2
	PositionTimeout          PositionErrorCode = 3
)

func (c PositionErrorCode) String() string {
	switch c {
	case PositionPermissionDenied:
		return "permission_denied"
	case PositionUnavailable:
		return "position_unavailable"
	case PositionTimeout:
		return "timeout"
	}
	return fmt.Sprintf("unknown(%d)", int(c))
}

// PositionError is the single error type returned by a Geolocator.
type PositionError struct {
	Code    PositionErrorCode
	Message string
}

func (e *PositionError) Error() string {
	if e.Message == "" {
		return "geolocation: " + e.Code.String()
	}
	return "geolocation: " + e.Code.String() + ": " + e.Message
}

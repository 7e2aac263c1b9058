package utils

import "errors"

// Common application errors used across handlers.
var (
	ErrInvalidToken     = errors.New("INVALID_TOKEN")
	ErrInvalidLocation  = errors.New("INVALID_LOCATION")
	ErrInvalidPosition  = errors.New("INVALID_POSITION")
	ErrInvalidPageParam = errors.New("INVALID_PAGINATION")
)

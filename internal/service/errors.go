package service

import "errors"

var (
	// ErrInvalidRequest wraps every input validation failure.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoAvailableStart means the requested sequence does not fit at the
	// requested start time.
	ErrNoAvailableStart = errors.New("no available start for the requested services")
	// ErrOutsideOpeningHours means the sequence starts before opening, after
	// the last slot, or ends after closing.
	ErrOutsideOpeningHours = errors.New("outside opening hours")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrUnknownInstance     = errors.New("unknown service instance")
	ErrInactive            = errors.New("inactive")
)

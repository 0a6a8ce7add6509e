package navigation

import "errors"

var (
	// ErrPositionUnavailable is returned by Start when not even a
	// carried-forward estimate can be produced.
	ErrPositionUnavailable = errors.New("navigation: position unavailable")

	// ErrNotActive is returned by operations that need a running session.
	ErrNotActive = errors.New("navigation: no active session")
)

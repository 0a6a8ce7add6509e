package positioning

import "errors"

var (
	// ErrVenueNotFound is returned when no beacon set is registered for a venue.
	ErrVenueNotFound = errors.New("positioning: venue not found")

	// ErrNoBeacons is returned when a venue is registered but has no beacons.
	ErrNoBeacons = errors.New("positioning: venue has no beacons")
)

package positioning

import "context"

// StaticSource is an in-memory BeaconSource keyed by venue id.
type StaticSource map[string][]Beacon

// Beacons implements BeaconSource.
func (s StaticSource) Beacons(_ context.Context, venueID string) ([]Beacon, error) {
	beacons, ok := s[venueID]
	if !ok {
		return nil, ErrVenueNotFound
	}
	return append([]Beacon(nil), beacons...), nil
}

var _ BeaconSource = StaticSource(nil)

// Package venue stores the beacons and points of interest of each venue.
package venue

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/teslashibe/go-wayfind/pkg/navigation"
	"github.com/teslashibe/go-wayfind/pkg/positioning"
)

// ErrVenueNotFound is positioning.ErrVenueNotFound so callers can test either.
var ErrVenueNotFound = positioning.ErrVenueNotFound

// ErrTargetNotFound is returned when a venue has no target with the given id.
var ErrTargetNotFound = errors.New("venue: target not found")

// Venue is a building with its beacon deployment and points of interest.
type Venue struct {
	ID      string               `json:"id"`
	Name    string               `json:"name"`
	Beacons []positioning.Beacon `json:"beacons"`
	Targets []Target             `json:"targets"`
}

// Target is a point of interest. Position.Z is the floor.
type Target struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Category string            `json:"category,omitempty"`
	Position positioning.Point `json:"position"`
}

// Navigation converts t into a navigation destination.
func (t Target) Navigation() navigation.Target {
	return navigation.Target{ID: t.ID, Name: t.Name, Position: t.Position}
}

// Store is venue persistence. Every Store is also a positioning.BeaconSource.
type Store interface {
	positioning.BeaconSource

	// Venue returns the venue with the given id.
	Venue(ctx context.Context, id string) (*Venue, error)

	// Venues returns all venue ids, sorted.
	Venues(ctx context.Context) ([]string, error)

	// Targets returns the targets of a venue, sorted by id.
	Targets(ctx context.Context, venueID string) ([]Target, error)

	// Target returns a single target.
	Target(ctx context.Context, venueID, targetID string) (Target, error)

	// Save creates or replaces a venue. Missing ids are generated.
	Save(ctx context.Context, v *Venue) error

	Close() error
}

// Open returns a SQLite store for .db/.sqlite/.sqlite3 paths and a JSON
// store otherwise.
func Open(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLite(path)
	default:
		return NewJSONStore(path)
	}
}

// assignIDs fills in missing venue, beacon and target ids.
func assignIDs(v *Venue) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	for i := range v.Beacons {
		if v.Beacons[i].ID == "" {
			v.Beacons[i].ID = uuid.NewString()
		}
	}
	for i := range v.Targets {
		if v.Targets[i].ID == "" {
			v.Targets[i].ID = uuid.NewString()
		}
	}
}

// Validate checks that ids are unique within the venue.
func (v *Venue) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(v.Beacons))
	for _, b := range v.Beacons {
		if b.ID != "" && seen[b.ID] {
			errs = append(errs, fmt.Errorf("duplicate beacon id %q", b.ID))
		}
		seen[b.ID] = true
	}
	seen = make(map[string]bool, len(v.Targets))
	for _, t := range v.Targets {
		if t.ID != "" && seen[t.ID] {
			errs = append(errs, fmt.Errorf("duplicate target id %q", t.ID))
		}
		seen[t.ID] = true
	}
	if len(errs) > 0 {
		return fmt.Errorf("venue %s: %w", v.ID, errors.Join(errs...))
	}
	return nil
}

func (v *Venue) clone() *Venue {
	c := *v
	c.Beacons = append([]positioning.Beacon(nil), v.Beacons...)
	c.Targets = append([]Target(nil), v.Targets...)
	return &c
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrVenueNotFound, id)
}

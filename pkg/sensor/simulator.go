package sensor

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/teslashibe/go-wayfind/pkg/positioning"
	"github.com/teslashibe/go-wayfind/pkg/projection"
)

// SimConfig describes a simulated walk through a venue.
type SimConfig struct {
	Path        []positioning.Point // Waypoints walked in order
	Speed       float64             // Meters per second
	Range       float64             // Beacons farther than this (meters) are not heard
	Noise       float64             // RSSI noise standard deviation in dBm
	Seed        uint64
	FloorHeight float64
	Pitch       float64 // Constant device pitch in degrees
}

// DefaultSimConfig returns a walking-pace configuration without noise.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Speed:       1.2,
		Range:       30,
		FloorHeight: 3,
	}
}

// Simulator produces detections and orientation for a user walking a path
// at constant speed. It implements the controller's detection and
// orientation sources.
type Simulator struct {
	config  SimConfig
	beacons []positioning.Beacon
	now     func() time.Time
	start   time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator starts a walk now.
func NewSimulator(config SimConfig, beacons []positioning.Beacon) *Simulator {
	d := DefaultSimConfig()
	if config.Speed <= 0 {
		config.Speed = d.Speed
	}
	if config.Range <= 0 {
		config.Range = d.Range
	}
	if config.FloorHeight <= 0 {
		config.FloorHeight = d.FloorHeight
	}
	s := &Simulator{
		config:  config,
		beacons: append([]positioning.Beacon(nil), beacons...),
		now:     time.Now,
		rng:     rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)),
	}
	s.start = s.now()
	return s
}

// PoseAt returns where the walker is after elapsed time and the heading of
// the segment being walked. The walker stops at the last waypoint.
func (s *Simulator) PoseAt(elapsed time.Duration) (positioning.Point, float64) {
	path := s.config.Path
	if len(path) == 0 {
		return positioning.Point{}, 0
	}
	remaining := elapsed.Seconds() * s.config.Speed
	heading := 0.0
	for i := 1; i < len(path); i++ {
		a, b := path[i-1], path[i]
		seg := projection.HorizontalDistance(a, b)
		if seg > 0 {
			heading = projection.Bearing(a, b)
		}
		if remaining <= seg {
			f := 0.0
			if seg > 0 {
				f = remaining / seg
			}
			return positioning.Point{
				X: a.X + (b.X-a.X)*f,
				Y: a.Y + (b.Y-a.Y)*f,
				Z: b.Z,
			}, heading
		}
		remaining -= seg
	}
	return path[len(path)-1], heading
}

// DetectionsAt returns what a scan at p would hear, stamped ts.
func (s *Simulator) DetectionsAt(p positioning.Point, ts time.Time) []positioning.Detection {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []positioning.Detection
	for _, b := range s.beacons {
		d := projection.Distance3D(p, b.Position, s.config.FloorHeight)
		if d > s.config.Range {
			continue
		}
		rssi := RSSIForDistance(d, positioning.ReferenceRSSI)
		if s.config.Noise > 0 {
			rssi += int(math.Round(s.rng.NormFloat64() * s.config.Noise))
		}
		if rssi >= 0 {
			rssi = -1
		}
		out = append(out, positioning.Detection{BeaconID: b.ID, RSSI: rssi, Timestamp: ts})
	}
	return out
}

// Scan implements navigation.DetectionSource.
func (s *Simulator) Scan(ctx context.Context) ([]positioning.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := s.now()
	p, _ := s.PoseAt(now.Sub(s.start))
	return s.DetectionsAt(p, now), nil
}

// Orientation implements navigation.OrientationSource: the device faces the
// direction of travel.
func (s *Simulator) Orientation() (projection.Orientation, bool) {
	_, heading := s.PoseAt(s.now().Sub(s.start))
	return projection.Orientation{Heading: heading, Pitch: s.config.Pitch}, true
}

// RSSIForDistance inverts positioning.DistanceFromRSSI, rounded to whole dBm.
func RSSIForDistance(meters float64, reference int) int {
	if meters <= 0 {
		meters = 0.01
	}
	var ratio float64
	switch {
	case meters < 1:
		ratio = math.Pow(meters, 0.1)
	case meters <= 1.0107:
		ratio = 1
	default:
		ratio = math.Pow((meters-0.111)/0.89976, 1/7.7095)
	}
	rssi := int(math.Round(ratio * float64(reference)))
	if rssi >= 0 {
		rssi = -1
	}
	return rssi
}

// Package positioning estimates a user's venue-local position from radio
// beacon detections.
//
// Positions are venue-local: X and Y in meters, Z is the floor number.
// Up to four of the strongest detections are fused per scan, by trilateration
// when three or more beacons are usable and by a weighted centroid otherwise.
// When a scan yields nothing usable the most recent estimate is carried
// forward with doubled accuracy radius.
package positioning

import "time"

// Point is a venue-local position. X and Y are meters, Z is the floor.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Midpoint returns the point halfway between p and q.
func (p Point) Midpoint(q Point) Point {
	return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2, Z: (p.Z + q.Z) / 2}
}

// Identity is what a beacon broadcasts: a grouping UUID plus major/minor.
type Identity struct {
	UUID  string `json:"uuid"`
	Major uint16 `json:"major"`
	Minor uint16 `json:"minor"`
}

// Beacon is a fixed transmitter with a known location. Immutable once loaded.
type Beacon struct {
	ID       string   `json:"id"`
	Identity Identity `json:"identity"`
	Position Point    `json:"position"`
}

// Detection is one observation of a beacon during a scan cycle.
type Detection struct {
	BeaconID  string    `json:"beacon_id"`
	RSSI      int       `json:"rssi"`
	Timestamp time.Time `json:"ts"`
}

// Method records how an estimate was produced.
type Method string

const (
	MethodTrilateration    Method = "trilateration"
	MethodWeightedCentroid Method = "weighted-centroid"
	MethodCarriedForward   Method = "carried-forward"
)

// PositionEstimate is the fused position for one scan cycle.
type PositionEstimate struct {
	Position    Point     `json:"position"`
	Accuracy    float64   `json:"accuracy"` // radius in meters, never negative
	BeaconsUsed []string  `json:"beacons_used"`
	Method      Method    `json:"method"`
	Timestamp   time.Time `json:"timestamp"`
}

// Clone returns a deep copy.
func (e PositionEstimate) Clone() PositionEstimate {
	e.BeaconsUsed = append([]string(nil), e.BeaconsUsed...)
	return e
}

// IsStale reports whether the estimate was carried forward from history.
func (e PositionEstimate) IsStale() bool {
	return e.Method == MethodCarriedForward
}

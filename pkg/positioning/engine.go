package positioning

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// BeaconSource supplies the beacon set for a venue. Implementations return
// ErrVenueNotFound (possibly wrapped) for unknown venues.
type BeaconSource interface {
	Beacons(ctx context.Context, venueID string) ([]Beacon, error)
}

// Engine fuses beacon detections into position estimates for one venue.
// It is safe for concurrent use.
type Engine struct {
	config Config
	source BeaconSource
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	venueID string
	beacons map[string]Beacon
	history *History
}

// NewEngine creates an engine reading beacon sets from source.
func NewEngine(config Config, source BeaconSource, logger *slog.Logger) *Engine {
	config = config.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		config:  config,
		source:  source,
		logger:  logger,
		now:     time.Now,
		beacons: make(map[string]Beacon),
		history: NewHistory(config.HistorySize),
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Load fetches the beacon set for venueID and makes it the active set.
// Estimation history from a previous venue is discarded.
func (e *Engine) Load(ctx context.Context, venueID string) ([]Beacon, error) {
	if e.source == nil {
		return nil, fmt.Errorf("load %q: %w", venueID, ErrVenueNotFound)
	}
	beacons, err := e.source.Beacons(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", venueID, err)
	}
	if len(beacons) == 0 {
		return nil, fmt.Errorf("load %q: %w", venueID, ErrNoBeacons)
	}
	e.SetBeacons(venueID, beacons)
	e.logger.Info("venue beacons loaded", "venue", venueID, "beacons", len(beacons))
	return append([]Beacon(nil), beacons...), nil
}

// SetBeacons installs a beacon set directly, bypassing the source.
func (e *Engine) SetBeacons(venueID string, beacons []Beacon) {
	set := make(map[string]Beacon, len(beacons))
	for _, b := range beacons {
		set[b.ID] = b
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.venueID = venueID
	e.beacons = set
	e.history.Reset()
}

// VenueID returns the currently loaded venue.
func (e *Engine) VenueID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.venueID
}

// Beacon looks up a loaded beacon by id.
func (e *Engine) Beacon(id string) (Beacon, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.beacons[id]
	return b, ok
}

// History returns the retained estimates, oldest first.
func (e *Engine) History() []PositionEstimate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Entries()
}

// usable pairs a detection with its beacon and estimated distance.
type usable struct {
	beacon   Beacon
	rssi     int
	distance float64
	seen     time.Time
}

// EstimatePosition fuses one scan's detections into an estimate. It returns
// nil only when nothing usable was detected and there is no history to
// carry forward.
func (e *Engine) EstimatePosition(detections []Detection) *PositionEstimate {
	e.mu.Lock()
	defer e.mu.Unlock()

	used := e.usableDetections(detections)
	if len(used) == 0 {
		return e.carryForward()
	}

	est := e.fuse(used)
	e.history.Push(est)
	e.logger.Debug("position estimated",
		"method", est.Method,
		"x", est.Position.X, "y", est.Position.Y, "floor", est.Position.Z,
		"accuracy", est.Accuracy,
		"beacons", len(used))
	return &est
}

// usableDetections filters, orders and truncates detections. Detections of unknown
// beacons, non-negative RSSI and anything at or below the threshold are
// dropped. A beacon seen twice keeps its strongest reading.
func (e *Engine) usableDetections(detections []Detection) []usable {
	best := make(map[string]usable, len(detections))
	for _, d := range detections {
		if d.RSSI >= 0 || d.RSSI <= e.config.RSSIThreshold {
			continue
		}
		b, ok := e.beacons[d.BeaconID]
		if !ok {
			continue
		}
		if prev, seen := best[d.BeaconID]; seen && prev.rssi >= d.RSSI {
			continue
		}
		best[d.BeaconID] = usable{
			beacon:   b,
			rssi:     d.RSSI,
			distance: DistanceFromRSSI(d.RSSI, e.config.ReferenceRSSI),
			seen:     d.Timestamp,
		}
	}

	out := make([]usable, 0, len(best))
	for _, u := range best {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].rssi != out[j].rssi {
			return out[i].rssi > out[j].rssi
		}
		return out[i].beacon.ID < out[j].beacon.ID
	})
	if len(out) > e.config.MaxBeacons {
		out = out[:e.config.MaxBeacons]
	}
	return out
}

func (e *Engine) fuse(used []usable) PositionEstimate {
	ids := make([]string, len(used))
	rssi := make([]float64, len(used))
	points := make([]Point, len(used))
	distances := make([]float64, len(used))
	var ts time.Time
	for i, u := range used {
		ids[i] = u.beacon.ID
		rssi[i] = float64(u.rssi)
		points[i] = u.beacon.Position
		distances[i] = u.distance
		if u.seen.After(ts) {
			ts = u.seen
		}
	}
	if ts.IsZero() {
		ts = e.now()
	}

	accuracy := AccuracyFromRSSI(stat.Mean(rssi, nil), len(used))
	est := PositionEstimate{
		BeaconsUsed: ids,
		Timestamp:   ts,
	}

	if len(used) >= 3 {
		pos, ok := Trilaterate(
			[3]Point{points[0], points[1], points[2]},
			[3]float64{distances[0], distances[1], distances[2]},
		)
		if ok {
			est.Position = pos
			est.Accuracy = accuracy
			est.Method = MethodTrilateration
			return est
		}
		e.logger.Debug("degenerate beacon geometry, using weighted centroid", "beacons", ids[:3])
	}

	est.Position = WeightedCentroid(points, distances)
	est.Accuracy = accuracy * centroidAccuracyGain
	est.Method = MethodWeightedCentroid
	return est
}

func (e *Engine) carryForward() *PositionEstimate {
	last, ok := e.history.Latest()
	if !ok {
		return nil
	}
	last.Accuracy *= 2
	last.Method = MethodCarriedForward
	e.logger.Debug("no usable detections, carrying position forward", "accuracy", last.Accuracy)
	return &last
}

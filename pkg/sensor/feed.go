// Package sensor adapts externally supplied radio and motion readings to the
// navigation controller's input interfaces.
package sensor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/teslashibe/go-wayfind/pkg/positioning"
	"github.com/teslashibe/go-wayfind/pkg/projection"
)

// DefaultMaxAge drops detections older than roughly two scan periods.
const DefaultMaxAge = 5 * time.Second

// Feed buffers pushed detections until the next scan and keeps the latest
// orientation. It is safe for concurrent use.
type Feed struct {
	maxAge time.Duration
	now    func() time.Time

	mu          sync.Mutex
	pending     map[string]positioning.Detection
	orientation projection.Orientation
	hasOrient   bool
	lastPush    time.Time
}

// NewFeed creates a feed. maxAge <= 0 uses DefaultMaxAge.
func NewFeed(maxAge time.Duration) *Feed {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Feed{
		maxAge:  maxAge,
		now:     time.Now,
		pending: make(map[string]positioning.Detection),
	}
}

// PushDetections adds readings for the next scan. Zero timestamps are set to
// now. A beacon seen twice keeps its most recent reading.
func (f *Feed) PushDetections(detections []positioning.Detection) {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range detections {
		if d.Timestamp.IsZero() {
			d.Timestamp = now
		}
		if prev, ok := f.pending[d.BeaconID]; ok && prev.Timestamp.After(d.Timestamp) {
			continue
		}
		f.pending[d.BeaconID] = d
	}
	f.lastPush = now
}

// SetOrientation replaces the latest orientation.
func (f *Feed) SetOrientation(o projection.Orientation) {
	f.mu.Lock()
	f.orientation = o.Normalize()
	f.hasOrient = true
	f.mu.Unlock()
}

// Scan drains detections pushed since the previous scan, dropping any older
// than the max age. It never blocks.
func (f *Feed) Scan(ctx context.Context) ([]positioning.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cutoff := f.now().Add(-f.maxAge)

	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]positioning.Detection, 0, len(f.pending))
	for id, d := range f.pending {
		if !d.Timestamp.Before(cutoff) {
			out = append(out, d)
		}
		delete(f.pending, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BeaconID < out[j].BeaconID })
	return out, nil
}

// Orientation returns the latest orientation.
func (f *Feed) Orientation() (projection.Orientation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orientation, f.hasOrient
}

// LastPush returns when detections were last received.
func (f *Feed) LastPush() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPush
}

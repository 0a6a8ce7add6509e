// Package navigation runs a navigation session: it re-positions the user on
// a scan loop, re-projects overlays on an orientation loop, and pushes a
// State snapshot to an observer after every update.
package navigation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-wayfind/internal/log"
	"github.com/teslashibe/go-wayfind/pkg/positioning"
	"github.com/teslashibe/go-wayfind/pkg/projection"
)

// Controller owns the navigation state for one user.
//
// Both loops serialize compute-and-deliver through emitMu, so observers see
// snapshots one at a time and never a position from one update combined with
// overlays from another. Start and Stop serialize through lifeMu.
type Controller struct {
	config      Config
	positioning *positioning.Engine
	projection  *projection.Engine
	detections  DetectionSource
	orientation OrientationSource
	logger      *slog.Logger
	now         func() time.Time

	lifeMu sync.Mutex
	run    *session

	emitMu sync.Mutex

	mu       sync.RWMutex
	state    State
	observer Observer
}

// session is one Start..Stop span of the two loops.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewController creates an idle controller. orientation may be nil, in which
// case the device is assumed to face heading 0 with no pitch.
func NewController(config Config, pos *positioning.Engine, proj *projection.Engine, detections DetectionSource, orientation OrientationSource, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = log.Component("navigation")
	}
	if proj == nil {
		proj = projection.NewEngine(projection.DefaultConfig())
	}
	return &Controller{
		config:      config.withDefaults(),
		positioning: pos,
		projection:  proj,
		detections:  detections,
		orientation: orientation,
		logger:      logger,
		now:         time.Now,
		state:       State{Phase: PhaseIdle},
	}
}

// Config returns the controller configuration.
func (c *Controller) Config() Config {
	return c.config
}

// Subscribe replaces the observer. Pass nil to stop delivery.
func (c *Controller) Subscribe(o Observer) {
	c.mu.Lock()
	c.observer = o
	c.mu.Unlock()
}

// State returns the latest snapshot.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Clone()
}

// Active reports whether a session is running.
func (c *Controller) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Active()
}

// Start begins navigating to target. It scans once and fails with
// ErrPositionUnavailable if no estimate can be produced. A running session
// is stopped first. ctx bounds only the initial scan; the loops run until
// Stop or arrival.
//
// The initial snapshot is delivered to the observer before Start returns.
// If the user is already within the arrival radius the session finishes
// immediately and no loops are started.
func (c *Controller) Start(ctx context.Context, target Target) (State, error) {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	c.stopLocked()

	detections := c.scan(ctx)
	if err := ctx.Err(); err != nil {
		return State{}, fmt.Errorf("initial scan: %w", err)
	}
	est := c.positioning.EstimatePosition(detections)
	if est == nil {
		return State{}, ErrPositionUnavailable
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r := &session{ctx: runCtx, cancel: cancel}

	c.emitMu.Lock()
	c.mu.Lock()
	c.state = State{
		SessionID: uuid.NewString(),
		Phase:     PhaseActive,
		Target:    &target,
		Path:      []positioning.Point{est.Position.Midpoint(target.Position), target.Position},
	}
	if o, ok := c.currentOrientation(); ok {
		c.state.Pose.Orientation = o
	}
	c.applyEstimate(est)
	snapshot := c.state.Clone()
	c.mu.Unlock()
	c.deliver(snapshot)
	c.emitMu.Unlock()

	c.logger.Info("navigation started",
		"session", snapshot.SessionID,
		"target", target.ID,
		"distance", snapshot.Distance,
		"method", snapshot.Source)

	if snapshot.Arrived {
		cancel()
		return snapshot, nil
	}

	r.wg.Add(2)
	go c.scanLoop(r)
	go c.orientationLoop(r)
	c.run = r
	return snapshot, nil
}

// Stop halts both loops and waits for any in-flight update to finish. Once
// Stop returns no further snapshot is delivered. Overlays are released and
// the phase returns to idle. Calling Stop when idle is a no-op.
func (c *Controller) Stop() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	r := c.run
	if r == nil {
		return
	}
	c.run = nil
	r.cancel()
	r.wg.Wait()

	c.mu.Lock()
	if c.state.Active() {
		c.state.Phase = PhaseIdle
		c.state.Overlays = nil
		c.state.UpdatedAt = c.now()
		c.logger.Info("navigation stopped", "session", c.state.SessionID)
	}
	c.mu.Unlock()
}

// Refresh runs a scan cycle immediately instead of waiting for the next
// tick, and returns the resulting snapshot.
func (c *Controller) Refresh(ctx context.Context) (State, error) {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	r := c.run
	if r == nil || r.ctx.Err() != nil {
		return State{}, ErrNotActive
	}
	detections := c.scan(ctx)
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	c.scanCycle(r, detections)
	return c.State(), nil
}

func (c *Controller) scanLoop(r *session) {
	defer r.wg.Done()

	// A timer re-armed after each cycle keeps cycles from overlapping.
	timer := time.NewTimer(c.config.ScanInterval)
	defer timer.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-timer.C:
			c.scanCycle(r, c.scan(r.ctx))
			timer.Reset(c.config.ScanInterval)
		}
	}
}

func (c *Controller) orientationLoop(r *session) {
	defer r.wg.Done()

	ticker := time.NewTicker(c.config.OrientationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			c.orientationCycle(r)
		}
	}
}

func (c *Controller) scan(ctx context.Context) []positioning.Detection {
	if c.detections == nil {
		return nil
	}
	detections, err := c.detections.Scan(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn("scan failed", "error", err)
		}
		return nil
	}
	return detections
}

func (c *Controller) currentOrientation() (projection.Orientation, bool) {
	if c.orientation == nil {
		return projection.Orientation{}, false
	}
	o, ok := c.orientation.Orientation()
	if !ok {
		return projection.Orientation{}, false
	}
	return o.Normalize(), true
}

func (c *Controller) scanCycle(r *session, detections []positioning.Detection) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	if r.ctx.Err() != nil {
		return
	}

	est := c.positioning.EstimatePosition(detections)

	c.mu.Lock()
	if est != nil {
		c.applyEstimate(est)
	} else {
		c.refreshOverlays()
	}
	snapshot := c.state.Clone()
	c.mu.Unlock()

	c.deliver(snapshot)

	if snapshot.Arrived {
		c.logger.Info("arrived", "session", snapshot.SessionID, "target", snapshot.Target.ID)
		r.cancel()
	}
}

func (c *Controller) orientationCycle(r *session) {
	o, ok := c.currentOrientation()
	if !ok {
		return
	}

	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	if r.ctx.Err() != nil {
		return
	}

	c.mu.Lock()
	c.state.Pose.Orientation = o
	c.refreshOverlays()
	snapshot := c.state.Clone()
	c.mu.Unlock()

	c.deliver(snapshot)
}

// applyEstimate moves the user to est, advances the waypoint and recomputes
// overlays. On arrival the session is finished in place. Caller holds mu.
func (c *Controller) applyEstimate(est *positioning.PositionEstimate) {
	s := &c.state
	e := est.Clone()
	s.Estimate = &e
	s.Pose.Position = e.Position
	s.Accuracy = e.Accuracy
	s.Source = e.Method

	floorHeight := c.projection.Config().FloorHeight
	final := s.Path[len(s.Path)-1]
	s.Distance = projection.Distance3D(s.Pose.Position, final, floorHeight)

	if s.Distance < c.config.ArrivalRadius {
		s.Arrived = true
		s.Phase = PhaseIdle
		s.Overlays = nil
		s.NextWaypoint = len(s.Path) - 1
		s.Bearing = projection.Bearing(s.Pose.Position, final)
		s.UpdatedAt = c.now()
		return
	}

	s.NextWaypoint = len(s.Path) - 1
	for i, wp := range s.Path {
		if projection.Distance3D(s.Pose.Position, wp, floorHeight) > c.config.WaypointRadius {
			s.NextWaypoint = i
			break
		}
	}
	c.refreshOverlays()
}

// refreshOverlays re-projects the destination and next waypoint from the
// current pose. Caller holds mu.
func (c *Controller) refreshOverlays() {
	s := &c.state
	s.UpdatedAt = c.now()
	if !s.Active() || s.Target == nil {
		s.Overlays = nil
		return
	}

	next := s.Path[s.NextWaypoint]
	s.Bearing = projection.Bearing(s.Pose.Position, next)

	targets := []projection.Target{{
		ID:       s.Target.ID,
		Label:    s.Target.Name,
		Position: s.Target.Position,
		Priority: projection.PriorityHigh,
		Kind:     projection.KindDistanceBadge,
	}}
	if s.NextWaypoint < len(s.Path)-1 {
		targets = append(targets, projection.Target{
			ID:       fmt.Sprintf("%s/waypoint-%d", s.Target.ID, s.NextWaypoint+1),
			Label:    fmt.Sprintf("Waypoint %d", s.NextWaypoint+1),
			Position: next,
			Priority: projection.PriorityMedium,
			Kind:     projection.KindWaypoint,
		})
	}
	s.Overlays = c.projection.ComputeOverlays(targets, s.Pose.Position, s.Pose.Orientation, c.config.Screen)
}

func (c *Controller) deliver(s State) {
	c.mu.RLock()
	o := c.observer
	c.mu.RUnlock()
	if o != nil {
		o.OnState(s)
	}
}

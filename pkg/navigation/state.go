package navigation

import (
	"time"

	"github.com/teslashibe/go-wayfind/pkg/positioning"
	"github.com/teslashibe/go-wayfind/pkg/projection"
)

// Phase is the session lifecycle state.
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseActive Phase = "active"
)

// Target is a navigation destination. Position.Z is the floor.
type Target struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Position positioning.Point `json:"position"`
}

// State is a snapshot of a navigation session. Snapshots handed to observers
// and returned by Controller.State share no memory with the controller.
type State struct {
	SessionID    string                        `json:"session_id,omitempty"`
	Phase        Phase                         `json:"phase"`
	Target       *Target                       `json:"target,omitempty"`
	Estimate     *positioning.PositionEstimate `json:"estimate,omitempty"`
	Pose         projection.Pose               `json:"pose"`
	Overlays     []projection.Overlay          `json:"overlays"`
	Path         []positioning.Point           `json:"path,omitempty"`
	NextWaypoint int                           `json:"next_waypoint"`
	Accuracy     float64                       `json:"accuracy"`
	Source       positioning.Method            `json:"source,omitempty"`
	Bearing      float64                       `json:"bearing"`  // toward the next waypoint
	Distance     float64                       `json:"distance"` // to the destination
	Arrived      bool                          `json:"arrived"`
	UpdatedAt    time.Time                     `json:"updated_at"`
}

// Clone returns a deep copy.
func (s State) Clone() State {
	c := s
	if s.Target != nil {
		t := *s.Target
		c.Target = &t
	}
	if s.Estimate != nil {
		e := s.Estimate.Clone()
		c.Estimate = &e
	}
	if s.Overlays != nil {
		c.Overlays = append([]projection.Overlay(nil), s.Overlays...)
	}
	if s.Path != nil {
		c.Path = append([]positioning.Point(nil), s.Path...)
	}
	return c
}

// Active reports whether the snapshot belongs to a running session.
func (s State) Active() bool {
	return s.Phase == PhaseActive
}

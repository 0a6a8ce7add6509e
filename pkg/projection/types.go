// Package projection maps venue positions onto the camera view.
//
// Angles are degrees throughout. Bearings follow the venue convention:
// 0° points along +Y ("north") and angles grow clockwise toward +X, the same
// convention used for device heading.
package projection

import "github.com/teslashibe/go-wayfind/pkg/positioning"

// Orientation is the device attitude in degrees.
type Orientation struct {
	Heading float64 `json:"heading"` // [0,360)
	Pitch   float64 `json:"pitch"`   // (-180,180], positive tilts the camera up
	Roll    float64 `json:"roll"`    // (-180,180]
}

// Normalize wraps each angle into its canonical range.
func (o Orientation) Normalize() Orientation {
	return Orientation{
		Heading: NormalizeHeading(o.Heading),
		Pitch:   NormalizeSigned(o.Pitch),
		Roll:    NormalizeSigned(o.Roll),
	}
}

// Pose is the user's estimated position combined with device orientation.
type Pose struct {
	Position    positioning.Point `json:"position"`
	Orientation Orientation       `json:"orientation"`
}

// ScreenSize is the camera view size in pixels.
type ScreenSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ScreenPoint is a pixel coordinate with the origin at the top-left.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Visibility classifies how an overlay relates to the camera view.
type Visibility string

const (
	Visible  Visibility = "visible"
	Hidden   Visibility = "hidden"
	Occluded Visibility = "occluded"
)

// Priority orders overlays for rendering.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Kind selects the overlay's visual treatment.
type Kind string

const (
	KindDirectionArrow Kind = "direction-arrow"
	KindDistanceBadge  Kind = "distance-badge"
	KindInfo           Kind = "info"
	KindWaypoint       Kind = "waypoint"
)

// Target is anything that can be anchored in the view.
type Target struct {
	ID       string            `json:"id"`
	Label    string            `json:"label"`
	Position positioning.Point `json:"position"`
	Priority Priority          `json:"priority"`
	Kind     Kind              `json:"kind"`
}

// Overlay is a target resolved against the current pose for one frame.
type Overlay struct {
	TargetID        string            `json:"target_id"`
	Label           string            `json:"label"`
	Position        positioning.Point `json:"position"`
	Distance        float64           `json:"distance"`
	Bearing         float64           `json:"bearing"`
	RelativeBearing float64           `json:"relative_bearing"`
	Screen          ScreenPoint       `json:"screen"`
	Visibility      Visibility        `json:"visibility"`
	Priority        Priority          `json:"priority"`
	Kind            Kind              `json:"kind"`
}

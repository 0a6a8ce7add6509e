package projection

import (
	"math"

	"github.com/teslashibe/go-wayfind/pkg/positioning"
)

// Engine projects targets for one camera configuration. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	config Config
}

// NewEngine creates a projection engine.
func NewEngine(config Config) *Engine {
	return &Engine{config: config.withDefaults()}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// raw is an unclamped projection.
type raw struct {
	x, y     float64
	bearing  float64
	relative float64
	inView   bool
}

// project maps target into screen space without clamping.
//
// Horizontal: relative bearing in [-fov/2, fov/2] maps linearly to [0, width].
// Vertical: elevation angle minus pitch in [-fov/2, fov/2] maps to
// [height, 0], so up is smaller y.
func (e *Engine) project(target, user positioning.Point, o Orientation, screen ScreenSize, fov float64) raw {
	o = o.Normalize()
	half := fov / 2

	bearing := Bearing(user, target)
	relative := RelativeBearing(bearing, o.Heading)

	horizontal := HorizontalDistance(user, target)
	height := (target.Z - user.Z) * e.config.FloorHeight
	vertical := Degrees(math.Atan2(height, horizontal)) - o.Pitch

	return raw{
		x:        (relative + half) / fov * screen.Width,
		y:        (half - vertical) / fov * screen.Height,
		bearing:  bearing,
		relative: relative,
		inView:   math.Abs(relative) <= half,
	}
}

// Project returns the clamped screen position of target, or false when it
// lies outside the horizontal field of view. Vertical overflow is clamped,
// never culled.
func (e *Engine) Project(target, user positioning.Point, o Orientation, screen ScreenSize, fov float64) (ScreenPoint, bool) {
	if fov <= 0 {
		fov = e.config.FieldOfView
	}
	r := e.project(target, user, o, screen, fov)
	if !r.inView {
		return ScreenPoint{}, false
	}
	return ScreenPoint{
		X: clamp(r.x, 0, screen.Width),
		Y: clamp(r.y, 0, screen.Height),
	}, true
}

// Project uses the default configuration. See Engine.Project.
func Project(target, user positioning.Point, o Orientation, screen ScreenSize, fov float64) (ScreenPoint, bool) {
	return defaultEngine.Project(target, user, o, screen, fov)
}

var defaultEngine = NewEngine(DefaultConfig())

// ComputeOverlay resolves target against the user's position and device
// orientation. It returns false when the target is beyond the range cutoff;
// such targets produce no overlay at all.
//
// Targets outside the field of view, or whose unclamped position falls off
// screen, are hidden and drawn as direction arrows pinned to the nearest
// edge. Targets closer than the occlusion distance are occluded.
func (e *Engine) ComputeOverlay(target Target, user positioning.Point, o Orientation, screen ScreenSize) (Overlay, bool) {
	distance := Distance3D(user, target.Position, e.config.FloorHeight)
	if distance > e.config.RangeCutoff {
		return Overlay{}, false
	}

	r := e.project(target.Position, user, o, screen, e.config.FieldOfView)

	ov := Overlay{
		TargetID:        target.ID,
		Label:           target.Label,
		Position:        target.Position,
		Distance:        distance,
		Bearing:         r.bearing,
		RelativeBearing: r.relative,
		Priority:        target.Priority,
		Kind:            target.Kind,
		Screen: ScreenPoint{
			X: clamp(r.x, 0, screen.Width),
			Y: clamp(r.y, 0, screen.Height),
		},
	}
	if ov.Priority == "" {
		ov.Priority = PriorityLow
	}
	if ov.Kind == "" {
		ov.Kind = KindInfo
	}

	switch {
	case !r.inView:
		ov.Visibility = Hidden
		if r.relative < 0 {
			ov.Screen.X = 0
		} else {
			ov.Screen.X = screen.Width
		}
	case r.x < 0 || r.x > screen.Width || r.y < 0 || r.y > screen.Height:
		ov.Visibility = Hidden
	case distance < e.config.OcclusionDistance:
		ov.Visibility = Occluded
	default:
		ov.Visibility = Visible
	}
	if ov.Visibility == Hidden {
		ov.Kind = KindDirectionArrow
	}
	return ov, true
}

// ComputeOverlays resolves every target, dropping those out of range.
func (e *Engine) ComputeOverlays(targets []Target, user positioning.Point, o Orientation, screen ScreenSize) []Overlay {
	out := make([]Overlay, 0, len(targets))
	for _, t := range targets {
		if ov, ok := e.ComputeOverlay(t, user, o, screen); ok {
			out = append(out, ov)
		}
	}
	return out
}

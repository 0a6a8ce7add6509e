package projection

import (
	"math"

	"github.com/teslashibe/go-wayfind/pkg/positioning"
)

// Degrees converts radians to degrees.
func Degrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

// NormalizeHeading wraps an angle into [0,360).
func NormalizeHeading(deg float64) float64 {
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a = 0
	}
	return a
}

// NormalizeSigned wraps an angle into (-180,180].
func NormalizeSigned(deg float64) float64 {
	a := math.Mod(deg, 360)
	if a > 180 {
		a -= 360
	} else if a <= -180 {
		a += 360
	}
	return a
}

// Bearing returns the direction from one position to another in [0,360).
// The arguments to atan2 are (dx, dy) so that 0° is +Y.
func Bearing(from, to positioning.Point) float64 {
	dx := to.X - from.X
	dy := to.Y - from.Y
	return NormalizeHeading(Degrees(math.Atan2(dx, dy)))
}

// RelativeBearing returns bearing minus heading in (-180,180].
func RelativeBearing(bearing, heading float64) float64 {
	return NormalizeSigned(bearing - heading)
}

// HorizontalDistance is the planar distance in meters, ignoring floors.
func HorizontalDistance(from, to positioning.Point) float64 {
	return math.Hypot(to.X-from.X, to.Y-from.Y)
}

// Distance3D is the straight-line distance in meters with floors converted
// to height using floorHeight meters per floor.
func Distance3D(from, to positioning.Point, floorHeight float64) float64 {
	dz := (to.Z - from.Z) * floorHeight
	return math.Sqrt(square(to.X-from.X) + square(to.Y-from.Y) + dz*dz)
}

func square(v float64) float64 { return v * v }

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

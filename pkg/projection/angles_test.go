package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teslashibe/go-wayfind/pkg/positioning"
)

func TestNormalizeHeading(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0}, {359.5, 359.5}, {360, 0}, {-90, 270}, {725, 5}, {-720, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NormalizeHeading(tt.in), 1e-9, "in=%v", tt.in)
	}
}

func TestNormalizeSigned(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0}, {180, 180}, {-180, 180}, {190, -170}, {-190, 170}, {540, 180}, {359, -1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NormalizeSigned(tt.in), 1e-9, "in=%v", tt.in)
	}
}

func TestBearing_NorthIsPlusY(t *testing.T) {
	origin := positioning.Point{}
	assert.InDelta(t, 0.0, Bearing(origin, positioning.Point{Y: 10}), 1e-9)
	assert.InDelta(t, 90.0, Bearing(origin, positioning.Point{X: 10}), 1e-9)
	assert.InDelta(t, 180.0, Bearing(origin, positioning.Point{Y: -10}), 1e-9)
	assert.InDelta(t, 270.0, Bearing(origin, positioning.Point{X: -10}), 1e-9)
	assert.InDelta(t, 45.0, Bearing(origin, positioning.Point{X: 3, Y: 3}), 1e-9)
}

func TestRelativeBearing(t *testing.T) {
	assert.InDelta(t, -20.0, RelativeBearing(10, 30), 1e-9)
	assert.InDelta(t, 20.0, RelativeBearing(350, 330), 1e-9)
	assert.InDelta(t, -20.0, RelativeBearing(350, 10), 1e-9)
	assert.InDelta(t, 180.0, RelativeBearing(180, 0), 1e-9)
}

func TestDistance3D_UsesFloorHeight(t *testing.T) {
	from := positioning.Point{X: 0, Y: 0, Z: 1}
	to := positioning.Point{X: 4, Y: 0, Z: 2}
	assert.InDelta(t, 5.0, Distance3D(from, to, 3), 1e-9)
	assert.InDelta(t, 4.0, HorizontalDistance(from, to), 1e-9)
}

func TestOrientation_Normalize(t *testing.T) {
	o := Orientation{Heading: -30, Pitch: 200, Roll: -540}.Normalize()
	assert.InDelta(t, 330.0, o.Heading, 1e-9)
	assert.InDelta(t, -160.0, o.Pitch, 1e-9)
	assert.InDelta(t, 180.0, o.Roll, 1e-9)
}

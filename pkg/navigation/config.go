package navigation

import (
	"time"

	"github.com/teslashibe/go-wayfind/pkg/projection"
)

// Config holds session controller timing and geometry.
type Config struct {
	ScanInterval        time.Duration // Re-positioning period
	OrientationInterval time.Duration // Overlay refresh period
	ArrivalRadius       float64       // Meters from the final waypoint that count as arrived
	WaypointRadius      float64       // Waypoints closer than this are considered passed
	Screen              projection.ScreenSize
}

// DefaultConfig returns the standard controller configuration.
func DefaultConfig() Config {
	return Config{
		ScanInterval:        2 * time.Second,
		OrientationInterval: 100 * time.Millisecond,
		ArrivalRadius:       2.0,
		WaypointRadius:      2.0,
		Screen:              projection.ScreenSize{Width: 1080, Height: 1920},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ScanInterval <= 0 {
		c.ScanInterval = d.ScanInterval
	}
	if c.OrientationInterval <= 0 {
		c.OrientationInterval = d.OrientationInterval
	}
	if c.ArrivalRadius <= 0 {
		c.ArrivalRadius = d.ArrivalRadius
	}
	if c.WaypointRadius <= 0 {
		c.WaypointRadius = d.WaypointRadius
	}
	if c.Screen.Width <= 0 || c.Screen.Height <= 0 {
		c.Screen = d.Screen
	}
	return c
}

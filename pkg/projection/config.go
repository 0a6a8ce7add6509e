package projection

// Config holds the projection parameters.
type Config struct {
	FieldOfView       float64 // Horizontal camera FOV in degrees
	RangeCutoff       float64 // Overlays farther than this (meters) are not generated
	OcclusionDistance float64 // Closer than this (meters) is occluded
	FloorHeight       float64 // Meters per floor
}

// DefaultConfig returns the standard phone-camera configuration.
func DefaultConfig() Config {
	return Config{
		FieldOfView:       60,
		RangeCutoff:       50,
		OcclusionDistance: 2,
		FloorHeight:       3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FieldOfView <= 0 || c.FieldOfView >= 360 {
		c.FieldOfView = d.FieldOfView
	}
	if c.RangeCutoff <= 0 {
		c.RangeCutoff = d.RangeCutoff
	}
	if c.OcclusionDistance <= 0 {
		c.OcclusionDistance = d.OcclusionDistance
	}
	if c.FloorHeight <= 0 {
		c.FloorHeight = d.FloorHeight
	}
	return c
}

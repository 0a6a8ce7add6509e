package positioning

// Config holds the tunable positioning parameters.
type Config struct {
	// Detections at or below this RSSI (dBm) are discarded as unreliable.
	RSSIThreshold int

	// At most this many of the strongest detections are fused per scan.
	MaxBeacons int

	// Number of fresh estimates kept for carry-forward.
	HistorySize int

	// RSSI measured at one meter from a beacon.
	ReferenceRSSI int
}

// MaxHistorySize bounds how many fresh estimates are retained.
const MaxHistorySize = 10

// DefaultConfig returns the calibrated defaults.
func DefaultConfig() Config {
	return Config{
		RSSIThreshold: -90,
		MaxBeacons:    4,
		HistorySize:   MaxHistorySize,
		ReferenceRSSI: ReferenceRSSI,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RSSIThreshold == 0 {
		c.RSSIThreshold = d.RSSIThreshold
	}
	if c.MaxBeacons <= 0 {
		c.MaxBeacons = d.MaxBeacons
	}
	if c.HistorySize <= 0 {
		c.HistorySize = d.HistorySize
	}
	if c.HistorySize > MaxHistorySize {
		c.HistorySize = MaxHistorySize
	}
	if c.ReferenceRSSI == 0 {
		c.ReferenceRSSI = d.ReferenceRSSI
	}
	return c
}

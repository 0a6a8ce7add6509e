// Package app wires the wayfind server together and manages its lifecycle.
package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/teslashibe/go-wayfind/internal/config"
	"github.com/teslashibe/go-wayfind/pkg/navigation"
	"github.com/teslashibe/go-wayfind/pkg/positioning"
	"github.com/teslashibe/go-wayfind/pkg/projection"
	"github.com/teslashibe/go-wayfind/pkg/publish"
)

// Version is reported over mDNS and in logs.
var Version = "dev"

// Config holds all configuration for the wayfind server.
// Flag parsing is done in cmd/wayfind/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose logging.
	Debug bool

	// Host and Port the API listens on.
	Host string
	Port string

	// VenueID selects the venue served by this instance.
	VenueID string

	// StorePath is the venue store; .db/.sqlite selects SQLite, anything else JSON.
	StorePath string

	// TuningPath is an optional JSON tuning file applied after env.
	TuningPath string

	// Simulate replaces pushed sensor readings with a simulated walk.
	Simulate bool

	// Tuning.
	ScanInterval        time.Duration
	OrientationInterval time.Duration
	FieldOfView         float64
	RSSIThreshold       int
	RangeCutoff         float64
	HistorySize         int

	// Integrations.
	Redis publish.Config
	MDNS  bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	nav := navigation.DefaultConfig()
	pos := positioning.DefaultConfig()
	proj := projection.DefaultConfig()
	return Config{
		Port:                config.DefaultPort,
		VenueID:             config.DefaultVenueID,
		StorePath:           config.DefaultStorePath,
		ScanInterval:        nav.ScanInterval,
		OrientationInterval: nav.OrientationInterval,
		FieldOfView:         proj.FieldOfView,
		RSSIThreshold:       pos.RSSIThreshold,
		RangeCutoff:         proj.RangeCutoff,
		HistorySize:         pos.HistorySize,
		Redis:               publish.DefaultConfig(),
	}
}

// LoadEnvConfig applies environment overrides.
// Call this after flag parsing.
func (c *Config) LoadEnvConfig() {
	c.VenueID = config.VenueID(c.VenueID)
	c.Port = config.Port(c.Port)
	c.StorePath = config.StorePath(c.StorePath)
	c.TuningPath = config.EnvString("WAYFIND_TUNING", c.TuningPath)
	c.Simulate = config.EnvBool("WAYFIND_SIMULATE", c.Simulate)
	c.MDNS = config.EnvBool("WAYFIND_MDNS", c.MDNS)

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
		c.Redis.Enabled = true
	}
	c.Redis.Password = config.EnvString("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = config.EnvInt("REDIS_DB", c.Redis.DB)
	c.Redis.Prefix = config.EnvString("WAYFIND_REDIS_PREFIX", c.Redis.Prefix)
}

// ApplyTuning overlays the tuning file, if one is configured.
func (c *Config) ApplyTuning() error {
	if c.TuningPath == "" {
		return nil
	}
	t, err := config.LoadTuning(c.TuningPath)
	if err != nil {
		return err
	}
	c.ScanInterval = t.ScanIntervalOr(c.ScanInterval)
	c.OrientationInterval = t.OrientationIntervalOr(c.OrientationInterval)
	c.FieldOfView = t.FieldOfViewOr(c.FieldOfView)
	c.RSSIThreshold = t.RSSIThresholdOr(c.RSSIThreshold)
	c.RangeCutoff = t.RangeCutoffOr(c.RangeCutoff)
	c.HistorySize = t.HistorySizeOr(c.HistorySize)
	return nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.VenueID == "" {
		return &ConfigError{Field: "VenueID", Message: "venue id is required (WAYFIND_VENUE)"}
	}
	if c.StorePath == "" {
		return &ConfigError{Field: "StorePath", Message: "venue store path is required (WAYFIND_STORE)"}
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p < 0 || p > 65535 {
		return &ConfigError{Field: "Port", Message: fmt.Sprintf("invalid port %q", c.Port)}
	}
	if c.ScanInterval <= 0 || c.OrientationInterval <= 0 {
		return &ConfigError{Field: "ScanInterval", Message: "scan and orientation intervals must be positive"}
	}
	if c.FieldOfView <= 0 || c.FieldOfView >= 180 {
		return &ConfigError{Field: "FieldOfView", Message: fmt.Sprintf("field of view must be in (0,180), got %v", c.FieldOfView)}
	}
	if c.HistorySize < 1 || c.HistorySize > positioning.MaxHistorySize {
		return &ConfigError{Field: "HistorySize", Message: fmt.Sprintf("history size must be in [1,%d], got %d", positioning.MaxHistorySize, c.HistorySize)}
	}
	if c.RSSIThreshold >= 0 {
		return &ConfigError{Field: "RSSIThreshold", Message: "rssi threshold must be negative"}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return &ConfigError{Field: "Redis.Addr", Message: "REDIS_ADDR is required when redis publishing is enabled"}
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

func (c *Config) positioningConfig() positioning.Config {
	cfg := positioning.DefaultConfig()
	cfg.RSSIThreshold = c.RSSIThreshold
	cfg.HistorySize = c.HistorySize
	return cfg
}

func (c *Config) projectionConfig() projection.Config {
	cfg := projection.DefaultConfig()
	cfg.FieldOfView = c.FieldOfView
	cfg.RangeCutoff = c.RangeCutoff
	return cfg
}

func (c *Config) navigationConfig() navigation.Config {
	cfg := navigation.DefaultConfig()
	cfg.ScanInterval = c.ScanInterval
	cfg.OrientationInterval = c.OrientationInterval
	return cfg
}

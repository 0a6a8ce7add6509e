// wayfind: indoor navigation server. Fuses beacon detections pushed by
// phones into a position, projects AR overlays and streams navigation state.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-wayfind/internal/log"
	"github.com/teslashibe/go-wayfind/pkg/app"
)

var version = "dev"

func main() {
	cfg := parseFlags()

	level := "info"
	if cfg.Debug {
		level = "debug"
	}
	log.Init(level)
	app.Version = version

	a, err := app.New(cfg)
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Init(ctx); err != nil {
		log.Error("initialization failed", "error", err)
		a.Shutdown()
		os.Exit(1)
	}
	defer a.Shutdown()

	if err := a.Run(ctx); err != nil {
		log.Error("runtime error", "error", err)
	}
}

// parseFlags parses command line flags and returns configuration.
func parseFlags() app.Config {
	cfg := app.DefaultConfig()

	flag.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")
	flag.StringVar(&cfg.Host, "host", "", "Listen host (empty for all interfaces)")
	flag.StringVar(&cfg.Port, "port", cfg.Port, "HTTP port (overridden by WAYFIND_PORT)")
	flag.StringVar(&cfg.VenueID, "venue", cfg.VenueID, "Venue to serve (overridden by WAYFIND_VENUE)")
	flag.StringVar(&cfg.StorePath, "store", cfg.StorePath, "Venue store: .json file or .db SQLite database")
	flag.StringVar(&cfg.TuningPath, "tuning", "", "Optional JSON tuning file")
	flag.BoolVar(&cfg.Simulate, "simulate", false, "Walk the venue with simulated sensors instead of pushed readings")
	flag.DurationVar(&cfg.ScanInterval, "scan-interval", cfg.ScanInterval, "Beacon scan interval")
	flag.DurationVar(&cfg.OrientationInterval, "orientation-interval", cfg.OrientationInterval, "Overlay refresh interval")
	flag.Float64Var(&cfg.FieldOfView, "fov", cfg.FieldOfView, "Horizontal camera field of view in degrees")
	flag.IntVar(&cfg.RSSIThreshold, "rssi-threshold", cfg.RSSIThreshold, "Discard detections at or below this RSSI")
	flag.Float64Var(&cfg.RangeCutoff, "range", cfg.RangeCutoff, "Overlay range cutoff in meters")
	flag.IntVar(&cfg.HistorySize, "history", cfg.HistorySize, "Position history size")
	flag.BoolVar(&cfg.MDNS, "mdns", false, "Advertise the API over mDNS")
	flag.BoolVar(&cfg.Redis.Enabled, "redis", false, "Publish navigation state to Redis")
	flag.StringVar(&cfg.Redis.Addr, "redis-addr", cfg.Redis.Addr, "Redis address (REDIS_ADDR)")
	flag.StringVar(&cfg.Redis.Prefix, "redis-prefix", cfg.Redis.Prefix, "Redis key and channel prefix")
	flag.Parse()

	return cfg
}

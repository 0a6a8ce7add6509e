package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/teslashibe/go-wayfind/internal/log"
	"github.com/teslashibe/go-wayfind/pkg/discovery"
	"github.com/teslashibe/go-wayfind/pkg/hub"
	"github.com/teslashibe/go-wayfind/pkg/navigation"
	"github.com/teslashibe/go-wayfind/pkg/positioning"
	"github.com/teslashibe/go-wayfind/pkg/projection"
	"github.com/teslashibe/go-wayfind/pkg/publish"
	"github.com/teslashibe/go-wayfind/pkg/sensor"
	"github.com/teslashibe/go-wayfind/pkg/venue"
	"github.com/teslashibe/go-wayfind/pkg/web"
)

// App is the wayfind server orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config Config
	logger *slog.Logger

	// Venue data
	store venue.Store

	// Engines
	positioning *positioning.Engine
	projection  *projection.Engine
	controller  *navigation.Controller

	// Sensor input
	feed      *sensor.Feed
	simulator *sensor.Simulator

	// Outputs
	states    *hub.Hub
	server    *web.Server
	publisher *publish.RedisPublisher
	discovery *discovery.Service

	mu    sync.Mutex
	addr  string
	ready chan struct{}
}

// New creates a new application with the given configuration.
func New(cfg Config) (*App, error) {
	// Apply environment overrides, then the tuning file
	cfg.LoadEnvConfig()
	if err := cfg.ApplyTuning(); err != nil {
		return nil, fmt.Errorf("tuning: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &App{
		config: cfg,
		logger: log.Component("app"),
		ready:  make(chan struct{}),
	}, nil
}

// Config returns the effective configuration.
func (a *App) Config() Config {
	return a.config
}

// Init opens the venue store and builds every component.
// Call this after New() and before Run().
func (a *App) Init(ctx context.Context) error {
	a.logger.Info("wayfind starting", "version", Version, "venue", a.config.VenueID, "store", a.config.StorePath)

	store, err := venue.Open(a.config.StorePath)
	if err != nil {
		return fmt.Errorf("open venue store: %w", err)
	}
	a.store = store

	a.positioning = positioning.NewEngine(a.config.positioningConfig(), store, log.Component("positioning"))
	beacons, err := a.positioning.Load(ctx, a.config.VenueID)
	if err != nil {
		return err
	}
	a.projection = projection.NewEngine(a.config.projectionConfig())
	a.logger.Info("venue loaded", "venue", a.config.VenueID, "beacons", len(beacons))

	a.feed = sensor.NewFeed(2 * a.config.ScanInterval)
	var detections navigation.DetectionSource = a.feed
	var orientation navigation.OrientationSource = a.feed
	if a.config.Simulate {
		a.simulator = sensor.NewSimulator(a.simulation(beacons), beacons)
		detections, orientation = a.simulator, a.simulator
		a.logger.Info("simulated sensor input enabled")
	}

	a.controller = navigation.NewController(a.config.navigationConfig(), a.positioning, a.projection,
		detections, orientation, log.Component("navigation"))

	a.states = hub.New("state", log.Component("hub"))
	observers := []navigation.Observer{a.states}

	if a.config.Redis.Enabled {
		p := publish.NewRedisPublisher(a.config.Redis, a.config.VenueID, log.Component("publish"))
		if err := p.Connect(ctx); err != nil {
			a.logger.Warn("redis unavailable, publishing disabled", "addr", a.config.Redis.Addr, "error", err)
			_ = p.Close()
		} else {
			a.publisher = p
			observers = append(observers, p)
		}
	}
	a.controller.Subscribe(navigation.Observers(observers...))

	a.server = web.NewServer(web.Deps{
		Store:      store,
		VenueID:    a.config.VenueID,
		Controller: a.controller,
		Feed:       a.feed,
		States:     a.states,
		Logger:     log.Component("web"),
		Debug:      a.config.Debug,
	})
	return nil
}

// simulation walks the beacons in stored order.
func (a *App) simulation(beacons []positioning.Beacon) sensor.SimConfig {
	cfg := sensor.DefaultSimConfig()
	for _, b := range beacons {
		cfg.Path = append(cfg.Path, b.Position)
	}
	cfg.Noise = 2
	cfg.Seed = uint64(time.Now().UnixNano())
	return cfg
}

// Run serves the API until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.config.Addr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	a.mu.Lock()
	a.addr = ln.Addr().String()
	a.mu.Unlock()
	close(a.ready)

	go a.states.Run(ctx)
	if a.publisher != nil {
		go a.publisher.Run(ctx)
	}
	if a.config.MDNS {
		a.startDiscovery(ln.Addr())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	}
}

func (a *App) startDiscovery(addr net.Addr) {
	port, _ := strconv.Atoi(a.config.Port)
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
	}
	a.discovery = discovery.NewService(discovery.Config{
		Port:    port,
		VenueID: a.config.VenueID,
		Version: Version,
	}, log.Component("discovery"))
	if err := a.discovery.Start(); err != nil {
		a.logger.Warn("mdns advertisement failed", "error", err)
	}
}

// Ready is closed once Run is listening.
func (a *App) Ready() <-chan struct{} {
	return a.ready
}

// Addr returns the bound listen address, empty before Run.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// Controller returns the navigation controller.
func (a *App) Controller() *navigation.Controller {
	return a.controller
}

// Feed returns the pushed-sensor buffer.
func (a *App) Feed() *sensor.Feed {
	return a.feed
}

// Server returns the API server.
func (a *App) Server() *web.Server {
	return a.server
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	if a.controller != nil {
		a.controller.Stop()
	}
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warn("api shutdown", "error", err)
		}
		cancel()
	}
	if a.discovery != nil {
		a.discovery.Stop()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("redis close", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("store close", "error", err)
		}
	}
	a.logger.Info("wayfind stopped")
}

// Package web serves the wayfind HTTP and WebSocket API.
package web

import (
	"context"
	"log/slog"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	requestlog "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-wayfind/internal/log"
	"github.com/teslashibe/go-wayfind/pkg/hub"
	"github.com/teslashibe/go-wayfind/pkg/navigation"
	"github.com/teslashibe/go-wayfind/pkg/positioning"
	"github.com/teslashibe/go-wayfind/pkg/projection"
	"github.com/teslashibe/go-wayfind/pkg/sensor"
	"github.com/teslashibe/go-wayfind/pkg/venue"
)

// Deps are the collaborators the server exposes.
type Deps struct {
	Store      venue.Store
	VenueID    string
	Controller *navigation.Controller
	Feed       *sensor.Feed
	States     *hub.Hub // Must be running
	Logger     *slog.Logger
	Debug      bool // Log every request
}

// Server is the wayfind API server
type Server struct {
	app    *fiber.App
	logger *slog.Logger

	store      venue.Store
	venueID    string
	controller *navigation.Controller
	feed       *sensor.Feed
	states     *hub.Hub
	ingest     *Ingest
}

// NewServer creates the API server. Call Serve to start it.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Component("web")
	}
	s := &Server{
		logger:     logger,
		store:      deps.Store,
		venueID:    deps.VenueID,
		controller: deps.Controller,
		feed:       deps.Feed,
		states:     deps.States,
		ingest:     NewIngest(logger.With("endpoint", "sensor")),
	}
	s.ingest.OnDetections(func(_ string, d []positioning.Detection) { s.feed.PushDetections(d) })
	s.ingest.OnOrientation(func(_ string, o projection.Orientation) { s.feed.SetOrientation(o) })

	app := fiber.New(fiber.Config{
		AppName:               "wayfind",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())
	if deps.Debug {
		app.Use(requestlog.New())
	}

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/venue", s.handleVenue)
	api.Get("/targets", s.handleTargets)
	api.Get("/targets/:id", s.handleTarget)
	api.Get("/navigation", s.handleNavigationState)
	api.Post("/navigation", s.handleNavigationStart)
	api.Delete("/navigation", s.handleNavigationStop)
	api.Post("/detections", s.handleDetections)
	api.Post("/orientation", s.handleOrientation)
	api.Get("/devices", s.handleDevices)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(s.handleStateWS))
	s.ingest.RegisterRoutes(app)

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Ingest returns the sensor ingest endpoint.
func (s *Server) Ingest() *Ingest {
	return s.ingest
}

// Serve blocks serving on ln.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("api listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// handleStateWS streams navigation snapshots through the state hub.
func (s *Server) handleStateWS(c *websocket.Conn) {
	client := hub.NewClient(s.states, c)
	if client == nil {
		return
	}
	client.Run()
}

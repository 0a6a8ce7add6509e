package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-wayfind/pkg/navigation"
	"github.com/teslashibe/go-wayfind/pkg/positioning"
	"github.com/teslashibe/go-wayfind/pkg/projection"
	"github.com/teslashibe/go-wayfind/pkg/venue"
)

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, venue.ErrVenueNotFound), errors.Is(err, venue.ErrTargetNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, navigation.ErrNotActive):
		return fiber.StatusConflict
	case errors.Is(err, navigation.ErrPositionUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status >= fiber.StatusInternalServerError && status != fiber.StatusServiceUnavailable {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// handleHealth reports liveness and a few counters
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":     "ok",
		"venue":      s.venueID,
		"navigating": s.controller.Active(),
		"clients":    s.states.ClientCount(),
		"ingest":     s.ingest.Stats(),
	})
}

// handleVenue returns the active venue with beacons and targets
func (s *Server) handleVenue(c *fiber.Ctx) error {
	v, err := s.store.Venue(c.UserContext(), s.venueID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(v)
}

// handleTargets lists the venue's points of interest
func (s *Server) handleTargets(c *fiber.Ctx) error {
	targets, err := s.store.Targets(c.UserContext(), s.venueID)
	if err != nil {
		return s.fail(c, err)
	}
	if targets == nil {
		targets = []venue.Target{}
	}
	return c.JSON(targets)
}

func (s *Server) handleTarget(c *fiber.Ctx) error {
	t, err := s.store.Target(c.UserContext(), s.venueID, c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(t)
}

// handleNavigationState returns the latest navigation snapshot
func (s *Server) handleNavigationState(c *fiber.Ctx) error {
	return c.JSON(s.controller.State())
}

// StartNavigationRequest is the body of POST /api/navigation
type StartNavigationRequest struct {
	TargetID string `json:"target_id"`
}

// handleNavigationStart begins navigating to a stored target
func (s *Server) handleNavigationStart(c *fiber.Ctx) error {
	var req StartNavigationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.TargetID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "target_id is required"})
	}

	target, err := s.store.Target(c.UserContext(), s.venueID, req.TargetID)
	if err != nil {
		return s.fail(c, err)
	}
	state, err := s.controller.Start(c.UserContext(), target.Navigation())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(state)
}

// handleNavigationStop ends the active session
func (s *Server) handleNavigationStop(c *fiber.Ctx) error {
	if !s.controller.Active() {
		return s.fail(c, navigation.ErrNotActive)
	}
	s.controller.Stop()

	// The controller delivers nothing after Stop, so announce the idle state
	// to stream clients here.
	state := s.controller.State()
	s.states.OnState(state)
	return c.JSON(state)
}

// handleDetections accepts one scan's readings
func (s *Server) handleDetections(c *fiber.Ctx) error {
	var detections []positioning.Detection
	if err := c.BodyParser(&detections); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := validateDetections(detections); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	s.feed.PushDetections(detections)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"accepted": len(detections)})
}

// handleOrientation accepts the latest device orientation
func (s *Server) handleOrientation(c *fiber.Ctx) error {
	var o projection.Orientation
	if err := c.BodyParser(&o); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	s.feed.SetOrientation(o)
	return c.SendStatus(fiber.StatusNoContent)
}

// handleDevices lists phones connected to the sensor stream
func (s *Server) handleDevices(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"devices": s.ingest.DeviceInfos(),
		"count":   s.ingest.DeviceCount(),
	})
}

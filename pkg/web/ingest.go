package web

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-wayfind/pkg/positioning"
	"github.com/teslashibe/go-wayfind/pkg/projection"
	"github.com/teslashibe/go-wayfind/pkg/protocol"
)

// Device is a connected phone streaming sensor readings.
type Device struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send writes a message to the device.
func (d *Device) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Conn.WriteMessage(websocket.TextMessage, data)
}

// Ingest accepts sensor streams over WebSocket and hands decoded readings to
// its callbacks.
type Ingest struct {
	mu      sync.RWMutex
	devices map[string]*Device
	logger  *slog.Logger

	onDetections  func(deviceID string, detections []positioning.Detection)
	onOrientation func(deviceID string, o projection.Orientation)

	messagesReceived atomic.Uint64
	messagesRejected atomic.Uint64
	detections       atomic.Uint64
}

// NewIngest creates an ingest endpoint.
func NewIngest(logger *slog.Logger) *Ingest {
	return &Ingest{
		devices: make(map[string]*Device),
		logger:  logger,
	}
}

// OnDetections sets the callback for incoming scans
func (h *Ingest) OnDetections(callback func(deviceID string, detections []positioning.Detection)) {
	h.mu.Lock()
	h.onDetections = callback
	h.mu.Unlock()
}

// OnOrientation sets the callback for incoming orientation updates
func (h *Ingest) OnOrientation(callback func(deviceID string, o projection.Orientation)) {
	h.mu.Lock()
	h.onOrientation = callback
	h.mu.Unlock()
}

// RegisterRoutes mounts /ws/sensor and /ws/sensor/:id. The caller installs
// the /ws upgrade middleware.
func (h *Ingest) RegisterRoutes(app *fiber.App) {
	app.Get("/ws/sensor", websocket.New(h.handleDevice))
	app.Get("/ws/sensor/:id", websocket.New(h.handleDevice))
}

func (h *Ingest) handleDevice(c *websocket.Conn) {
	deviceID := c.Params("id")
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	device := &Device{
		ID:        deviceID,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	h.mu.Lock()
	h.devices[deviceID] = device
	count := len(h.devices)
	h.mu.Unlock()
	h.logger.Info("device connected", "device", deviceID, "devices", count)

	defer func() {
		h.mu.Lock()
		if h.devices[deviceID] == device {
			delete(h.devices, deviceID)
		}
		count := len(h.devices)
		h.mu.Unlock()
		h.logger.Info("device disconnected", "device", deviceID, "devices", count)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.logger.Debug("device read ended", "device", deviceID, "error", err)
			return
		}

		device.mu.Lock()
		device.LastSeen = time.Now()
		device.mu.Unlock()

		h.messagesReceived.Add(1)
		if reply := h.handleMessage(deviceID, data); reply != nil {
			if err := device.Send(reply); err != nil {
				return
			}
		}
	}
}

// handleMessage processes one inbound message and returns an optional reply.
func (h *Ingest) handleMessage(deviceID string, data []byte) *protocol.Message {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return h.reject("", err)
	}

	h.mu.RLock()
	detectionsCb := h.onDetections
	orientationCb := h.onOrientation
	h.mu.RUnlock()

	switch msg.Type {
	case protocol.TypeDetections:
		detections, err := msg.GetDetections()
		if err == nil {
			err = validateDetections(detections)
		}
		if err != nil {
			return h.reject(msg.Type, err)
		}
		h.detections.Add(uint64(len(detections)))
		if detectionsCb != nil {
			detectionsCb(deviceID, detections)
		}

	case protocol.TypeOrientation:
		o, err := msg.GetOrientation()
		if err != nil {
			return h.reject(msg.Type, err)
		}
		if orientationCb != nil {
			orientationCb(deviceID, o)
		}

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return h.reject(msg.Type, err)
		}
		pong, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return nil
		}
		return pong

	default:
		return h.reject(msg.Type, fmt.Errorf("unsupported message type %q", msg.Type))
	}
	return nil
}

func (h *Ingest) reject(t protocol.MessageType, err error) *protocol.Message {
	h.messagesRejected.Add(1)
	h.logger.Debug("message rejected", "type", t, "error", err)
	reply, _ := protocol.NewErrorMessage(t, err)
	return reply
}

var errMissingBeaconID = errors.New("detection without beacon_id")

func validateDetections(detections []positioning.Detection) error {
	for _, d := range detections {
		if d.BeaconID == "" {
			return errMissingBeaconID
		}
	}
	return nil
}

// DeviceCount returns the number of connected devices
func (h *Ingest) DeviceCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.devices)
}

// DeviceInfo describes a connected device
type DeviceInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// DeviceInfos returns info about all connected devices
func (h *Ingest) DeviceInfos() []DeviceInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]DeviceInfo, 0, len(h.devices))
	for _, d := range h.devices {
		d.mu.Lock()
		infos = append(infos, DeviceInfo{ID: d.ID, Connected: d.Connected, LastSeen: d.LastSeen})
		d.mu.Unlock()
	}
	return infos
}

// IngestStats contains ingest counters
type IngestStats struct {
	Devices          int    `json:"devices"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesRejected uint64 `json:"messages_rejected"`
	Detections       uint64 `json:"detections"`
}

// Stats returns ingest counters
func (h *Ingest) Stats() IngestStats {
	return IngestStats{
		Devices:          h.DeviceCount(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesRejected: h.messagesRejected.Load(),
		Detections:       h.detections.Load(),
	}
}

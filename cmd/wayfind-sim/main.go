// wayfind-sim: simulated phone. Walks a venue fetched from a wayfind server
// and streams synthetic beacon detections and orientation over the sensor
// websocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-wayfind/internal/httpc"
	"github.com/teslashibe/go-wayfind/internal/log"
	"github.com/teslashibe/go-wayfind/pkg/positioning"
	"github.com/teslashibe/go-wayfind/pkg/protocol"
	"github.com/teslashibe/go-wayfind/pkg/sensor"
	"github.com/teslashibe/go-wayfind/pkg/venue"
)

var (
	server       = flag.String("server", "localhost:8080", "wayfind server host:port")
	deviceID     = flag.String("device", "", "Device id (random if empty)")
	targetID     = flag.String("target", "", "Start navigating to this target")
	speed        = flag.Float64("speed", 1.2, "Walking speed in m/s")
	noise        = flag.Float64("noise", 2, "RSSI noise standard deviation in dBm")
	seed         = flag.Uint64("seed", 0, "Noise seed (time based if zero)")
	scanEvery    = flag.Duration("scan", time.Second, "Detection push interval")
	orientEvery  = flag.Duration("orientation", 100*time.Millisecond, "Orientation push interval")
	debugLogging = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()
	if *debugLogging {
		log.Init("debug")
	} else {
		log.Init("info")
	}
	logger := log.Component("sim")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger.With("server", *server)); err != nil {
		logger.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	base := "http://" + *server

	v, err := fetchVenue(ctx, base)
	if err != nil {
		return err
	}
	if len(v.Beacons) == 0 {
		return fmt.Errorf("venue %q has no beacons", v.ID)
	}

	cfg := sensor.DefaultSimConfig()
	cfg.Speed = *speed
	cfg.Noise = *noise
	cfg.Seed = *seed
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	cfg.Path = walkPath(v, *targetID)
	sim := sensor.NewSimulator(cfg, v.Beacons)
	logger.Info("simulating walk", "venue", v.ID, "waypoints", len(cfg.Path))

	id := *deviceID
	if id == "" {
		id = "sim-" + uuid.NewString()[:8]
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, fmt.Sprintf("ws://%s/ws/sensor/%s", *server, id), nil)
	if err != nil {
		return fmt.Errorf("dial sensor stream: %w", err)
	}
	defer ws.Close()

	go func() {
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			msg, err := protocol.ParseMessage(data)
			if err != nil {
				continue
			}
			switch msg.Type {
			case protocol.TypePong:
				if pong, err := msg.GetPongData(); err == nil {
					logger.Debug("pong", "rtt_ms", time.Now().UnixMilli()-pong.PingTS)
				}
			case protocol.TypeError:
				if e, err := msg.GetErrorData(); err == nil {
					logger.Warn("server rejected message", "type", e.Type, "error", e.Message)
				}
			}
		}
	}()

	if err := sendDetections(ctx, ws, sim); err != nil {
		return err
	}
	if *targetID != "" {
		if err := startNavigation(ctx, base, *targetID); err != nil {
			logger.Warn("start navigation failed", "target", *targetID, "error", err)
		} else {
			logger.Info("navigation started", "target", *targetID)
		}
	}

	scan := time.NewTicker(*scanEvery)
	defer scan.Stop()
	orient := time.NewTicker(*orientEvery)
	defer orient.Stop()
	ping := time.NewTicker(10 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		case <-scan.C:
			if err := sendDetections(ctx, ws, sim); err != nil {
				return err
			}
		case <-orient.C:
			o, _ := sim.Orientation()
			msg, err := protocol.NewOrientationMessage(o)
			if err != nil {
				return err
			}
			if err := write(ws, msg); err != nil {
				return err
			}
		case <-ping.C:
			msg, err := protocol.NewPingMessage(uuid.NewString())
			if err != nil {
				return err
			}
			if err := write(ws, msg); err != nil {
				return err
			}
		}
	}
}

// walkPath starts at the first beacon. With a target it walks straight
// there, otherwise it visits every beacon.
func walkPath(v *venue.Venue, targetID string) []positioning.Point {
	path := []positioning.Point{v.Beacons[0].Position}
	for _, t := range v.Targets {
		if t.ID == targetID {
			return append(path, t.Position)
		}
	}
	for _, b := range v.Beacons[1:] {
		path = append(path, b.Position)
	}
	return path
}

func sendDetections(ctx context.Context, ws *websocket.Conn, sim *sensor.Simulator) error {
	detections, err := sim.Scan(ctx)
	if err != nil {
		return err
	}
	msg, err := protocol.NewDetectionsMessage(detections)
	if err != nil {
		return err
	}
	return write(ws, msg)
}

func write(ws *websocket.Conn, msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, data)
}

func fetchVenue(ctx context.Context, base string) (*venue.Venue, error) {
	var v venue.Venue
	if err := httpc.GetJSON(ctx, base+"/api/venue", &v); err != nil {
		return nil, fmt.Errorf("fetch venue: %w", err)
	}
	return &v, nil
}

func startNavigation(ctx context.Context, base, target string) error {
	return httpc.PostJSON(ctx, base+"/api/navigation", map[string]string{"target_id": target}, nil)
}

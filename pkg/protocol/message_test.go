package protocol

import (
	"errors"
	"testing"
	"time"

	"github.com/teslashibe/go-wayfind/pkg/navigation"
	"github.com/teslashibe/go-wayfind/pkg/positioning"
	"github.com/teslashibe/go-wayfind/pkg/projection"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    any
	}{
		{"detections message", TypeDetections, DetectionsData{Detections: []positioning.Detection{{BeaconID: "b1", RSSI: -60}}}},
		{"orientation message", TypeOrientation, projection.Orientation{Heading: 90}},
		{"nil data", TypePing, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if err != nil {
				t.Fatalf("NewMessage() error = %v", err)
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
			if tt.data == nil && msg.Data != nil {
				t.Errorf("NewMessage() data = %s, want nil", msg.Data)
			}
		})
	}
}

func TestNewMessage_Unmarshalable(t *testing.T) {
	if _, err := NewMessage(TypeState, make(chan int)); err == nil {
		t.Error("expected marshal error")
	}
}

func TestParseMessage(t *testing.T) {
	if _, err := ParseMessage([]byte(`{not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := ParseMessage([]byte(`{"data":{}}`)); err == nil {
		t.Error("expected error for missing type")
	}

	msg, err := ParseMessage([]byte(`{"type":"orientation","ts":1700000000000,"data":{"heading":45,"pitch":-10,"roll":2}}`))
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	o, err := msg.GetOrientation()
	if err != nil {
		t.Fatalf("GetOrientation() error = %v", err)
	}
	if o.Heading != 45 || o.Pitch != -10 || o.Roll != 2 {
		t.Errorf("orientation = %+v", o)
	}
	if got := msg.Time().UnixMilli(); got != 1700000000000 {
		t.Errorf("Time() = %v, want 1700000000000", got)
	}
}

func TestDetectionsMessage(t *testing.T) {
	seen := time.UnixMilli(1700000000123)
	msg, err := NewDetectionsMessage([]positioning.Detection{
		{BeaconID: "b1", RSSI: -55, Timestamp: seen},
		{BeaconID: "b2", RSSI: -70},
	})
	if err != nil {
		t.Fatalf("NewDetectionsMessage() error = %v", err)
	}

	bytes, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	parsed, err := ParseMessage(bytes)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	detections, err := parsed.GetDetections()
	if err != nil {
		t.Fatalf("GetDetections() error = %v", err)
	}
	if len(detections) != 2 {
		t.Fatalf("len = %d, want 2", len(detections))
	}
	if !detections[0].Timestamp.Equal(seen) {
		t.Errorf("Timestamp = %v, want %v", detections[0].Timestamp, seen)
	}
	if detections[1].Timestamp.UnixMilli() != msg.Timestamp {
		t.Errorf("missing timestamp should inherit envelope ts, got %v", detections[1].Timestamp)
	}
	if detections[1].RSSI != -70 {
		t.Errorf("RSSI = %v, want -70", detections[1].RSSI)
	}
}

func TestGetDetections_WrongType(t *testing.T) {
	msg, _ := NewOrientationMessage(projection.Orientation{})
	if _, err := msg.GetDetections(); err == nil {
		t.Error("expected error for orientation message")
	}
	msg, _ = NewDetectionsMessage(nil)
	if _, err := msg.GetOrientation(); err == nil {
		t.Error("expected error for detections message")
	}
}

func TestStateMessage(t *testing.T) {
	state := navigation.State{
		SessionID: "s-1",
		Phase:     navigation.PhaseActive,
		Target:    &navigation.Target{ID: "cafe", Name: "Cafe"},
		Overlays: []projection.Overlay{
			{TargetID: "cafe", Visibility: projection.Visible, Priority: projection.PriorityHigh},
		},
		Distance: 12.5,
	}

	msg, err := NewStateMessage(state)
	if err != nil {
		t.Fatalf("NewStateMessage() error = %v", err)
	}
	if msg.Type != TypeState {
		t.Errorf("Type = %v, want %v", msg.Type, TypeState)
	}

	got, err := msg.GetState()
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if got.SessionID != "s-1" || got.Target == nil || got.Target.ID != "cafe" {
		t.Errorf("state = %+v", got)
	}
	if len(got.Overlays) != 1 || got.Overlays[0].Visibility != projection.Visible {
		t.Errorf("overlays = %+v", got.Overlays)
	}
	if got.Distance != 12.5 {
		t.Errorf("Distance = %v, want 12.5", got.Distance)
	}
}

func TestErrorMessage(t *testing.T) {
	msg, err := NewErrorMessage(TypeDetections, errors.New("bad rssi"))
	if err != nil {
		t.Fatalf("NewErrorMessage() error = %v", err)
	}
	data, err := msg.GetErrorData()
	if err != nil {
		t.Fatalf("GetErrorData() error = %v", err)
	}
	if data.Message != "bad rssi" || data.Type != TypeDetections {
		t.Errorf("error data = %+v", data)
	}
}

func TestPingPongMessage(t *testing.T) {
	pingMsg, err := NewPingMessage("test-123")
	if err != nil {
		t.Fatalf("NewPingMessage() error = %v", err)
	}

	pingData, err := pingMsg.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}
	if pingData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pingData.ID)
	}

	now := time.Now().UnixMilli()
	pongMsg, err := NewPongMessage("test-123", pingData.Timestamp, now)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}
	pongData, err := pongMsg.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}
	if pongData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pongData.ID)
	}
	if pongData.LatencyMs < 0 {
		t.Errorf("LatencyMs = %v, should be >= 0", pongData.LatencyMs)
	}
}

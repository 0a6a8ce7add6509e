package protocol

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-wayfind/pkg/navigation"
	"github.com/teslashibe/go-wayfind/pkg/positioning"
	"github.com/teslashibe/go-wayfind/pkg/projection"
)

// NewDetectionsMessage creates a detections message
func NewDetectionsMessage(detections []positioning.Detection) (*Message, error) {
	return NewMessage(TypeDetections, DetectionsData{Detections: detections})
}

// NewOrientationMessage creates an orientation message
func NewOrientationMessage(o projection.Orientation) (*Message, error) {
	return NewMessage(TypeOrientation, o)
}

// NewStateMessage creates a state message
func NewStateMessage(s navigation.State) (*Message, error) {
	return NewMessage(TypeState, s)
}

// NewErrorMessage reports a rejected message
func NewErrorMessage(rejected MessageType, err error) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: err.Error(), Type: rejected})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id, Timestamp: time.Now().UnixMilli()})
}

// NewPongMessage answers a ping
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// GetDetections extracts detections. Readings without a timestamp inherit
// the envelope's.
func (m *Message) GetDetections() ([]positioning.Detection, error) {
	if m.Type != TypeDetections {
		return nil, fmt.Errorf("not a detections message: %s", m.Type)
	}
	var data DetectionsData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	ts := m.Time()
	for i := range data.Detections {
		if data.Detections[i].Timestamp.IsZero() {
			data.Detections[i].Timestamp = ts
		}
	}
	return data.Detections, nil
}

// GetOrientation extracts the device orientation
func (m *Message) GetOrientation() (projection.Orientation, error) {
	if m.Type != TypeOrientation {
		return projection.Orientation{}, fmt.Errorf("not an orientation message: %s", m.Type)
	}
	var data OrientationData
	if err := m.ParseData(&data); err != nil {
		return projection.Orientation{}, err
	}
	return data, nil
}

// GetState extracts a navigation snapshot
func (m *Message) GetState() (*navigation.State, error) {
	var data StateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts error details
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

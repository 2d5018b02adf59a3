package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prudhvinik1/spectramonitor/internal/models"
)

// Inbound event names.
const (
	EventJoinSession   = "join_device_session"
	EventLeaveSession  = "leave_device_session"
	EventDeviceConnect = "device:connect"
	EventDeviceLog     = "device:log"
	EventScreenFrame   = "device:screen_frame"
)

// Outbound event names.
const (
	EventDeviceUpdate = "device:update"
	EventLogNew       = "log:new"
	EventFrameOut     = "screen:frame"
	EventFlagUpdated  = "flag:updated"
	EventCrashNew     = "crash:new"
	EventError        = "error"
)

var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrUnknownEvent      = errors.New("unknown event")
	ErrValidation        = errors.New("validation failed")
	ErrPersistence       = errors.New("persistence failed")
)

// Envelope is the {event, data} unit on the wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type errorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}

// encode renders an outbound envelope once so every recipient gets the same bytes.
func encode(event string, data any) ([]byte, error) {
	return json.Marshal(outbound{Event: event, Data: data})
}

// ParseEnvelope decodes the outer envelope without touching the payload.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event name", ErrMalformedEnvelope)
	}
	return env, nil
}

// Event is the closed set of decoded inbound payloads.
type Event interface {
	Name() string
	validate() error
}

// Decode maps the envelope onto its payload variant and validates it.
func (e Envelope) Decode() (Event, error) {
	var ev Event
	switch e.Event {
	case EventJoinSession:
		ev = &JoinSession{}
	case EventLeaveSession:
		ev = &LeaveSession{}
	case EventDeviceConnect:
		ev = &DeviceConnect{}
	case EventDeviceLog:
		ev = &DeviceLog{}
	case EventScreenFrame:
		ev = &ScreenFrame{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, e.Event)
	}

	if len(e.Data) == 0 || bytes.Equal(e.Data, []byte("null")) {
		return nil, fmt.Errorf("%w: %s: missing payload", ErrValidation, e.Event)
	}
	if err := json.Unmarshal(e.Data, ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrValidation, e.Event, err)
	}
	if err := ev.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrValidation, e.Event, err)
	}
	return ev, nil
}

// sessionTarget accepts either a bare device id string or {"deviceId": "..."}.
type sessionTarget struct {
	DeviceID string `json:"deviceId"`
}

func (s *sessionTarget) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &s.DeviceID)
	}
	type obj sessionTarget
	return json.Unmarshal(b, (*obj)(s))
}

func (s *sessionTarget) validate() error {
	if s.DeviceID == "" {
		return errors.New("deviceId is required")
	}
	return nil
}

type JoinSession struct{ sessionTarget }

func (*JoinSession) Name() string { return EventJoinSession }

type LeaveSession struct{ sessionTarget }

func (*LeaveSession) Name() string { return EventLeaveSession }

type DeviceConnect struct {
	ID           string               `json:"id"`
	AppID        string               `json:"appId"`
	Model        string               `json:"model"`
	OSVersion    string               `json:"osVersion"`
	UserName     string               `json:"userName"`
	BatteryLevel *int                 `json:"batteryLevel,omitempty"`
	IP           *string              `json:"ip,omitempty"`
	Health       *models.DeviceHealth `json:"health,omitempty"`
}

func (*DeviceConnect) Name() string { return EventDeviceConnect }

func (d *DeviceConnect) validate() error {
	switch {
	case d.ID == "":
		return errors.New("id is required")
	case d.AppID == "":
		return errors.New("appId is required")
	}
	return nil
}

type DeviceLog struct {
	DeviceID  string `json:"deviceId"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Tag       string `json:"tag"`
	Timestamp string `json:"timestamp"`
}

func (*DeviceLog) Name() string { return EventDeviceLog }

func (d *DeviceLog) validate() error {
	switch {
	case d.DeviceID == "":
		return errors.New("deviceId is required")
	case d.Level == "":
		return errors.New("level is required")
	case d.Message == "":
		return errors.New("message is required")
	}
	return nil
}

type ScreenFrame struct {
	DeviceID    string `json:"deviceId"`
	ImageBase64 string `json:"imageBase64"`
}

func (*ScreenFrame) Name() string { return EventScreenFrame }

func (s *ScreenFrame) validate() error {
	switch {
	case s.DeviceID == "":
		return errors.New("deviceId is required")
	case s.ImageBase64 == "":
		return errors.New("imageBase64 is required")
	}
	return nil
}

package relay

import (
	"context"
	"errors"

	"github.com/prudhvinik1/spectramonitor/internal/metrics"
	"go.uber.org/zap"
)

const unknownEventLabel = "unknown"

// Dispatcher routes decoded envelopes to their handler. It holds no
// business logic of its own.
type Dispatcher struct {
	registry *Registry
	presence *PresenceReconciler
	ingest   *LogIngestor
	frames   *FrameRelay
	log      *zap.Logger
	metrics  *metrics.Relay
}

func NewDispatcher(reg *Registry, presence *PresenceReconciler, ingest *LogIngestor, frames *FrameRelay, log *zap.Logger, m *metrics.Relay) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		presence: presence,
		ingest:   ingest,
		frames:   frames,
		log:      log.Named("dispatch"),
		metrics:  m,
	}
}

// Dispatch handles one inbound frame from c. No outcome closes the connection:
// protocol errors are logged and dropped, validation and persistence errors
// are also reported back to c as an error envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, c *Conn, raw []byte) {
	if c.State() != StateOpen {
		return
	}

	env, err := ParseEnvelope(raw)
	if err != nil {
		c.log.Warn("dropping frame", zap.Error(err))
		return
	}

	ev, err := env.Decode()
	d.metrics.FrameReceived(metricEvent(env.Event, err))
	if err != nil {
		c.log.Warn("dropping frame", zap.String("event", env.Event), zap.Error(err))
		if errors.Is(err, ErrValidation) {
			c.sendError(env.Event, err)
		}
		return
	}

	switch e := ev.(type) {
	case *JoinSession:
		if d.registry.Join(SessionRoom(e.DeviceID), c) {
			c.log.Debug("joined session", zap.String("device_id", e.DeviceID))
		}
	case *LeaveSession:
		d.registry.Leave(SessionRoom(e.DeviceID), c)
	case *DeviceConnect:
		_, err = d.presence.Connect(ctx, c, e)
	case *DeviceLog:
		_, err = d.ingest.Ingest(ctx, e)
	case *ScreenFrame:
		d.frames.Relay(e.DeviceID, e.ImageBase64)
	}

	if err != nil {
		c.log.Error("handler failed", zap.String("event", env.Event), zap.Error(err))
		c.sendError(env.Event, err)
	}
}

// metricEvent keeps client-chosen names out of metric labels.
func metricEvent(event string, decodeErr error) string {
	if errors.Is(decodeErr, ErrUnknownEvent) {
		return unknownEventLabel
	}
	return event
}

// Disconnected reconciles presence for a conn that has just closed.
func (d *Dispatcher) Disconnected(ctx context.Context, c *Conn) {
	d.presence.Release(ctx, c)
}

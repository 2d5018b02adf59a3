// Package relay is the real-time session relay: it accepts device and
// observer connections, groups them into per-device session rooms and fans
// presence, log and screen events out to them.
package relay

import (
	"context"
	"time"

	"github.com/prudhvinik1/spectramonitor/internal/metrics"
	"github.com/prudhvinik1/spectramonitor/internal/repositories"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deps struct {
	Devices  repositories.DeviceRepository
	Logs     repositories.LogRepository
	Presence repositories.PresenceRepository // optional cache
	Redis    *redis.Client                   // optional, enables cross-instance fan-out
	Options  Options
	Log      *zap.Logger
	Metrics  *metrics.Relay

	// PresenceRefresh is how often cached presence of connected devices is
	// rewritten. Keep it below the cache TTL; zero disables the heartbeat.
	PresenceRefresh time.Duration
}

// Relay wires the relay components together.
type Relay struct {
	Registry    *Registry
	Broadcaster Broadcaster
	Presence    *PresenceReconciler
	Ingest      *LogIngestor
	Frames      *FrameRelay
	Dispatcher  *Dispatcher
	Server      *Server

	bus             *RedisBus
	presenceRefresh time.Duration
}

func New(d Deps) *Relay {
	log := d.Log.Named("relay")
	reg := NewRegistry(log, d.Metrics)

	var b Broadcaster = reg
	var bus *RedisBus
	if d.Redis != nil {
		bus = NewRedisBus(d.Redis, reg, log)
		b = bus
	}

	presence := NewPresenceReconciler(d.Devices, d.Presence, b, log)
	ingest := NewLogIngestor(d.Logs, b, log, d.Metrics)
	frames := NewFrameRelay(b)
	dispatcher := NewDispatcher(reg, presence, ingest, frames, log, d.Metrics)

	return &Relay{
		Registry:    reg,
		Broadcaster: b,
		Presence:    presence,
		Ingest:      ingest,
		Frames:      frames,
		Dispatcher:  dispatcher,
		Server:      NewServer(reg, dispatcher, d.Options, log, d.Metrics),

		bus:             bus,
		presenceRefresh: d.PresenceRefresh,
	}
}

// Run blocks until ctx is done. It keeps cached presence fresh and, when a
// bus is configured, publishes and consumes cross-instance broadcasts.
func (r *Relay) Run(ctx context.Context) {
	go r.Presence.Heartbeat(ctx, r.presenceRefresh)

	if r.bus == nil {
		<-ctx.Done()
		return
	}
	r.bus.Run(ctx)
}

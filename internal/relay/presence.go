package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prudhvinik1/spectramonitor/internal/models"
	"github.com/prudhvinik1/spectramonitor/internal/repositories"
	"go.uber.org/zap"
)

const (
	defaultModel    = "Unknown"
	defaultOS       = "Unknown"
	defaultUserName = "Anonymous"
)

// PresenceReconciler is the only writer of device status.
type PresenceReconciler struct {
	devices     repositories.DeviceRepository
	cache       repositories.PresenceRepository // optional
	broadcaster Broadcaster
	log         *zap.Logger
	now         func() time.Time

	mu     sync.Mutex
	claims map[string]*deviceClaim // device id -> conns that announced it
	byConn map[*Conn]map[string]struct{}

	// cacheMu orders heartbeat writes against offline deletes.
	cacheMu sync.Mutex
}

type deviceClaim struct {
	appID string
	conns map[*Conn]struct{}
}

// NewPresenceReconciler builds a reconciler. cache may be nil.
func NewPresenceReconciler(devices repositories.DeviceRepository, cache repositories.PresenceRepository, b Broadcaster, log *zap.Logger) *PresenceReconciler {
	return &PresenceReconciler{
		devices:     devices,
		cache:       cache,
		broadcaster: b,
		log:         log.Named("presence"),
		now:         time.Now,
		claims:      make(map[string]*deviceClaim),
		byConn:      make(map[*Conn]map[string]struct{}),
	}
}

// Connect marks the device online, creating it on first sight, and tells
// every connection. c may be nil for callers outside the relay.
func (p *PresenceReconciler) Connect(ctx context.Context, c *Conn, in *DeviceConnect) (*models.Device, error) {
	now := p.now()

	device, err := p.devices.GetByID(ctx, in.ID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		device = newDevice(in, now)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	default:
		device.Status = models.DeviceOnline
		device.LastSeen = now
	}

	saved, err := p.devices.Upsert(ctx, device)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if c != nil {
		p.claim(saved.ID, saved.AppID, c)
	}
	p.cachePresence(ctx, saved.ID, saved.AppID, saved.Status, saved.LastSeen)

	p.broadcaster.BroadcastAll(EventDeviceUpdate, models.DeviceUpdate{ID: saved.ID, Status: models.DeviceOnline})
	p.log.Info("device online", zap.String("device_id", saved.ID), zap.String("app_id", saved.AppID))
	return saved, nil
}

// Release drops every device claim held by c. Devices left with no live
// connection go offline. Errors are logged; Release never fails.
func (p *PresenceReconciler) Release(ctx context.Context, c *Conn) {
	orphaned := p.unclaim(c)
	for _, id := range orphaned {
		now := p.now()
		err := p.devices.SetStatus(ctx, id, models.DeviceOffline, now)
		if errors.Is(err, repositories.ErrNotFound) {
			// A newer connect already won.
			continue
		}
		if err != nil {
			p.log.Warn("failed to mark device offline", zap.String("device_id", id), zap.Error(err))
			continue
		}
		p.clearPresence(ctx, id)
		p.broadcaster.BroadcastAll(EventDeviceUpdate, models.DeviceUpdate{ID: id, Status: models.DeviceOffline})
		p.log.Info("device offline", zap.String("device_id", id))
	}
}

// Heartbeat rewrites the cached presence of every claimed device each
// interval, keeping cache entries alive while a connection holds them.
// It returns when ctx is done.
func (p *PresenceReconciler) Heartbeat(ctx context.Context, interval time.Duration) {
	if p.cache == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

// refresh writes an online entry for each device that still has a claiming conn.
func (p *PresenceReconciler) refresh(ctx context.Context) {
	if p.cache == nil {
		return
	}
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()

	p.mu.Lock()
	apps := make(map[string]string, len(p.claims))
	for id, cl := range p.claims {
		apps[id] = cl.appID
	}
	p.mu.Unlock()

	now := p.now()
	for id, appID := range apps {
		p.writePresence(ctx, id, appID, models.DeviceOnline, now)
	}
}

func (p *PresenceReconciler) claim(deviceID, appID string, c *Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Release already ran for c; claiming now would leak.
	if c.State() == StateClosed {
		return
	}
	cl := p.claims[deviceID]
	if cl == nil {
		cl = &deviceClaim{conns: make(map[*Conn]struct{})}
		p.claims[deviceID] = cl
	}
	cl.appID = appID
	cl.conns[c] = struct{}{}

	devices := p.byConn[c]
	if devices == nil {
		devices = make(map[string]struct{})
		p.byConn[c] = devices
	}
	devices[deviceID] = struct{}{}
}

// unclaim returns the device ids that no longer have any claiming conn.
func (p *PresenceReconciler) unclaim(c *Conn) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var orphaned []string
	for id := range p.byConn[c] {
		cl := p.claims[id]
		if cl == nil {
			continue
		}
		delete(cl.conns, c)
		if len(cl.conns) == 0 {
			delete(p.claims, id)
			orphaned = append(orphaned, id)
		}
	}
	delete(p.byConn, c)
	return orphaned
}

func (p *PresenceReconciler) cachePresence(ctx context.Context, id, appID string, status models.DeviceStatus, lastSeen time.Time) {
	if p.cache == nil {
		return
	}
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	p.writePresence(ctx, id, appID, status, lastSeen)
}

// writePresence requires cacheMu.
func (p *PresenceReconciler) writePresence(ctx context.Context, id, appID string, status models.DeviceStatus, lastSeen time.Time) {
	err := p.cache.SetPresence(ctx, &models.Presence{
		DeviceID: id,
		AppID:    appID,
		Status:   status,
		LastSeen: lastSeen,
	})
	if err != nil {
		p.log.Warn("failed to cache presence", zap.String("device_id", id), zap.Error(err))
	}
}

func (p *PresenceReconciler) clearPresence(ctx context.Context, id string) {
	if p.cache == nil {
		return
	}
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	if err := p.cache.DeletePresence(ctx, id); err != nil {
		p.log.Warn("failed to clear presence cache", zap.String("device_id", id), zap.Error(err))
	}
}

func newDevice(in *DeviceConnect, now time.Time) *models.Device {
	return &models.Device{
		ID:           in.ID,
		AppID:        in.AppID,
		Model:        orDefault(in.Model, defaultModel),
		OSVersion:    orDefault(in.OSVersion, defaultOS),
		UserName:     orDefault(in.UserName, defaultUserName),
		BatteryLevel: in.BatteryLevel,
		IP:           in.IP,
		Health:       in.Health,
		Status:       models.DeviceOnline,
		LastSeen:     now,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Package memstore holds in-memory implementations of the repository
// interfaces for tests. All methods are safe for concurrent use.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prudhvinik1/spectramonitor/internal/models"
	"github.com/prudhvinik1/spectramonitor/internal/repositories"
)

type Store struct {
	mu       sync.Mutex
	writeErr error

	devices  map[string]models.Device
	logs     []models.LogEntry
	apps     map[string]models.App
	flags    map[string]models.FeatureFlag
	crashes  []models.CrashReport
	presence map[string]models.Presence
}

func New() *Store {
	return &Store{
		devices:  make(map[string]models.Device),
		apps:     make(map[string]models.App),
		flags:    make(map[string]models.FeatureFlag),
		presence: make(map[string]models.Presence),
	}
}

// FailWrites makes every subsequent write return err. nil restores normal behavior.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

func (s *Store) Devices() repositories.DeviceRepository { return deviceRepo{s} }
func (s *Store) Logs() repositories.LogRepository { return logRepo{s} }
func (s *Store) Apps() repositories.AppRepository { return appRepo{s} }
func (s *Store) Flags() repositories.FeatureFlagRepository { return flagRepo{s} }
func (s *Store) Crashes() repositories.CrashReportRepository { return crashRepo{s} }
func (s *Store) Presence() repositories.PresenceRepository { return presenceRepo{s} }

// LogsFor returns copies of the stored entries for a device in insertion order.
func (s *Store) LogsFor(deviceID string) []models.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LogEntry
	for _, l := range s.logs {
		if l.DeviceID == deviceID {
			out = append(out, l)
		}
	}
	return out
}

// DeviceCount returns the number of stored device records.
func (s *Store) DeviceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.devices)
}

type deviceRepo struct{ s *Store }

func (r deviceRepo) GetByID(_ context.Context, id string) (*models.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.devices[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &d, nil
}

func (r deviceRepo) GetByAppID(_ context.Context, appID string) ([]*models.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Device
	for _, d := range r.s.devices {
		if d.AppID == appID {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen.After(out[j].LastSeen) })
	return out, nil
}

// Upsert mirrors the Postgres conflict rule: the later last-seen wins.
func (r deviceRepo) Upsert(_ context.Context, device *models.Device) (*models.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.writeErr != nil {
		return nil, r.s.writeErr
	}
	next := *device
	if cur, ok := r.s.devices[device.ID]; ok {
		next.CreatedAt = cur.CreatedAt
		if next.BatteryLevel == nil {
			next.BatteryLevel = cur.BatteryLevel
		}
		if next.IP == nil {
			next.IP = cur.IP
		}
		if next.Health == nil {
			next.Health = cur.Health
		}
		if cur.LastSeen.After(next.LastSeen) {
			next.LastSeen = cur.LastSeen
			next.Status = cur.Status
		}
	} else {
		next.CreatedAt = time.Now()
	}
	r.s.devices[device.ID] = next
	return &next, nil
}

func (r deviceRepo) SetStatus(_ context.Context, id string, status models.DeviceStatus, lastSeen time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.writeErr != nil {
		return r.s.writeErr
	}
	d, ok := r.s.devices[id]
	if !ok || d.LastSeen.After(lastSeen) {
		return repositories.ErrNotFound
	}
	d.Status = status
	d.LastSeen = lastSeen
	r.s.devices[id] = d
	return nil
}

type logRepo struct{ s *Store }

func (r logRepo) Append(_ context.Context, entry *models.LogEntry) (*models.LogEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.writeErr != nil {
		return nil, r.s.writeErr
	}
	r.s.logs = append(r.s.logs, *entry)
	saved := *entry
	return &saved, nil
}

func (r logRepo) ListRecent(_ context.Context, deviceID string, limit int) ([]*models.LogEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.LogEntry
	for i := len(r.s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.logs[i].DeviceID == deviceID {
			l := r.s.logs[i]
			out = append(out, &l)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

type appRepo struct{ s *Store }

func (r appRepo) Create(_ context.Context, app *models.App) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.writeErr != nil {
		return r.s.writeErr
	}
	app.CreatedAt = time.Now()
	stored := *app
	stored.APIKey = ""
	r.s.apps[app.ID] = stored
	return nil
}

func (r appRepo) GetByID(_ context.Context, id string) (*models.App, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.apps[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &a, nil
}

func (r appRepo) List(_ context.Context) ([]*models.App, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.App, 0, len(r.s.apps))
	for _, a := range r.s.apps {
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type flagRepo struct{ s *Store }

func (r flagRepo) Create(_ context.Context, flag *models.FeatureFlag) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.writeErr != nil {
		return r.s.writeErr
	}
	r.s.flags[flag.ID] = *flag
	return nil
}

func (r flagRepo) GetByID(_ context.Context, id string) (*models.FeatureFlag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.flags[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &f, nil
}

func (r flagRepo) List(_ context.Context) ([]*models.FeatureFlag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.FeatureFlag, 0, len(r.s.flags))
	for _, f := range r.s.flags {
		f := f
		out = append(out, &f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r flagRepo) Update(_ context.Context, flag *models.FeatureFlag) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.writeErr != nil {
		return r.s.writeErr
	}
	if _, ok := r.s.flags[flag.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.s.flags[flag.ID] = *flag
	return nil
}

type crashRepo struct{ s *Store }

func (r crashRepo) Create(_ context.Context, crash *models.CrashReport) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.writeErr != nil {
		return r.s.writeErr
	}
	r.s.crashes = append(r.s.crashes, *crash)
	return nil
}

func (r crashRepo) ListByDeviceID(_ context.Context, deviceID string) ([]*models.CrashReport, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.CrashReport
	for i := len(r.s.crashes) - 1; i >= 0; i-- {
		if r.s.crashes[i].DeviceID == deviceID {
			c := r.s.crashes[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

type presenceRepo struct{ s *Store }

func (r presenceRepo) SetPresence(_ context.Context, presence *models.Presence) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.writeErr != nil {
		return r.s.writeErr
	}
	r.s.presence[presence.DeviceID] = *presence
	return nil
}

func (r presenceRepo) GetPresence(_ context.Context, deviceID string) (*models.Presence, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.presence[deviceID]
	if !ok {
		return &models.Presence{DeviceID: deviceID, Status: models.DeviceOffline}, nil
	}
	return &p, nil
}

func (r presenceRepo) DeletePresence(_ context.Context, deviceID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.presence, deviceID)
	return nil
}

func (r presenceRepo) GetBulkPresence(_ context.Context, deviceIDs []string) (map[string]models.Presence, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[string]models.Presence, len(deviceIDs))
	for _, id := range deviceIDs {
		p, ok := r.s.presence[id]
		if !ok {
			p = models.Presence{DeviceID: id, Status: models.DeviceOffline}
		}
		out[id] = p
	}
	return out, nil
}

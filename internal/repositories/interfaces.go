package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/prudhvinik1/spectramonitor/internal/models"
)

var ErrNotFound = errors.New("not found")

type DeviceRepository interface {
	GetByID(ctx context.Context, id string) (*models.Device, error)
	GetByAppID(ctx context.Context, appID string) ([]*models.Device, error)
	Upsert(ctx context.Context, device *models.Device) (*models.Device, error)
	SetStatus(ctx context.Context, id string, status models.DeviceStatus, lastSeen time.Time) error
}

type LogRepository interface {
	Append(ctx context.Context, entry *models.LogEntry) (*models.LogEntry, error)
	ListRecent(ctx context.Context, deviceID string, limit int) ([]*models.LogEntry, error)
}

type AppRepository interface {
	Create(ctx context.Context, app *models.App) error
	GetByID(ctx context.Context, id string) (*models.App, error)
	List(ctx context.Context) ([]*models.App, error)
}

type FeatureFlagRepository interface {
	Create(ctx context.Context, flag *models.FeatureFlag) error
	GetByID(ctx context.Context, id string) (*models.FeatureFlag, error)
	List(ctx context.Context) ([]*models.FeatureFlag, error)
	Update(ctx context.Context, flag *models.FeatureFlag) error
}

type CrashReportRepository interface {
	Create(ctx context.Context, crash *models.CrashReport) error
	ListByDeviceID(ctx context.Context, deviceID string) ([]*models.CrashReport, error)
}

type PresenceRepository interface {
	SetPresence(ctx context.Context, presence *models.Presence) error
	GetPresence(ctx context.Context, deviceID string) (*models.Presence, error)
	DeletePresence(ctx context.Context, deviceID string) error
	GetBulkPresence(ctx context.Context, deviceIDs []string) (map[string]models.Presence, error)
}

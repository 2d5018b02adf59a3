package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/prudhvinik1/spectramonitor/internal/metrics"
	"github.com/prudhvinik1/spectramonitor/internal/models"
	"github.com/prudhvinik1/spectramonitor/internal/repositories"
	"go.uber.org/zap"
)

const defaultTag = "app"

// LogIngestor classifies, persists and relays device log lines.
type LogIngestor struct {
	logs        repositories.LogRepository
	broadcaster Broadcaster
	log         *zap.Logger
	metrics     *metrics.Relay
	now         func() time.Time
}

func NewLogIngestor(logs repositories.LogRepository, b Broadcaster, log *zap.Logger, m *metrics.Relay) *LogIngestor {
	return &LogIngestor{
		logs:        logs,
		broadcaster: b,
		log:         log.Named("ingest"),
		metrics:     m,
		now:         time.Now,
	}
}

// Ingest stores the entry and, only once stored, relays it to the device's
// session room.
func (l *LogIngestor) Ingest(ctx context.Context, in *DeviceLog) (*models.LogEntry, error) {
	now := l.now()
	tag := orDefault(in.Tag, defaultTag)
	ts := orDefault(in.Timestamp, now.UTC().Format(time.RFC3339))

	entry := models.NewLogEntry(in.DeviceID, in.Level, in.Message, tag, ts, now)

	saved, err := l.logs.Append(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if saved.IsAnomaly {
		l.metrics.AnomalyDetected()
		l.log.Debug("anomalous log",
			zap.String("device_id", saved.DeviceID),
			zap.String("level", saved.Level),
			zap.String("tag", saved.Tag),
		)
	}

	l.broadcaster.Broadcast(SessionRoom(saved.DeviceID), EventLogNew, saved)
	return saved, nil
}

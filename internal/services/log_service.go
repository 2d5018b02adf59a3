package services

import (
	"context"
	"fmt"

	"github.com/prudhvinik1/spectramonitor/internal/models"
	"github.com/prudhvinik1/spectramonitor/internal/relay"
	"github.com/prudhvinik1/spectramonitor/internal/repositories"
)

const (
	defaultLogLevel = "info"
	maxHistoryLimit = 1000
)

type LogService struct {
	logRepo      repositories.LogRepository
	ingest       *relay.LogIngestor
	historyLimit int
}

type AddLogRequest struct {
	Level     string `json:"level"`
	Message   string `json:"message"`
	Tag       string `json:"tag"`
	Timestamp string `json:"timestamp"`
}

func NewLogService(logRepo repositories.LogRepository, ingest *relay.LogIngestor, historyLimit int) *LogService {
	return &LogService{logRepo: logRepo, ingest: ingest, historyLimit: historyLimit}
}

// History returns the newest limit entries for deviceID, oldest first.
// A non-positive limit means the configured default.
func (s *LogService) History(ctx context.Context, deviceID string, limit int) ([]*models.LogEntry, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	logs, err := s.logRepo.ListRecent(ctx, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	if logs == nil {
		logs = []*models.LogEntry{}
	}
	return logs, nil
}

// Add ingests a log line exactly as if the device had sent it over the relay.
func (s *LogService) Add(ctx context.Context, deviceID string, req AddLogRequest) (*models.LogEntry, error) {
	if req.Message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	level := req.Level
	if level == "" {
		level = defaultLogLevel
	}
	entry, err := s.ingest.Ingest(ctx, &relay.DeviceLog{
		DeviceID:  deviceID,
		Level:     level,
		Message:   req.Message,
		Tag:       req.Tag,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add log: %w", err)
	}
	return entry, nil
}

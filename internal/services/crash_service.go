package services

import (
	"context"
	"fmt"
	"time"

	"github.com/prudhvinik1/spectramonitor/internal/models"
	"github.com/prudhvinik1/spectramonitor/internal/relay"
	"github.com/prudhvinik1/spectramonitor/internal/repositories"
	"github.com/prudhvinik1/spectramonitor/internal/utils"
)

const defaultCrashType = "Exception"

type CrashService struct {
	crashRepo   repositories.CrashReportRepository
	broadcaster relay.Broadcaster
	now         func() time.Time
}

type CreateCrashRequest struct {
	AppID        string `json:"appId"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	Error        string `json:"error"`
	StackTrace   string `json:"stackTrace"`
	AffectedFile string `json:"affectedFile"`
	EventsCount  *int   `json:"eventsCount"`
	UsersCount   *int   `json:"usersCount"`
	Trend        []int  `json:"trend"`
}

func NewCrashService(crashRepo repositories.CrashReportRepository, b relay.Broadcaster) *CrashService {
	return &CrashService{crashRepo: crashRepo, broadcaster: b, now: time.Now}
}

func (s *CrashService) Create(ctx context.Context, deviceID string, req CreateCrashRequest) (*models.CrashReport, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	now := s.now()
	crash := &models.CrashReport{
		ID:           utils.NewCrashID(now),
		AppID:        req.AppID,
		DeviceID:     deviceID,
		Timestamp:    now.UTC().Format(time.RFC3339),
		Type:         req.Type,
		Title:        req.Title,
		Subtitle:     req.Subtitle,
		Error:        req.Error,
		StackTrace:   req.StackTrace,
		AffectedFile: req.AffectedFile,
		EventsCount:  countOrOne(req.EventsCount),
		UsersCount:   countOrOne(req.UsersCount),
		Trend:        req.Trend,
	}
	if crash.Type == "" {
		crash.Type = defaultCrashType
	}
	if crash.Trend == nil {
		crash.Trend = []int{}
	}

	if err := s.crashRepo.Create(ctx, crash); err != nil {
		return nil, fmt.Errorf("failed to create crash report: %w", err)
	}
	s.broadcaster.BroadcastAll(relay.EventCrashNew, crash)
	return crash, nil
}

func (s *CrashService) ListByDevice(ctx context.Context, deviceID string) ([]*models.CrashReport, error) {
	crashes, err := s.crashRepo.ListByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list crash reports: %w", err)
	}
	if crashes == nil {
		crashes = []*models.CrashReport{}
	}
	return crashes, nil
}

func countOrOne(n *int) int {
	if n == nil || *n < 1 {
		return 1
	}
	return *n
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/prudhvinik1/spectramonitor/internal/models"
	"github.com/prudhvinik1/spectramonitor/internal/relay"
	"github.com/prudhvinik1/spectramonitor/internal/repositories"
)

const apiUserName = "Test User"

type DeviceService struct {
	deviceRepo   repositories.DeviceRepository
	presenceRepo repositories.PresenceRepository // optional
	presence     *relay.PresenceReconciler
	now          func() time.Time
}

type CreateDeviceRequest struct {
	ID           string               `json:"id"`
	Model        string               `json:"model"`
	OSVersion    string               `json:"osVersion"`
	UserName     string               `json:"userName"`
	BatteryLevel *int                 `json:"batteryLevel"`
	IP           *string              `json:"ip"`
	Health       *models.DeviceHealth `json:"health"`
}

func NewDeviceService(
	deviceRepo repositories.DeviceRepository,
	presenceRepo repositories.PresenceRepository,
	presence *relay.PresenceReconciler,
) *DeviceService {
	return &DeviceService{
		deviceRepo:   deviceRepo,
		presenceRepo: presenceRepo,
		presence:     presence,
		now:          time.Now,
	}
}

// Create registers a device for appID and announces it online. Status goes
// through the presence reconciler like a relay connect would.
func (s *DeviceService) Create(ctx context.Context, appID string, req CreateDeviceRequest) (*models.Device, error) {
	if appID == "" {
		return nil, fmt.Errorf("%w: appId is required", ErrInvalidInput)
	}
	id := req.ID
	if id == "" {
		id = fmt.Sprintf("device_%d", s.now().UnixMilli())
	}
	userName := req.UserName
	if userName == "" {
		userName = apiUserName
	}

	device, err := s.presence.Connect(ctx, nil, &relay.DeviceConnect{
		ID:           id,
		AppID:        appID,
		Model:        req.Model,
		OSVersion:    req.OSVersion,
		UserName:     userName,
		BatteryLevel: req.BatteryLevel,
		IP:           req.IP,
		Health:       req.Health,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}
	return device, nil
}

func (s *DeviceService) Get(ctx context.Context, id string) (*models.Device, error) {
	device, err := s.deviceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return device, nil
}

func (s *DeviceService) ListByApp(ctx context.Context, appID string) ([]*models.Device, error) {
	devices, err := s.deviceRepo.GetByAppID(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	if devices == nil {
		devices = []*models.Device{}
	}
	return devices, nil
}

// Presence reads the cached presence, falling back to the stored device
// when no cache is configured.
func (s *DeviceService) Presence(ctx context.Context, id string) (*models.Presence, error) {
	if s.presenceRepo != nil {
		p, err := s.presenceRepo.GetPresence(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get presence: %w", err)
		}
		return p, nil
	}

	device, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.Presence{
		DeviceID: device.ID,
		AppID:    device.AppID,
		Status:   device.Status,
		LastSeen: device.LastSeen,
	}, nil
}

// PresenceByApp returns the presence of every device registered for appID,
// in device listing order.
func (s *DeviceService) PresenceByApp(ctx context.Context, appID string) ([]*models.Presence, error) {
	devices, err := s.ListByApp(ctx, appID)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Presence, 0, len(devices))
	if s.presenceRepo == nil {
		for _, d := range devices {
			out = append(out, &models.Presence{DeviceID: d.ID, AppID: d.AppID, Status: d.Status, LastSeen: d.LastSeen})
		}
		return out, nil
	}

	ids := make([]string, len(devices))
	for i, d := range devices {
		ids[i] = d.ID
	}
	cached, err := s.presenceRepo.GetBulkPresence(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get presence: %w", err)
	}
	for _, d := range devices {
		p := cached[d.ID]
		p.DeviceID = d.ID
		p.AppID = d.AppID
		out = append(out, &p)
	}
	return out, nil
}

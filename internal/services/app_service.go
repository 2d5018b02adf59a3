package services

import (
	"context"
	"fmt"
	"time"

	"github.com/prudhvinik1/spectramonitor/internal/models"
	"github.com/prudhvinik1/spectramonitor/internal/repositories"
	"github.com/prudhvinik1/spectramonitor/internal/utils"
)

type AppService struct {
	appRepo repositories.AppRepository
	now     func() time.Time
}

type CreateAppRequest struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Platform    string `json:"platform"`
	Description string `json:"description"`
}

func NewAppService(appRepo repositories.AppRepository) *AppService {
	return &AppService{appRepo: appRepo, now: time.Now}
}

func (s *AppService) List(ctx context.Context) ([]*models.App, error) {
	apps, err := s.appRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}
	if apps == nil {
		apps = []*models.App{}
	}
	return apps, nil
}

// Create registers an app. The returned app carries the plaintext API key;
// only its hash is stored, so this is the one time it can be read.
func (s *AppService) Create(ctx context.Context, req CreateAppRequest) (*models.App, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	key, err := utils.GenerateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate api key: %w", err)
	}
	hash, err := utils.HashAPIKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to hash api key: %w", err)
	}

	now := s.now()
	app := &models.App{
		ID:          utils.NewAppID(now),
		Name:        req.Name,
		Icon:        req.Icon,
		Platform:    req.Platform,
		Description: req.Description,
		APIKeyHash:  hash,
		CreatedAt:   now,
	}
	if err := s.appRepo.Create(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to create app: %w", err)
	}

	app.APIKey = key
	return app, nil
}

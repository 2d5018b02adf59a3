package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/prudhvinik1/spectramonitor/internal/models"
	"github.com/prudhvinik1/spectramonitor/internal/relay"
	"github.com/prudhvinik1/spectramonitor/internal/repositories"
)

type FlagService struct {
	flagRepo    repositories.FeatureFlagRepository
	broadcaster relay.Broadcaster
}

func NewFlagService(flagRepo repositories.FeatureFlagRepository, b relay.Broadcaster) *FlagService {
	return &FlagService{flagRepo: flagRepo, broadcaster: b}
}

func (s *FlagService) List(ctx context.Context) ([]*models.FeatureFlag, error) {
	flags, err := s.flagRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list flags: %w", err)
	}
	if flags == nil {
		flags = []*models.FeatureFlag{}
	}
	return flags, nil
}

func (s *FlagService) Create(ctx context.Context, flag *models.FeatureFlag) (*models.FeatureFlag, error) {
	if flag.Key == "" {
		return nil, fmt.Errorf("%w: key is required", ErrInvalidInput)
	}
	if err := validateRollout(flag.RolloutPercentage); err != nil {
		return nil, err
	}
	if flag.ID == "" {
		flag.ID = uuid.NewString()
	}

	if err := s.flagRepo.Create(ctx, flag); err != nil {
		return nil, fmt.Errorf("failed to create flag: %w", err)
	}
	s.broadcaster.BroadcastAll(relay.EventFlagUpdated, flag)
	return flag, nil
}

// Update applies a partial change and tells every connection.
func (s *FlagService) Update(ctx context.Context, id string, patch models.FeatureFlagPatch) (*models.FeatureFlag, error) {
	flag, err := s.flagRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get flag: %w", err)
	}

	flag.Apply(patch)
	if err := validateRollout(flag.RolloutPercentage); err != nil {
		return nil, err
	}

	if err := s.flagRepo.Update(ctx, flag); err != nil {
		return nil, fmt.Errorf("failed to update flag: %w", err)
	}
	s.broadcaster.BroadcastAll(relay.EventFlagUpdated, flag)
	return flag, nil
}

func validateRollout(pct int) error {
	if pct < 0 || pct > 100 {
		return fmt.Errorf("%w: rolloutPercentage must be between 0 and 100", ErrInvalidInput)
	}
	return nil
}

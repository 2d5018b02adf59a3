package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prudhvinik1/spectramonitor/internal/models"
	"github.com/redis/go-redis/v9"
)

const presenceKeyPrefix = "presence:"

type RedisPresenceRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPresenceRepository stores presence that expires after ttl without a refresh.
func NewRedisPresenceRepository(client *redis.Client, ttl time.Duration) *RedisPresenceRepository {
	return &RedisPresenceRepository{client: client, ttl: ttl}
}

func (r *RedisPresenceRepository) SetPresence(ctx context.Context, presence *models.Presence) error {
	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("failed to marshal presence: %w", err)
	}

	err = r.client.Set(ctx, presenceKey(presence.DeviceID), data, r.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set presence: %w", err)
	}
	return nil
}

func (r *RedisPresenceRepository) GetPresence(ctx context.Context, deviceID string) (*models.Presence, error) {
	data, err := r.client.Get(ctx, presenceKey(deviceID)).Result()
	if errors.Is(err, redis.Nil) {
		// No presence = device is offline
		return &models.Presence{
			DeviceID: deviceID,
			Status:   models.DeviceOffline,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get presence: %w", err)
	}

	var presence models.Presence
	if err := json.Unmarshal([]byte(data), &presence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence: %w", err)
	}
	return &presence, nil
}

func (r *RedisPresenceRepository) DeletePresence(ctx context.Context, deviceID string) error {
	if err := r.client.Del(ctx, presenceKey(deviceID)).Err(); err != nil {
		return fmt.Errorf("failed to delete presence: %w", err)
	}
	return nil
}

// GetBulkPresence retrieves presence for many devices in one round trip.
// Missing or unreadable entries read as offline.
func (r *RedisPresenceRepository) GetBulkPresence(ctx context.Context, deviceIDs []string) (map[string]models.Presence, error) {
	out := make(map[string]models.Presence, len(deviceIDs))
	if len(deviceIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(deviceIDs))
	for i, id := range deviceIDs {
		keys[i] = presenceKey(id)
	}

	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bulk presence: %w", err)
	}

	for i, result := range results {
		id := deviceIDs[i]
		offline := models.Presence{DeviceID: id, Status: models.DeviceOffline}

		data, ok := result.(string)
		if !ok {
			out[id] = offline
			continue
		}
		var presence models.Presence
		if err := json.Unmarshal([]byte(data), &presence); err != nil {
			out[id] = offline
			continue
		}
		out[id] = presence
	}
	return out, nil
}

// Helper: build Redis key for presence
func presenceKey(deviceID string) string {
	return presenceKeyPrefix + deviceID
}

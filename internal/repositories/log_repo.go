package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/spectramonitor/internal/models"
)

type PostgresLogRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresLogRepository(pool *pgxpool.Pool) *PostgresLogRepository {
	return &PostgresLogRepository{pool: pool}
}

// Append stores an entry as-is. Entries are immutable once written.
func (r *PostgresLogRepository) Append(ctx context.Context, entry *models.LogEntry) (*models.LogEntry, error) {
	query := `INSERT INTO logs (id, device_id, level, message, tag, timestamp, is_anomaly, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.DeviceID,
		entry.Level,
		entry.Message,
		entry.Tag,
		entry.Timestamp,
		entry.IsAnomaly,
		entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append log: %w", err)
	}
	return entry, nil
}

// ListRecent returns the newest limit entries for a device, oldest first.
func (r *PostgresLogRepository) ListRecent(ctx context.Context, deviceID string, limit int) ([]*models.LogEntry, error) {
	query := `SELECT id, device_id, level, message, tag, timestamp, is_anomaly, created_at
	          FROM (
	              SELECT * FROM logs
	              WHERE device_id = $1
	              ORDER BY created_at DESC
	              LIMIT $2
	          ) recent
	          ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.LogEntry, 0, limit)
	for rows.Next() {
		var entry models.LogEntry
		err := rows.Scan(
			&entry.ID,
			&entry.DeviceID,
			&entry.Level,
			&entry.Message,
			&entry.Tag,
			&entry.Timestamp,
			&entry.IsAnomaly,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating logs: %w", err)
	}
	return entries, nil
}

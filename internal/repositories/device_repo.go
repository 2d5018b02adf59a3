package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/spectramonitor/internal/models"
)

const deviceColumns = `id, app_id, model, os_version, user_name, battery_level, ip,
	                 status, health, last_seen, created_at`

type PostgresDeviceRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresDeviceRepository(pool *pgxpool.Pool) *PostgresDeviceRepository {
	return &PostgresDeviceRepository{pool: pool}
}

func (r *PostgresDeviceRepository) GetByID(ctx context.Context, id string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + `
	          FROM devices
	          WHERE id = $1`

	device, err := scanDevice(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return device, nil
}

func (r *PostgresDeviceRepository) GetByAppID(ctx context.Context, appID string) ([]*models.Device, error) {
	query := `SELECT ` + deviceColumns + `
	          FROM devices
	          WHERE app_id = $1
	          ORDER BY last_seen DESC`

	rows, err := r.pool.Query(ctx, query, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var devices []*models.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating devices: %w", err)
	}

	return devices, nil
}

// Upsert inserts the device or overwrites the existing row.
// Concurrent writers converge on the row with the latest last_seen: the
// status only follows a write whose timestamp is not older than the stored one.
func (r *PostgresDeviceRepository) Upsert(ctx context.Context, device *models.Device) (*models.Device, error) {
	query := `INSERT INTO devices (id, app_id, model, os_version, user_name, battery_level, ip, status, health, last_seen)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          ON CONFLICT (id) DO UPDATE SET
	              app_id        = EXCLUDED.app_id,
	              model         = EXCLUDED.model,
	              os_version    = EXCLUDED.os_version,
	              user_name     = EXCLUDED.user_name,
	              battery_level = COALESCE(EXCLUDED.battery_level, devices.battery_level),
	              ip            = COALESCE(EXCLUDED.ip, devices.ip),
	              health        = COALESCE(EXCLUDED.health, devices.health),
	              status        = CASE WHEN EXCLUDED.last_seen >= devices.last_seen
	                                   THEN EXCLUDED.status ELSE devices.status END,
	              last_seen     = GREATEST(devices.last_seen, EXCLUDED.last_seen)
	          RETURNING ` + deviceColumns

	saved, err := scanDevice(r.pool.QueryRow(ctx, query,
		device.ID,
		device.AppID,
		device.Model,
		device.OSVersion,
		device.UserName,
		device.BatteryLevel,
		device.IP,
		device.Status,
		device.Health,
		device.LastSeen,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert device: %w", err)
	}
	return saved, nil
}

// SetStatus moves a device to status unless a newer write already landed.
func (r *PostgresDeviceRepository) SetStatus(ctx context.Context, id string, status models.DeviceStatus, lastSeen time.Time) error {
	query := `UPDATE devices
	          SET status = $2, last_seen = $3
	          WHERE id = $1 AND last_seen <= $3`

	result, err := r.pool.Exec(ctx, query, id, status, lastSeen)
	if err != nil {
		return fmt.Errorf("failed to set device status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDevice(row pgx.Row) (*models.Device, error) {
	var device models.Device
	err := row.Scan(
		&device.ID,
		&device.AppID,
		&device.Model,
		&device.OSVersion,
		&device.UserName,
		&device.BatteryLevel,
		&device.IP,
		&device.Status,
		&device.Health,
		&device.LastSeen,
		&device.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &device, nil
}

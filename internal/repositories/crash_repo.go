package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/spectramonitor/internal/models"
)

type PostgresCrashReportRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresCrashReportRepository(pool *pgxpool.Pool) *PostgresCrashReportRepository {
	return &PostgresCrashReportRepository{pool: pool}
}

func (r *PostgresCrashReportRepository) Create(ctx context.Context, crash *models.CrashReport) error {
	query := `INSERT INTO crash_reports (id, app_id, device_id, timestamp, type, title, subtitle,
	                                     error, stack_trace, affected_file, events_count, users_count, trend)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	trend := crash.Trend
	if trend == nil {
		trend = []int{}
	}

	_, err := r.pool.Exec(ctx, query,
		crash.ID,
		crash.AppID,
		crash.DeviceID,
		crash.Timestamp,
		crash.Type,
		crash.Title,
		crash.Subtitle,
		crash.Error,
		crash.StackTrace,
		crash.AffectedFile,
		crash.EventsCount,
		crash.UsersCount,
		trend,
	)
	if err != nil {
		return fmt.Errorf("failed to create crash report: %w", err)
	}
	return nil
}

func (r *PostgresCrashReportRepository) ListByDeviceID(ctx context.Context, deviceID string) ([]*models.CrashReport, error) {
	query := `SELECT id, app_id, device_id, timestamp, type, title, subtitle,
	                 error, stack_trace, affected_file, events_count, users_count, trend
	          FROM crash_reports
	          WHERE device_id = $1
	          ORDER BY id DESC`

	rows, err := r.pool.Query(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query crash reports: %w", err)
	}
	defer rows.Close()

	var crashes []*models.CrashReport
	for rows.Next() {
		var crash models.CrashReport
		err := rows.Scan(
			&crash.ID,
			&crash.AppID,
			&crash.DeviceID,
			&crash.Timestamp,
			&crash.Type,
			&crash.Title,
			&crash.Subtitle,
			&crash.Error,
			&crash.StackTrace,
			&crash.AffectedFile,
			&crash.EventsCount,
			&crash.UsersCount,
			&crash.Trend,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crash report: %w", err)
		}
		crashes = append(crashes, &crash)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating crash reports: %w", err)
	}
	return crashes, nil
}

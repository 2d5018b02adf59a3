package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/spectramonitor/internal/models"
)

type PostgresFeatureFlagRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresFeatureFlagRepository(pool *pgxpool.Pool) *PostgresFeatureFlagRepository {
	return &PostgresFeatureFlagRepository{pool: pool}
}

func (r *PostgresFeatureFlagRepository) Create(ctx context.Context, flag *models.FeatureFlag) error {
	query := `INSERT INTO feature_flags (id, app_id, key, name, description, enabled, rollout_percentage)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		flag.ID,
		flag.AppID,
		flag.Key,
		flag.Name,
		flag.Description,
		flag.Enabled,
		flag.RolloutPercentage,
	)
	if err != nil {
		return fmt.Errorf("failed to create feature flag: %w", err)
	}
	return nil
}

func (r *PostgresFeatureFlagRepository) GetByID(ctx context.Context, id string) (*models.FeatureFlag, error) {
	query := `SELECT id, app_id, key, name, description, enabled, rollout_percentage
	          FROM feature_flags WHERE id = $1`

	var flag models.FeatureFlag
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&flag.ID, &flag.AppID, &flag.Key, &flag.Name, &flag.Description, &flag.Enabled, &flag.RolloutPercentage,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feature flag: %w", err)
	}
	return &flag, nil
}

func (r *PostgresFeatureFlagRepository) List(ctx context.Context) ([]*models.FeatureFlag, error) {
	query := `SELECT id, app_id, key, name, description, enabled, rollout_percentage
	          FROM feature_flags
	          ORDER BY key ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query feature flags: %w", err)
	}
	defer rows.Close()

	var flags []*models.FeatureFlag
	for rows.Next() {
		var flag models.FeatureFlag
		err := rows.Scan(&flag.ID, &flag.AppID, &flag.Key, &flag.Name, &flag.Description, &flag.Enabled, &flag.RolloutPercentage)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feature flag: %w", err)
		}
		flags = append(flags, &flag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feature flags: %w", err)
	}
	return flags, nil
}

func (r *PostgresFeatureFlagRepository) Update(ctx context.Context, flag *models.FeatureFlag) error {
	query := `UPDATE feature_flags
	          SET name = $1, description = $2, enabled = $3, rollout_percentage = $4
	          WHERE id = $5`

	result, err := r.pool.Exec(ctx, query,
		flag.Name,
		flag.Description,
		flag.Enabled,
		flag.RolloutPercentage,
		flag.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update feature flag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/spectramonitor/internal/models"
)

type PostgresAppRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresAppRepository(pool *pgxpool.Pool) *PostgresAppRepository {
	return &PostgresAppRepository{pool: pool}
}

func (r *PostgresAppRepository) Create(ctx context.Context, app *models.App) error {
	query := `INSERT INTO apps (id, name, icon, platform, description, api_key_hash)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		app.ID,
		app.Name,
		app.Icon,
		app.Platform,
		app.Description,
		app.APIKeyHash,
	).Scan(&app.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}
	return nil
}

func (r *PostgresAppRepository) GetByID(ctx context.Context, id string) (*models.App, error) {
	query := `SELECT id, name, icon, platform, description, api_key_hash, created_at FROM apps WHERE id = $1`

	var app models.App
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&app.ID, &app.Name, &app.Icon, &app.Platform, &app.Description, &app.APIKeyHash, &app.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get app: %w", err)
	}
	return &app, nil
}

func (r *PostgresAppRepository) List(ctx context.Context) ([]*models.App, error) {
	query := `SELECT id, name, icon, platform, description, api_key_hash, created_at
	          FROM apps
	          ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query apps: %w", err)
	}
	defer rows.Close()

	var apps []*models.App
	for rows.Next() {
		var app models.App
		err := rows.Scan(&app.ID, &app.Name, &app.Icon, &app.Platform, &app.Description, &app.APIKeyHash, &app.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan app: %w", err)
		}
		apps = append(apps, &app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating apps: %w", err)
	}
	return apps, nil
}

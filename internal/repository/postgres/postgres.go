package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skycast/backend/internal/domain"
)

// Repository implements domain.FavoritesRepository directly against
// PostgreSQL, for deployments that bypass the REST layer.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL favorites repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all favorites owned by userID, newest first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]domain.Favorite, error) {
	query := `
		SELECT id, user_id, city, country, created_at, lat, lon
		FROM favorites
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query favorites: %w", err)
	}
	defer rows.Close()

	var results []domain.Favorite
	for rows.Next() {
		var f domain.Favorite
		err := rows.Scan(&f.ID, &f.UserID, &f.City, &f.Country, &f.CreatedAt, &f.Lat, &f.Lon)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan favorite row: %w", err)
		}
		results = append(results, f)
	}

	return results, nil
}

// Insert persists fav and returns the row with the database-assigned
// id and creation timestamp.
func (r *Repository) Insert(ctx context.Context, fav domain.Favorite) (domain.Favorite, error) {
	query := `
		INSERT INTO favorites (user_id, city, country, lat, lon)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	result := fav
	err := r.pool.QueryRow(ctx, query,
		fav.UserID, fav.City, fav.Country, fav.Lat, fav.Lon,
	).Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		return domain.Favorite{}, fmt.Errorf("postgres: failed to insert favorite: %w", err)
	}

	return result, nil
}

// Delete removes a single favorite by id.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM favorites WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("postgres: failed to delete favorite: %w", err)
	}
	return nil
}

// Health checks database connectivity
func (r *Repository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

// Ensure Repository implements the domain interface
var _ domain.FavoritesRepository = (*Repository)(nil)

package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Favorite represents a user-saved location.
//
// CreatedAt is nil for rows that have not been synced to a backend yet
// (offline mode entries). Lat/Lon are nil for backend rows that predate
// coordinate capture.
type Favorite struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	City      string     `json:"city"`
	Country   string     `json:"country"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Lat       *float64   `json:"lat,omitempty"`
	Lon       *float64   `json:"lon,omitempty"`
}

// MatchesCity reports whether the favorite refers to the given city name.
// City comparison is case-insensitive everywhere; (user, city) uniqueness
// is enforced by toggle-by-name application logic, not by any schema.
func (f Favorite) MatchesCity(city string) bool {
	return strings.EqualFold(f.City, city)
}

// FavoritesRepository defines the persistence boundary for favorites.
// This follows the Dependency Inversion Principle - domain defines the interface.
// Implementations: supabase (PostgREST), postgres (pgx), memory (offline).
type FavoritesRepository interface {
	// List returns all favorites owned by userID, newest first.
	List(ctx context.Context, userID uuid.UUID) ([]Favorite, error)

	// Insert persists a favorite and returns the authoritative row
	// (server-assigned id and creation timestamp).
	Insert(ctx context.Context, fav Favorite) (Favorite, error)

	// Delete removes a single favorite by id.
	Delete(ctx context.Context, id uuid.UUID) error
}

// FavoritesResponse wraps a favorites list with metadata
type FavoritesResponse struct {
	Data    []Favorite `json:"data"`
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
}

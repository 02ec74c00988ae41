// Package memory provides the offline favorites backend: an in-memory
// list with locally generated ids and no creation timestamps, used
// before any user is authenticated and by tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/skycast/backend/internal/domain"
)

// Repository implements domain.FavoritesRepository in memory.
type Repository struct {
	mu        sync.RWMutex
	favorites []domain.Favorite
}

// NewRepository creates an empty in-memory favorites repository
func NewRepository() *Repository {
	return &Repository{}
}

// List returns the favorites owned by userID, newest first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]domain.Favorite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]domain.Favorite, 0, len(r.favorites))
	for _, f := range r.favorites {
		if f.UserID == userID {
			results = append(results, f)
		}
	}
	return results, nil
}

// Insert stores fav at the head of the list. Offline rows keep a nil
// creation timestamp; an id is generated locally when none is set.
func (r *Repository) Insert(ctx context.Context, fav domain.Favorite) (domain.Favorite, error) {
	if fav.ID == uuid.Nil {
		fav.ID = uuid.New()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.favorites = append([]domain.Favorite{fav}, r.favorites...)
	return fav, nil
}

// Delete removes a single favorite by id. Unknown ids are a no-op.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.favorites[:0]
	for _, f := range r.favorites {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	r.favorites = kept
	return nil
}

// Ensure Repository implements the domain interface
var _ domain.FavoritesRepository = (*Repository)(nil)

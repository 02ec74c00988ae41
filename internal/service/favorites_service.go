package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skycast/backend/internal/domain"
	"github.com/skycast/backend/internal/repository/memory"
	"github.com/skycast/backend/pkg/utils"
)

// DefaultSeedDelay is how long offline mode waits before seeding the
// example favorites on first load.
const DefaultSeedDelay = 500 * time.Millisecond

// Offline seed entries, inserted once into an empty offline list.
var seedFavorites = []domain.Favorite{
	{City: "Cupertino", Country: "United States", Lat: ptr(37.3230), Lon: ptr(-122.0322)},
	{City: "London", Country: "United Kingdom", Lat: ptr(51.5074), Lon: ptr(-0.1278)},
}

func ptr(v float64) *float64 { return &v }

// FavoritesState is the observable snapshot published to subscribers.
type FavoritesState struct {
	Favorites []domain.Favorite `json:"favorites"`
	IsLoading bool              `json:"is_loading"`
	LastError string            `json:"last_error,omitempty"`
	Offline   bool              `json:"offline"`
}

// FavoritesService maintains the user's favorite-location list and its
// synchronization state. It starts in offline mode against an
// in-memory backend; on an authenticated session transition it switches
// to the remote backend and reloads, and on sign-out it resets locally
// without touching remote rows.
//
// Failures never leave the list partially mutated: Load is a
// full-replace-or-keep-previous operation and errors surface as a
// user-displayable message on the state snapshot.
type FavoritesService struct {
	remote    domain.FavoritesRepository // nil when no backend is configured
	seedDelay time.Duration

	mu        sync.Mutex
	local     domain.FavoritesRepository
	favorites []domain.Favorite
	isLoading bool
	lastError string
	offline   bool
	userID    uuid.UUID
	subs      []func(FavoritesState)
}

// NewFavoritesService creates a favorites cache over the given remote
// backend. remote may be nil for memory-only deployments. A
// non-positive seedDelay falls back to DefaultSeedDelay.
func NewFavoritesService(remote domain.FavoritesRepository, seedDelay time.Duration) *FavoritesService {
	if seedDelay <= 0 {
		seedDelay = DefaultSeedDelay
	}
	return &FavoritesService{
		remote:    remote,
		seedDelay: seedDelay,
		local:     memory.NewRepository(),
		offline:   true,
	}
}

// BindSession subscribes the cache to session transitions.
func (s *FavoritesService) BindSession(session *SessionService) {
	session.OnChange(s.handleSessionChange)
}

// OnChange registers fn to be called after every state change.
func (s *FavoritesService) OnChange(fn func(FavoritesState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// State returns a snapshot of the observable state.
func (s *FavoritesService) State() FavoritesState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Favorites returns a copy of the current list.
func (s *FavoritesService) Favorites() []domain.Favorite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Favorite(nil), s.favorites...)
}

// IsFavorite returns the favorite matching city, case-insensitively.
func (s *FavoritesService) IsFavorite(city string) (domain.Favorite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.favorites {
		if f.MatchesCity(city) {
			return f, true
		}
	}
	return domain.Favorite{}, false
}

// Nearest returns the favorite with coordinates closest to the given
// point, for snapping map taps to saved markers.
func (s *FavoritesService) Nearest(lat, lon float64) (domain.Favorite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		best     domain.Favorite
		bestDist float64
		found    bool
	)
	for _, f := range s.favorites {
		if f.Lat == nil || f.Lon == nil {
			continue
		}
		d := utils.Haversine(lat, lon, *f.Lat, *f.Lon)
		if !found || d < bestDist {
			best, bestDist, found = f, d, true
		}
	}
	return best, found
}

// Load refreshes the list. In offline mode it seeds the example
// entries into an empty list after the seed delay; in remote mode it
// replaces the list wholesale with the backend rows, newest first. On
// failure the previous list is kept untouched and the error message is
// recorded.
func (s *FavoritesService) Load(ctx context.Context) {
	s.mu.Lock()
	s.isLoading = true
	s.lastError = ""
	offline := s.offline
	userID := s.userID
	s.mu.Unlock()
	s.notify()

	if offline {
		select {
		case <-time.After(s.seedDelay):
		case <-ctx.Done():
		}
		s.loadOffline(ctx)
	} else {
		s.loadRemote(ctx, userID)
	}
	s.notify()
}

func (s *FavoritesService) loadOffline(ctx context.Context) {
	s.mu.Lock()
	local := s.local
	s.mu.Unlock()

	rows, err := local.List(ctx, uuid.Nil)
	if err == nil && len(rows) == 0 {
		// Seed the example entries into an empty offline list.
		for i := len(seedFavorites) - 1; i >= 0; i-- {
			fav := seedFavorites[i]
			if _, err := local.Insert(ctx, fav); err != nil {
				log.Printf("favorites: failed to seed %s: %v", fav.City, err)
			}
		}
		rows, err = local.List(ctx, uuid.Nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = false
	if err != nil {
		s.lastError = userMessage(err)
		return
	}
	s.favorites = rows
}

func (s *FavoritesService) loadRemote(ctx context.Context, userID uuid.UUID) {
	rows, err := s.remote.List(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = false
	if err != nil {
		// Keep the previous list; full-replace-or-keep-previous.
		s.lastError = userMessage(err)
		return
	}
	s.favorites = rows
}

// Toggle adds the city as a favorite, or removes it when a
// case-insensitive match already exists. It returns whether the city
// is a favorite after the call.
func (s *FavoritesService) Toggle(ctx context.Context, city, country string, lat, lon *float64) (bool, error) {
	if existing, ok := s.IsFavorite(city); ok {
		if err := s.remove(ctx, existing); err != nil {
			return true, err
		}
		return false, nil
	}
	if err := s.add(ctx, city, country, lat, lon); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FavoritesService) add(ctx context.Context, city, country string, lat, lon *float64) error {
	s.mu.Lock()
	offline := s.offline
	userID := s.userID
	local := s.local
	s.mu.Unlock()

	fav := domain.Favorite{
		UserID:  userID,
		City:    city,
		Country: country,
		Lat:     lat,
		Lon:     lon,
	}

	backend := s.remote
	if offline {
		backend = local
	}

	inserted, err := backend.Insert(ctx, fav)
	if err != nil {
		s.recordError(err)
		return err
	}

	s.mu.Lock()
	s.favorites = append([]domain.Favorite{inserted}, s.favorites...)
	s.lastError = ""
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *FavoritesService) remove(ctx context.Context, fav domain.Favorite) error {
	s.mu.Lock()
	offline := s.offline
	local := s.local
	s.mu.Unlock()

	backend := s.remote
	if offline {
		backend = local
	}

	if err := backend.Delete(ctx, fav.ID); err != nil {
		s.recordError(err)
		return err
	}

	s.mu.Lock()
	kept := make([]domain.Favorite, 0, len(s.favorites))
	for _, f := range s.favorites {
		if f.ID != fav.ID {
			kept = append(kept, f)
		}
	}
	s.favorites = kept
	s.lastError = ""
	s.mu.Unlock()
	s.notify()
	return nil
}

// ClearAll empties the list. In remote mode each row is removed with
// its own request; individual failures are collected without aborting
// the rest, and the in-memory list is emptied regardless. The backing
// API has no bulk or transactional remove.
func (s *FavoritesService) ClearAll(ctx context.Context) {
	s.mu.Lock()
	offline := s.offline
	local := s.local
	current := append([]domain.Favorite(nil), s.favorites...)
	s.mu.Unlock()

	var failed int
	if offline {
		for _, f := range current {
			if err := local.Delete(ctx, f.ID); err != nil {
				failed++
			}
		}
	} else {
		for _, f := range current {
			if err := s.remote.Delete(ctx, f.ID); err != nil {
				failed++
				log.Printf("favorites: failed to remove %s: %v", f.City, err)
			}
		}
	}

	s.mu.Lock()
	s.favorites = nil
	if failed > 0 {
		s.lastError = fmt.Sprintf("failed to remove %d of %d favorites", failed, len(current))
	} else {
		s.lastError = ""
	}
	s.mu.Unlock()
	s.notify()
}

// handleSessionChange switches backends on auth transitions: to remote
// plus a reload when a user signs in, and to a fresh offline store
// (pure local reset, no remote removals) when they sign out.
func (s *FavoritesService) handleSessionChange(session domain.Session) {
	if session.Authenticated && session.UserID != nil && s.remote != nil {
		s.mu.Lock()
		s.offline = false
		s.userID = *session.UserID
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.Load(ctx)
		return
	}

	s.mu.Lock()
	s.offline = true
	s.userID = uuid.Nil
	s.favorites = nil
	s.lastError = ""
	s.local = memory.NewRepository()
	s.mu.Unlock()
	s.notify()
}

func (s *FavoritesService) recordError(err error) {
	s.mu.Lock()
	s.lastError = userMessage(err)
	s.mu.Unlock()
	s.notify()
}

func (s *FavoritesService) snapshotLocked() FavoritesState {
	return FavoritesState{
		Favorites: append([]domain.Favorite(nil), s.favorites...),
		IsLoading: s.isLoading,
		LastError: s.lastError,
		Offline:   s.offline,
	}
}

func (s *FavoritesService) notify() {
	s.mu.Lock()
	state := s.snapshotLocked()
	subs := make([]func(FavoritesState), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

// userMessage converts backend failures into a user-displayable string:
// status errors keep their code, decode errors get a generic wording
// distinct from the raw decoder text, everything else reads as a
// connectivity problem.
func userMessage(err error) string {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return "received an unexpected response, please try again"
	}

	return "network error, check your connection and try again"
}

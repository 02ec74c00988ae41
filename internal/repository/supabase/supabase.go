// Package supabase implements domain.FavoritesRepository against a
// PostgREST-style table endpoint. Reads use select/order projections
// with equality filters; writes are plain POST/DELETE with Prefer
// headers controlling the returned representation.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/skycast/backend/internal/domain"
)

const favoritesTable = "favorites"

// TokenSource supplies the current user access token for the
// Authorization header. An empty string means no live session; the
// client then falls back to the API key itself.
type TokenSource func() string

// Repository is a favorites store backed by a Supabase REST endpoint.
type Repository struct {
	baseURL    string
	apiKey     string
	token      TokenSource
	httpClient *http.Client
}

// NewRepository creates a new Supabase-backed favorites repository.
// token may be nil when no authenticated session will ever be attached.
func NewRepository(baseURL, apiKey string, token TokenSource) *Repository {
	return &Repository{
		baseURL: baseURL,
		apiKey:  apiKey,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// favoriteRow is the wire shape of a favorites table row.
type favoriteRow struct {
	ID        uuid.UUID  `json:"id,omitempty"`
	UserID    uuid.UUID  `json:"user_id"`
	City      string     `json:"city"`
	Country   string     `json:"country"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Lat       *float64   `json:"lat,omitempty"`
	Lon       *float64   `json:"lon,omitempty"`
}

func (r favoriteRow) toDomain() domain.Favorite {
	return domain.Favorite{
		ID:        r.ID,
		UserID:    r.UserID,
		City:      r.City,
		Country:   r.Country,
		CreatedAt: r.CreatedAt,
		Lat:       r.Lat,
		Lon:       r.Lon,
	}
}

// List returns all favorites owned by userID, newest first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]domain.Favorite, error) {
	params := url.Values{}
	params.Set("select", "id,user_id,city,country,created_at,lat,lon")
	params.Set("user_id", "eq."+userID.String())
	params.Set("order", "created_at.desc")

	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", r.baseURL, favoritesTable, params.Encode())
	body, err := r.do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, err
	}

	var rows []favoriteRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("supabase: failed to parse favorites list: %w", err)
	}

	favorites := make([]domain.Favorite, 0, len(rows))
	for _, row := range rows {
		favorites = append(favorites, row.toDomain())
	}
	return favorites, nil
}

// Insert persists fav and returns the authoritative row with the
// server-assigned id and creation timestamp.
func (r *Repository) Insert(ctx context.Context, fav domain.Favorite) (domain.Favorite, error) {
	payload, err := json.Marshal(map[string]any{
		"user_id": fav.UserID,
		"city":    fav.City,
		"country": fav.Country,
		"lat":     fav.Lat,
		"lon":     fav.Lon,
	})
	if err != nil {
		return domain.Favorite{}, fmt.Errorf("supabase: failed to marshal favorite: %w", err)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", r.baseURL, favoritesTable)
	body, err := r.do(ctx, http.MethodPost, endpoint, payload, "return=representation")
	if err != nil {
		return domain.Favorite{}, err
	}

	var rows []favoriteRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return domain.Favorite{}, fmt.Errorf("supabase: failed to parse insert response: %w", err)
	}
	if len(rows) == 0 {
		return domain.Favorite{}, fmt.Errorf("supabase: insert returned no representation")
	}
	return rows[0].toDomain(), nil
}

// Delete removes a single favorite by id.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	params := url.Values{}
	params.Set("id", "eq."+id.String())

	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", r.baseURL, favoritesTable, params.Encode())
	_, err := r.do(ctx, http.MethodDelete, endpoint, nil, "return=minimal")
	return err
}

// do executes one request with the backend's required headers and
// returns the raw response body. Non-2xx responses become *domain.APIError.
func (r *Repository) do(ctx context.Context, method, endpoint string, payload []byte, prefer string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("supabase: failed to create request: %w", err)
	}

	token := r.apiKey
	if r.token != nil {
		if t := r.token(); t != "" {
			token = t
		}
	}
	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase: failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("supabase: failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// Ensure Repository implements the domain interface
var _ domain.FavoritesRepository = (*Repository)(nil)

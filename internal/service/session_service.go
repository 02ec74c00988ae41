package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skycast/backend/internal/domain"
)

// ErrAuthNotConfigured is returned when no auth backend URL is set.
var ErrAuthNotConfigured = fmt.Errorf("auth: backend not configured")

// SessionService holds the authenticated user identity and talks to
// the auth backend's password-grant endpoints. State changes are pushed
// to subscribers; the favorites cache reacts to them by switching
// between its offline and remote backends.
type SessionService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu      sync.RWMutex
	session domain.Session
	subs    []func(domain.Session)
}

// NewSessionService creates a new session service. baseURL may be
// empty, in which case sign-in and sign-up report ErrAuthNotConfigured
// and the process stays in offline mode.
func NewSessionService(baseURL, apiKey string) *SessionService {
	return &SessionService{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Current returns a copy of the session state.
func (s *SessionService) Current() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// AccessToken returns the live user access token, or "" when signed out.
func (s *SessionService) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.AccessToken
}

// OnChange registers fn to be called after every session transition.
// Callbacks run outside the service lock, on the mutating goroutine.
func (s *SessionService) OnChange(fn func(domain.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// tokenResponse mirrors the auth backend's password-grant response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID    uuid.UUID `json:"id"`
		Email string    `json:"email"`
	} `json:"user"`
}

// SignIn authenticates with email and password via the direct
// password-grant endpoint and publishes the new session.
func (s *SessionService) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	var tok tokenResponse
	err := s.post(ctx, "/auth/v1/token?grant_type=password",
		map[string]string{"email": email, "password": password}, &tok)
	if err != nil {
		return domain.Session{}, err
	}

	userID := tok.User.ID
	session := domain.Session{
		UserID:        &userID,
		Email:         tok.User.Email,
		AccessToken:   tok.AccessToken,
		Authenticated: true,
	}
	s.publish(session)
	return session, nil
}

// SignUp registers a new account. When the backend requires email
// confirmation it returns no access token; the session then stays
// unauthenticated until the first successful sign-in.
func (s *SessionService) SignUp(ctx context.Context, email, password string) (domain.Session, error) {
	var tok tokenResponse
	err := s.post(ctx, "/auth/v1/signup",
		map[string]string{"email": email, "password": password}, &tok)
	if err != nil {
		return domain.Session{}, err
	}

	if tok.AccessToken == "" {
		return domain.Session{Email: email}, nil
	}

	userID := tok.User.ID
	session := domain.Session{
		UserID:        &userID,
		Email:         tok.User.Email,
		AccessToken:   tok.AccessToken,
		Authenticated: true,
	}
	s.publish(session)
	return session, nil
}

// SignOut revokes the token with the backend on a best-effort basis
// and always resets the local session.
func (s *SessionService) SignOut(ctx context.Context) {
	token := s.AccessToken()
	if s.baseURL != "" && token != "" {
		if err := s.post(ctx, "/auth/v1/logout", map[string]string{}, nil); err != nil {
			// Local sign-out proceeds regardless.
			log.Printf("auth: logout call failed: %v", err)
		}
	}
	s.publish(domain.Session{})
}

// publish replaces the session and notifies subscribers outside the lock.
func (s *SessionService) publish(session domain.Session) {
	s.mu.Lock()
	s.session = session
	subs := make([]func(domain.Session), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(session)
	}
}

// post issues one auth request. Error bodies are pattern-matched and
// re-worded into user-facing messages for the known cases.
func (s *SessionService) post(ctx context.Context, path string, payload any, out any) error {
	if s.baseURL == "" {
		return ErrAuthNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("auth: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("auth: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.apiKey)
	if token := s.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth: failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("auth: failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return friendlyAuthError(resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("auth: failed to parse response: %w", err)
		}
	}
	return nil
}

// friendlyAuthError re-words known auth failure bodies for users and
// falls back to the raw status error otherwise.
func friendlyAuthError(status int, body string) error {
	lower := strings.ToLower(body)
	switch {
	case strings.Contains(lower, "invalid login"):
		return fmt.Errorf("incorrect email or password")
	case strings.Contains(lower, "email not confirmed"):
		return fmt.Errorf("please confirm your email address before signing in")
	case strings.Contains(lower, "already registered"):
		return fmt.Errorf("an account with this email already exists")
	default:
		return &domain.APIError{StatusCode: status, Body: body}
	}
}

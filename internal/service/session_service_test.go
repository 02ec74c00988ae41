package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skycast/backend/internal/domain"
)

func newFakeAuth(t *testing.T, userID uuid.UUID) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["password"] != "hunter22" {
			http.Error(w, `{"error_description":"Invalid login credentials"}`, http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "jwt-token",
			"user":         map[string]any{"id": userID, "email": creds["email"]},
		})
	})
	mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["email"] == "taken@example.com" {
			http.Error(w, `{"msg":"User already registered"}`, http.StatusUnprocessableEntity)
			return
		}
		// Confirmation required: no access token yet.
		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"id": userID, "email": creds["email"]},
		})
	})
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return httptest.NewServer(mux)
}

func TestSignInPublishesSession(t *testing.T) {
	userID := uuid.New()
	server := newFakeAuth(t, userID)
	defer server.Close()

	svc := NewSessionService(server.URL, "anon-key")

	var observed []domain.Session
	svc.OnChange(func(s domain.Session) { observed = append(observed, s) })

	session, err := svc.SignIn(context.Background(), "user@example.com", "hunter22")
	require.NoError(t, err)

	assert.True(t, session.Authenticated)
	require.NotNil(t, session.UserID)
	assert.Equal(t, userID, *session.UserID)
	assert.Equal(t, "jwt-token", svc.AccessToken())

	require.Len(t, observed, 1)
	assert.True(t, observed[0].Authenticated)
}

func TestSignInRewordsInvalidLogin(t *testing.T) {
	server := newFakeAuth(t, uuid.New())
	defer server.Close()

	svc := NewSessionService(server.URL, "anon-key")
	_, err := svc.SignIn(context.Background(), "user@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "incorrect email or password", err.Error())
	assert.False(t, svc.Current().Authenticated)
}

func TestSignUpWithoutTokenStaysUnauthenticated(t *testing.T) {
	server := newFakeAuth(t, uuid.New())
	defer server.Close()

	svc := NewSessionService(server.URL, "anon-key")
	session, err := svc.SignUp(context.Background(), "new@example.com", "hunter22")
	require.NoError(t, err)

	assert.False(t, session.Authenticated)
	assert.Equal(t, "new@example.com", session.Email)
	assert.False(t, svc.Current().Authenticated)
}

func TestSignUpRewordsAlreadyRegistered(t *testing.T) {
	server := newFakeAuth(t, uuid.New())
	defer server.Close()

	svc := NewSessionService(server.URL, "anon-key")
	_, err := svc.SignUp(context.Background(), "taken@example.com", "hunter22")
	require.Error(t, err)
	assert.Equal(t, "an account with this email already exists", err.Error())
}

func TestSignOutResetsSession(t *testing.T) {
	server := newFakeAuth(t, uuid.New())
	defer server.Close()

	svc := NewSessionService(server.URL, "anon-key")
	_, err := svc.SignIn(context.Background(), "user@example.com", "hunter22")
	require.NoError(t, err)

	var last domain.Session
	svc.OnChange(func(s domain.Session) { last = s })

	svc.SignOut(context.Background())

	assert.False(t, svc.Current().Authenticated)
	assert.Empty(t, svc.AccessToken())
	assert.False(t, last.Authenticated)
	assert.Nil(t, last.UserID)
}

func TestAuthNotConfigured(t *testing.T) {
	svc := NewSessionService("", "")
	_, err := svc.SignIn(context.Background(), "user@example.com", "pw")
	assert.ErrorIs(t, err, ErrAuthNotConfigured)
}

func TestUnknownAuthErrorKeepsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"msg":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc := NewSessionService(server.URL, "anon-key")
	_, err := svc.SignIn(context.Background(), "user@example.com", "pw")
	require.Error(t, err)

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

package domain

import "github.com/google/uuid"

// Session holds the authentication state observed by the rest of the
// system. UserID is nil while unauthenticated.
type Session struct {
	UserID        *uuid.UUID `json:"user_id,omitempty"`
	Email         string     `json:"email,omitempty"`
	AccessToken   string     `json:"-"`
	Authenticated bool       `json:"authenticated"`
}

// SessionResponse wraps session state with metadata
type SessionResponse struct {
	Data    Session `json:"data"`
	Success bool    `json:"success"`
	Message string  `json:"message,omitempty"`
}

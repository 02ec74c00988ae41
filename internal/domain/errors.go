package domain

import "fmt"

// APIError carries the HTTP status code and raw body of a failed call
// to an external API. Non-2xx responses from the weather provider and
// the data backend are surfaced this way; callers decide how to word
// them for users.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

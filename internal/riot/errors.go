package riot

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidIdentifierFormat is returned before any network call when a
	// Riot ID does not look like "Name #Tag".
	ErrInvalidIdentifierFormat = errors.New("invalid Riot ID format: must be \"Name #Tag\" (e.g., Faker #KR1)")

	// ErrNotFound means the API confirmed the entity does not exist
	ErrNotFound = errors.New("riot: not found")

	// ErrAPICallFailed covers transport errors, malformed bodies and non-2xx
	// statuses other than 404 and 429.
	ErrAPICallFailed = errors.New("riot: api call failed")

	// ErrRateLimitExhausted is returned once a request has been answered with
	// 429 more times than the client allows.
	ErrRateLimitExhausted = errors.New("riot: rate limit retries exhausted")
)

// StatusError is a non-2xx response from the Riot API
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error: status %d, body: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return ErrAPICallFailed
}

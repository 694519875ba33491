package client

import (
	"errors"
	"fmt"
)

// ErrUnauthorized maps a 401 response. The session is gone; callers should
// route the user back through login.
var ErrUnauthorized = errors.New("session expired")

// ErrForbidden maps a 403 response.
var ErrForbidden = errors.New("forbidden")

// APIError is any other non-2xx response, carrying the best message the
// backend offered.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s", e.Message)
}

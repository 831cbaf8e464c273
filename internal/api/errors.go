package api

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d on %s %s: %s",
		e.StatusCode, e.Method, e.Path, e.Body)
}

// IsUnauthorized reports whether err (or any error in its chain) is a 401
// from the service.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404, i.e. an update or delete against
// an id the service does not know.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// RefreshError wraps a failed refresh-token exchange. Every caller waiting
// on the exchange receives the same RefreshError; by the time it surfaces
// the token store has been cleared and the auth-failure signal fired.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refreshing access token: %v", e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// IsRefreshError reports whether err stems from a failed token refresh.
func IsRefreshError(err error) bool {
	var re *RefreshError
	return errors.As(err, &re)
}

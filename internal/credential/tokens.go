// Package credential persists the bearer token pair and the authenticated
// flag in the system keyring.
//
// Every TokenStore operation is infallible from the caller's point of view:
// a broken or locked keyring degrades to "no credential stored" on reads and
// a no-op on writes, so losing the credential backend can never take the
// client down mid-flight.
package credential

import (
	"errors"
	"log/slog"

	"github.com/99designs/keyring"
)

// Storage keys are versioned so a future format change can coexist with
// entries written by older builds.
const (
	storageVersion  = "v1"
	accessTokenKey  = "nimbly:access-token:" + storageVersion
	refreshTokenKey = "nimbly:refresh-token:" + storageVersion
	authFlagKey     = "nimbly:authenticated:" + storageVersion
)

// TokenStore owns the access/refresh token pair and the authenticated flag.
// It is the only component allowed to retain tokens beyond a single request.
type TokenStore struct {
	ring   keyring.Keyring
	logger *slog.Logger
}

// NewTokenStore wraps an open keyring. A nil logger falls back to
// slog.Default.
func NewTokenStore(ring keyring.Keyring, logger *slog.Logger) *TokenStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenStore{ring: ring, logger: logger}
}

// Open creates a TokenStore over the platform keyring, using fileDir for the
// file-backend fallback.
func Open(fileDir string, logger *slog.Logger) (*TokenStore, error) {
	ring, err := OpenRing(fileDir)
	if err != nil {
		return nil, err
	}
	return NewTokenStore(ring, logger), nil
}

// AccessToken returns the stored access token, or "" when absent or the
// keyring is unreadable.
func (s *TokenStore) AccessToken() string {
	return s.get(accessTokenKey)
}

// SetAccessToken stores the access token. Failures are swallowed.
func (s *TokenStore) SetAccessToken(token string) {
	s.set(accessTokenKey, token)
}

// ClearAccessToken removes the access token.
func (s *TokenStore) ClearAccessToken() {
	s.remove(accessTokenKey)
}

// RefreshToken returns the stored refresh token, or "" when absent.
func (s *TokenStore) RefreshToken() string {
	return s.get(refreshTokenKey)
}

// SetRefreshToken stores the refresh token. Failures are swallowed.
func (s *TokenStore) SetRefreshToken(token string) {
	s.set(refreshTokenKey, token)
}

// ClearRefreshToken removes the refresh token.
func (s *TokenStore) ClearRefreshToken() {
	s.remove(refreshTokenKey)
}

// SetAuthenticated marks the session as authenticated. Routing layers gate
// page access on this flag without touching the tokens themselves.
func (s *TokenStore) SetAuthenticated() {
	s.set(authFlagKey, "1")
}

// ClearAuthenticated removes the authenticated flag.
func (s *TokenStore) ClearAuthenticated() {
	s.remove(authFlagKey)
}

// IsAuthenticated reports whether the authenticated flag is set.
func (s *TokenStore) IsAuthenticated() bool {
	return s.get(authFlagKey) == "1"
}

// ClearAll removes both tokens and the authenticated flag. It is the sole
// logout primitive and is safe to call any number of times.
func (s *TokenStore) ClearAll() {
	s.remove(accessTokenKey)
	s.remove(refreshTokenKey)
	s.remove(authFlagKey)
}

func (s *TokenStore) get(key string) string {
	item, err := s.ring.Get(key)
	if err != nil {
		if !errors.Is(err, keyring.ErrKeyNotFound) {
			s.logger.Debug("reading credential failed",
				slog.String("key", key), slog.String("error", err.Error()))
		}
		return ""
	}
	return string(item.Data)
}

func (s *TokenStore) set(key, value string) {
	err := s.ring.Set(keyring.Item{Key: key, Data: []byte(value)})
	if err != nil {
		s.logger.Debug("storing credential failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (s *TokenStore) remove(key string) {
	err := s.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		s.logger.Debug("removing credential failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
}

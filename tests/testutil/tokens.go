package testutil

import (
	"testing"

	"github.com/99designs/keyring"

	"github.com/nhle/nimbly/internal/credential"
)

// NewTokenStore creates a TokenStore over an in-memory keyring.
func NewTokenStore(t *testing.T) *credential.TokenStore {
	t.Helper()
	return credential.NewTokenStore(keyring.NewArrayKeyring(nil), nil)
}

// Package session owns the process-wide authenticated-session state: who is
// logged in, whether initialization has completed, and the login/logout
// entry points. It is constructed once at application start and passed by
// reference to anything that needs it.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nhle/nimbly/internal/api"
	"github.com/nhle/nimbly/internal/credential"
	"github.com/nhle/nimbly/internal/model"
)

// Session tracks the current user and exposes login/logout. All methods are
// safe for concurrent use.
type Session struct {
	client *api.Client
	tokens *credential.TokenStore
	logger *slog.Logger

	// onLoggedOut is the routing boundary's hook, fired after an explicit
	// Logout. The refresh-failure path fires the api.Client's own handler
	// instead.
	onLoggedOut func()

	mu          sync.Mutex
	user        *model.User
	loading     bool
	initialized bool
}

// New creates a session over the given client and token store. A nil logger
// falls back to slog.Default.
func New(client *api.Client, tokens *credential.TokenStore, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		client:  client,
		tokens:  tokens,
		logger:  logger,
		loading: true,
	}
}

// OnLoggedOut installs the hook fired after Logout.
func (s *Session) OnLoggedOut(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLoggedOut = fn
}

// Initialize resolves the stored access token into a user via /auth/me.
// Without a stored token, or when the token no longer resolves, the session
// ends signed out with all credentials cleared. Initialize always leaves the
// session initialized, so routing can stop waiting either way.
func (s *Session) Initialize(ctx context.Context) error {
	s.setLoading(true)
	defer s.finishInit()

	if s.tokens.AccessToken() == "" {
		s.tokens.ClearAll()
		s.setUser(nil)
		return nil
	}

	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		s.logger.Debug("session restore failed", slog.String("error", err.Error()))
		s.tokens.ClearAll()
		s.setUser(nil)
		return err
	}

	s.tokens.SetAuthenticated()
	s.setUser(user)
	return nil
}

// Login authenticates and stores the issued token pair. A failed login
// clears any stored credentials and surfaces the error.
func (s *Session) Login(ctx context.Context, creds model.Credentials) error {
	s.setLoading(true)
	defer s.setLoading(false)

	result, err := s.client.Login(ctx, creds)
	if err != nil {
		s.tokens.ClearAll()
		s.setUser(nil)
		return err
	}

	s.tokens.SetAccessToken(result.AccessToken)
	s.tokens.SetRefreshToken(result.RefreshToken)
	s.tokens.SetAuthenticated()

	s.mu.Lock()
	user := result.User
	s.user = &user
	s.initialized = true
	s.mu.Unlock()

	s.logger.Info("logged in", slog.String("username", result.Username))
	return nil
}

// Logout clears all stored credentials, drops the user, and fires the
// logged-out hook. Idempotent.
func (s *Session) Logout() {
	s.tokens.ClearAll()

	s.mu.Lock()
	s.user = nil
	s.initialized = true
	s.loading = false
	hook := s.onLoggedOut
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// User returns the current user, or nil when signed out.
func (s *Session) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	user := *s.user
	return &user
}

// OwnerID returns the current user's id, or 0 when signed out.
func (s *Session) OwnerID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return 0
	}
	return s.user.ID
}

// IsAuthenticated reports whether a user is established.
func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// Initialized reports whether the first session resolution has completed.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Loading reports whether a login or initialization is in progress.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Session) setUser(user *model.User) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
}

func (s *Session) finishInit() {
	s.mu.Lock()
	s.loading = false
	s.initialized = true
	s.mu.Unlock()
}

// Package api is the HTTP client for the remote todo/auth service. It
// injects bearer credentials, recovers from expired access tokens with a
// single-flight refresh exchange, and exposes typed endpoint wrappers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nhle/nimbly/internal/credential"
)

const (
	loginPath   = "/auth/login"
	refreshPath = "/auth/refresh"
)

// Client performs authenticated calls against the todo service.
//
// Exactly one refresh exchange is in flight at any time: the first request
// to see a 401 owns the exchange, every request failing with 401 while it
// runs parks on a waiter channel, and all waiters are released in enqueue
// order with the exchange's outcome.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *credential.TokenStore
	logger     *slog.Logger

	// onAuthFailure is the application boundary's navigate-to-login hook.
	// Invoked after the token store has been cleared.
	onAuthFailure func()

	refreshMu  sync.Mutex
	refreshing bool
	waiters    []chan refreshOutcome
}

type refreshOutcome struct {
	accessToken string
	err         error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithAuthFailureHandler installs the hook invoked when authentication is
// unrecoverable (refresh failed or no refresh token stored).
func WithAuthFailureHandler(fn func()) Option {
	return func(c *Client) { c.onAuthFailure = fn }
}

// WithLogger sets the client logger. Nil keeps slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the service rooted at baseURL. Tokens are
// read from and written to the given store.
func NewClient(baseURL string, tokens *credential.TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an authenticated GET and unmarshals the JSON response.
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// Post performs an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// Put performs an authenticated PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, result)
}

// Delete performs an authenticated DELETE and unmarshals the JSON response.
func (c *Client) Delete(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodDelete, path, nil, result)
}

// do runs one request through the refresh interceptor:
//
//  1. attach the stored access token as a bearer header, if any;
//  2. a non-401 outcome is returned unchanged;
//  3. a 401 on the login/refresh endpoints propagates unchanged;
//  4. a 401 with no stored refresh token clears the session and propagates;
//  5. otherwise the request joins the single-flight refresh and, on
//     success, is retried exactly once with the new token; a 401 on the
//     retry propagates unchanged.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	err := c.send(ctx, method, path, body, result, c.tokens.AccessToken())
	if !IsUnauthorized(err) {
		return err
	}

	if isAuthPath(path) {
		return err
	}

	if c.tokens.RefreshToken() == "" {
		c.handleAuthFailure()
		return err
	}

	accessToken, refreshErr := c.awaitRefresh(ctx)
	if refreshErr != nil {
		return refreshErr
	}

	// Retry exactly once with the fresh token. A second 401 here
	// propagates unchanged rather than re-entering the interceptor.
	return c.send(ctx, method, path, body, result, accessToken)
}

// send performs a single HTTP round trip with JSON (de)serialization.
func (c *Client) send(
	ctx context.Context,
	method, path string,
	body, result interface{},
	accessToken string,
) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request %s %s: %w", method, path, err)
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("reading response body: %w", readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
	}

	return nil
}

// awaitRefresh joins the single-flight refresh exchange. The first caller
// performs the exchange; concurrent callers park until it settles and are
// released in the order they arrived. Returns the new access token.
func (c *Client) awaitRefresh(ctx context.Context) (string, error) {
	c.refreshMu.Lock()
	if c.refreshing {
		waiter := make(chan refreshOutcome, 1)
		c.waiters = append(c.waiters, waiter)
		c.refreshMu.Unlock()

		select {
		case outcome := <-waiter:
			return outcome.accessToken, outcome.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	c.refreshing = true
	c.refreshMu.Unlock()

	accessToken, err := c.exchangeRefreshToken(ctx)

	outcome := refreshOutcome{accessToken: accessToken}
	if err != nil {
		outcome.err = &RefreshError{Err: err}
	}

	c.refreshMu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.refreshMu.Unlock()

	for _, waiter := range waiters {
		waiter <- outcome
	}

	if err != nil {
		// One failed exchange clears the session and fires the signal
		// exactly once, no matter how many requests were waiting.
		c.handleAuthFailure()
		return "", outcome.err
	}
	return accessToken, nil
}

// exchangeRefreshToken trades the stored refresh token for a new pair and
// persists it. The exchange deliberately carries no bearer header.
func (c *Client) exchangeRefreshToken(ctx context.Context) (string, error) {
	refreshToken := c.tokens.RefreshToken()
	if refreshToken == "" {
		return "", fmt.Errorf("no refresh token stored")
	}

	var pair struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.send(ctx, http.MethodPost, refreshPath, body, &pair, ""); err != nil {
		return "", err
	}
	if pair.AccessToken == "" {
		return "", fmt.Errorf("refresh response missing access token")
	}

	c.tokens.SetAccessToken(pair.AccessToken)
	c.tokens.SetRefreshToken(pair.RefreshToken)
	c.tokens.SetAuthenticated()
	c.logger.Debug("access token refreshed")
	return pair.AccessToken, nil
}

// handleAuthFailure tears down the stored session and signals the
// application boundary to navigate to login.
func (c *Client) handleAuthFailure() {
	c.logger.Warn("authentication unrecoverable, clearing session")
	c.tokens.ClearAll()
	if c.onAuthFailure != nil {
		c.onAuthFailure()
	}
}

// isAuthPath reports whether path targets an endpoint that must never
// trigger a refresh, which would otherwise loop on bad credentials.
func isAuthPath(path string) bool {
	return strings.Contains(path, loginPath) || strings.Contains(path, refreshPath)
}

package api

import (
	"context"

	"github.com/nhle/nimbly/internal/model"
)

// Login exchanges credentials for the user record and a token pair. A 401
// here means bad credentials and is never turned into a refresh attempt.
// Persisting the returned tokens is the session's job, not the client's.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.LoginResult, error) {
	var result model.LoginResult
	if err := c.Post(ctx, loginPath, creds, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CurrentUser resolves the user behind the stored access token.
func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.Get(ctx, "/auth/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

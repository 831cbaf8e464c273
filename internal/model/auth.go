package model

// User is the authenticated account as returned by the auth service.
type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Image     string `json:"image"`
}

// Credentials is the body of POST /auth/login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`

	// ExpiresInMins optionally shortens the access token lifetime,
	// which the service supports for testing expiry paths.
	ExpiresInMins int `json:"expiresInMins,omitempty"`
}

// TokenPair holds the opaque bearer credentials issued at login or refresh.
// The credential.TokenStore is the only component that retains these beyond
// a single request.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResult is the response of POST /auth/login: the user record with the
// token pair flattened alongside it.
type LoginResult struct {
	User
	TokenPair
}

package model

// Identity is the authenticated user's profile as reported by the API.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Session is the persisted credential bundle for the signed-in user.
// Its JSON shape matches the login/register response body so the bundle
// can be stored exactly as the server returned it.
type Session struct {
	// Access is the short-lived bearer token sent on every API call.
	Access string `json:"access"`

	// Refresh is exchanged for a new access token when Access expires.
	Refresh string `json:"refresh"`

	// User identifies who the tokens belong to.
	User Identity `json:"user"`
}

// TokenPair is the body returned by the token refresh endpoint.
// Refresh is empty when the server does not rotate refresh tokens.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

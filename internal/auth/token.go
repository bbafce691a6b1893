package auth

import (
	"time"
)

// defaultExpiresIn is assumed when the token endpoint omits expires_in.
const defaultExpiresIn = 3600

// Token is the persistent OAuth2 token record. Field names match the on-disk
// token file format, which in turn matches the token endpoint response plus
// the derived expires_at timestamp.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
}

// tokenResponse is the wire shape of a token endpoint response. expires_at is
// never read from the wire; it is always derived at receipt time.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// newToken builds a Token from a token endpoint response, deriving ExpiresAt
// from the moment the response was received. A response without expires_in
// gets a one hour default.
func newToken(resp tokenResponse, receivedAt time.Time) *Token {
	expiresIn := resp.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}

	return &Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    expiresIn,
		ExpiresAt:    receivedAt.Unix() + expiresIn,
	}
}

// Clone returns a copy so callers can hand tokens across ownership boundaries
// without aliasing the Session's internal state.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

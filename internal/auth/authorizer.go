package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TradeStation OAuth2 endpoints. The audience parameter is required by the
// sign-in service to scope issued tokens to the brokerage API.
const (
	AuthURL  = "https://signin.tradestation.com/authorize"
	TokenURL = "https://signin.tradestation.com/oauth/token"
	Audience = "https://api.tradestation.com"
)

// Endpoint is the default TradeStation OAuth2 endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:  AuthURL,
	TokenURL: TokenURL,
}

// scopes requested during the authorization-code flow. offline_access is what
// yields the refresh token.
var scopes = []string{
	"openid", "offline_access", "profile",
	"MarketData", "ReadAccount", "Trade", "Matrix", "OptionSpreads",
}

// Credentials identify the registered OAuth2 client application. Immutable
// once loaded.
type Credentials struct {
	ClientKey    string
	ClientSecret string
	RedirectURI  string
}

// Authorizer drives the OAuth2 authorization-code-grant flow for
// TradeStation. The authorization URL is built with oauth2.Config; the token
// exchange is a manual form-encoded POST because the Session needs to own
// expiry derivation and persistence rather than delegating both to
// oauth2.TokenSource.
type Authorizer struct {
	config *oauth2.Config
	client *http.Client
}

// NewAuthorizer creates an Authorizer for the given client credentials and
// OAuth2 endpoint. Pass Endpoint outside of tests.
func NewAuthorizer(creds Credentials, endpoint oauth2.Endpoint) *Authorizer {
	config := &oauth2.Config{
		ClientID:     creds.ClientKey,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       scopes,
		Endpoint:     endpoint,
	}

	return &Authorizer{
		config: config,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AuthCodeURL builds the URL the user must visit to authorize the
// application. State must be cryptographically random per invocation
// (oauth2.GenerateVerifier at call sites) and verified against the redirect.
func (a *Authorizer) AuthCodeURL(state string) string {
	return a.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("audience", Audience),
	)
}

// ParseRedirect extracts the authorization code and state from the redirect
// URL the user was returned to after visiting the authorization page.
func ParseRedirect(rawURL string) (code, state string, err error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", "", fmt.Errorf("parsing redirect URL: %w", err)
	}

	query := parsed.Query()
	code = strings.TrimSpace(query.Get("code"))
	if code == "" {
		return "", "", errors.New("no authorization code found in the redirect URL")
	}

	return code, query.Get("state"), nil
}

// VerifyState checks the state echoed on the redirect against the state used
// to build the authorization URL. A redirect without state is rejected: an
// absent parameter must not bypass forgery protection.
func VerifyState(returned, expected string) error {
	if returned == "" {
		return errors.New("redirect URL carries no state parameter")
	}
	if returned != expected {
		return errors.New("state mismatch: redirect was not produced by this login attempt")
	}
	return nil
}

// Exchange trades an authorization code for an initial token. The token's
// expiry is derived at response receipt, never trusted from the wire.
func (a *Authorizer) Exchange(ctx context.Context, code string) (*Token, error) {
	if code == "" {
		return nil, errors.New("authorization code cannot be empty")
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {a.config.ClientID},
		"client_secret": {a.config.ClientSecret},
		"code":          {code},
		"redirect_uri":  {a.config.RedirectURL},
	}

	return postTokenRequest(ctx, a.client, a.config.Endpoint.TokenURL, form, time.Now)
}

// postTokenRequest performs a form-encoded POST against the token endpoint
// and builds a Token from the response. Shared by code exchange and refresh;
// now is the caller's time source so expiry derivation follows an injected
// clock in tests.
func postTokenRequest(ctx context.Context, client *http.Client, tokenURL string, form url.Values, now func() time.Time) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	receivedAt := now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}

	if tr.AccessToken == "" {
		return nil, errors.New("token response missing access_token")
	}

	return newToken(tr, receivedAt), nil
}

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// SaveFunc persists a token record after a successful refresh or exchange.
// Implementations must not mutate the token.
type SaveFunc func(ctx context.Context, token *Token) error

// Session holds the current token and keeps it fresh. It owns the token
// record exclusively: stores only see copies, and all mutation happens here.
//
// Refresh is mutex-guarded so that concurrent Valid calls serialize and at
// most one refresh runs for a given staleness window.
type Session struct {
	creds    Credentials
	tokenURL string
	client   *http.Client
	logger   *slog.Logger
	save     SaveFunc
	now      func() time.Time

	mu    sync.Mutex
	token *Token
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithHTTPClient sets a custom HTTP client for token endpoint requests
// (e.g. for tests or custom timeouts).
func WithHTTPClient(client *http.Client) SessionOption {
	return func(s *Session) {
		s.client = client
	}
}

// WithSaveFunc sets the callback invoked to persist the token after every
// successful refresh. A save failure is logged, not surfaced: the in-memory
// token is still valid and callers can proceed.
func WithSaveFunc(save SaveFunc) SessionOption {
	return func(s *Session) {
		s.save = save
	}
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession creates a Session for the given credentials and OAuth2 endpoint.
// The session starts unauthenticated; seed it with SetToken or via
// Authorizer.Exchange.
func NewSession(creds Credentials, endpoint oauth2.Endpoint, logger *slog.Logger, opts ...SessionOption) *Session {
	s := &Session{
		creds:    creds,
		tokenURL: endpoint.TokenURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SetToken seeds the session with a previously persisted token record.
func (s *Session) SetToken(token *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token.Clone()
}

// Token returns a copy of the current token record, or nil when the session
// is unauthenticated.
func (s *Session) Token() *Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token.Clone()
}

// AccessToken returns the current bearer credential, or the empty string when
// the session is unauthenticated.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return ""
	}
	return s.token.AccessToken
}

// Remaining reports how long the access token is still valid. It never
// returns a negative duration, and returns zero when no refresh token is held:
// a token that cannot be renewed is treated as already expired for planning.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked()
}

func (s *Session) remainingLocked() time.Duration {
	if s.token == nil || s.token.RefreshToken == "" {
		return 0
	}

	remaining := time.Unix(s.token.ExpiresAt, 0).Sub(s.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Valid reports whether the access token is good for at least minTTL.
// A stale token triggers a single refresh attempt and Valid reports its
// outcome. No access token at all fails closed without attempting a refresh.
func (s *Session) Valid(ctx context.Context, minTTL time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == nil || s.token.AccessToken == "" {
		s.logger.WarnContext(ctx, "token validation failed: no access token held")
		return false
	}

	remaining := s.remainingLocked()
	if remaining >= minTTL {
		return true
	}

	s.logger.InfoContext(ctx, "access token is stale, refreshing",
		"remaining", remaining.String())

	if err := s.refreshLocked(ctx); err != nil {
		s.logger.ErrorContext(ctx, "token refresh failed", "error", err)
		return false
	}

	return true
}

// Refresh exchanges the refresh token for a new access token and persists the
// result. On any failure the prior token state is left untouched.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	if s.token == nil || s.token.RefreshToken == "" {
		return errors.New("no refresh token held")
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {s.creds.ClientKey},
		"client_secret": {s.creds.ClientSecret},
		"refresh_token": {s.token.RefreshToken},
	}

	token, err := postTokenRequest(ctx, s.client, s.tokenURL, form, s.now)
	if err != nil {
		return err
	}

	// TradeStation does not rotate refresh tokens; keep the old one when the
	// response omits it.
	if token.RefreshToken == "" {
		token.RefreshToken = s.token.RefreshToken
	}

	s.token = token
	s.logger.InfoContext(ctx, "access token refreshed",
		"expires_in", token.ExpiresIn)

	s.persistLocked(ctx)
	return nil
}

// persistLocked saves the current token via the configured SaveFunc. Failures
// are logged and swallowed: the refreshed token is still usable in memory.
func (s *Session) persistLocked(ctx context.Context) {
	if s.save == nil {
		return
	}
	if err := s.save(ctx, s.token.Clone()); err != nil {
		s.logger.WarnContext(ctx, "failed to persist token", "error", err)
	}
}

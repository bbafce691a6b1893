package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCredentials() Credentials {
	return Credentials{
		ClientKey:    "test-key",
		ClientSecret: "test-secret",
		RedirectURI:  "http://localhost/callback",
	}
}

// tokenEndpoint is a fake token endpoint counting refresh requests.
type tokenEndpoint struct {
	server   *httptest.Server
	requests atomic.Int64
	respond  func(w http.ResponseWriter, r *http.Request)
}

func newTokenEndpoint(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) *tokenEndpoint {
	t.Helper()

	te := &tokenEndpoint{respond: respond}
	te.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		te.requests.Add(1)
		te.respond(w, r)
	}))
	t.Cleanup(te.server.Close)

	return te
}

func (te *tokenEndpoint) endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:  te.server.URL + "/authorize",
		TokenURL: te.server.URL + "/oauth/token",
	}
}

func respondWithToken(body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func expiredToken() *Token {
	return &Token{
		AccessToken:  "stale-access",
		RefreshToken: "refresh-1",
		ExpiresIn:    1200,
		ExpiresAt:    time.Now().Add(-time.Hour).Unix(),
	}
}

func TestSessionValidExpiredTokenRefreshesOnce(t *testing.T) {
	te := newTokenEndpoint(t, respondWithToken(
		`{"access_token":"fresh-access","refresh_token":"refresh-2","expires_in":1200}`))

	session := NewSession(testCredentials(), te.endpoint(), testLogger())
	session.SetToken(expiredToken())

	require.True(t, session.Valid(context.Background(), 5*time.Second))
	assert.Equal(t, int64(1), te.requests.Load(), "expected exactly one refresh attempt")
	assert.Equal(t, "fresh-access", session.AccessToken())
}

func TestSessionValidFreshTokenSkipsRefresh(t *testing.T) {
	te := newTokenEndpoint(t, respondWithToken(`{}`))

	session := NewSession(testCredentials(), te.endpoint(), testLogger())
	session.SetToken(&Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresIn:    1200,
		ExpiresAt:    time.Now().Add(20 * time.Minute).Unix(),
	})

	require.True(t, session.Valid(context.Background(), 5*time.Second))
	assert.Equal(t, int64(0), te.requests.Load())
}

func TestSessionValidNoTokenFailsClosed(t *testing.T) {
	te := newTokenEndpoint(t, respondWithToken(`{}`))

	session := NewSession(testCredentials(), te.endpoint(), testLogger())

	assert.False(t, session.Valid(context.Background(), 5*time.Second))
	assert.Equal(t, int64(0), te.requests.Load(), "no refresh must be attempted without an access token")
}

func TestSessionRefreshSendsRefreshGrant(t *testing.T) {
	var grantType, refreshToken string
	te := newTokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		grantType = r.PostForm.Get("grant_type")
		refreshToken = r.PostForm.Get("refresh_token")
		respondWithToken(`{"access_token":"new","expires_in":600}`)(w, r)
	})

	session := NewSession(testCredentials(), te.endpoint(), testLogger())
	session.SetToken(expiredToken())

	require.NoError(t, session.Refresh(context.Background()))
	assert.Equal(t, "refresh_token", grantType)
	assert.Equal(t, "refresh-1", refreshToken)
}

func TestSessionRefreshKeepsRefreshTokenWhenOmitted(t *testing.T) {
	te := newTokenEndpoint(t, respondWithToken(`{"access_token":"new","expires_in":600}`))

	session := NewSession(testCredentials(), te.endpoint(), testLogger())
	session.SetToken(expiredToken())

	require.NoError(t, session.Refresh(context.Background()))

	token := session.Token()
	assert.Equal(t, "new", token.AccessToken)
	assert.Equal(t, "refresh-1", token.RefreshToken)
}

func TestSessionRefreshMissingAccessTokenMutatesNothing(t *testing.T) {
	te := newTokenEndpoint(t, respondWithToken(`{"refresh_token":"other","expires_in":600}`))

	session := NewSession(testCredentials(), te.endpoint(), testLogger())
	before := expiredToken()
	session.SetToken(before)

	require.Error(t, session.Refresh(context.Background()))
	assert.Equal(t, before, session.Token(), "failed refresh must not touch token state")
}

func TestSessionRefreshNon200MutatesNothing(t *testing.T) {
	te := newTokenEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_grant", http.StatusBadRequest)
	})

	session := NewSession(testCredentials(), te.endpoint(), testLogger())
	before := expiredToken()
	session.SetToken(before)

	require.Error(t, session.Refresh(context.Background()))
	assert.Equal(t, before, session.Token())
}

func TestSessionRefreshWithoutRefreshToken(t *testing.T) {
	te := newTokenEndpoint(t, respondWithToken(`{}`))

	session := NewSession(testCredentials(), te.endpoint(), testLogger())
	session.SetToken(&Token{AccessToken: "access"})

	require.Error(t, session.Refresh(context.Background()))
	assert.Equal(t, int64(0), te.requests.Load())
}

func TestSessionRefreshPersistsToken(t *testing.T) {
	te := newTokenEndpoint(t, respondWithToken(
		`{"access_token":"new","refresh_token":"refresh-2","expires_in":600}`))

	var saved *Token
	session := NewSession(testCredentials(), te.endpoint(), testLogger(),
		WithSaveFunc(func(_ context.Context, token *Token) error {
			saved = token
			return nil
		}))
	session.SetToken(expiredToken())

	require.NoError(t, session.Refresh(context.Background()))
	require.NotNil(t, saved)
	assert.Equal(t, "new", saved.AccessToken)
	assert.Equal(t, "refresh-2", saved.RefreshToken)
}

func TestSessionRefreshSaveFailureIsSwallowed(t *testing.T) {
	te := newTokenEndpoint(t, respondWithToken(`{"access_token":"new","expires_in":600}`))

	session := NewSession(testCredentials(), te.endpoint(), testLogger(),
		WithSaveFunc(func(context.Context, *Token) error {
			return errors.New("disk full")
		}))
	session.SetToken(expiredToken())

	require.NoError(t, session.Refresh(context.Background()),
		"a save failure must not fail the refresh")
	assert.Equal(t, "new", session.AccessToken())
}

func TestSessionValidConcurrentRefreshesOnce(t *testing.T) {
	te := newTokenEndpoint(t, respondWithToken(
		`{"access_token":"fresh-access","refresh_token":"refresh-2","expires_in":1200}`))

	session := NewSession(testCredentials(), te.endpoint(), testLogger())
	session.SetToken(expiredToken())

	const callers = 8
	results := make(chan bool, callers)

	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- session.Valid(context.Background(), 5*time.Second)
		}()
	}
	wg.Wait()
	close(results)

	for ok := range results {
		assert.True(t, ok, "every concurrent caller must see a valid token")
	}
	assert.Equal(t, int64(1), te.requests.Load(),
		"concurrent Valid calls must serialize into a single refresh")
}

func TestSessionRefreshDerivesExpiryFromClock(t *testing.T) {
	te := newTokenEndpoint(t, respondWithToken(`{"access_token":"new","expires_in":600}`))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	session := NewSession(testCredentials(), te.endpoint(), testLogger(),
		WithClock(func() time.Time { return now }))
	session.SetToken(&Token{
		AccessToken:  "stale-access",
		RefreshToken: "refresh-1",
		ExpiresAt:    now.Add(-time.Hour).Unix(),
	})

	require.NoError(t, session.Refresh(context.Background()))

	token := session.Token()
	assert.Equal(t, now.Unix()+600, token.ExpiresAt,
		"refresh must derive expiry from the injected clock")
	assert.Equal(t, 600*time.Second, session.Remaining())
}

func TestSessionRemainingNeverNegative(t *testing.T) {
	session := NewSession(testCredentials(), Endpoint, testLogger())
	session.SetToken(expiredToken())

	assert.Equal(t, time.Duration(0), session.Remaining())
}

func TestSessionRemainingZeroWithoutRefreshToken(t *testing.T) {
	session := NewSession(testCredentials(), Endpoint, testLogger())
	session.SetToken(&Token{
		AccessToken: "access",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
	})

	assert.Equal(t, time.Duration(0), session.Remaining(),
		"a token without refresh capability counts as expired for planning")
}

func TestSessionRemainingUsesInjectedClock(t *testing.T) {
	now := time.Now()
	session := NewSession(testCredentials(), Endpoint, testLogger(),
		WithClock(func() time.Time { return now }))
	session.SetToken(&Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    now.Add(90 * time.Second).Unix(),
	})

	assert.Equal(t, 90*time.Second, session.Remaining())
}

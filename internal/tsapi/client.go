// Package tsapi is a thin client for the TradeStation v3 brokerage REST API.
// Every request validates the session token first (refreshing it when stale)
// and maps non-2xx responses onto the typed error taxonomy in errors.go.
package tsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/justSteve/ts-trades/internal/auth"
)

// Base URLs for the simulated and live trading APIs.
const (
	PaperBaseURL = "https://sim-api.tradestation.com/v3"
	LiveBaseURL  = "https://api.tradestation.com/v3"
)

const (
	// maxAccountKeys is the API's cap on comma-joined account keys per call.
	maxAccountKeys = 25
	// tokenMinTTL is how much validity the access token must have left before
	// a request is attempted.
	tokenMinTTL = 5 * time.Second
)

// Client performs authenticated requests against the brokerage API.
type Client struct {
	baseURL string
	session *auth.Session
	client  *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (live trading, tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// New creates a Client bound to the given session. The default base URL is
// the paper-trading API; pass WithBaseURL(LiveBaseURL) for live trading.
func New(session *auth.Session, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: PaperBaseURL,
		session: session,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetAccounts returns all brokerage accounts for the given user.
func (c *Client) GetAccounts(ctx context.Context, userID string) ([]Account, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	var resp AccountsResponse
	endpoint := fmt.Sprintf("users/%s/accounts", url.PathEscape(userID))
	if err := c.get(ctx, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	return resp.Accounts, nil
}

// GetBalances returns balances for up to 25 accounts.
func (c *Client) GetBalances(ctx context.Context, accountKeys []string) ([]Balance, error) {
	keys, err := joinAccountKeys(accountKeys)
	if err != nil {
		return nil, err
	}

	var resp BalancesResponse
	endpoint := fmt.Sprintf("brokerage/accounts/%s/balances", keys)
	if err := c.get(ctx, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	return resp.Balances, nil
}

// GetPositions returns open positions for up to 25 accounts. A nil symbols
// slice returns all positions; a non-empty slice narrows the result via the
// API's $filter expression. An empty non-nil slice is a caller error.
func (c *Client) GetPositions(ctx context.Context, accountKeys []string, symbols []string) ([]Position, error) {
	keys, err := joinAccountKeys(accountKeys)
	if err != nil {
		return nil, err
	}

	var query url.Values
	if symbols != nil {
		if len(symbols) == 0 {
			return nil, ErrEmptySymbolFilter
		}
		query = url.Values{"$filter": {symbolFilter(symbols)}}
	}

	var resp PositionsResponse
	endpoint := fmt.Sprintf("brokerage/accounts/%s/positions", keys)
	if err := c.get(ctx, endpoint, query, &resp); err != nil {
		return nil, err
	}

	return resp.Positions, nil
}

// Snapshot fetches balances and positions for the given accounts
// concurrently.
func (c *Client) Snapshot(ctx context.Context, accountKeys []string) (*Snapshot, error) {
	// Validate once up front so both fetches either run or neither does.
	if _, err := joinAccountKeys(accountKeys); err != nil {
		return nil, err
	}

	var snapshot Snapshot
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		balances, err := c.GetBalances(gCtx, accountKeys)
		if err != nil {
			return fmt.Errorf("balances: %w", err)
		}
		snapshot.Balances = balances
		return nil
	})

	g.Go(func() error {
		positions, err := c.GetPositions(gCtx, accountKeys, nil)
		if err != nil {
			return fmt.Errorf("positions: %w", err)
		}
		snapshot.Positions = positions
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &snapshot, nil
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	if !c.session.Valid(ctx, tokenMinTTL) {
		return &AuthenticationError{Message: "failed to validate access token"}
	}

	requestURL := c.baseURL + "/" + endpoint
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.session.AccessToken())
	req.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "API request", "method", http.MethodGet, "endpoint", endpoint)

	resp, err := c.client.Do(req)
	if err != nil {
		return &NetworkError{Endpoint: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return c.errorFromResponse(ctx, resp, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", endpoint, err)
	}

	return nil
}

// errorFromResponse maps a non-2xx API response onto the error taxonomy.
func (c *Client) errorFromResponse(ctx context.Context, resp *http.Response, endpoint string) error {
	var body map[string]any
	// Error bodies are not always JSON; a parse failure just leaves Body nil.
	_ = json.NewDecoder(resp.Body).Decode(&body)

	c.logger.WarnContext(ctx, "API request failed",
		"endpoint", endpoint, "status", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthenticationError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("authentication error for %s", endpoint),
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{Endpoint: endpoint}
	default:
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Body:       body,
		}
	}
}

// joinAccountKeys validates the account key list and comma-joins it for use
// as a path segment.
func joinAccountKeys(accountKeys []string) (string, error) {
	if len(accountKeys) == 0 {
		return "", ErrNoAccountKeys
	}
	if len(accountKeys) > maxAccountKeys {
		return "", ErrTooManyAccountKeys
	}
	return strings.Join(accountKeys, ","), nil
}

// symbolFilter builds the API's OData-style symbol filter expression,
// e.g. "Symbol eq 'MSFT' or Symbol eq 'AAPL'".
func symbolFilter(symbols []string) string {
	clauses := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		clauses = append(clauses, fmt.Sprintf("Symbol eq '%s'", symbol))
	}
	return strings.Join(clauses, " or ")
}

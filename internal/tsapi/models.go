package tsapi

// Response models for the brokerage endpoints. TradeStation v3 returns
// monetary values as decimal strings; they are carried through unconverted.

// Account describes one brokerage account belonging to a user.
type Account struct {
	AccountID   string `json:"AccountID"`
	Alias       string `json:"Alias,omitempty"`
	AccountType string `json:"AccountType"`
	Currency    string `json:"Currency"`
	Status      string `json:"Status"`
}

// AccountsResponse is the envelope for GET users/{id}/accounts.
type AccountsResponse struct {
	Accounts []Account `json:"Accounts"`
}

// Balance describes the balance snapshot of a single account.
type Balance struct {
	AccountID        string `json:"AccountID"`
	AccountType      string `json:"AccountType,omitempty"`
	CashBalance      string `json:"CashBalance,omitempty"`
	Equity           string `json:"Equity,omitempty"`
	MarketValue      string `json:"MarketValue,omitempty"`
	BuyingPower      string `json:"BuyingPower,omitempty"`
	TodaysProfitLoss string `json:"TodaysProfitLoss,omitempty"`
}

// BalanceError reports a per-account failure inside an otherwise successful
// balances response.
type BalanceError struct {
	AccountID string `json:"AccountID"`
	Error     string `json:"Error"`
	Message   string `json:"Message"`
}

// BalancesResponse is the envelope for GET brokerage/accounts/{keys}/balances.
type BalancesResponse struct {
	Balances []Balance      `json:"Balances"`
	Errors   []BalanceError `json:"Errors,omitempty"`
}

// Position describes one open position in an account.
type Position struct {
	AccountID            string `json:"AccountID"`
	Symbol               string `json:"Symbol"`
	Quantity             string `json:"Quantity"`
	AveragePrice         string `json:"AveragePrice,omitempty"`
	Last                 string `json:"Last,omitempty"`
	LongShort            string `json:"LongShort,omitempty"`
	MarketValue          string `json:"MarketValue,omitempty"`
	UnrealizedProfitLoss string `json:"UnrealizedProfitLoss,omitempty"`
}

// PositionsResponse is the envelope for GET brokerage/accounts/{keys}/positions.
type PositionsResponse struct {
	Positions []Position     `json:"Positions"`
	Errors    []BalanceError `json:"Errors,omitempty"`
}

// Snapshot combines balances and positions for a set of accounts.
type Snapshot struct {
	Balances  []Balance  `json:"Balances"`
	Positions []Position `json:"Positions"`
}

package server

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK bool `json:"ok"` // Service health status
}

// PlanRequest is the body of the deposit and withdraw endpoints
type PlanRequest struct {
	Pool   string `json:"pool"`   // stable | yield | eth
	Sender string `json:"sender"` // 0x account address
	Token  string `json:"token"`  // Token symbol
	Amount string `json:"amount"` // Whole token units, e.g. "12.5"
}

// ClaimRequest is the body of the RGT claim endpoint
type ClaimRequest struct {
	Sender string `json:"sender"`
	Amount string `json:"amount"` // Whole RGT, e.g. "1.5"
}

// TransactionResponse is one unsigned transaction, amounts as decimal strings
type TransactionResponse struct {
	From        string        `json:"from"`
	To          string        `json:"to"`
	Data        hexutil.Bytes `json:"data"`
	Value       string        `json:"value"` // wei
	ValueSymbol string        `json:"valueSymbol"`
}

// LegResponse summarizes one liquidity source of a plan
type LegResponse struct {
	Kind        string `json:"kind"`
	Currency    string `json:"currency"`
	Input       string `json:"input"`  // base units of Currency
	Output      string `json:"output"` // base units of the plan token
	Surplus     string `json:"surplus,omitempty"`
	Orders      int    `json:"orders"`
	ProtocolFee string `json:"protocol_fee"` // wei
	Slippage    string `json:"slippage_percent"`
}

// PlanResponse is a complete deposit or withdrawal plan
type PlanResponse struct {
	ID              string                `json:"id"`
	Pool            string                `json:"pool"`
	Direction       string                `json:"direction"`
	Token           string                `json:"token"`
	Amount          string                `json:"amount"`           // base units
	AmountFormatted string                `json:"amount_formatted"` // whole units
	Contract        string                `json:"contract"`
	Transactions    []TransactionResponse `json:"transactions"`
	Legs            []LegResponse         `json:"legs"`
	ExchangeFee     string                `json:"exchange_fee"`     // wei
	ExchangeFeeETH  string                `json:"exchange_fee_eth"` // whole ETH
	Slippage        string                `json:"slippage_percent"`
}

// MaxWithdrawResponse is the largest amount the account can withdraw
type MaxWithdrawResponse struct {
	Pool            string `json:"pool"`
	Token           string `json:"token"`
	Amount          string `json:"amount"`           // base units
	AmountFormatted string `json:"amount_formatted"` // whole units
}

// OverviewResponse is a pool's balance as seen by one account
type OverviewResponse struct {
	Pool              string `json:"pool"`
	Account           string `json:"account,omitempty"`
	FundBalanceUSD    string `json:"fund_balance_usd"`
	AccountBalanceUSD string `json:"account_balance_usd,omitempty"`
	WithdrawalFeeRate string `json:"withdrawal_fee_rate"` // fraction, e.g. "0.005"
}

// PriceResponse represents token price information
type PriceResponse struct {
	Token string `json:"token"` // Token symbol
	USD   string `json:"usd"`   // Current USD rate
}

// PriceUpdateRequest sets the USD rate of a token
type PriceUpdateRequest struct {
	USD string `json:"usd"`
}

// FlagUpsertRequest represents a request to create or update a feature flag
type FlagUpsertRequest struct {
	Key     string `json:"key"`     // Flag key (must match regex pattern)
	Enabled bool   `json:"enabled"` // Flag value (true/false)
	Reason  string `json:"reason"`  // Optional operator note
}

// FlagUpdateRequest represents a request to update an existing feature flag
type FlagUpdateRequest struct {
	Enabled bool   `json:"enabled"` // New flag value
	Reason  string `json:"reason"`
}

package models

import "time"

// PlanEvent is the audit summary of one planning call
type PlanEvent struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Pool        string    `json:"pool"`
	Direction   string    `json:"direction"` // deposit | withdraw | max_withdraw | claim
	Token       string    `json:"token"`
	Amount      string    `json:"amount"` // base units
	Sender      string    `json:"sender"`
	Legs        int       `json:"legs"`
	Txs         int       `json:"txs"`
	ExchangeFee string    `json:"exchange_fee"` // wei
	Slippage    string    `json:"slippage"`     // percent
	Outcome     string    `json:"outcome"`      // ok | error kind
	Error       string    `json:"error,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
}

package engine

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aman-zulfiqar/yield-router/internal/models"
)

// PlanParams is a planning request as a user types it: symbols and human
// decimal amounts
type PlanParams struct {
	Pool   string `json:"pool"`
	Sender string `json:"sender"`
	Token  string `json:"token"`
	// Amount in whole token units, e.g. "12.5"; unused for max-withdraw
	Amount string `json:"amount"`
}

// Overview is a pool's balance as seen by one account. All USD values use
// 18 decimals; AccountBalanceUSD is nil without an account.
type Overview struct {
	Pool              models.Pool
	Account           common.Address
	FundBalanceUSD    *big.Int
	AccountBalanceUSD *big.Int
	// WithdrawalFeeRate is scaled by 1e18
	WithdrawalFeeRate *big.Int
}

// FundState is the read-only fund data the overview needs
type FundState interface {
	FundBalanceUSD(ctx context.Context, pool models.Pool) (*big.Int, error)
	AccountDepositUSD(ctx context.Context, pool models.Pool, account common.Address) (*big.Int, error)
	WithdrawalFeeRate(ctx context.Context, pool models.Pool) (*big.Int, error)
}

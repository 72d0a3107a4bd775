package engine

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/aman-zulfiqar/yield-router/internal/models"
	"github.com/aman-zulfiqar/yield-router/internal/planner"
)

// Overview reads a pool's balance, the account's share of it and the
// withdrawal fee concurrently. account may be empty.
func (e *Engine) Overview(ctx context.Context, pool, account string) (*Overview, error) {
	p, err := models.ParsePool(pool)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", planner.ErrInvalidRequest, err)
	}
	out := &Overview{Pool: p}
	if account = strings.TrimSpace(account); account != "" {
		if !common.IsHexAddress(account) {
			return nil, fmt.Errorf("%w: invalid account address %q", planner.ErrInvalidRequest, account)
		}
		out.Account = common.HexToAddress(account)
	}

	ctx, cancel := context.WithTimeout(ctx, e.planTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := e.funds.FundBalanceUSD(gctx, p)
		e.metrics.OracleCall("fund_balance", err)
		if err != nil {
			return fmt.Errorf("fund balance: %w", err)
		}
		out.FundBalanceUSD = v
		return nil
	})
	if out.Account != (common.Address{}) {
		g.Go(func() error {
			v, err := e.funds.AccountDepositUSD(gctx, p, out.Account)
			e.metrics.OracleCall("account_balance", err)
			if err != nil {
				return fmt.Errorf("account balance: %w", err)
			}
			out.AccountBalanceUSD = v
			return nil
		})
	}
	g.Go(func() error {
		v, err := e.funds.WithdrawalFeeRate(gctx, p)
		e.metrics.OracleCall("withdrawal_fee", err)
		if err != nil {
			return fmt.Errorf("withdrawal fee: %w", err)
		}
		out.WithdrawalFeeRate = v
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", planner.ErrOracleUnavailable, err)
	}
	return out, nil
}

// WithdrawalFeeRate returns the pool's withdrawal fee scaled by 1e18
func (e *Engine) WithdrawalFeeRate(ctx context.Context, pool string) (*big.Int, error) {
	p, err := models.ParsePool(pool)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", planner.ErrInvalidRequest, err)
	}
	v, err := e.funds.WithdrawalFeeRate(ctx, p)
	e.metrics.OracleCall("withdrawal_fee", err)
	if err != nil {
		return nil, fmt.Errorf("%w: withdrawal fee: %w", planner.ErrOracleUnavailable, err)
	}
	return v, nil
}

// RecentPlans returns the latest plan events, newest first
func (e *Engine) RecentPlans(ctx context.Context, limit int64) ([]*models.PlanEvent, error) {
	if e.cache == nil {
		return nil, ErrNoCache
	}
	return e.cache.GetRecentPlans(ctx, limit)
}

// OutcomeCounts tallies plan outcomes recorded since since
func (e *Engine) OutcomeCounts(ctx context.Context, since time.Time) (map[string]uint64, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	return e.store.OutcomeCounts(ctx, since)
}

// SetPrice stores the USD rate deposit fee conversion reads for symbol
func (e *Engine) SetPrice(ctx context.Context, symbol string, usd decimal.Decimal) error {
	if e.cache == nil {
		return ErrNoCache
	}
	a, ok := e.Asset(symbol)
	if !ok {
		return fmt.Errorf("%w: %q", planner.ErrUnknownAsset, symbol)
	}
	if !usd.IsPositive() {
		return fmt.Errorf("%w: price must be positive", planner.ErrInvalidRequest)
	}
	return e.cache.UpdatePrice(ctx, a.Symbol, usd)
}

// Price returns the stored USD rate of symbol
func (e *Engine) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if e.cache == nil {
		return decimal.Zero, ErrNoCache
	}
	a, ok := e.Asset(symbol)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", planner.ErrUnknownAsset, symbol)
	}
	return e.cache.GetPrice(ctx, a.Symbol)
}

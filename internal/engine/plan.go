package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/yield-router/internal/constants"
	"github.com/aman-zulfiqar/yield-router/internal/models"
	"github.com/aman-zulfiqar/yield-router/internal/planner"
)

const auditTimeout = 2 * time.Second

// Event directions besides the planner's own
const (
	directionMaxWithdraw = "max_withdraw"
	directionClaim       = "claim"
)

type resolved struct {
	pool   models.Pool
	sender common.Address
	token  models.Asset
	amount *big.Int
}

// PlanDeposit plans a deposit of p.Amount of p.Token into p.Pool
func (e *Engine) PlanDeposit(ctx context.Context, p PlanParams) (*planner.Plan, error) {
	var plan *planner.Plan
	err := e.run(ctx, string(planner.DirectionDeposit), p, true, func(ctx context.Context, r resolved, ev *models.PlanEvent) error {
		var err error
		plan, err = e.planner.PlanDeposit(ctx, planner.DepositRequest{
			Pool:            r.pool,
			Sender:          r.sender,
			Amount:          r.amount,
			Token:           r.token,
			SupportedAssets: e.chain.SupportedAssets(),
			Rates:           e.rates(ctx),
		})
		e.describe(ev, plan)
		return err
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// PlanWithdraw plans a withdrawal of exactly p.Amount of p.Token from p.Pool
func (e *Engine) PlanWithdraw(ctx context.Context, p PlanParams) (*planner.Plan, error) {
	var plan *planner.Plan
	err := e.run(ctx, string(planner.DirectionWithdraw), p, true, func(ctx context.Context, r resolved, ev *models.PlanEvent) error {
		var err error
		plan, err = e.planner.PlanWithdraw(ctx, planner.WithdrawRequest{
			Pool:   r.pool,
			Sender: r.sender,
			Amount: r.amount,
			Token:  r.token,
		})
		e.describe(ev, plan)
		return err
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// PlanMaxWithdraw estimates the most of p.Token the sender can withdraw, in
// the token's base units
func (e *Engine) PlanMaxWithdraw(ctx context.Context, p PlanParams) (*big.Int, error) {
	var out *big.Int
	err := e.run(ctx, directionMaxWithdraw, p, false, func(ctx context.Context, r resolved, ev *models.PlanEvent) error {
		var err error
		out, err = e.planner.PlanMaxWithdraw(ctx, planner.MaxWithdrawRequest{
			Pool:   r.pool,
			Sender: r.sender,
			Token:  r.token,
		})
		if out != nil {
			ev.Amount = out.String()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PlanClaimRGT builds the governance token claim for p.Amount RGT. Pool and
// Token are ignored.
func (e *Engine) PlanClaimRGT(ctx context.Context, p PlanParams) (planner.Transaction, error) {
	var tx planner.Transaction
	p.Token = constants.SymbolRGT
	if p.Pool == "" {
		p.Pool = string(models.PoolYield)
	}
	err := e.run(ctx, directionClaim, p, true, func(_ context.Context, r resolved, ev *models.PlanEvent) error {
		var err error
		tx, err = e.planner.PlanClaimRGT(r.sender, r.amount)
		if err == nil {
			ev.Txs = 1
		}
		return err
	})
	return tx, err
}

// run resolves p, calls fn under the plan timeout and records the outcome
func (e *Engine) run(ctx context.Context, direction string, p PlanParams, withAmount bool, fn func(context.Context, resolved, *models.PlanEvent) error) error {
	start := e.now()
	ev := &models.PlanEvent{
		ID:          uuid.NewString(),
		Timestamp:   start.UTC(),
		Pool:        "unknown",
		Direction:   direction,
		Token:       strings.TrimSpace(p.Token),
		Sender:      strings.TrimSpace(p.Sender),
		ExchangeFee: "0",
		Slippage:    "0",
	}

	r, err := e.resolve(p, withAmount)
	if err == nil {
		ev.Pool = string(r.pool)
		ev.Token = r.token.Symbol
		ev.Sender = r.sender.Hex()
		if r.amount != nil {
			ev.Amount = r.amount.String()
		}

		pctx, cancel := context.WithTimeout(ctx, e.planTimeout)
		err = e.timeoutErr(pctx, fn(pctx, r, ev))
		cancel()
	}

	ev.DurationMs = e.now().Sub(start).Milliseconds()
	ev.Outcome = planner.Kind(err)
	if err != nil {
		ev.Error = err.Error()
	}

	e.metrics.PlansTotal.WithLabelValues(direction, ev.Pool, ev.Outcome).Inc()
	e.metrics.PlanDuration.WithLabelValues(direction).Observe(float64(ev.DurationMs) / 1000)
	e.record(ev)
	return err
}

// timeoutErr reports an expired plan deadline as an oracle failure
func (e *Engine) timeoutErr(ctx context.Context, err error) error {
	if err == nil || errors.Is(err, planner.ErrOracleUnavailable) || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: planning exceeded %s: %w", planner.ErrOracleUnavailable, e.planTimeout, err)
}

func (e *Engine) resolve(p PlanParams, withAmount bool) (resolved, error) {
	var r resolved

	pool, err := models.ParsePool(p.Pool)
	if err != nil {
		return r, fmt.Errorf("%w: %w", planner.ErrInvalidRequest, err)
	}
	r.pool = pool

	sender := strings.TrimSpace(p.Sender)
	if !common.IsHexAddress(sender) {
		return r, fmt.Errorf("%w: invalid sender address %q", planner.ErrInvalidRequest, p.Sender)
	}
	r.sender = common.HexToAddress(sender)

	token, ok := e.Asset(p.Token)
	if !ok {
		return r, fmt.Errorf("%w: %q", planner.ErrUnknownAsset, p.Token)
	}
	r.token = token

	if withAmount {
		amount, err := models.ParseUnits(p.Amount, token.Decimals)
		if err != nil {
			return r, fmt.Errorf("%w: %w", planner.ErrInvalidRequest, err)
		}
		if amount.Sign() <= 0 {
			return r, fmt.Errorf("%w: amount must be positive", planner.ErrInvalidRequest)
		}
		r.amount = amount
	}
	return r, nil
}

// Asset finds a known token by symbol, ignoring case
func (e *Engine) Asset(symbol string) (models.Asset, bool) {
	symbol = strings.TrimSpace(symbol)
	if a, ok := e.chain.Asset(symbol); ok {
		return a, true
	}
	for _, a := range e.chain.SupportedAssets() {
		if strings.EqualFold(a.Symbol, symbol) {
			return a, true
		}
	}
	return models.Asset{}, false
}

// rates reads the USD rate table. A cache failure yields an empty table and
// the planner fails closed on whatever rate it needs.
func (e *Engine) rates(ctx context.Context) models.Rates {
	if e.cache == nil {
		return models.Rates{}
	}
	assets := e.chain.SupportedAssets()
	symbols := make([]string, len(assets))
	for i, a := range assets {
		symbols[i] = a.Symbol
	}
	rates, err := e.cache.GetRates(ctx, symbols)
	if err != nil {
		e.logger.WithError(err).Warn("Failed to read USD rates")
		return models.Rates{}
	}
	return rates
}

// describe copies a finished plan's summary into ev and counts its legs
func (e *Engine) describe(ev *models.PlanEvent, plan *planner.Plan) {
	if plan == nil {
		return
	}
	for _, l := range plan.Legs {
		e.metrics.LegsPlanned.WithLabelValues(string(l.Kind)).Inc()
	}
	ev.ID = plan.ID
	ev.Legs = len(plan.Legs)
	ev.Txs = len(plan.Transactions)
	if plan.ExchangeFee != nil {
		ev.ExchangeFee = plan.ExchangeFee.String()
	}
	ev.Slippage = plan.Slippage.String()
}

// record writes ev to every configured audit sink. Failures are logged and
// counted, never returned.
func (e *Engine) record(ev *models.PlanEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()

	if e.cache != nil {
		if err := e.cache.AddRecentPlan(ctx, ev); err != nil {
			e.auditFailed("redis", ev, err)
		}
		if err := e.cache.PublishPlan(ctx, ev); err != nil {
			e.auditFailed("pubsub", ev, err)
		}
	}
	if e.store != nil {
		if err := e.store.InsertPlan(ctx, ev); err != nil {
			e.auditFailed("clickhouse", ev, err)
		}
	}
}

func (e *Engine) auditFailed(sink string, ev *models.PlanEvent, err error) {
	e.metrics.AuditErrors.WithLabelValues(sink).Inc()
	e.logger.WithFields(logrus.Fields{
		"sink": sink,
		"plan": ev.ID,
	}).WithError(err).Warn("Failed to record plan event")
}

package planner

import (
	"context"
	"fmt"
	"math/big"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/yield-router/internal/constants"
	"github.com/aman-zulfiqar/yield-router/internal/models"
)

// maxWithdrawEpsilon is the USD tolerance (1e-2 USD at 1e18 scale) under
// which an account's deposit counts as fully converted
var maxWithdrawEpsilon = big.NewInt(1e16)

// PlanMaxWithdraw estimates the most of req.Token the sender can withdraw,
// walking the same venues as PlanWithdraw but budgeting in USD against the
// account's deposit value.
func (p *Planner) PlanMaxWithdraw(ctx context.Context, req MaxWithdrawRequest) (*big.Int, error) {
	amount, err := p.planMaxWithdraw(ctx, req)
	if err != nil {
		return nil, p.fail("max_withdraw", req.Pool, req.Token.Symbol, err)
	}
	return amount, nil
}

func (p *Planner) planMaxWithdraw(ctx context.Context, req MaxWithdrawRequest) (*big.Int, error) {
	if err := p.validateToken(req.Token); err != nil {
		return nil, err
	}
	if _, err := p.poolContracts(req.Pool); err != nil {
		return nil, err
	}

	usd, err := p.funds.AccountDepositUSD(ctx, req.Pool, req.Sender)
	p.metrics.OracleCall("account_balance", err)
	if err != nil {
		return nil, oracleErr("account balance", err)
	}
	if usd.Sign() <= 0 {
		return new(big.Int), nil
	}

	snap, err := p.snapshot(ctx, req.Pool)
	if err != nil {
		return nil, err
	}
	cands := p.buildCandidates(snap)

	done := new(big.Int).Sub(usd, maxWithdrawEpsilon)
	withdrawn := new(big.Int)
	maxOut := new(big.Int)
	remaining := func() *big.Int { return new(big.Int).Sub(usd, withdrawn) }

	if direct := findCandidate(cands, req.Token.Symbol); direct != nil {
		if direct.price.Sign() == 0 {
			return nil, fmt.Errorf("%w: fund reports no price for %s", ErrOracleUnavailable, req.Token.Symbol)
		}
		full := direct.amountForUSD(usd)
		if direct.balance.Cmp(full) >= 0 {
			return full, nil
		}
		withdrawn.Add(withdrawn, direct.usdValue(direct.balance))
		maxOut.Add(maxOut, direct.balance)
		if err := direct.consume(new(big.Int).Set(direct.balance)); err != nil {
			return nil, err
		}
	}

	if constants.IsMajorStable(req.Token.Symbol) && p.venueEnabled(ctx, constants.VenueStableSwap) {
		for _, c := range cands {
			left := remaining()
			if left.Sign() <= 0 {
				break
			}
			if c.asset.Symbol == req.Token.Symbol || c.balance.Sign() == 0 || !constants.IsStableSwapCompatible(c.asset.Symbol) {
				continue
			}
			in := minBig(c.amountForUSD(left), c.balance)
			if in.Sign() == 0 {
				continue
			}

			var res *models.StableSwapOutput
			if c.asset.Symbol == constants.SymbolMUSD {
				res, err = p.stableSwap.RedeemValidity(ctx, in, req.Token.Address)
				p.metrics.OracleCall("stableswap_redeem", err)
			} else {
				res, err = p.stableSwap.SwapOutput(ctx, c.asset.Address, req.Token.Address, in)
				p.metrics.OracleCall("stableswap_output", err)
			}
			if err != nil || !res.Valid || res.Output == nil {
				p.logger.WithFields(logrus.Fields{"input": c.asset.Symbol}).Debug("Stable swap unavailable for max withdrawal")
				continue
			}

			if err := c.consume(in); err != nil {
				return nil, err
			}
			withdrawn.Add(withdrawn, c.usdValue(in))
			maxOut.Add(maxOut, res.Output)
			if withdrawn.Cmp(done) >= 0 {
				return maxOut, nil
			}
		}
	}

	if p.venueEnabled(ctx, constants.VenueOrderBook) {
		quotes, err := p.quoteCandidates(ctx, cands, req.Token, func(c *candidate) *big.Int {
			return minBig(c.amountForUSD(remaining()), c.balance)
		}, nil)
		if err != nil {
			return nil, err
		}

		for _, rq := range quotes {
			left := remaining()
			if left.Cmp(maxWithdrawEpsilon) <= 0 {
				return maxOut, nil
			}
			fillUSD := rq.cand.usdValue(rq.quote.InputFilled)
			if fillUSD.Sign() == 0 {
				continue
			}
			if fillUSD.Cmp(new(big.Int).Sub(left, maxWithdrawEpsilon)) >= 0 {
				part := new(big.Int).Mul(rq.quote.MakerFilled, left)
				part.Div(part, fillUSD)
				// never credit more than the quote fills
				return maxOut.Add(maxOut, minBig(part, rq.quote.MakerFilled)), nil
			}
			maxOut.Add(maxOut, rq.quote.MakerFilled)
			withdrawn.Add(withdrawn, fillUSD)
		}
	}

	if remaining().Cmp(maxWithdrawEpsilon) <= 0 {
		return maxOut, nil
	}
	return nil, fmt.Errorf("%w: fund cannot convert the account's %s USD into %s", ErrInsufficientLiquidity, models.FormatUnits(usd, 18), req.Token.Symbol)
}

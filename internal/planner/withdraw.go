package planner

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/yield-router/internal/constants"
	"github.com/aman-zulfiqar/yield-router/internal/contracts"
	"github.com/aman-zulfiqar/yield-router/internal/models"
	"github.com/aman-zulfiqar/yield-router/internal/mstable"
)

// PlanWithdraw builds the transaction that delivers exactly req.Amount of
// req.Token to the sender. The fund's own balance of the token is used
// first, then stable-swap legs for major stablecoins, then order-book legs
// ranked by output per USD of input.
func (p *Planner) PlanWithdraw(ctx context.Context, req WithdrawRequest) (*Plan, error) {
	plan, err := p.planWithdraw(ctx, req)
	if err != nil {
		return nil, p.fail("withdraw", req.Pool, req.Token.Symbol, err)
	}
	return plan, nil
}

// withdrawal is the mutable state of one withdraw planning call
type withdrawal struct {
	req   WithdrawRequest
	need  *big.Int
	cands []*candidate
	legs  []SwapLeg
}

func (w *withdrawal) credit(leg SwapLeg) {
	w.legs = append(w.legs, leg)
	w.need.Sub(w.need, leg.OutputAmount)
}

func (p *Planner) planWithdraw(ctx context.Context, req WithdrawRequest) (*Plan, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := p.validateToken(req.Token); err != nil {
		return nil, err
	}
	pc, err := p.poolContracts(req.Pool)
	if err != nil {
		return nil, err
	}

	snap, err := p.snapshot(ctx, req.Pool)
	if err != nil {
		return nil, err
	}

	plan := p.newPlan(req.Pool, DirectionWithdraw, req.Token, req.Amount, req.Sender)
	w := &withdrawal{
		req:   req,
		need:  new(big.Int).Set(req.Amount),
		cands: p.buildCandidates(snap),
	}

	if direct := findCandidate(w.cands, req.Token.Symbol); direct != nil {
		if direct.balance.Cmp(req.Amount) >= 0 {
			data, err := p.encode(contracts.FundManager, contracts.MethodWithdraw, req.Token.Symbol, req.Amount)
			if err != nil {
				return nil, err
			}
			plan.Contract = pc.FundManager
			plan.Legs = []SwapLeg{directLeg(req.Token.Symbol, req.Amount)}
			plan.Transactions = []Transaction{{
				From:        req.Sender,
				To:          pc.FundManager,
				Data:        data,
				Value:       new(big.Int),
				ValueSymbol: p.nativeSymbol(),
			}}
			return plan, nil
		}

		take := new(big.Int).Set(direct.balance)
		if err := direct.consume(take); err != nil {
			return nil, err
		}
		w.credit(directLeg(req.Token.Symbol, take))
	}

	if w.need.Sign() > 0 && constants.IsMajorStable(req.Token.Symbol) && p.venueEnabled(ctx, constants.VenueStableSwap) {
		if err := p.withdrawViaStableSwap(ctx, w); err != nil {
			return nil, err
		}
	}

	slippage := decimal.Zero
	if w.need.Sign() > 0 && p.venueEnabled(ctx, constants.VenueOrderBook) {
		if slippage, err = p.withdrawViaOrderBook(ctx, w); err != nil {
			return nil, err
		}
	}

	if w.need.Sign() > 0 {
		return nil, fmt.Errorf("%w: %s %s short after all venues", ErrInsufficientLiquidity, w.need, req.Token.Symbol)
	}

	tx, fees, err := p.withdrawAndExchangeTx(req, w.legs)
	if err != nil {
		return nil, err
	}
	tx.To = pc.FundProxy

	plan.Contract = pc.FundProxy
	plan.Legs = w.legs
	plan.ExchangeFee = fees
	plan.Slippage = slippage
	plan.Transactions = []Transaction{tx}

	p.logger.WithFields(logrus.Fields{
		"plan":     plan.ID,
		"pool":     plan.Pool,
		"token":    req.Token.Symbol,
		"legs":     len(plan.Legs),
		"fee":      fees,
		"slippage": slippage.StringFixed(4),
	}).Debug("Withdrawal planned")
	return plan, nil
}

// withdrawViaStableSwap credits legs from stable-swap compatible
// currencies. Each input is the smallest one whose predicted output covers
// the outstanding need, clamped to the candidate balance, and it is kept
// only when the venue confirms that exact output.
func (p *Planner) withdrawViaStableSwap(ctx context.Context, w *withdrawal) error {
	fee, err := p.stableSwap.SwapFeeRate(ctx)
	p.metrics.OracleCall("stableswap_fee", err)
	if err != nil {
		return oracleErr("stable-swap fee", err)
	}

	outDec := w.req.Token.Decimals
	for _, c := range w.cands {
		if w.need.Sign() == 0 {
			break
		}
		if c.asset.Symbol == w.req.Token.Symbol || c.balance.Sign() == 0 || !constants.IsStableSwapCompatible(c.asset.Symbol) {
			continue
		}

		inDec := c.asset.Decimals
		predict := func(in *big.Int) *big.Int { return mstable.PredictSwapOutput(in, inDec, outDec, fee) }

		start, err := mstable.EstimateInput(w.need, inDec, outDec, fee)
		if err != nil {
			return oracleErr("stable-swap fee", err)
		}
		in, out, steps, err := p.solver.MinimalInput(start, w.need, mstable.InputGranularity(inDec, outDec), predict)
		p.metrics.ObserveSolverSteps(string(LegStableSwap), steps)
		if err != nil {
			return fmt.Errorf("%s to %s: %w", c.asset.Symbol, w.req.Token.Symbol, err)
		}
		if in.Cmp(c.balance) > 0 {
			in = new(big.Int).Set(c.balance)
			out = predict(in)
		}
		if out.Sign() == 0 {
			continue
		}

		var res *models.StableSwapOutput
		if c.asset.Symbol == constants.SymbolMUSD {
			res, err = p.stableSwap.RedeemValidity(ctx, in, w.req.Token.Address)
			p.metrics.OracleCall("stableswap_redeem", err)
		} else {
			res, err = p.stableSwap.SwapOutput(ctx, c.asset.Address, w.req.Token.Address, in)
			p.metrics.OracleCall("stableswap_output", err)
		}
		log := p.logger.WithFields(logrus.Fields{"input": c.asset.Symbol, "amount": in})
		if err != nil {
			log.WithError(err).Debug("Stable-swap check failed, skipping candidate")
			continue
		}
		if !res.Valid || res.Output == nil || res.Output.Cmp(out) != 0 {
			log.WithFields(logrus.Fields{"reason": res.Reason, "predicted": out, "venue": res.Output}).Debug("Stable-swap output rejected")
			continue
		}

		if err := c.consume(in); err != nil {
			return err
		}
		credited := minBig(out, w.need)
		w.credit(SwapLeg{
			Kind:            LegStableSwap,
			Currency:        c.asset.Symbol,
			InputAmount:     in,
			OutputAmount:    credited,
			Surplus:         new(big.Int).Sub(out, credited),
			Orders:          []models.Order{},
			Signatures:      [][]byte{},
			MakerFillAmount: new(big.Int),
			ProtocolFee:     new(big.Int),
		})
	}
	return nil
}

// withdrawViaOrderBook quotes every remaining candidate for the outstanding
// need and consumes the quotes best first. It returns the output-weighted
// slippage of the legs it adds.
func (p *Planner) withdrawViaOrderBook(ctx context.Context, w *withdrawal) (decimal.Decimal, error) {
	need := new(big.Int).Set(w.need)
	quotes, err := p.quoteCandidates(ctx, w.cands, w.req.Token,
		func(c *candidate) *big.Int { return new(big.Int).Set(c.balance) }, need)
	if err != nil {
		return decimal.Zero, err
	}

	slippage := decimal.Zero
	total := decimal.NewFromBigInt(w.req.Amount, 0)
	for _, rq := range quotes {
		if w.need.Sign() == 0 {
			break
		}
		q := rq.quote

		var in, out *big.Int
		if q.MakerFilled.Cmp(w.need) >= 0 {
			// linear interpolation inside the quote, nudged up until it covers
			rate := func(x *big.Int) *big.Int {
				v := new(big.Int).Mul(q.MakerFilled, x)
				return v.Div(v, q.InputFilled)
			}
			start := new(big.Int).Mul(q.InputFilled, w.need)
			start.Div(start, q.MakerFilled)
			var steps int
			in, _, steps, err = p.solver.MinimalInput(start, w.need, nil, rate)
			p.metrics.ObserveSolverSteps(string(LegOrderBook), steps)
			if err != nil {
				return decimal.Zero, fmt.Errorf("%s to %s: %w", rq.cand.asset.Symbol, w.req.Token.Symbol, err)
			}
			out = new(big.Int).Set(w.need)
		} else {
			in = new(big.Int).Set(q.InputFilled)
			out = new(big.Int).Set(q.MakerFilled)
		}

		if err := rq.cand.consume(in); err != nil {
			return decimal.Zero, err
		}
		orders, sigs := models.SplitOrders(q.Orders)
		legSlippage := q.SlippagePercent()
		w.credit(SwapLeg{
			Kind:            LegOrderBook,
			Currency:        rq.cand.asset.Symbol,
			InputAmount:     in,
			OutputAmount:    out,
			Surplus:         new(big.Int),
			Orders:          orders,
			Signatures:      sigs,
			MakerFillAmount: new(big.Int).Set(out),
			ProtocolFee:     new(big.Int).Set(q.ProtocolFee),
			Slippage:        legSlippage,
		})
		slippage = slippage.Add(decimal.NewFromBigInt(out, 0).Div(total).Mul(legSlippage))
	}
	return slippage, nil
}

// withdrawAndExchangeTx encodes the legs as one withdrawAndExchange call.
// The summed protocol fees are paid as transaction value.
func (p *Planner) withdrawAndExchangeTx(req WithdrawRequest, legs []SwapLeg) (Transaction, *big.Int, error) {
	n := len(legs)
	codes := make([]string, n)
	amounts := make([]*big.Int, n)
	orders := make([][]models.Order, n)
	sigs := make([][][]byte, n)
	fills := make([]*big.Int, n)
	fees := make([]*big.Int, n)
	total := new(big.Int)

	for i, l := range legs {
		codes[i] = l.Currency
		amounts[i] = l.InputAmount
		orders[i] = l.Orders
		sigs[i] = l.Signatures
		fills[i] = l.MakerFillAmount
		fees[i] = l.ProtocolFee
		total.Add(total, l.ProtocolFee)
	}

	// the native currency is addressed as zero
	data, err := p.encode(contracts.FundProxy, contracts.MethodWithdrawAndExchange,
		codes, amounts, req.Token.Address, orders, sigs, fills, fees)
	if err != nil {
		return Transaction{}, nil, err
	}
	return Transaction{
		From:        req.Sender,
		Data:        data,
		Value:       new(big.Int).Set(total),
		ValueSymbol: p.nativeSymbol(),
	}, total, nil
}

// snapshot reads the fund's balances and checks they line up
func (p *Planner) snapshot(ctx context.Context, pool models.Pool) (*models.FundSnapshot, error) {
	snap, err := p.funds.FundBalancesAndPrices(ctx, pool)
	p.metrics.OracleCall("fund_balances", err)
	if err != nil {
		return nil, oracleErr("fund balances", err)
	}
	n := len(snap.Currencies)
	if len(snap.RawBalances) != n || len(snap.PoolBalances) != n || len(snap.Prices) != n {
		return nil, fmt.Errorf("%w: fund balances have mismatched lengths", ErrOracleUnavailable)
	}
	return snap, nil
}

package planner

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/yield-router/internal/chain"
	"github.com/aman-zulfiqar/yield-router/internal/constants"
	"github.com/aman-zulfiqar/yield-router/internal/contracts"
	"github.com/aman-zulfiqar/yield-router/internal/models"
)

// PlanDeposit builds the transactions that move req.Amount of req.Token into
// the pool: a direct deposit when the fund accepts the token, otherwise an
// exchange through the stable-swap venue or the order-book aggregator.
// An ERC20 approval is prepended when the current allowance is short.
func (p *Planner) PlanDeposit(ctx context.Context, req DepositRequest) (*Plan, error) {
	plan, err := p.planDeposit(ctx, req)
	if err != nil {
		return nil, p.fail("deposit", req.Pool, req.Token.Symbol, err)
	}
	return plan, nil
}

func (p *Planner) planDeposit(ctx context.Context, req DepositRequest) (*Plan, error) {
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

	accepted, err := p.funds.AcceptedCurrencies(ctx, req.Pool)
	p.metrics.OracleCall("accepted_currencies", err)
	if err != nil {
		return nil, oracleErr("accepted currencies", err)
	}

	plan := p.newPlan(req.Pool, DirectionDeposit, req.Token, req.Amount, req.Sender)
	native := p.chain.IsNative(req.Token.Symbol)
	value := new(big.Int)
	if native {
		value.Set(req.Amount)
	}

	var tx Transaction
	switch {
	case containsSymbol(accepted, req.Token.Symbol):
		data, err := p.encode(contracts.FundManager, contracts.MethodDeposit, req.Token.Symbol, req.Amount)
		if err != nil {
			return nil, err
		}
		plan.Contract = pc.FundManager
		plan.Legs = []SwapLeg{directLeg(req.Token.Symbol, req.Amount)}
		tx = Transaction{From: req.Sender, To: pc.FundManager, Data: data, Value: value}

	case len(accepted) == 0:
		return nil, fmt.Errorf("%w: %s pool accepts no currencies", ErrInsufficientLiquidity, req.Pool)

	default:
		var ok bool
		if constants.IsMajorStable(req.Token.Symbol) && p.venueEnabled(ctx, constants.VenueStableSwap) {
			tx, ok, err = p.depositViaStableSwap(ctx, req, accepted, pc, plan)
			if err != nil {
				return nil, err
			}
		}
		if !ok {
			if !p.venueEnabled(ctx, constants.VenueOrderBook) {
				return nil, fmt.Errorf("%w: no exchange venue enabled for %s", ErrInsufficientLiquidity, req.Token.Symbol)
			}
			tx, err = p.depositViaOrderBook(ctx, req, accepted[0], pc, plan, value)
			if err != nil {
				return nil, err
			}
		}
	}
	tx.ValueSymbol = p.nativeSymbol()

	if !native {
		approve, err := p.approvalIfNeeded(ctx, req, plan.Contract)
		if err != nil {
			return nil, err
		}
		if approve != nil {
			plan.Transactions = append(plan.Transactions, *approve)
		}
	}
	plan.Transactions = append(plan.Transactions, tx)

	p.logger.WithFields(logrus.Fields{
		"plan":  plan.ID,
		"pool":  plan.Pool,
		"token": req.Token.Symbol,
		"legs":  len(plan.Legs),
		"txs":   len(plan.Transactions),
	}).Debug("Deposit planned")
	return plan, nil
}

// depositViaStableSwap uses the first accepted currency the venue can
// produce from the deposit token. ok is false when none qualifies.
func (p *Planner) depositViaStableSwap(ctx context.Context, req DepositRequest, accepted []string, pc chain.PoolContracts, plan *Plan) (Transaction, bool, error) {
	for _, sym := range accepted {
		if sym == req.Token.Symbol || !constants.IsStableSwapCompatible(sym) {
			continue
		}
		out, err := p.resolveAsset(sym, req.SupportedAssets)
		if err != nil {
			p.logger.WithField("currency", sym).Debug("Accepted currency not resolvable, skipping")
			continue
		}

		res, err := p.stableSwap.SwapOutput(ctx, req.Token.Address, out.Address, req.Amount)
		p.metrics.OracleCall("stableswap_output", err)
		if err != nil {
			p.logger.WithError(err).WithField("output", sym).Debug("Stable-swap quote failed, skipping")
			continue
		}
		if !res.Valid || res.Output == nil || res.Output.Sign() == 0 {
			p.logger.WithFields(logrus.Fields{"output": sym, "reason": res.Reason}).Debug("Stable swap not valid")
			continue
		}

		fee, err := exchangeFeeWei(req.Amount, req.Token.Decimals, res.Output, out.Decimals, req.Rates)
		if err != nil {
			return Transaction{}, false, err
		}

		data, err := p.encode(contracts.FundProxy, contracts.MethodExchangeAndDepositStable, req.Token.Symbol, req.Amount, sym)
		if err != nil {
			return Transaction{}, false, err
		}

		plan.Contract = pc.FundProxy
		plan.ExchangeFee = fee
		plan.Legs = []SwapLeg{{
			Kind:            LegStableSwap,
			Currency:        req.Token.Symbol,
			InputAmount:     new(big.Int).Set(req.Amount),
			OutputAmount:    new(big.Int).Set(res.Output),
			Surplus:         new(big.Int),
			Orders:          []models.Order{},
			Signatures:      [][]byte{},
			MakerFillAmount: new(big.Int),
			ProtocolFee:     new(big.Int),
		}}
		return Transaction{From: req.Sender, To: pc.FundProxy, Data: data, Value: new(big.Int)}, true, nil
	}
	return Transaction{}, false, nil
}

// depositViaOrderBook sells the whole deposit for the pool's first accepted
// currency. The protocol fee rides on the transaction value.
func (p *Planner) depositViaOrderBook(ctx context.Context, req DepositRequest, target string, pc chain.PoolContracts, plan *Plan, value *big.Int) (Transaction, error) {
	out, err := p.resolveAsset(target, req.SupportedAssets)
	if err != nil {
		return Transaction{}, err
	}
	sellToken, err := p.orderBookToken(req.Token)
	if err != nil {
		return Transaction{}, err
	}
	buyToken, err := p.orderBookToken(out)
	if err != nil {
		return Transaction{}, err
	}

	q, err := p.aggregator.SwapQuote(ctx, models.AggregatorRequest{
		SellToken:  sellToken,
		BuyToken:   buyToken,
		SellAmount: req.Amount,
	})
	p.metrics.OracleCall("aggregator_quote", err)
	if err != nil {
		return Transaction{}, oracleErr("order-book quote", err)
	}
	if q.InputFilled.Cmp(req.Amount) < 0 {
		return Transaction{}, fmt.Errorf("%w: order book fills %s of %s %s", ErrInsufficientLiquidity, q.InputFilled, req.Amount, req.Token.Symbol)
	}

	orders, sigs := models.SplitOrders(q.Orders)
	// the proxy takes the zero address for the native currency
	data, err := p.encode(contracts.FundProxy, contracts.MethodExchangeAndDepositOrders,
		req.Token.Address, req.Amount, target, orders, sigs, q.TakerFilled)
	if err != nil {
		return Transaction{}, err
	}

	slippage := q.SlippagePercent()
	plan.Contract = pc.FundProxy
	plan.ExchangeFee = new(big.Int).Set(q.ProtocolFee)
	plan.Slippage = slippage
	plan.Legs = []SwapLeg{{
		Kind:            LegOrderBook,
		Currency:        req.Token.Symbol,
		InputAmount:     new(big.Int).Set(req.Amount),
		OutputAmount:    new(big.Int).Set(q.MakerFilled),
		Surplus:         new(big.Int),
		Orders:          orders,
		Signatures:      sigs,
		MakerFillAmount: new(big.Int).Set(q.MakerFilled),
		ProtocolFee:     new(big.Int).Set(q.ProtocolFee),
		Slippage:        slippage,
	}}

	return Transaction{
		From:  req.Sender,
		To:    pc.FundProxy,
		Data:  data,
		Value: new(big.Int).Add(value, q.ProtocolFee),
	}, nil
}

// approvalIfNeeded returns an approve transaction when the sender's allowance
// for spender is below the deposit. An unreadable allowance counts as zero.
func (p *Planner) approvalIfNeeded(ctx context.Context, req DepositRequest, spender common.Address) (*Transaction, error) {
	allowance, err := p.funds.Allowance(ctx, req.Token.Address, req.Sender, spender)
	p.metrics.OracleCall("allowance", err)
	if err != nil {
		p.logger.WithError(err).WithField("token", req.Token.Symbol).Warn("Allowance unreadable, requesting approval")
		allowance = new(big.Int)
	}
	if allowance.Cmp(req.Amount) >= 0 {
		return nil, nil
	}

	data, err := p.encode(contracts.ERC20, contracts.MethodApprove, spender, req.Amount)
	if err != nil {
		return nil, err
	}
	return &Transaction{
		From:        req.Sender,
		To:          req.Token.Address,
		Data:        data,
		Value:       new(big.Int),
		ValueSymbol: p.nativeSymbol(),
	}, nil
}

// resolveAsset finds symbol among the caller's supported assets, then the
// chain's known assets
func (p *Planner) resolveAsset(symbol string, supported []models.Asset) (models.Asset, error) {
	for _, a := range supported {
		if a.Symbol == symbol {
			return a, nil
		}
	}
	if a, ok := p.chain.Asset(symbol); ok {
		return a, nil
	}
	return models.Asset{}, fmt.Errorf("%w: %s", ErrUnknownAsset, symbol)
}

func directLeg(symbol string, amount *big.Int) SwapLeg {
	return SwapLeg{
		Kind:            LegDirect,
		Currency:        symbol,
		InputAmount:     new(big.Int).Set(amount),
		OutputAmount:    new(big.Int).Set(amount),
		Surplus:         new(big.Int),
		Orders:          []models.Order{},
		Signatures:      [][]byte{},
		MakerFillAmount: new(big.Int),
		ProtocolFee:     new(big.Int),
	}
}

func containsSymbol(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

package planner

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/yield-router/internal/constants"
	"github.com/aman-zulfiqar/yield-router/internal/contracts"
	"github.com/aman-zulfiqar/yield-router/internal/models"
)

func TestPlanWithdraw_Direct(t *testing.T) {
	funds := &fakeFunds{snap: snapshotOf(
		holding{"DAI", units("500", 18), "1"},
		holding{"USDC", units("1000", 6), "1"},
	)}
	h := newHarness(t, funds, nil)

	plan, err := h.planner.PlanWithdraw(context.Background(), WithdrawRequest{
		Pool: models.PoolStable, Sender: sender, Amount: units("1000", 6), Token: asset(t, "USDC"),
	})
	require.NoError(t, err)

	pc, _ := mainnet.PoolContracts(models.PoolStable)
	require.Len(t, plan.Transactions, 1)
	assert.Equal(t, pc.FundManager, plan.Transactions[0].To)
	method, args := h.decode(t, contracts.FundManager, plan.Transactions[0].Data)
	assert.Equal(t, contracts.MethodWithdraw, method)
	assert.Equal(t, []any{"USDC", units("1000", 6)}, args)
	assert.Equal(t, units("1000", 6), plan.TotalOutput())
}

func TestPlanWithdraw_DirectThenStableSwap(t *testing.T) {
	funds := &fakeFunds{snap: snapshotOf(
		holding{"USDC", units("1000", 6), "1"},
		holding{"DAI", units("500", 18), "1"},
	)}
	h := newHarness(t, funds, nil)

	plan, err := h.planner.PlanWithdraw(context.Background(), WithdrawRequest{
		Pool: models.PoolStable, Sender: sender, Amount: units("1200", 6), Token: asset(t, "USDC"),
	})
	require.NoError(t, err)
	h.agg.AssertNotCalled(t, "SwapQuote", mock.Anything, mock.Anything)
	assert.Equal(t, 1, h.rec.oracles["stableswap_output"])
	assert.Zero(t, h.rec.steps[string(LegStableSwap)])

	require.Len(t, plan.Legs, 2)
	direct, swap := plan.Legs[0], plan.Legs[1]
	assert.Equal(t, LegDirect, direct.Kind)
	assert.Equal(t, units("1000", 6), direct.InputAmount)

	assert.Equal(t, LegStableSwap, swap.Kind)
	assert.Equal(t, "DAI", swap.Currency)
	// 200 USDC after a 0.1% fee
	assert.Equal(t, "200200200000000000000", swap.InputAmount.String())
	assert.Equal(t, units("200", 6), swap.OutputAmount)
	assert.Zero(t, swap.Surplus.Sign())

	assert.Equal(t, units("1200", 6), plan.TotalOutput())
	assert.Zero(t, plan.ExchangeFee.Sign())

	pc, _ := mainnet.PoolContracts(models.PoolStable)
	require.Len(t, plan.Transactions, 1)
	tx := plan.Transactions[0]
	assert.Equal(t, pc.FundProxy, tx.To)
	assert.Zero(t, tx.Value.Sign())

	method, args := h.decode(t, contracts.FundProxy, tx.Data)
	assert.Equal(t, contracts.MethodWithdrawAndExchange, method)
	assert.Equal(t, []string{"USDC", "DAI"}, args[0])
	amounts := args[1].([]*big.Int)
	assert.Equal(t, "1000000000", amounts[0].String())
	assert.Equal(t, "200200200000000000000", amounts[1].String())
	assert.Equal(t, asset(t, "USDC").Address, args[2])
}

func TestPlanWithdraw_StableSwapSkipsDisagreeingVenue(t *testing.T) {
	funds := &fakeFunds{snap: snapshotOf(
		holding{"USDC", units("100", 6), "1"},
		holding{"DAI", units("500", 18), "1"},
	)}
	h := newHarness(t, funds, venueSwitch{constants.VenueOrderBook: false})
	h.venue.skew = big.NewInt(1)

	_, err := h.planner.PlanWithdraw(context.Background(), WithdrawRequest{
		Pool: models.PoolStable, Sender: sender, Amount: units("150", 6), Token: asset(t, "USDC"),
	})
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestPlanWithdraw_StableSwapSurplusFromGranularity(t *testing.T) {
	// DAI has 18 decimals and USDT 6, so outputs move in steps of 1e12 input.
	// Any output beyond the need is reported, never credited.
	funds := &fakeFunds{snap: snapshotOf(holding{"DAI", units("50", 18), "1"})}
	h := newHarness(t, funds, nil)
	h.venue.fee = big.NewInt(4e14)

	plan, err := h.planner.PlanWithdraw(context.Background(), WithdrawRequest{
		Pool: models.PoolStable, Sender: sender, Amount: big.NewInt(33_333_333), Token: asset(t, "USDT"),
	})
	require.NoError(t, err)
	require.Len(t, plan.Legs, 1)
	leg := plan.Legs[0]
	assert.Equal(t, big.NewInt(33_333_333), leg.OutputAmount)
	assert.True(t, leg.Surplus.Sign() >= 0)
	assert.Equal(t, big.NewInt(33_333_333), plan.TotalOutput())
}

func TestPlanWithdraw_OrderBookRanked(t *testing.T) {
	funds := &fakeFunds{snap: snapshotOf(
		holding{"USDC", units("100", 6), "1"},
		holding{"DAI", units("30", 18), "1"},
		holding{"WETH", units("1", 18), "2000"},
	)}
	h := newHarness(t, funds, venueSwitch{constants.VenueStableSwap: false})
	dai, weth := asset(t, "DAI"), asset(t, "WETH")

	h.agg.On("SwapQuote", mock.Anything, selling(dai.Address)).Return(&models.AggregatorQuote{
		InputFilled:     units("30", 18),
		TakerFilled:     units("30", 18),
		MakerFilled:     units("30", 6),
		ProtocolFee:     new(big.Int),
		Price:           decimal.NewFromInt(1),
		GuaranteedPrice: decimal.NewFromInt(1),
	}, nil)
	h.agg.On("SwapQuote", mock.Anything, selling(weth.Address)).Return(&models.AggregatorQuote{
		InputFilled:     units("0.0249", 18),
		TakerFilled:     units("0.0249", 18),
		MakerFilled:     units("50", 6),
		ProtocolFee:     big.NewInt(3e14),
		Price:           decimal.NewFromInt(2000),
		GuaranteedPrice: decimal.NewFromInt(1980),
	}, nil)

	plan, err := h.planner.PlanWithdraw(context.Background(), WithdrawRequest{
		Pool: models.PoolStable, Sender: sender, Amount: units("150", 6), Token: asset(t, "USDC"),
	})
	require.NoError(t, err)

	require.Len(t, plan.Legs, 2)
	assert.Equal(t, LegDirect, plan.Legs[0].Kind)
	ob := plan.Legs[1]
	assert.Equal(t, LegOrderBook, ob.Kind)
	assert.Equal(t, "WETH", ob.Currency)
	assert.Equal(t, units("0.0249", 18), ob.InputAmount)
	assert.Equal(t, units("50", 6), ob.MakerFillAmount)
	assert.Equal(t, len(ob.Orders), len(ob.Signatures))

	assert.Equal(t, units("150", 6), plan.TotalOutput())
	assert.Equal(t, big.NewInt(3e14), plan.ExchangeFee)
	assert.Equal(t, big.NewInt(3e14), plan.Transactions[0].Value)
	assert.InDelta(t, 1.0/3, plan.Slippage.InexactFloat64(), 1e-9)

	// every quote asks for no more than the outstanding need
	for _, c := range h.agg.Calls {
		req := c.Arguments.Get(1).(models.AggregatorRequest)
		assert.Equal(t, units("50", 6), req.BuyAmount)
	}
}

func TestPlanWithdraw_OrderBookFullFillThenPartial(t *testing.T) {
	snap := snapshotOf(
		holding{"USDC", units("100", 6), "1"},
		holding{"DAI", units("29", 18), "1"},
		holding{"WETH", units("1", 18), "2000"},
	)
	funds := &fakeFunds{snap: snap}
	h := newHarness(t, funds, venueSwitch{constants.VenueStableSwap: false})
	dai, weth, usdc := asset(t, "DAI"), asset(t, "WETH"), asset(t, "USDC")

	// DAI ranks first but its whole fill covers only 30 of the 50 missing
	h.agg.On("SwapQuote", mock.Anything, selling(dai.Address)).Return(&models.AggregatorQuote{
		InputFilled:     units("29", 18),
		TakerFilled:     units("29", 18),
		MakerFilled:     units("30", 6),
		ProtocolFee:     big.NewInt(1e14),
		Price:           decimal.NewFromInt(1),
		GuaranteedPrice: decimal.RequireFromString("0.995"),
	}, nil)
	h.agg.On("SwapQuote", mock.Anything, selling(weth.Address)).Return(&models.AggregatorQuote{
		InputFilled:     units("0.0249", 18),
		TakerFilled:     units("0.0249", 18),
		MakerFilled:     units("50", 6),
		ProtocolFee:     big.NewInt(3e14),
		Price:           decimal.NewFromInt(2000),
		GuaranteedPrice: decimal.NewFromInt(1980),
	}, nil)

	amount := units("150", 6)
	plan, err := h.planner.PlanWithdraw(context.Background(), WithdrawRequest{
		Pool: models.PoolStable, Sender: sender, Amount: amount, Token: usdc,
	})
	require.NoError(t, err)

	require.Len(t, plan.Legs, 3)
	assert.Equal(t, LegDirect, plan.Legs[0].Kind)
	assert.Equal(t, units("100", 6), plan.Legs[0].InputAmount)

	full := plan.Legs[1]
	assert.Equal(t, LegOrderBook, full.Kind)
	assert.Equal(t, "DAI", full.Currency)
	assert.Equal(t, units("29", 18), full.InputAmount)
	assert.Equal(t, units("30", 6), full.OutputAmount)
	assert.Equal(t, units("30", 6), full.MakerFillAmount)

	partial := plan.Legs[2]
	assert.Equal(t, LegOrderBook, partial.Kind)
	assert.Equal(t, "WETH", partial.Currency)
	assert.Equal(t, units("0.00996", 18), partial.InputAmount)
	assert.Equal(t, units("20", 6), partial.OutputAmount)
	assert.Equal(t, units("20", 6), partial.MakerFillAmount)

	sum := new(big.Int)
	for _, l := range plan.Legs {
		sum.Add(sum, l.OutputAmount)
	}
	assert.Equal(t, 0, sum.Cmp(amount))
	assert.Equal(t, 0, plan.TotalOutput().Cmp(amount))

	assert.Equal(t, big.NewInt(4e14), plan.ExchangeFee)
	assert.Equal(t, big.NewInt(4e14), plan.Transactions[0].Value)
	// 30/150 at 0.5% plus 20/150 at 1%
	assert.InDelta(t, 7.0/30, plan.Slippage.InexactFloat64(), 1e-9)

	// planning works on copies; the snapshot itself is untouched
	assert.Equal(t, units("29", 18), snap.RawBalances[1])
	assert.Equal(t, units("1", 18), snap.RawBalances[2])
}

func TestWithdrawViaOrderBook_ResidualBalances(t *testing.T) {
	snap := snapshotOf(
		holding{"DAI", units("29", 18), "1"},
		holding{"WETH", units("1", 18), "2000"},
	)
	h := newHarness(t, &fakeFunds{snap: snap}, nil)
	dai, weth := asset(t, "DAI"), asset(t, "WETH")

	h.agg.On("SwapQuote", mock.Anything, selling(dai.Address)).Return(&models.AggregatorQuote{
		InputFilled: units("29", 18), TakerFilled: units("29", 18), MakerFilled: units("30", 6),
		ProtocolFee: new(big.Int), Price: decimal.NewFromInt(1), GuaranteedPrice: decimal.NewFromInt(1),
	}, nil)
	h.agg.On("SwapQuote", mock.Anything, selling(weth.Address)).Return(&models.AggregatorQuote{
		InputFilled: units("0.0249", 18), TakerFilled: units("0.0249", 18), MakerFilled: units("50", 6),
		ProtocolFee: new(big.Int), Price: decimal.NewFromInt(2000), GuaranteedPrice: decimal.NewFromInt(2000),
	}, nil)

	w := &withdrawal{
		req:   WithdrawRequest{Pool: models.PoolStable, Sender: sender, Amount: units("50", 6), Token: asset(t, "USDC")},
		need:  units("50", 6),
		cands: h.planner.buildCandidates(snap),
	}
	_, err := h.planner.withdrawViaOrderBook(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, 0, w.need.Sign())

	want := map[string]*big.Int{
		"DAI":  new(big.Int),
		"WETH": units("0.99004", 18),
	}
	for i, c := range w.cands {
		assert.GreaterOrEqual(t, c.balance.Sign(), 0, c.asset.Symbol)
		assert.LessOrEqual(t, c.balance.Cmp(snap.RawBalances[i]), 0, c.asset.Symbol)
		assert.Equal(t, 0, c.balance.Cmp(want[c.asset.Symbol]), c.asset.Symbol)
	}
}

func TestPlanWithdraw_InsufficientLiquidity(t *testing.T) {
	funds := &fakeFunds{snap: snapshotOf(
		holding{"USDC", units("10", 6), "1"},
		holding{"WETH", units("0.001", 18), "2000"},
	)}
	h := newHarness(t, funds, nil)
	h.agg.On("SwapQuote", mock.Anything, mock.Anything).Return(nil, errors.New("no orders"))

	_, err := h.planner.PlanWithdraw(context.Background(), WithdrawRequest{
		Pool: models.PoolStable, Sender: sender, Amount: units("100", 6), Token: asset(t, "USDC"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	var pe *PlanError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "withdraw", pe.Op)
	assert.Equal(t, "USDC", pe.Token)
}

func TestPlanWithdraw_SolveExceeded(t *testing.T) {
	funds := &fakeFunds{snap: snapshotOf(holding{"USDC", units("500", 6), "1"})}
	h := newHarness(t, funds, nil)
	// the first estimate truncates to zero USDC, so at least one step is needed
	h.planner.solver = Solver{MaxSteps: 0, Step: big.NewInt(1)}
	h.venue.fee = big.NewInt(3e15)

	_, err := h.planner.PlanWithdraw(context.Background(), WithdrawRequest{
		Pool: models.PoolStable, Sender: sender, Amount: big.NewInt(5e11), Token: asset(t, "DAI"),
	})
	assert.ErrorIs(t, err, ErrSolveExceeded)
	assert.Equal(t, "solve_exceeded", Kind(err))
}

func TestPlanWithdraw_OracleFailure(t *testing.T) {
	h := newHarness(t, &fakeFunds{err: errors.New("timeout")}, nil)

	_, err := h.planner.PlanWithdraw(context.Background(), WithdrawRequest{
		Pool: models.PoolStable, Sender: sender, Amount: big.NewInt(1), Token: asset(t, "USDC"),
	})
	assert.ErrorIs(t, err, ErrOracleUnavailable)
}

func TestPlanWithdraw_MismatchedSnapshot(t *testing.T) {
	snap := snapshotOf(holding{"USDC", units("10", 6), "1"})
	snap.Prices = nil
	h := newHarness(t, &fakeFunds{snap: snap}, nil)

	_, err := h.planner.PlanWithdraw(context.Background(), WithdrawRequest{
		Pool: models.PoolStable, Sender: sender, Amount: big.NewInt(1), Token: asset(t, "USDC"),
	})
	assert.ErrorIs(t, err, ErrOracleUnavailable)
}

package planner

import (
	"context"
	"io"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/yield-router/internal/chain"
	"github.com/aman-zulfiqar/yield-router/internal/contracts"
	"github.com/aman-zulfiqar/yield-router/internal/models"
	"github.com/aman-zulfiqar/yield-router/internal/mstable"
)

var (
	mainnet = chain.Mainnet()
	sender  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

func asset(t *testing.T, symbol string) models.Asset {
	t.Helper()
	a, ok := mainnet.Asset(symbol)
	require.True(t, ok, symbol)
	return a
}

func units(s string, dec uint8) *big.Int {
	v, err := models.ParseUnits(s, dec)
	if err != nil {
		panic(err)
	}
	return v
}

// holding is one currency line of a fund snapshot
type holding struct {
	symbol string
	amount *big.Int
	// price in USD per whole unit
	price string
}

func snapshotOf(hs ...holding) *models.FundSnapshot {
	s := &models.FundSnapshot{}
	for _, h := range hs {
		s.Currencies = append(s.Currencies, h.symbol)
		s.RawBalances = append(s.RawBalances, h.amount)
		s.PoolIndexes = append(s.PoolIndexes, []uint8{})
		s.PoolBalances = append(s.PoolBalances, []*big.Int{})
		s.Prices = append(s.Prices, units(h.price, 18))
	}
	return s
}

type fakeFunds struct {
	accepted     []string
	snap         *models.FundSnapshot
	depositUSD   *big.Int
	allowance    *big.Int
	allowanceErr error
	err          error

	allowanceCalls int
}

func (f *fakeFunds) AcceptedCurrencies(context.Context, models.Pool) ([]string, error) {
	return f.accepted, f.err
}

func (f *fakeFunds) FundBalancesAndPrices(context.Context, models.Pool) (*models.FundSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func (f *fakeFunds) AccountDepositUSD(context.Context, models.Pool, common.Address) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.depositUSD, nil
}

func (f *fakeFunds) Allowance(context.Context, common.Address, common.Address, common.Address) (*big.Int, error) {
	f.allowanceCalls++
	if f.allowanceErr != nil {
		return nil, f.allowanceErr
	}
	if f.allowance == nil {
		return new(big.Int), nil
	}
	return f.allowance, nil
}

// fakeStableSwap answers with the venue's own fee formula
type fakeStableSwap struct {
	fee     *big.Int
	invalid map[common.Address]bool
	// skew is added to every output, to simulate a venue that disagrees
	skew *big.Int
}

func (f *fakeStableSwap) decimals(addr common.Address) uint8 {
	for _, a := range mainnet.Assets {
		if a.Address == addr {
			return a.Decimals
		}
	}
	return 18
}

func (f *fakeStableSwap) output(in, out common.Address, amount *big.Int) *models.StableSwapOutput {
	if f.invalid[in] {
		return &models.StableSwapOutput{Valid: false, Reason: "basset not allowed", Output: new(big.Int)}
	}
	v := mstable.PredictSwapOutput(amount, f.decimals(in), f.decimals(out), f.fee)
	if f.skew != nil {
		v.Add(v, f.skew)
	}
	return &models.StableSwapOutput{Valid: true, Output: v}
}

func (f *fakeStableSwap) SwapOutput(_ context.Context, in, out common.Address, amount *big.Int) (*models.StableSwapOutput, error) {
	return f.output(in, out, amount), nil
}

func (f *fakeStableSwap) RedeemValidity(_ context.Context, amount *big.Int, out common.Address) (*models.StableSwapOutput, error) {
	return f.output(mainnet.MStable, out, amount), nil
}

func (f *fakeStableSwap) SwapFeeRate(context.Context) (*big.Int, error) {
	return f.fee, nil
}

type mockAggregator struct {
	mock.Mock
}

func (m *mockAggregator) SwapQuote(ctx context.Context, req models.AggregatorRequest) (*models.AggregatorQuote, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AggregatorQuote), args.Error(1)
}

func selling(addr common.Address) any {
	return mock.MatchedBy(func(r models.AggregatorRequest) bool { return r.SellToken == addr })
}

// venueSwitch disables the venues set to false
type venueSwitch map[string]bool

func (v venueSwitch) VenueEnabled(_ context.Context, venue string) bool {
	on, ok := v[venue]
	return !ok || on
}

type recorder struct {
	steps   map[string]int
	oracles map[string]int
}

func (r *recorder) ObserveSolverSteps(leg string, steps int) {
	if r.steps == nil {
		r.steps = map[string]int{}
	}
	r.steps[leg] += steps
}

func (r *recorder) OracleCall(oracle string, _ error) {
	if r.oracles == nil {
		r.oracles = map[string]int{}
	}
	r.oracles[oracle]++
}

type harness struct {
	planner *Planner
	funds   *fakeFunds
	venue   *fakeStableSwap
	agg     *mockAggregator
	enc     *contracts.Encoder
	rec     *recorder
}

func newHarness(t *testing.T, funds *fakeFunds, gate VenueGate) *harness {
	t.Helper()
	enc, err := contracts.NewEncoder()
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h := &harness{
		funds: funds,
		venue: &fakeStableSwap{fee: big.NewInt(1e15)},
		agg:   &mockAggregator{},
		enc:   enc,
		rec:   &recorder{},
	}
	h.planner, err = New(Config{
		Chain:      mainnet,
		Funds:      funds,
		StableSwap: h.venue,
		Aggregator: h.agg,
		Encoder:    enc,
		Gate:       gate,
		Metrics:    h.rec,
		Logger:     logger,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) decode(t *testing.T, c contracts.Contract, data []byte) (string, []any) {
	t.Helper()
	m, args, err := h.enc.DecodeCall(c, data)
	require.NoError(t, err)
	return m.Name, args
}

package stream

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/yield-router/internal/models"
	"github.com/aman-zulfiqar/yield-router/internal/zeroex"
)

var (
	usdc = models.Asset{Symbol: "USDC", Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Decimals: 6}
	dai  = models.Asset{Symbol: "DAI", Address: common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), Decimals: 18}
	eth  = models.Asset{Symbol: "ETH", Decimals: 18}
)

type fakeQuoter struct {
	mu   sync.Mutex
	out  map[string]string // sell token -> buyAmount
	reqs []zeroex.QuoteRequest
}

func (f *fakeQuoter) Quote(_ context.Context, req zeroex.QuoteRequest) (*zeroex.QuoteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	out, ok := f.out[req.SellToken]
	if !ok {
		return nil, &zeroex.HTTPError{StatusCode: 400}
	}
	return &zeroex.QuoteResponse{BuyAmount: out}, nil
}

type memPrices struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	err    error
}

func (m *memPrices) SetPrice(_ context.Context, symbol string, usd decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.prices == nil {
		m.prices = map[string]decimal.Decimal{}
	}
	m.prices[symbol] = usd
	return nil
}

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newPoller(t *testing.T, q Quoter, w PriceWriter) *RatePoller {
	p, err := NewRatePoller(RatePollerConfig{
		Quoter:       q,
		Writer:       w,
		Assets:       []models.Asset{eth, usdc, dai},
		PollInterval: time.Hour,
		Delay:        time.Millisecond,
		Logger:       quiet(),
	})
	require.NoError(t, err)
	return p
}

func TestRatePoller_Poll(t *testing.T) {
	q := &fakeQuoter{out: map[string]string{
		"ETH":             "3456780000",
		dai.Address.Hex(): "999800",
	}}
	w := &memPrices{}
	p := newPoller(t, q, w)

	assert.Equal(t, 3, p.poll(context.Background()))
	assert.Equal(t, "1", w.prices["USDC"].String())
	assert.Equal(t, "3456.78", w.prices["ETH"].String())
	assert.Equal(t, "0.9998", w.prices["DAI"].String())
	assert.False(t, p.LastPoll().IsZero())

	require.Len(t, q.reqs, 2)
	assert.Equal(t, "1000000000000000000", q.reqs[0].SellAmount)
	assert.Equal(t, usdc.Address.Hex(), q.reqs[0].BuyToken)
}

func TestRatePoller_SkipsFailures(t *testing.T) {
	q := &fakeQuoter{out: map[string]string{"ETH": "0"}}
	w := &memPrices{prices: map[string]decimal.Decimal{"DAI": decimal.RequireFromString("1.001")}}
	p := newPoller(t, q, w)

	// ETH quote is unusable and DAI errors; only the reference is written
	assert.Equal(t, 1, p.poll(context.Background()))
	assert.Equal(t, "1.001", w.prices["DAI"].String())
	_, ok := w.prices["ETH"]
	assert.False(t, ok)
}

func TestRatePoller_WriterFailure(t *testing.T) {
	q := &fakeQuoter{out: map[string]string{"ETH": "3000000000", dai.Address.Hex(): "1000000"}}
	p := newPoller(t, q, &memPrices{err: errors.New("redis down")})

	assert.Equal(t, 0, p.poll(context.Background()))
}

func TestRatePoller_StartStops(t *testing.T) {
	q := &fakeQuoter{out: map[string]string{"ETH": "3000000000", dai.Address.Hex(): "1000000"}}
	w := &memPrices{}
	p := newPoller(t, q, w)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Start(ctx) }()

	require.Eventually(t, func() bool { return !p.LastPoll().IsZero() }, time.Second, 5*time.Millisecond)
	assert.Error(t, p.Start(ctx), "second start must fail while running")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestNewRatePoller_Validation(t *testing.T) {
	_, err := NewRatePoller(RatePollerConfig{Writer: &memPrices{}, PollInterval: time.Second})
	assert.Error(t, err)

	_, err = NewRatePoller(RatePollerConfig{Quoter: &fakeQuoter{}, Writer: &memPrices{}})
	assert.Error(t, err)

	_, err = NewRatePoller(RatePollerConfig{Quoter: &fakeQuoter{}, Writer: &memPrices{}, PollInterval: time.Second, Assets: []models.Asset{dai}})
	assert.Error(t, err, "no USDC to price against")
}

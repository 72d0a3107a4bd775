package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/yield-router/internal/zeroex"
)

func TestNewRatePoller_FeedsPriceCache(t *testing.T) {
	f := newFixture(t)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("sellToken") == "ETH" {
			_, _ = w.Write([]byte(`{"buyAmount":"2500000000"}`))
			return
		}
		_, _ = w.Write([]byte(`{"buyAmount":"1000000"}`))
	}))
	defer api.Close()

	e, err := New(Deps{
		Chain:   f.chain,
		Planner: f.engine.planner,
		Funds:   f.engine.funds,
		ZeroEx:  zeroex.NewClient(api.URL, ""),
		Cache:   f.cache,
		Logger:  f.engine.logger,
	})
	require.NoError(t, err)

	poller, err := e.NewRatePoller(time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = poller.Start(ctx) }()

	require.Eventually(t, func() bool { return !poller.LastPoll().IsZero() }, 10*time.Second, 10*time.Millisecond)

	eth, err := e.Price(ctx, "ETH")
	require.NoError(t, err)
	assert.True(t, eth.Equal(decimal.NewFromInt(2500)))

	usdc, err := e.Price(ctx, "USDC")
	require.NoError(t, err)
	assert.True(t, usdc.Equal(decimal.NewFromInt(1)))
}

func TestNewRatePoller_NeedsCacheAndZeroEx(t *testing.T) {
	f := newFixture(t)

	// fixture engine has a cache but no 0x client
	_, err := f.engine.NewRatePoller(time.Minute)
	assert.Error(t, err)

	e, err := New(Deps{Chain: f.chain, Planner: f.engine.planner, Funds: f.engine.funds, ZeroEx: zeroex.NewClient("", "")})
	require.NoError(t, err)
	_, err = e.NewRatePoller(time.Minute)
	assert.ErrorIs(t, err, ErrNoCache)
}

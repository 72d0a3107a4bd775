package engine

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/yield-router/internal/cache"
	"github.com/aman-zulfiqar/yield-router/internal/chain"
	"github.com/aman-zulfiqar/yield-router/internal/contracts"
	"github.com/aman-zulfiqar/yield-router/internal/contracts/contractstest"
	"github.com/aman-zulfiqar/yield-router/internal/models"
	"github.com/aman-zulfiqar/yield-router/internal/mstable"
	"github.com/aman-zulfiqar/yield-router/internal/observability"
	"github.com/aman-zulfiqar/yield-router/internal/planner"
	"github.com/aman-zulfiqar/yield-router/internal/rari"
	"github.com/aman-zulfiqar/yield-router/internal/zeroex"
)

const senderHex = "0x00000000000000000000000000000000000000aA"

// memCache is an in-memory storage.PlanCache
type memCache struct {
	mu        sync.Mutex
	recent    []*models.PlanEvent
	published []*models.PlanEvent
	prices    map[string]decimal.Decimal
	err       error
}

func (m *memCache) AddRecentPlan(_ context.Context, ev *models.PlanEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.recent = append([]*models.PlanEvent{ev}, m.recent...)
	return nil
}

func (m *memCache) GetRecentPlans(_ context.Context, limit int64) ([]*models.PlanEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int64(len(m.recent)) < limit {
		limit = int64(len(m.recent))
	}
	return m.recent[:limit], m.err
}

func (m *memCache) UpdatePrice(_ context.Context, symbol string, usd decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prices == nil {
		m.prices = map[string]decimal.Decimal{}
	}
	m.prices[symbol] = usd
	return m.err
}

func (m *memCache) GetPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prices[symbol]
	if !ok {
		return decimal.Zero, cache.ErrPriceNotFound
	}
	return p, nil
}

func (m *memCache) GetRates(_ context.Context, symbols []string) (models.Rates, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := models.Rates{}
	for _, s := range symbols {
		if p, ok := m.prices[s]; ok {
			out[s] = p
		}
	}
	return out, nil
}

func (m *memCache) PublishPlan(_ context.Context, ev *models.PlanEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, ev)
	return nil
}

func (m *memCache) SubscribePlans(context.Context) (<-chan *models.PlanEvent, error) {
	return make(chan *models.PlanEvent), nil
}

func (m *memCache) Ping(context.Context) error { return m.err }
func (m *memCache) Close() error               { return nil }

// memStore is an in-memory storage.PlanStore
type memStore struct {
	mu     sync.Mutex
	events []*models.PlanEvent
}

func (m *memStore) InsertPlan(_ context.Context, ev *models.PlanEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memStore) OutcomeCounts(_ context.Context, since time.Time) (map[string]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]uint64{}
	for _, ev := range m.events {
		if !ev.Timestamp.Before(since) {
			out[ev.Outcome]++
		}
	}
	return out, nil
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

type fixture struct {
	engine  *Engine
	backend *contractstest.Backend
	chain   *chain.Context
	cache   *memCache
	store   *memStore
	metrics *observability.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cc := chain.Mainnet()
	backend := contractstest.NewBackend(t)
	caller, err := contracts.NewCaller(backend, backend.Encoder())
	require.NoError(t, err)

	funds, err := rari.NewClient(rari.ClientConfig{Caller: caller, Chain: cc, Logger: logger})
	require.NoError(t, err)
	venue, err := mstable.NewClient(mstable.ClientConfig{Caller: caller, Chain: cc, Logger: logger})
	require.NoError(t, err)
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())

	p, err := planner.New(planner.Config{
		Chain:      cc,
		Funds:      funds,
		StableSwap: venue,
		Aggregator: zeroex.NewClient("http://127.0.0.1:1", ""),
		Encoder:    backend.Encoder(),
		Metrics:    metrics,
		Logger:     logger,
	})
	require.NoError(t, err)

	f := &fixture{backend: backend, chain: cc, cache: &memCache{}, store: &memStore{}, metrics: metrics}
	f.engine, err = New(Deps{
		Chain:   cc,
		Planner: p,
		Funds:   funds,
		Cache:   f.cache,
		Store:   f.store,
		Metrics: metrics,
		Logger:  logger,
	})
	require.NoError(t, err)
	return f
}

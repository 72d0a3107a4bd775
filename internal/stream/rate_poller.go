package stream

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/yield-router/internal/constants"
	"github.com/aman-zulfiqar/yield-router/internal/models"
	"github.com/aman-zulfiqar/yield-router/internal/zeroex"
)

// Quoter prices one whole unit of a token against the reference stable
type Quoter interface {
	Quote(ctx context.Context, req zeroex.QuoteRequest) (*zeroex.QuoteResponse, error)
}

// PriceWriter stores a USD rate
type PriceWriter interface {
	SetPrice(ctx context.Context, symbol string, usd decimal.Decimal) error
}

// RatePoller keeps the USD rate table fresh by pricing every asset against
// a reference stable on the 0x API. The reference itself is written as 1.
type RatePoller struct {
	quoter       Quoter
	writer       PriceWriter
	assets       []models.Asset
	reference    models.Asset
	pollInterval time.Duration
	delay        time.Duration
	logger       *logrus.Logger

	mu       sync.RWMutex
	running  bool
	lastPoll time.Time
}

// RatePollerConfig holds configuration for the rate poller
type RatePollerConfig struct {
	Quoter       Quoter
	Writer       PriceWriter
	Assets       []models.Asset
	Reference    models.Asset // USDC when zero
	PollInterval time.Duration
	Delay        time.Duration // pause between quotes; 0 uses the default
	Logger       *logrus.Logger
}

// NewRatePoller creates a new rate poller
func NewRatePoller(cfg RatePollerConfig) (*RatePoller, error) {
	if cfg.Quoter == nil || cfg.Writer == nil {
		return nil, fmt.Errorf("quoter and writer are required")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Reference.Symbol == "" {
		for _, a := range cfg.Assets {
			if a.Symbol == constants.SymbolUSDC {
				cfg.Reference = a
			}
		}
		if cfg.Reference.Symbol == "" {
			return nil, fmt.Errorf("no %s asset to price against", constants.SymbolUSDC)
		}
	}
	if cfg.Delay <= 0 {
		cfg.Delay = constants.DelayBetweenRateQuotes
	}

	return &RatePoller{
		quoter:       cfg.Quoter,
		writer:       cfg.Writer,
		assets:       cfg.Assets,
		reference:    cfg.Reference,
		pollInterval: cfg.PollInterval,
		delay:        cfg.Delay,
		logger:       cfg.Logger,
	}, nil
}

// Start refreshes rates immediately and then on every tick until ctx ends
func (r *RatePoller) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("poller already running")
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	r.logger.WithFields(logrus.Fields{
		"interval":  r.pollInterval,
		"assets":    len(r.assets),
		"reference": r.reference.Symbol,
	}).Info("starting rate polling")

	r.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.poll(ctx)
		}
	}
}

// LastPoll is when the last refresh finished; zero before the first one
func (r *RatePoller) LastPoll() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastPoll
}

// poll prices every asset once and returns how many rates were written.
// A failing asset is logged and skipped; its previous rate stays in place.
func (r *RatePoller) poll(ctx context.Context) int {
	written := 0
	if err := r.writer.SetPrice(ctx, r.reference.Symbol, decimal.NewFromInt(1)); err != nil {
		r.logger.WithError(err).WithField("token", r.reference.Symbol).Warn("failed to store reference rate")
	} else {
		written++
	}

	quoted := 0
	for _, a := range r.assets {
		if a.Symbol == r.reference.Symbol {
			continue
		}

		// Add delay between requests to avoid rate limiting
		if quoted > 0 {
			select {
			case <-ctx.Done():
				return written
			case <-time.After(r.delay):
			}
		}
		quoted++

		usd, err := r.price(ctx, a)
		if err != nil {
			r.logger.WithError(err).WithField("token", a.Symbol).Warn("failed to price token")
			continue
		}
		if err := r.writer.SetPrice(ctx, a.Symbol, usd); err != nil {
			r.logger.WithError(err).WithField("token", a.Symbol).Warn("failed to store rate")
			continue
		}
		written++
		r.logger.WithFields(logrus.Fields{"token": a.Symbol, "usd": usd.String()}).Debug("rate updated")
	}

	r.mu.Lock()
	r.lastPoll = time.Now()
	r.mu.Unlock()
	return written
}

// price sells one whole unit of a for the reference stable
func (r *RatePoller) price(ctx context.Context, a models.Asset) (decimal.Decimal, error) {
	q, err := r.quoter.Quote(ctx, zeroex.QuoteRequest{
		SellToken:  tokenParam(a),
		BuyToken:   tokenParam(r.reference),
		SellAmount: models.Pow10(a.Decimals).String(),
	})
	if err != nil {
		return decimal.Zero, err
	}

	out, ok := new(big.Int).SetString(q.BuyAmount, 10)
	if !ok || out.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("bad buyAmount %q", q.BuyAmount)
	}
	return decimal.NewFromBigInt(out, -int32(r.reference.Decimals)), nil
}

// tokenParam is the 0x token identifier: the symbol for native ETH, the
// contract address otherwise
func tokenParam(a models.Asset) string {
	if a.Symbol == constants.SymbolETH {
		return a.Symbol
	}
	return a.Address.Hex()
}

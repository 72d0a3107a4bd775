package planner

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/yield-router/internal/chain"
	"github.com/aman-zulfiqar/yield-router/internal/constants"
	"github.com/aman-zulfiqar/yield-router/internal/contracts"
	"github.com/aman-zulfiqar/yield-router/internal/models"
)

// Config wires a Planner to its collaborators. Gate, Metrics, Logger and
// Solver are optional.
type Config struct {
	Chain      *chain.Context
	Funds      FundReader
	StableSwap StableSwapVenue
	Aggregator LiquidityAggregator
	Encoder    CallEncoder
	Gate       VenueGate
	Metrics    Recorder
	Solver     Solver
	Logger     *logrus.Logger
}

// Planner computes deposit and withdrawal plans. It holds no per-request
// state and is safe for concurrent use.
type Planner struct {
	chain      *chain.Context
	funds      FundReader
	stableSwap StableSwapVenue
	aggregator LiquidityAggregator
	encoder    CallEncoder
	gate       VenueGate
	metrics    Recorder
	solver     Solver
	logger     *logrus.Logger
}

func New(cfg Config) (*Planner, error) {
	if cfg.Chain == nil {
		return nil, fmt.Errorf("chain context is required")
	}
	if cfg.Funds == nil || cfg.StableSwap == nil || cfg.Aggregator == nil || cfg.Encoder == nil {
		return nil, fmt.Errorf("funds, stable swap, aggregator and encoder are required")
	}

	p := &Planner{
		chain:      cfg.Chain,
		funds:      cfg.Funds,
		stableSwap: cfg.StableSwap,
		aggregator: cfg.Aggregator,
		encoder:    cfg.Encoder,
		gate:       cfg.Gate,
		metrics:    cfg.Metrics,
		solver:     cfg.Solver,
		logger:     cfg.Logger,
	}
	if p.gate == nil {
		p.gate = allVenues{}
	}
	if p.metrics == nil {
		p.metrics = noopRecorder{}
	}
	if p.solver.MaxSteps <= 0 || p.solver.Step == nil {
		p.solver = DefaultSolver()
	}
	if p.logger == nil {
		p.logger = logrus.StandardLogger()
	}
	return p, nil
}

// Chain returns the chain context the planner was built with
func (p *Planner) Chain() *chain.Context { return p.chain }

func (p *Planner) newPlan(pool models.Pool, dir Direction, token models.Asset, amount *big.Int, sender common.Address) *Plan {
	return &Plan{
		ID:          uuid.NewString(),
		Pool:        pool,
		Direction:   dir,
		Token:       token,
		Amount:      new(big.Int).Set(amount),
		Sender:      sender,
		ExchangeFee: new(big.Int),
		Slippage:    decimal.Zero,
	}
}

func (p *Planner) fail(op string, pool models.Pool, token string, err error) error {
	var pe *PlanError
	if errors.As(err, &pe) {
		return err
	}
	p.logger.WithFields(logrus.Fields{
		"op":    op,
		"pool":  pool,
		"token": token,
		"kind":  Kind(err),
	}).WithError(err).Warn("Planning failed")
	return &PlanError{Op: op, Pool: pool, Token: token, Err: err}
}

func (p *Planner) venueEnabled(ctx context.Context, venue string) bool {
	if p.gate.VenueEnabled(ctx, venue) {
		return true
	}
	p.logger.WithField("venue", venue).Debug("Venue disabled, skipping")
	return false
}

func (p *Planner) encode(contract contracts.Contract, method string, args ...any) ([]byte, error) {
	data, err := p.encoder.EncodeCall(contract, method, args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s.%s: %w", contract, method, err)
	}
	return data, nil
}

// orderBookToken maps the native currency to its wrapped token; order books
// only trade ERC20s
func (p *Planner) orderBookToken(asset models.Asset) (common.Address, error) {
	if !p.chain.IsNative(asset.Symbol) {
		return asset.Address, nil
	}
	w, err := p.chain.WrappedNative()
	if err != nil {
		return common.Address{}, err
	}
	return w.Address, nil
}

func validateAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	return nil
}

func (p *Planner) validateToken(token models.Asset) error {
	if token.Symbol == "" {
		return fmt.Errorf("%w: token symbol is required", ErrInvalidRequest)
	}
	if !p.chain.IsNative(token.Symbol) && token.Address == (common.Address{}) {
		return fmt.Errorf("%w: %s has no contract address", ErrUnknownAsset, token.Symbol)
	}
	return nil
}

func (p *Planner) poolContracts(pool models.Pool) (chain.PoolContracts, error) {
	pc, err := p.chain.PoolContracts(pool)
	if err != nil {
		return chain.PoolContracts{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return pc, nil
}

func (p *Planner) nativeSymbol() string { return constants.SymbolETH }

func zeroIfNil(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

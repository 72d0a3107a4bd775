package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/yield-router/internal/cache"
	"github.com/aman-zulfiqar/yield-router/internal/chain"
	"github.com/aman-zulfiqar/yield-router/internal/config"
	"github.com/aman-zulfiqar/yield-router/internal/constants"
	"github.com/aman-zulfiqar/yield-router/internal/contracts"
	"github.com/aman-zulfiqar/yield-router/internal/flags"
	"github.com/aman-zulfiqar/yield-router/internal/mstable"
	"github.com/aman-zulfiqar/yield-router/internal/observability"
	"github.com/aman-zulfiqar/yield-router/internal/planner"
	"github.com/aman-zulfiqar/yield-router/internal/rari"
	"github.com/aman-zulfiqar/yield-router/internal/rpc"
	"github.com/aman-zulfiqar/yield-router/internal/storage"
	"github.com/aman-zulfiqar/yield-router/internal/zeroex"
)

var (
	// ErrNoCache is returned by operations that need Redis when it is not configured
	ErrNoCache = errors.New("plan cache not configured")
	// ErrNoStore is returned by operations that need ClickHouse when it is not configured
	ErrNoStore = errors.New("plan store not configured")
)

// Engine is the main orchestrator for planning requests
type Engine struct {
	chain       *chain.Context
	planner     *planner.Planner
	funds       FundState
	zeroex      *zeroex.Client
	cache       storage.PlanCache
	store       storage.PlanStore
	flags       *flags.Store
	gate        *flags.Gate
	metrics     *observability.Metrics
	logger      *logrus.Logger
	planTimeout time.Duration
	now         func() time.Time
}

// EngineConfig holds configuration for the planning engine
type EngineConfig struct {
	// RPC settings
	RPCURL          string
	RPCFallbackURLs []string
	RPCTimeout      time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration

	// Chain context file; empty uses mainnet
	ChainConfigPath string

	// 0x swap API
	ZeroExBaseURL string
	ZeroExAPIKey  string

	// Storage; empty addresses disable the component
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	ClickHouseAddr     string
	ClickHouseDB       string
	ClickHouseUsername string
	ClickHousePassword string

	// Planning
	PlanTimeout time.Duration
	Solver      planner.Solver
	FlagTTL     time.Duration

	// Metrics registry; nil creates a private one
	Registry *prometheus.Registry
	Logger   *logrus.Logger
}

// DefaultEngineConfig returns sensible defaults
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		RPCURL:       "https://cloudflare-eth.com",
		RPCTimeout:   15 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 1 * time.Second,
		PlanTimeout:  constants.DefaultPlanTimeout,
		Solver:       planner.DefaultSolver(),
		FlagTTL:      5 * time.Second,
	}
}

// Deps are the already built collaborators of an Engine. Cache, Store,
// Flags, Gate and ZeroEx are optional.
type Deps struct {
	Chain       *chain.Context
	Planner     *planner.Planner
	Funds       FundState
	ZeroEx      *zeroex.Client
	Cache       storage.PlanCache
	Store       storage.PlanStore
	Flags       *flags.Store
	Gate        *flags.Gate
	Metrics     *observability.Metrics
	Logger      *logrus.Logger
	PlanTimeout time.Duration
}

// New assembles an Engine from built collaborators
func New(d Deps) (*Engine, error) {
	if d.Chain == nil || d.Planner == nil || d.Funds == nil {
		return nil, fmt.Errorf("chain, planner and funds are required")
	}
	if d.Metrics == nil {
		d.Metrics = observability.NewMetrics("", nil)
	}
	if d.Logger == nil {
		d.Logger = logrus.New()
	}
	if d.PlanTimeout <= 0 {
		d.PlanTimeout = constants.DefaultPlanTimeout
	}
	return &Engine{
		chain:       d.Chain,
		planner:     d.Planner,
		funds:       d.Funds,
		zeroex:      d.ZeroEx,
		cache:       d.Cache,
		store:       d.Store,
		flags:       d.Flags,
		gate:        d.Gate,
		metrics:     d.Metrics,
		logger:      d.Logger,
		planTimeout: d.PlanTimeout,
		now:         time.Now,
	}, nil
}

// NewEngine creates a new planning engine with all dependencies
func NewEngine(cfg EngineConfig) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}

	// 1. Load chain context
	cc, err := chain.Load(cfg.ChainConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load chain context: %w", err)
	}

	// 2. Metrics
	metrics := observability.NewMetrics("", cfg.Registry)

	// 3. Initialize RPC client
	rpcClient, err := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCURL,
		FallbackURLs: cfg.RPCFallbackURLs,
		Timeout:      cfg.RPCTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
		Observe:      metrics.ObserveRPC,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}

	// 4. Contract encoder and caller
	enc, err := contracts.NewEncoder()
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABIs: %w", err)
	}
	caller, err := contracts.NewCaller(rpcClient, enc)
	if err != nil {
		return nil, fmt.Errorf("failed to create contract caller: %w", err)
	}

	// 5. Fund and stable-swap readers
	funds, err := rari.NewClient(rari.ClientConfig{Caller: caller, Chain: cc, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to create fund client: %w", err)
	}
	venue, err := mstable.NewClient(mstable.ClientConfig{Caller: caller, Chain: cc, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to create mStable client: %w", err)
	}

	// 6. Order-book aggregator
	zx := zeroex.NewClient(cfg.ZeroExBaseURL, cfg.ZeroExAPIKey)

	d := Deps{
		Chain:       cc,
		Funds:       funds,
		ZeroEx:      zx,
		Metrics:     metrics,
		Logger:      logger,
		PlanTimeout: cfg.PlanTimeout,
	}

	// 7. Initialize Redis cache and venue flags
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(context.Background(), cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		store, err := flags.NewStore(rc.Client())
		if err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("failed to create flags store: %w", err)
		}
		d.Cache = rc
		d.Flags = store
		d.Gate = flags.NewGate(store, cfg.FlagTTL, logger)
	}

	// 8. Initialize ClickHouse
	if cfg.ClickHouseAddr != "" && cfg.ClickHouseDB != "" {
		ch, err := cache.NewClickHouseStore(context.Background(), cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDB,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		}, logger)
		if err != nil {
			closeQuietly(d.Cache)
			return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		if err := ch.EnsureSchema(context.Background()); err != nil {
			closeQuietly(d.Cache)
			_ = ch.Close()
			return nil, err
		}
		d.Store = ch
	}

	// 9. Create planner
	pcfg := planner.Config{
		Chain:      cc,
		Funds:      funds,
		StableSwap: venue,
		Aggregator: zx,
		Encoder:    enc,
		Metrics:    metrics,
		Solver:     cfg.Solver,
		Logger:     logger,
	}
	if d.Gate != nil {
		pcfg.Gate = d.Gate
	}
	d.Planner, err = planner.New(pcfg)
	if err != nil {
		closeQuietly(d.Cache)
		closeQuietly(d.Store)
		return nil, fmt.Errorf("failed to create planner: %w", err)
	}

	return New(d)
}

// NewEngineFromEnv creates an engine using environment variables
func NewEngineFromEnv(logger *logrus.Logger) (*Engine, error) {
	c := config.Load()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return NewEngine(FromConfig(c, logger))
}

// FromConfig maps process configuration onto an EngineConfig
func FromConfig(c *config.Config, logger *logrus.Logger) EngineConfig {
	cfg := DefaultEngineConfig()
	cfg.RPCURL = c.RPCUrl
	cfg.RPCFallbackURLs = c.RPCFallbackURLs
	cfg.RPCTimeout = c.RPCTimeout
	cfg.MaxRetries = c.MaxRetries
	cfg.RetryBackoff = c.RetryBackoff
	cfg.ChainConfigPath = c.ChainConfigPath
	cfg.ZeroExBaseURL = c.ZeroExBaseURL
	cfg.ZeroExAPIKey = c.ZeroExAPIKey
	cfg.RedisAddr = c.RedisAddr
	cfg.RedisPassword = c.RedisPassword
	cfg.RedisDB = c.RedisDB
	cfg.ClickHouseAddr = c.ClickHouseAddr
	cfg.ClickHouseDB = c.ClickHouseDatabase
	cfg.ClickHouseUsername = c.ClickHouseUsername
	cfg.ClickHousePassword = c.ClickHousePassword
	cfg.PlanTimeout = c.PlanTimeout
	cfg.Solver = planner.Solver{MaxSteps: c.SolverMaxSteps, Step: big.NewInt(c.SolverStep)}
	cfg.FlagTTL = c.FlagTTL
	cfg.Logger = logger
	return cfg
}

// Chain returns the chain context
func (e *Engine) Chain() *chain.Context { return e.chain }

// Metrics returns the engine's metrics
func (e *Engine) Metrics() *observability.Metrics { return e.metrics }

// Flags returns the flag store, nil without Redis
func (e *Engine) Flags() *flags.Store { return e.flags }

// Gate returns the venue gate, nil without Redis
func (e *Engine) Gate() *flags.Gate { return e.gate }

// ZeroEx returns the 0x client, nil when not configured
func (e *Engine) ZeroEx() *zeroex.Client { return e.zeroex }

// Ping checks the configured stores
func (e *Engine) Ping(ctx context.Context) error {
	if e.cache != nil {
		if err := e.cache.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if e.store != nil {
		if err := e.store.Ping(ctx); err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
	}
	return nil
}

// Close cleans up all resources
func (e *Engine) Close() error {
	var errs []error

	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}

	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("clickhouse close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}

	return nil
}

func closeQuietly(c interface{ Close() error }) {
	if c != nil {
		_ = c.Close()
	}
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/yield-router/internal/constants"
	"github.com/aman-zulfiqar/yield-router/internal/models"
)

var ErrPriceNotFound = errors.New("price not found")

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// RedisCache holds recent plan events and the USD rate table, and fans
// plan events out over Pub/Sub
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

// NewRedisCache dials Redis and checks the connection
func NewRedisCache(ctx context.Context, cfg RedisConfig, logger *logrus.Logger) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisCacheFromClient(client, logger), nil
}

func NewRedisCacheFromClient(client *redis.Client, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisCache{client: client, logger: logger}
}

// Client exposes the underlying connection for stores sharing it
func (r *RedisCache) Client() *redis.Client { return r.client }

// AddRecentPlan pushes ev onto the capped recent list
func (r *RedisCache) AddRecentPlan(ctx context.Context, ev *models.PlanEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal plan event: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentPlans, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentPlans, 0, constants.MaxRecentPlans-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add recent plan: %w", err)
	}
	return nil
}

// GetRecentPlans returns up to limit events, newest first
func (r *RedisCache) GetRecentPlans(ctx context.Context, limit int64) ([]*models.PlanEvent, error) {
	if limit <= 0 || limit > constants.MaxRecentPlans {
		limit = constants.MaxRecentPlans
	}

	vals, err := r.client.LRange(ctx, constants.RedisKeyRecentPlans, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get recent plans: %w", err)
	}

	out := make([]*models.PlanEvent, 0, len(vals))
	for _, v := range vals {
		var ev models.PlanEvent
		if err := json.Unmarshal([]byte(v), &ev); err != nil {
			r.logger.WithError(err).Warn("Skipping malformed plan event")
			continue
		}
		out = append(out, &ev)
	}
	return out, nil
}

// UpdatePrice stores the USD rate of symbol
func (r *RedisCache) UpdatePrice(ctx context.Context, symbol string, usd decimal.Decimal) error {
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if err := r.client.Set(ctx, priceKey(symbol), usd.String(), 0).Err(); err != nil {
		return fmt.Errorf("update price %s: %w", symbol, err)
	}
	return nil
}

func (r *RedisCache) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	val, err := r.client.Get(ctx, priceKey(symbol)).Result()
	if err == redis.Nil {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrPriceNotFound, symbol)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get price %s: %w", symbol, err)
	}
	d, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %s: %w", symbol, err)
	}
	return d, nil
}

// GetRates reads the USD rates of symbols in one round trip. Symbols without
// a stored or parseable rate are absent from the result.
func (r *RedisCache) GetRates(ctx context.Context, symbols []string) (models.Rates, error) {
	rates := make(models.Rates, len(symbols))
	if len(symbols) == 0 {
		return rates, nil
	}

	keys := make([]string, len(symbols))
	for i, s := range symbols {
		keys[i] = priceKey(s)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get rates: %w", err)
	}

	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			r.logger.WithField("symbol", symbols[i]).Warn("Ignoring unparseable rate")
			continue
		}
		rates[symbols[i]] = d
	}
	return rates, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func priceKey(symbol string) string {
	return constants.RedisKeyPricePrefix + strings.ToUpper(symbol)
}

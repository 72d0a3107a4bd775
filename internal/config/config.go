package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/yield-router/internal/constants"
)

type Config struct {
	// Ethereum RPC settings
	RPCUrl          string
	RPCFallbackURLs []string
	RPCTimeout      time.Duration

	// Chain context file; empty means the built-in mainnet context
	ChainConfigPath string

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// 0x swap API
	ZeroExBaseURL string
	ZeroExAPIKey  string

	// Planner settings
	PlanTimeout    time.Duration
	SolverMaxSteps int
	SolverStep     int64
	FlagTTL        time.Duration

	// USD rate refresh from 0x; 0 disables it
	RatePollInterval time.Duration

	// API server
	APIAddr       string
	APIKey        string
	DevMode       bool
	PlanRateLimit float64 // planning requests per second per client
}

func Load() *Config {
	return &Config{
		// RPC
		RPCUrl:          getEnv("ETH_RPC_URL", "https://cloudflare-eth.com"),
		RPCFallbackURLs: getListEnv("ETH_RPC_FALLBACK_URLS"),
		RPCTimeout:      getDurationEnv("RPC_TIMEOUT", 15*time.Second),
		ChainConfigPath: getEnv("CHAIN_CONFIG_PATH", ""),

		// Redis
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "yield_router"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 3),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", time.Second),

		// 0x
		ZeroExBaseURL: getEnv("ZEROEX_BASE_URL", ""),
		ZeroExAPIKey:  getEnv("ZEROEX_API_KEY", ""),

		// Planner
		PlanTimeout:    getDurationEnv("PLAN_TIMEOUT", constants.DefaultPlanTimeout),
		SolverMaxSteps: getIntEnv("SOLVER_MAX_STEPS", constants.DefaultSolverMaxSteps),
		SolverStep:     int64(getIntEnv("SOLVER_STEP", constants.DefaultSolverStep)),
		FlagTTL:        getDurationEnv("FLAG_TTL", 5*time.Second),

		RatePollInterval: getDurationEnv("RATE_POLL_INTERVAL", 0),

		// API
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		PlanRateLimit: getFloatEnv("PLAN_RATE_LIMIT", 2),
	}
}

// Validate checks the fields every binary needs
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCUrl) == "" {
		return fmt.Errorf("ETH_RPC_URL is required")
	}
	if c.PlanTimeout <= 0 {
		return fmt.Errorf("PLAN_TIMEOUT must be positive, got %s", c.PlanTimeout)
	}
	if c.SolverMaxSteps < 0 {
		return fmt.Errorf("SOLVER_MAX_STEPS must not be negative, got %d", c.SolverMaxSteps)
	}
	if c.SolverStep <= 0 {
		return fmt.Errorf("SOLVER_STEP must be positive, got %d", c.SolverStep)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must not be negative, got %d", c.MaxRetries)
	}
	if c.RatePollInterval < 0 {
		return fmt.Errorf("RATE_POLL_INTERVAL must not be negative, got %s", c.RatePollInterval)
	}
	if c.PlanRateLimit < 0 {
		return fmt.Errorf("PLAN_RATE_LIMIT must not be negative, got %v", c.PlanRateLimit)
	}
	if c.ClickHouseAddr != "" && c.ClickHouseDatabase == "" {
		return fmt.Errorf("CLICKHOUSE_DATABASE is required when CLICKHOUSE_ADDR is set")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getListEnv splits a comma separated value, dropping empty entries
func getListEnv(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

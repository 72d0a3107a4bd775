package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ETH_RPC_URL", "")
	t.Setenv("PLAN_TIMEOUT", "")
	t.Setenv("SOLVER_MAX_STEPS", "")

	cfg := Load()
	assert.NotEmpty(t, cfg.RPCUrl)
	assert.Equal(t, 20*time.Second, cfg.PlanTimeout)
	assert.Equal(t, 1000, cfg.SolverMaxSteps)
	assert.Equal(t, int64(1), cfg.SolverStep)
	assert.False(t, cfg.DevMode)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("ETH_RPC_URL", "http://node:8545")
	t.Setenv("ETH_RPC_FALLBACK_URLS", "http://a:8545, ,http://b:8545")
	t.Setenv("PLAN_TIMEOUT", "5s")
	t.Setenv("SOLVER_MAX_STEPS", "50")
	t.Setenv("SOLVER_STEP", "10")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("PLAN_RATE_LIMIT", "0.5")
	t.Setenv("RATE_POLL_INTERVAL", "1m")

	cfg := Load()
	assert.Equal(t, "http://node:8545", cfg.RPCUrl)
	assert.Equal(t, []string{"http://a:8545", "http://b:8545"}, cfg.RPCFallbackURLs)
	assert.Equal(t, 5*time.Second, cfg.PlanTimeout)
	assert.Equal(t, 50, cfg.SolverMaxSteps)
	assert.Equal(t, int64(10), cfg.SolverStep)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 0.5, cfg.PlanRateLimit)
	assert.Equal(t, time.Minute, cfg.RatePollInterval)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{RPCUrl: "http://node", PlanTimeout: time.Second, SolverMaxSteps: 1, SolverStep: 1}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing rpc", func(c *Config) { c.RPCUrl = " " }},
		{"zero timeout", func(c *Config) { c.PlanTimeout = 0 }},
		{"negative steps", func(c *Config) { c.SolverMaxSteps = -1 }},
		{"zero step", func(c *Config) { c.SolverStep = 0 }},
		{"negative rate limit", func(c *Config) { c.PlanRateLimit = -1 }},
		{"clickhouse without db", func(c *Config) { c.ClickHouseAddr = "localhost:9000" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, base().Validate())
}

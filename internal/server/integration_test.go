package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/yield-router/internal/flags"
)

const (
	integrationAddr = "127.0.0.1:8091"
	integrationURL  = "http://" + integrationAddr
)

type integrationEnv struct {
	redis *redis.Client
	gate  *flags.Gate
	fake  *fakeEngine
}

// setupIntegrationTest starts a listening server backed by a real Redis flag
// store. Planning itself is faked; only the HTTP and Redis paths are real.
func setupIntegrationTest(t *testing.T, cfg ServerConfig) *integrationEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   2, // Use different DB for integration tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for integration tests: %v", err)
	}
	_ = redisClient.FlushDB(ctx).Err()

	flagStore, err := flags.NewStore(redisClient)
	require.NoError(t, err)

	logger := quietLogger()
	env := &integrationEnv{
		redis: redisClient,
		gate:  flags.NewGate(flagStore, time.Minute, logger),
		fake:  newFakeEngine(),
	}
	env.fake.plan = samplePlan()

	cfg.Addr = integrationAddr
	cfg.APIKey = testAPIKey
	srv, err := NewServer(ServerDeps{
		Handlers: &Handlers{
			Engine:      env.fake,
			Flags:       flagStore,
			Gate:        env.gate,
			PlanTimeout: 5 * time.Second,
			Logger:      logger,
		},
		Config: cfg,
	})
	require.NoError(t, err)

	// Start server in background
	go func() {
		if err := srv.Start(); err != nil {
			t.Logf("Server error: %v", err)
		}
	}()
	waitReady(t)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(ctx)
		_ = redisClient.FlushDB(ctx).Err()
		_ = redisClient.Close()
	})
	return env
}

func waitReady(t *testing.T) {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(integrationURL + "/v1/health")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("server did not start")
}

func makeRequest(t *testing.T, method, url string, body any, expectedStatus int) *http.Response {
	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}

	req, err := http.NewRequest(method, url, &reqBody)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)

	if expectedStatus != 0 {
		assert.Equal(t, expectedStatus, resp.StatusCode, "Expected status %d, got %d", expectedStatus, resp.StatusCode)
	}
	return resp
}

func TestIntegration_FlagsDriveGate(t *testing.T) {
	env := setupIntegrationTest(t, ServerConfig{})
	ctx := context.Background()

	// No flag yet: the venue is on and the answer is cached
	assert.True(t, env.gate.VenueEnabled(ctx, "orderbook"))

	resp := makeRequest(t, http.MethodPost, integrationURL+"/v1/flags",
		FlagUpsertRequest{Key: "orderbook", Enabled: false, Reason: "0x outage"}, http.StatusOK)
	var created flags.Flag
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	assert.Equal(t, "0x outage", created.Reason)

	// The write invalidated the cached answer
	assert.False(t, env.gate.VenueEnabled(ctx, "orderbook"))

	resp = makeRequest(t, http.MethodDelete, integrationURL+"/v1/flags/orderbook", nil, http.StatusNoContent)
	resp.Body.Close()
	assert.True(t, env.gate.VenueEnabled(ctx, "orderbook"))

	resp = makeRequest(t, http.MethodGet, integrationURL+"/v1/flags/orderbook", nil, http.StatusNotFound)
	resp.Body.Close()
}

func TestIntegration_FlagsList(t *testing.T) {
	setupIntegrationTest(t, ServerConfig{})

	for _, key := range []string{"orderbook", "stableswap"} {
		resp := makeRequest(t, http.MethodPost, integrationURL+"/v1/flags", FlagUpsertRequest{Key: key, Enabled: true}, http.StatusOK)
		resp.Body.Close()
	}

	resp := makeRequest(t, http.MethodGet, integrationURL+"/v1/flags", nil, http.StatusOK)
	defer resp.Body.Close()

	var list struct {
		Items []*flags.Flag `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Items, 2)
	assert.Equal(t, "orderbook", list.Items[0].Key)
	assert.Equal(t, "stableswap", list.Items[1].Key)
}

func TestIntegration_PlanRateLimit(t *testing.T) {
	setupIntegrationTest(t, ServerConfig{PlanRateLimit: 1})

	body := PlanRequest{Pool: "stable", Sender: sender.Hex(), Token: "DAI", Amount: "1"}
	statuses := map[int]int{}
	for i := 0; i < 5; i++ {
		resp := makeRequest(t, http.MethodPost, integrationURL+"/v1/plans/deposit", body, 0)
		statuses[resp.StatusCode]++
		resp.Body.Close()
	}
	assert.Positive(t, statuses[http.StatusOK])
	assert.Positive(t, statuses[http.StatusTooManyRequests])

	// Health is not rate limited
	for i := 0; i < 5; i++ {
		resp := makeRequest(t, http.MethodGet, integrationURL+"/v1/health", nil, http.StatusOK)
		resp.Body.Close()
	}
}

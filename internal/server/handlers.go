package server

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/yield-router/internal/cache"
	"github.com/aman-zulfiqar/yield-router/internal/engine"
	"github.com/aman-zulfiqar/yield-router/internal/flags"
	"github.com/aman-zulfiqar/yield-router/internal/models"
	"github.com/aman-zulfiqar/yield-router/internal/planner"
	"github.com/aman-zulfiqar/yield-router/internal/zeroex"
)

// PlanService is the engine surface the API serves
type PlanService interface {
	PlanDeposit(ctx context.Context, p engine.PlanParams) (*planner.Plan, error)
	PlanWithdraw(ctx context.Context, p engine.PlanParams) (*planner.Plan, error)
	PlanMaxWithdraw(ctx context.Context, p engine.PlanParams) (*big.Int, error)
	PlanClaimRGT(ctx context.Context, p engine.PlanParams) (planner.Transaction, error)
	Overview(ctx context.Context, pool, account string) (*engine.Overview, error)
	RecentPlans(ctx context.Context, limit int64) ([]*models.PlanEvent, error)
	OutcomeCounts(ctx context.Context, since time.Time) (map[string]uint64, error)
	SetPrice(ctx context.Context, symbol string, usd decimal.Decimal) error
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
	Asset(symbol string) (models.Asset, bool)
	Ping(ctx context.Context) error
}

// FlagStore is the flag CRUD surface
type FlagStore interface {
	Set(ctx context.Context, key string, enabled bool, reason string) (*flags.Flag, error)
	Get(ctx context.Context, key string) (*flags.Flag, error)
	List(ctx context.Context) ([]*flags.Flag, error)
	Delete(ctx context.Context, key string) error
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Engine      PlanService    // Planning engine
	Flags       FlagStore      // Redis-backed feature flags store (optional)
	Gate        *flags.Gate    // Venue gate to invalidate on flag writes (optional)
	ZeroEx      *zeroex.Client // 0x swap API client (optional)
	Metrics     http.Handler   // Prometheus exposition (optional)
	PlanTimeout time.Duration  // Upper bound for planning handlers
	DevMode     bool           // Enable detailed error responses in development
	Logger      *logrus.Logger // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) logger() *logrus.Logger {
	if h.Logger == nil {
		return logrus.StandardLogger()
	}
	return h.Logger
}

// Health reports liveness; ?deep=true also pings the stores
func (h *Handlers) Health(c echo.Context) error {
	if c.QueryParam("deep") != "true" {
		return c.JSON(http.StatusOK, HealthResponse{OK: true})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Engine.Ping(ctx); err != nil {
		return h.err(c, http.StatusServiceUnavailable, "unhealthy", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// RecentPlans returns the most recent plan events with optional limit parameter
// Accepts limit query parameter (default: 50, range: 1-100)
func (h *Handlers) RecentPlans(c echo.Context) error {
	limitStr := c.QueryParam("limit")
	limit := 50
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 100 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 100"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Engine.RecentPlans(ctx, int64(limit))
	if err != nil {
		if errors.Is(err, engine.ErrNoCache) {
			return h.err(c, http.StatusNotImplemented, "plan history is not configured", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get plans", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// Outcomes tallies plan outcomes over a trailing window (?window=24h)
func (h *Handlers) Outcomes(c echo.Context) error {
	window := 24 * time.Hour
	if v := strings.TrimSpace(c.QueryParam("window")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return h.err(c, http.StatusBadRequest, "invalid window", map[string]any{"window": "positive duration, e.g. 1h"})
		}
		window = d
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	counts, err := h.Engine.OutcomeCounts(ctx, time.Now().Add(-window))
	if err != nil {
		if errors.Is(err, engine.ErrNoStore) {
			return h.err(c, http.StatusNotImplemented, "plan analytics are not configured", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to count outcomes", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"window": window.String(), "outcomes": counts})
}

// Price returns the stored USD rate for a token symbol
func (h *Handlers) Price(c echo.Context) error {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		return h.err(c, http.StatusBadRequest, "invalid token", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	price, err := h.Engine.Price(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, planner.ErrUnknownAsset):
			return h.err(c, http.StatusBadRequest, "unknown token", nil)
		case errors.Is(err, cache.ErrPriceNotFound):
			return h.err(c, http.StatusNotFound, "price not found", nil)
		case errors.Is(err, engine.ErrNoCache):
			return h.err(c, http.StatusNotImplemented, "price cache is not configured", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get price", nil)
	}
	a, _ := h.Engine.Asset(token)
	return c.JSON(http.StatusOK, PriceResponse{Token: a.Symbol, USD: price.String()})
}

// PriceUpdate stores the USD rate for a token symbol
func (h *Handlers) PriceUpdate(c echo.Context) error {
	token := strings.TrimSpace(c.Param("token"))
	var req PriceUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	usd, err := decimal.NewFromString(strings.TrimSpace(req.USD))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid usd", map[string]any{"usd": "must be a decimal string"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Engine.SetPrice(ctx, token, usd); err != nil {
		switch {
		case errors.Is(err, planner.ErrUnknownAsset):
			return h.err(c, http.StatusBadRequest, "unknown token", nil)
		case errors.Is(err, planner.ErrInvalidRequest):
			return h.err(c, http.StatusBadRequest, "invalid usd", map[string]any{"usd": "must be positive"})
		case errors.Is(err, engine.ErrNoCache):
			return h.err(c, http.StatusNotImplemented, "price cache is not configured", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to set price", nil)
	}
	a, _ := h.Engine.Asset(token)
	return c.JSON(http.StatusOK, PriceResponse{Token: a.Symbol, USD: usd.String()})
}

// FlagsUpsert creates or updates a feature flag with the given key and value
// Validates key format and returns the created/updated flag
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	return h.setFlag(c, req.Key, req.Enabled, req.Reason)
}

// FlagsUpdate updates an existing feature flag with the given key
// Validates key format and returns the updated flag
func (h *Handlers) FlagsUpdate(c echo.Context) error {
	key := c.Param("key")
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	return h.setFlag(c, key, req.Enabled, req.Reason)
}

func (h *Handlers) setFlag(c echo.Context, key string, enabled bool, reason string) error {
	if h.Flags == nil {
		return h.err(c, http.StatusNotImplemented, "flags are not configured", nil)
	}
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Set(ctx, key, enabled, reason)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to set flag", map[string]any{"err": err.Error()})
	}
	h.Gate.Invalidate(key)
	h.logger().WithFields(logrus.Fields{"key": key, "enabled": enabled}).Info("Flag updated")
	return c.JSON(http.StatusOK, out)
}

// FlagsGet retrieves a feature flag by its key
// Returns 404 if flag doesn't exist
func (h *Handlers) FlagsGet(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusNotImplemented, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "flag not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsList returns all feature flags in the system
func (h *Handlers) FlagsList(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusNotImplemented, "flags are not configured", nil)
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsDelete removes a feature flag by its key
// Returns 204 No Content on successful deletion
func (h *Handlers) FlagsDelete(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusNotImplemented, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	h.Gate.Invalidate(key)
	return c.NoContent(http.StatusNoContent)
}

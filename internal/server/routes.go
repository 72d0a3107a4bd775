package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	// Set custom error handler for consistent JSON responses
	e.HTTPErrorHandler = JSONErrorHandler(h.logger())

	// Prometheus scrapes outside the auth and JSON middleware
	if h.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.Metrics))
	}

	// API v1 routes
	v1 := e.Group("/v1")
	v1.Use(SetJSONContentType) // Ensure all responses are JSON
	v1.Use(SetNoCacheHeaders)  // Prevent caching of API responses

	// Optional API key authentication
	if cfg.APIKey != "" {
		v1.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key", // Look for API key in X-API-Key header
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/v1/health"
			},
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil // Simple string comparison
			},
			// Missing and wrong keys both answer 401
			ErrorHandler: func(err error, c echo.Context) error {
				return echo.NewHTTPError(http.StatusUnauthorized).SetInternal(err)
			},
		}))
	}

	v1.GET("/health", h.Health) // Health check endpoint

	// Planning endpoints hit the chain and 0x; rate limited per client
	rps := cfg.PlanRateLimit
	if rps <= 0 {
		rps = 2
	}
	plans := v1.Group("/plans")
	plans.GET("/recent", h.RecentPlans) // Recent plan events
	plans.GET("/outcomes", h.Outcomes)  // Outcome counts from ClickHouse
	limited := plans.Group("", middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(rps),
		Burst:     int(rps * 2),
		ExpiresIn: 2 * time.Minute, // Rate limit window
	})))
	limited.POST("/deposit", h.PlanDeposit)     // Deposit plan
	limited.POST("/withdraw", h.PlanWithdraw)   // Withdrawal plan
	limited.GET("/max-withdraw", h.MaxWithdraw) // Max withdrawable amount
	limited.POST("/claim-rgt", h.ClaimRGT)      // RGT claim transaction

	v1.GET("/pools/:pool/overview", h.Overview) // Pool and account balances
	v1.GET("/quote", h.Quote)                   // 0x quote passthrough

	// USD rates used for deposit fee conversion
	v1.GET("/prices/:token", h.Price)
	v1.PUT("/prices/:token", h.PriceUpdate)

	// Feature flags CRUD endpoints
	flagGroup := v1.Group("/flags")
	flagGroup.GET("", h.FlagsList)           // List all flags
	flagGroup.POST("", h.FlagsUpsert)        // Create new flag
	flagGroup.GET("/:key", h.FlagsGet)       // Get specific flag
	flagGroup.PUT("/:key", h.FlagsUpdate)    // Update existing flag
	flagGroup.DELETE("/:key", h.FlagsDelete) // Delete flag

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}

package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/yield-router/internal/config"
	"github.com/aman-zulfiqar/yield-router/internal/engine"
	"github.com/aman-zulfiqar/yield-router/internal/server"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main is the entry point for the API server
// It builds the planning engine and serves it over HTTP with graceful shutdown
func main() {
	// Initialize structured logger with custom formatting
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	// Load and validate configuration from environment variables
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if cfg.DevMode {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Setup signal handling for graceful shutdown (Ctrl+C, SIGTERM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Chain clients, stores and the planner
	eng, err := engine.NewEngine(engine.FromConfig(cfg, logger))
	if err != nil {
		logger.WithError(err).Fatal("failed to create engine")
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logger.WithError(err).Warn("engine close")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional USD rate refresh for deposit fee conversion
	if cfg.RatePollInterval > 0 {
		poller, err := eng.NewRatePoller(cfg.RatePollInterval)
		if err != nil {
			logger.WithError(err).Warn("rate poller disabled")
		} else {
			go func() {
				if err := poller.Start(ctx); err != nil && ctx.Err() == nil {
					logger.WithError(err).Error("rate poller stopped")
				}
			}()
		}
	}

	// Create handlers with all dependencies injected
	h := &server.Handlers{
		Engine:      eng,                     // Planning engine
		Gate:        eng.Gate(),              // Venue gate (nil without Redis)
		ZeroEx:      eng.ZeroEx(),            // 0x quote passthrough
		Metrics:     eng.Metrics().Handler(), // Prometheus exposition
		PlanTimeout: cfg.PlanTimeout,         // Upper bound per planning request
		Logger:      logger,                  // Structured logger
	}
	// Flags need Redis; keep the interface nil otherwise
	if fs := eng.Flags(); fs != nil {
		h.Flags = fs
	}

	// Create HTTP server with configuration and handlers
	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr, // Server bind address (e.g., ":8090")
			DevMode: cfg.DevMode, // Development mode flag
			APIKey:  cfg.APIKey,  // Optional API key for authentication

			PlanRateLimit: cfg.PlanRateLimit,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	// Setup graceful shutdown in a separate goroutine
	go func() {
		<-sigCh // Wait for shutdown signal
		logger.Info("shutting down")
		cancel()                               // Stop background polling
		_ = srv.Shutdown(context.Background()) // Gracefully shutdown HTTP server
	}()

	// Start the HTTP server
	logger.WithFields(logrus.Fields{
		"addr":    cfg.APIAddr,
		"network": eng.Chain().Network,
	}).Info("api server starting")
	if err := srv.Start(); err != nil {
		logger.WithError(err).Fatal("api server failed")
	}

	// Wait for server to be fully shut down
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer waitCancel()
	if err := srv.WaitClosed(waitCtx); err != nil {
		logger.WithError(err).Warn("shutdown wait")
	}
}

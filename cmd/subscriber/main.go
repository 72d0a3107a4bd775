// cmd/subscriber tails live plan events from Redis Pub/Sub
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/yield-router/internal/cache"
	"github.com/aman-zulfiqar/yield-router/internal/config"
	"github.com/aman-zulfiqar/yield-router/internal/constants"
	"github.com/aman-zulfiqar/yield-router/internal/models"
)

func main() {
	pool := flag.String("pool", "", "only follow one pool (stable | yield | eth); empty follows all")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	cfg := config.Load()
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	pubsub := cache.NewPubSubManager(client, logger)
	logger.Info("Starting plan subscriber")

	logEvent := func(ev *models.PlanEvent) {
		entry := logger.WithFields(logrus.Fields{
			"id":        ev.ID,
			"pool":      ev.Pool,
			"direction": ev.Direction,
			"token":     ev.Token,
			"amount":    ev.Amount,
			"legs":      ev.Legs,
			"outcome":   ev.Outcome,
			"ms":        ev.DurationMs,
		})
		if ev.Outcome != "ok" {
			entry.WithField("error", ev.Error).Warn("Plan failed")
			return
		}
		entry.Info("Plan")
	}

	run := func(name string, fn func() error) {
		if err := fn(); err != nil && ctx.Err() == nil {
			logger.WithError(err).WithField("subscription", name).Error("Subscription ended")
		}
	}

	if *pool != "" {
		go run(*pool, func() error {
			return pubsub.Subscribe(ctx, cache.PoolChannel(*pool), logEvent)
		})
	} else {
		go run("all", func() error {
			return pubsub.Subscribe(ctx, constants.PubSubChannelPlans, logEvent)
		})
		// Per-pool channels, counted rather than logged twice
		counts := make(map[string]int)
		go run("pools", func() error {
			return pubsub.PSubscribe(ctx, cache.PoolChannel("*"), func(ev *models.PlanEvent) {
				counts[ev.Pool]++
				logger.WithFields(logrus.Fields{"pool": ev.Pool, "seen": counts[ev.Pool]}).Debug("Pool event")
			})
		})
	}

	logger.Info("Subscriber running. Press Ctrl+C to stop.")

	<-sigChan
	logger.Info("Shutting down subscriber")
}

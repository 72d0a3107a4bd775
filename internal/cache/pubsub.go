package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/yield-router/internal/constants"
	"github.com/aman-zulfiqar/yield-router/internal/models"
)

// PoolChannel is the per-pool plan channel
func PoolChannel(pool string) string {
	return fmt.Sprintf("%s:%s", constants.PubSubChannelPlans, pool)
}

// PublishPlan sends ev to the global and per-pool channels
func (r *RedisCache) PublishPlan(ctx context.Context, ev *models.PlanEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal plan event: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Publish(ctx, constants.PubSubChannelPlans, data)
	if ev.Pool != "" {
		pipe.Publish(ctx, PoolChannel(ev.Pool), data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish plan: %w", err)
	}
	return nil
}

// SubscribePlans streams events from the global channel until ctx ends
func (r *RedisCache) SubscribePlans(ctx context.Context) (<-chan *models.PlanEvent, error) {
	return subscribe(ctx, r.client.Subscribe(ctx, constants.PubSubChannelPlans), r.logger)
}

// PubSubManager subscribes to plan channels by name or pattern
type PubSubManager struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPubSubManager(client *redis.Client, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PubSubManager{client: client, logger: logger}
}

// Subscribe calls handler for every event on channel until ctx ends
func (p *PubSubManager) Subscribe(ctx context.Context, channel string, handler func(*models.PlanEvent)) error {
	ch, err := subscribe(ctx, p.client.Subscribe(ctx, channel), p.logger)
	if err != nil {
		return err
	}
	p.logger.WithField("channel", channel).Info("Subscribed")
	for ev := range ch {
		handler(ev)
	}
	return ctx.Err()
}

// PSubscribe is Subscribe for a channel pattern such as "plans:live:*"
func (p *PubSubManager) PSubscribe(ctx context.Context, pattern string, handler func(*models.PlanEvent)) error {
	ch, err := subscribe(ctx, p.client.PSubscribe(ctx, pattern), p.logger)
	if err != nil {
		return err
	}
	p.logger.WithField("pattern", pattern).Info("Subscribed")
	for ev := range ch {
		handler(ev)
	}
	return ctx.Err()
}

func subscribe(ctx context.Context, sub *redis.PubSub, logger *logrus.Logger) (<-chan *models.PlanEvent, error) {
	// wait for the subscription to be confirmed
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan *models.PlanEvent, 64)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev models.PlanEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logger.WithError(err).WithField("channel", msg.Channel).Warn("Skipping malformed plan event")
					continue
				}
				select {
				case out <- &ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

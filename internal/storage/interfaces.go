package storage

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/yield-router/internal/models"
)

// PlanCache holds recent plan events and live USD rates
type PlanCache interface {
	// AddRecentPlan adds an event to the recent plans list
	AddRecentPlan(ctx context.Context, ev *models.PlanEvent) error

	// GetRecentPlans retrieves the most recent events, newest first
	GetRecentPlans(ctx context.Context, limit int64) ([]*models.PlanEvent, error)

	// UpdatePrice stores the USD rate of a currency
	UpdatePrice(ctx context.Context, symbol string, usd decimal.Decimal) error

	// GetPrice retrieves the USD rate of a currency
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	// GetRates retrieves the USD rates of several currencies at once
	GetRates(ctx context.Context, symbols []string) (models.Rates, error)

	// PublishPlan publishes an event to the Pub/Sub channels
	PublishPlan(ctx context.Context, ev *models.PlanEvent) error

	// SubscribePlans subscribes to live plan events
	SubscribePlans(ctx context.Context) (<-chan *models.PlanEvent, error)

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error

	io.Closer
}

// PlanStore is the durable audit log
type PlanStore interface {
	// InsertPlan appends an event
	InsertPlan(ctx context.Context, ev *models.PlanEvent) error

	// OutcomeCounts tallies outcomes since a point in time
	OutcomeCounts(ctx context.Context, since time.Time) (map[string]uint64, error)

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	io.Closer
}

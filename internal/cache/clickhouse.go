package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/yield-router/internal/models"
)

type ClickHouseConfig struct {
	Addr        string
	Database    string
	Username    string
	Password    string
	DialTimeout time.Duration
}

// ClickHouseStore is the durable audit log of planning calls
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

const createPlansTable = `
	CREATE TABLE IF NOT EXISTS plans (
		id           String,
		timestamp    DateTime64(3),
		pool         LowCardinality(String),
		direction    LowCardinality(String),
		token        LowCardinality(String),
		amount       String,
		sender       String,
		legs         UInt16,
		txs          UInt16,
		exchange_fee String,
		slippage     String,
		outcome      LowCardinality(String),
		error        String,
		duration_ms  Int64
	) ENGINE = MergeTree()
	ORDER BY (pool, timestamp)
`

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig, logger *logrus.Logger) (*ClickHouseStore, error) {
	if cfg.Addr == "" || cfg.Database == "" {
		return nil, fmt.Errorf("clickhouse addr and database are required")
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.WithFields(logrus.Fields{"addr": cfg.Addr, "db": cfg.Database}).Info("Connected to ClickHouse")
	return &ClickHouseStore{conn: conn, logger: logger}, nil
}

// EnsureSchema creates the plans table when missing
func (c *ClickHouseStore) EnsureSchema(ctx context.Context) error {
	if err := c.conn.Exec(ctx, createPlansTable); err != nil {
		return fmt.Errorf("create plans table: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) InsertPlan(ctx context.Context, ev *models.PlanEvent) error {
	query := `
		INSERT INTO plans (
			id, timestamp, pool, direction, token, amount, sender,
			legs, txs, exchange_fee, slippage, outcome, error, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		ev.ID,
		ev.Timestamp,
		ev.Pool,
		ev.Direction,
		ev.Token,
		ev.Amount,
		ev.Sender,
		uint16(ev.Legs),
		uint16(ev.Txs),
		ev.ExchangeFee,
		ev.Slippage,
		ev.Outcome,
		ev.Error,
		ev.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}
	return nil
}

// OutcomeCounts tallies planning outcomes since the given time
func (c *ClickHouseStore) OutcomeCounts(ctx context.Context, since time.Time) (map[string]uint64, error) {
	rows, err := c.conn.Query(ctx, `
		SELECT outcome, count() FROM plans
		WHERE timestamp >= ?
		GROUP BY outcome
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]uint64)
	for rows.Next() {
		var (
			outcome string
			n       uint64
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		out[outcome] = n
	}
	return out, rows.Err()
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}

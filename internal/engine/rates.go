package engine

import (
	"fmt"
	"time"

	"github.com/aman-zulfiqar/yield-router/internal/stream"
)

// NewRatePoller returns a poller that keeps the Redis USD rate table fresh
// from 0x prices of every known asset. Start it in its own goroutine.
func (e *Engine) NewRatePoller(interval time.Duration) (*stream.RatePoller, error) {
	if e.cache == nil {
		return nil, ErrNoCache
	}
	if e.zeroex == nil {
		return nil, fmt.Errorf("0x client not configured")
	}
	return stream.NewRatePoller(stream.RatePollerConfig{
		Quoter:       e.zeroex,
		Writer:       e,
		Assets:       e.chain.SupportedAssets(),
		PollInterval: interval,
		Logger:       e.logger,
	})
}

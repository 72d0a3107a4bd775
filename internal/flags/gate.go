package flags

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Reader is the read side of Store
type Reader interface {
	Get(ctx context.Context, key string) (*Flag, error)
}

// Gate answers venue on/off questions from flags, caching each answer for
// a short TTL. A missing flag or an unreachable store leaves the venue on.
type Gate struct {
	reader Reader
	ttl    time.Duration
	logger *logrus.Logger
	now    func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]cached
}

type cached struct {
	enabled bool
	expires time.Time
}

func NewGate(reader Reader, ttl time.Duration, logger *logrus.Logger) *Gate {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Gate{
		reader: reader,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		cache:  make(map[string]cached),
	}
}

func (g *Gate) VenueEnabled(ctx context.Context, venue string) bool {
	if g == nil || g.reader == nil {
		return true
	}

	g.mu.RLock()
	c, ok := g.cache[venue]
	g.mu.RUnlock()
	if ok && g.now().Before(c.expires) {
		return c.enabled
	}

	v, _, _ := g.group.Do(venue, func() (any, error) {
		enabled := true
		f, err := g.reader.Get(ctx, venue)
		switch {
		case err == nil:
			enabled = f.Enabled
		case errors.Is(err, ErrNotFound):
		default:
			g.logger.WithError(err).WithField("venue", venue).Warn("Flag lookup failed, leaving venue enabled")
			// not cached so the next call retries
			return true, nil
		}

		g.mu.Lock()
		g.cache[venue] = cached{enabled: enabled, expires: g.now().Add(g.ttl)}
		g.mu.Unlock()
		return enabled, nil
	})
	return v.(bool)
}

// Invalidate drops the cached answer for venue
func (g *Gate) Invalidate(venue string) {
	if g == nil {
		return
	}
	g.mu.Lock()
	delete(g.cache, venue)
	g.mu.Unlock()
}

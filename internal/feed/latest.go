package feed

import (
	"context"
	"sync"
	"time"

	"github.com/ktrade/whaleflow/internal/domain"
)

// Cell is a single-slot holder for the most recent market snapshot. The feed
// overwrites it on every update and the trading loop reads it at tick time;
// intermediate snapshots are deliberately dropped, the engine only ever wants
// the newest view of the market.
type Cell struct {
	mu    sync.RWMutex
	snap  domain.MarketSnapshot
	has   bool
	cache domain.SnapshotCache // optional external mirror
	ttl   time.Duration
}

// NewCell creates an empty cell. cache may be nil; when set, every snapshot
// is mirrored there with the given TTL on a best-effort basis.
func NewCell(cache domain.SnapshotCache, ttl time.Duration) *Cell {
	return &Cell{cache: cache, ttl: ttl}
}

// Set stores the snapshot as the latest value.
func (c *Cell) Set(ctx context.Context, snap domain.MarketSnapshot) {
	c.mu.Lock()
	c.snap = snap
	c.has = true
	c.mu.Unlock()

	if c.cache != nil {
		// Mirror failures are invisible to the trading path.
		_ = c.cache.SetLatest(ctx, snap, c.ttl)
	}
}

// Latest returns the most recent snapshot and whether one has been set.
func (c *Cell) Latest() (domain.MarketSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap, c.has
}

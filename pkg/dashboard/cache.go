// Package dashboard decides what model data the dashboard shows and how it
// is labeled. Candidates are evaluated top-down as an explicit strategy list:
// pinned editorial picks, then a live fetch, then a fresh cached copy, then a
// stale cached copy, and finally the bundled fallback dataset. A stale cache
// entry still beats hardcoded data; it just wears a different badge.
package dashboard

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cecil-the-coder/modelwatch/pkg/types"
)

// Badge labels the provenance and freshness of displayed data.
type Badge string

const (
	BadgeFeatured Badge = "featured"
	BadgeLive     Badge = "live"
	BadgeCached   Badge = "cached"
	BadgeFallback Badge = "fallback"
)

// DefaultTTL is how long a stored entry counts as fresh. The boundary is
// strict: an entry aged exactly DefaultTTL is already expired.
const DefaultTTL = time.Hour

// entryVersion invalidates persisted entries across incompatible layout
// changes.
const entryVersion = "1"

// Entry is one persisted cache record.
type Entry struct {
	Models    []types.Model `json:"models"`
	Timestamp time.Time     `json:"timestamp"`
	Badge     Badge         `json:"badge"`
	Version   string        `json:"version"`
}

// Store persists cache entries between sessions.
type Store interface {
	Load() (*Entry, error)
	Save(*Entry) error
	Clear() error
}

// Fetcher performs the live fetch.
type Fetcher func(ctx context.Context) ([]types.Model, error)

// FeaturedProvider returns admin-pinned models; empty means nothing pinned.
type FeaturedProvider func(ctx context.Context) ([]types.Model, error)

// Display is what the dashboard renders.
type Display struct {
	Models    []types.Model `json:"models"`
	Badge     Badge         `json:"badge"`
	Timestamp time.Time     `json:"timestamp"`
	Age       time.Duration `json:"age"`
}

// Cache ties the strategies together.
type Cache struct {
	store    Store
	fetch    Fetcher
	featured FeaturedProvider
	fallback []types.Model
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// Option tweaks Cache construction.
type Option func(*Cache)

// WithTTL overrides the freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithFeatured installs an editorial override source.
func WithFeatured(f FeaturedProvider) Option {
	return func(c *Cache) { c.featured = f }
}

// New builds the cache. fallback is the bundled last-resort dataset.
func New(store Store, fetch Fetcher, fallback []types.Model, logger *zap.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		store:    store,
		fetch:    fetch,
		fallback: fallback,
		ttl:      DefaultTTL,
		logger:   logger.Named("dashboard"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// resolveState carries what the strategies share: the live outcome and the
// stored entry, each loaded at most once.
type resolveState struct {
	live    []types.Model
	liveErr error
	entry   *Entry
}

type strategy func(ctx context.Context, st *resolveState) *Display

// DisplayData evaluates the strategies in priority order and returns the
// first match. It always returns something; the embedded fallback cannot
// fail.
func (c *Cache) DisplayData(ctx context.Context) *Display {
	st := &resolveState{}

	// Live result is loaded eagerly so the cache strategies know whether
	// the session has fresh data; the stored entry is loaded lazily.
	if c.fetch != nil {
		st.live, st.liveErr = c.fetch(ctx)
		if st.liveErr != nil {
			c.logger.Warn("live fetch failed, consulting cache", zap.Error(st.liveErr))
		}
	}
	if c.store != nil {
		entry, err := c.store.Load()
		if err != nil {
			c.logger.Warn("cache load failed", zap.Error(err))
		} else if entry != nil && entry.Version == entryVersion {
			st.entry = entry
		}
	}

	for _, s := range []strategy{c.pinned, c.liveData, c.freshCache, c.staleCache, c.static} {
		if d := s(ctx, st); d != nil {
			return d
		}
	}
	// Unreachable: static always matches.
	return &Display{Badge: BadgeFallback, Timestamp: c.now()}
}

// pinned: editorial override, highest precedence regardless of freshness.
func (c *Cache) pinned(ctx context.Context, _ *resolveState) *Display {
	if c.featured == nil {
		return nil
	}
	models, err := c.featured(ctx)
	if err != nil {
		c.logger.Warn("featured lookup failed", zap.Error(err))
		return nil
	}
	if len(models) == 0 {
		return nil
	}
	return &Display{Models: models, Badge: BadgeFeatured, Timestamp: c.now()}
}

// liveData: a successful same-session fetch always beats any cache, and
// refreshes the store for the next session.
func (c *Cache) liveData(_ context.Context, st *resolveState) *Display {
	if st.liveErr != nil || st.live == nil {
		return nil
	}
	now := c.now()
	if c.store != nil {
		entry := &Entry{Models: st.live, Timestamp: now, Badge: BadgeLive, Version: entryVersion}
		if err := c.store.Save(entry); err != nil {
			c.logger.Warn("cache save failed", zap.Error(err))
		}
	}
	return &Display{Models: st.live, Badge: BadgeLive, Timestamp: now}
}

// freshCache: a stored entry younger than the TTL.
func (c *Cache) freshCache(_ context.Context, st *resolveState) *Display {
	if st.entry == nil {
		return nil
	}
	age := c.now().Sub(st.entry.Timestamp)
	if age >= c.ttl {
		return nil
	}
	return &Display{Models: st.entry.Models, Badge: BadgeCached, Timestamp: st.entry.Timestamp, Age: age}
}

// staleCache: an expired entry is still better than hardcoded data, but it is
// labeled as fallback so the UI shows it for what it is.
func (c *Cache) staleCache(_ context.Context, st *resolveState) *Display {
	if st.entry == nil {
		return nil
	}
	age := c.now().Sub(st.entry.Timestamp)
	return &Display{Models: st.entry.Models, Badge: BadgeFallback, Timestamp: st.entry.Timestamp, Age: age}
}

// static: the bundled dataset, the floor under everything else.
func (c *Cache) static(_ context.Context, _ *resolveState) *Display {
	return &Display{Models: c.fallback, Badge: BadgeFallback, Timestamp: c.now()}
}

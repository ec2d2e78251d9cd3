package cache

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Config holds query cache settings.
type Config struct {
	// Name labels this cache in metrics and logs.
	Name string

	// StaleTime is how long a loaded value is considered fresh. A fresh
	// value is returned without touching the loader. A stale value is
	// still returned immediately, with a background refresh kicked off.
	StaleTime time.Duration

	// GCTime is how long an entry may go unread before the janitor
	// evicts it.
	GCTime time.Duration

	// CleanupInterval is how often the janitor scans for evictable
	// entries.
	CleanupInterval time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns the staleness windows used by the read paths.
func DefaultConfig(name string) Config {
	return Config{
		Name:            name,
		StaleTime:       30 * time.Second,
		GCTime:          5 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

// Loader fetches the value for a key on miss or refresh.
type Loader[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	value      V
	loadedAt   time.Time
	lastAccess time.Time
	forceStale bool
}

// Cache is an in-process read-through query cache. Values are served fresh
// within StaleTime, served stale with a deduplicated background refresh after
// that, and evicted once unread for GCTime. Callers must treat returned
// values as read-only; replace them through Mutate instead of editing in
// place.
type Cache[V any] struct {
	cfg     Config
	logger  *slog.Logger
	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]*entry[V]
	stop    chan struct{}
	stopped sync.Once
}

// New creates a cache and starts its janitor goroutine. Call Close to stop it.
func New[V any](cfg Config) *Cache[V] {
	if cfg.StaleTime <= 0 {
		cfg.StaleTime = 30 * time.Second
	}
	if cfg.GCTime <= 0 {
		cfg.GCTime = 5 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Cache[V]{
		cfg:     cfg,
		logger:  cfg.Logger,
		entries: make(map[string]*entry[V]),
		stop:    make(chan struct{}),
	}
	go c.janitor()
	return c
}

// GetOrLoad returns the cached value for key, calling loader on a miss.
// Concurrent misses for the same key share a single loader call; a loader
// error is propagated to every waiter. A stale value is returned immediately
// while one background refresh runs.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, loader Loader[V]) (V, error) {
	now := time.Now()

	c.mu.Lock()
	e, ok := c.entries[key]
	var (
		val   V
		fresh bool
	)
	if ok {
		e.lastAccess = now
		val = e.value
		fresh = !e.forceStale && now.Sub(e.loadedAt) < c.cfg.StaleTime
	}
	c.mu.Unlock()

	if ok {
		if fresh {
			hitsTotal.WithLabelValues(c.cfg.Name).Inc()
			return val, nil
		}
		staleServedTotal.WithLabelValues(c.cfg.Name).Inc()
		c.refresh(ctx, key, loader)
		return val, nil
	}

	missesTotal.WithLabelValues(c.cfg.Name).Inc()
	v, err, _ := c.group.Do(key, func() (any, error) {
		val, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, val)
		return val, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// refresh reloads key in the background, deduplicated per key. The refresh
// outlives the triggering request. A refresh that finds the entry fresh again
// skips the load; an earlier refresh already replaced the value.
func (c *Cache[V]) refresh(ctx context.Context, key string, loader Loader[V]) {
	bgCtx := context.WithoutCancel(ctx)
	go func() {
		_, err, _ := c.group.Do("refresh:"+key, func() (any, error) {
			if c.isFresh(key) {
				return nil, nil
			}
			val, err := loader(bgCtx)
			if err != nil {
				return nil, err
			}
			c.store(key, val)
			return val, nil
		})
		if err != nil {
			refreshFailuresTotal.WithLabelValues(c.cfg.Name).Inc()
			c.logger.Warn("cache refresh failed",
				slog.String("cache", c.cfg.Name),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Set stores a value directly, marking it fresh.
func (c *Cache[V]) Set(key string, value V) {
	c.store(key, value)
}

func (c *Cache[V]) isFresh(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return ok && !e.forceStale && time.Since(e.loadedAt) < c.cfg.StaleTime
}

func (c *Cache[V]) store(key string, value V) {
	now := time.Now()
	c.mu.Lock()
	c.entries[key] = &entry[V]{value: value, loadedAt: now, lastAccess: now}
	c.mu.Unlock()
}

// Invalidate marks every entry whose key starts with prefix as stale. The
// next read of a marked entry serves the stale value and triggers a refresh.
// It returns the number of entries marked.
func (c *Cache[V]) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			e.forceStale = true
			n++
		}
	}
	invalidationsTotal.WithLabelValues(c.cfg.Name).Add(float64(n))
	return n
}

// Delete removes an entry outright.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Mutate applies patch to the cached value for key, if present, and returns
// a rollback that restores the previous value. The patched value keeps the
// entry's staleness clock so it is still refreshed on schedule. When key is
// absent the patch is skipped and the rollback is a no-op.
func (c *Cache[V]) Mutate(key string, patch func(V) V) (rollback func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return func() {}
	}

	prev := e.value
	e.value = patch(prev)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if cur, ok := c.entries[key]; ok {
			cur.value = prev
		}
	}
}

// MutateAll applies patch to every cached value whose key starts with
// prefix and returns a single rollback restoring all previous values. Like
// Mutate, the patched entries keep their staleness clocks.
func (c *Cache[V]) MutateAll(prefix string, patch func(V) V) (rollback func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := make(map[string]V)
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			prev[key] = e.value
			e.value = patch(e.value)
		}
	}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for key, val := range prev {
			if cur, ok := c.entries[key]; ok {
				cur.value = val
			}
		}
	}
}

// Len returns the number of entries currently held.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the janitor.
func (c *Cache[V]) Close() {
	c.stopped.Do(func() { close(c.stop) })
}

func (c *Cache[V]) janitor() {
	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.evictExpired(now)
		}
	}
}

func (c *Cache[V]) evictExpired(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if now.Sub(e.lastAccess) >= c.cfg.GCTime {
			delete(c.entries, key)
			evictionsTotal.WithLabelValues(c.cfg.Name).Inc()
		}
	}
}

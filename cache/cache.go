// Package cache provides a generic in-memory TTL cache with optional
// file persistence and optional mirroring to a NATS JetStream
// KeyValue bucket, so several processes can share entries.
package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidConfig is returned by New when the Config is unusable.
	ErrInvalidConfig = errors.New("invalid cache configuration")

	// ErrKeyNotFound is returned by Edit for keys that are absent or
	// already expired.
	ErrKeyNotFound = errors.New("key not found")
)

// Item is a cached value with its expiry time.
type Item[T any] struct {
	Value     T     `msgpack:"value"`
	ExpiresAt int64 `msgpack:"expires_at"` // UnixNano, 0 means no expiry
}

func (it Item[T]) expiredAt(now int64) bool {
	return it.ExpiresAt > 0 && now > it.ExpiresAt
}

// Cache is a thread-safe key/value store with per-entry TTLs.
type Cache[T any] struct {
	mu    sync.RWMutex
	items map[string]Item[T]

	cfg Config
	log zerolog.Logger

	fileMu sync.Mutex

	nc *nats.Conn
	kv nats.KeyValue

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a Cache, restores the persisted file when one is
// configured and present, connects to NATS when configured, and
// starts the maintenance loop. Call Close to stop it.
func New[T any](cfg Config) (*Cache[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Cache[T]{
		items:  make(map[string]Item[T]),
		cfg:    cfg,
		log:    cfg.logger(),
		stopCh: make(chan struct{}),
	}

	if cfg.File != "" {
		if err := c.loadFile(); err != nil {
			return nil, err
		}
	}
	if cfg.NATSURL != "" {
		if err := c.connectNATS(); err != nil {
			return nil, err
		}
	}

	c.wg.Add(1)
	go c.maintain()

	return c, nil
}

// Close stops the maintenance loop, writes a final snapshot when
// persistence is enabled, and closes the NATS connection. It is safe
// to call more than once.
func (c *Cache[T]) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stopCh)
		c.wg.Wait()
		err = c.Flush()
		if c.nc != nil {
			c.nc.Close()
		}
	})
	return err
}

// Set stores value under key. An optional TTL overrides the
// configured default; pass 0 to keep the entry forever.
func (c *Cache[T]) Set(key string, value T, ttl ...time.Duration) error {
	d := c.cfg.DefaultTTL
	if len(ttl) > 0 {
		d = ttl[0]
	}

	item := Item[T]{Value: value}
	if d > 0 {
		item.ExpiresAt = time.Now().Add(d).UnixNano()
	}

	c.mu.Lock()
	c.items[key] = item
	snapshot := c.writeSnapshotLocked()
	c.mu.Unlock()

	if err := c.mirror(key, item); err != nil {
		return err
	}
	return c.writeSnapshot(snapshot)
}

// Get returns the value stored under key. Expired entries are treated
// as absent. When the key is missing locally and NATS mirroring is
// enabled, the bucket is consulted and a hit repopulates the local map.
func (c *Cache[T]) Get(key string) (T, bool) {
	now := time.Now().UnixNano()

	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if ok && !item.expiredAt(now) {
		return item.Value, true
	}

	if item, ok := c.fetchMirror(key, now); ok {
		c.mu.Lock()
		c.items[key] = item
		c.mu.Unlock()
		return item.Value, true
	}

	var zero T
	return zero, false
}

// GetOrSet returns the existing value for key, or stores value and
// returns it. The boolean reports whether the value was already there.
func (c *Cache[T]) GetOrSet(key string, value T, ttl ...time.Duration) (T, bool, error) {
	if existing, ok := c.Get(key); ok {
		return existing, true, nil
	}
	if err := c.Set(key, value, ttl...); err != nil {
		var zero T
		return zero, false, err
	}
	return value, false, nil
}

// Edit applies fn to the value stored under key and keeps the result,
// preserving the entry's expiry. Missing or expired keys return
// ErrKeyNotFound.
func (c *Cache[T]) Edit(key string, fn func(value T) T) error {
	now := time.Now().UnixNano()

	c.mu.Lock()
	item, ok := c.items[key]
	if !ok || item.expiredAt(now) {
		c.mu.Unlock()
		return fmt.Errorf("editing %q: %w", key, ErrKeyNotFound)
	}
	item.Value = fn(item.Value)
	c.items[key] = item
	snapshot := c.writeSnapshotLocked()
	c.mu.Unlock()

	if err := c.mirror(key, item); err != nil {
		return err
	}
	return c.writeSnapshot(snapshot)
}

// Delete removes key from the cache and, when mirroring is enabled,
// from the shared bucket.
func (c *Cache[T]) Delete(key string) error {
	c.mu.Lock()
	delete(c.items, key)
	snapshot := c.writeSnapshotLocked()
	c.mu.Unlock()

	if c.kv != nil {
		if err := c.kv.Delete(key); err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
			return fmt.Errorf("deleting %q from bucket: %w", key, err)
		}
	}
	return c.writeSnapshot(snapshot)
}

// Len reports the number of stored entries, including expired ones
// that have not been collected yet.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Keys returns the keys of all stored entries in no particular order.
func (c *Cache[T]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	return keys
}

func (c *Cache[T]) maintain() {
	defer c.wg.Done()

	cleanupTicker := time.NewTicker(c.cfg.CleanupInterval)
	defer cleanupTicker.Stop()
	flushTicker := time.NewTicker(c.cfg.FlushInterval)
	defer flushTicker.Stop()

	for {
		select {
		case <-cleanupTicker.C:
			c.removeExpired()
		case <-flushTicker.C:
			if err := c.Flush(); err != nil {
				c.log.Warn().Err(err).Msg("flushing cache")
			}
		case <-c.stopCh:
			return
		}
	}
}

func (c *Cache[T]) removeExpired() {
	now := time.Now().UnixNano()

	c.mu.Lock()
	for k, item := range c.items {
		if item.expiredAt(now) {
			delete(c.items, k)
		}
	}
	snapshot := c.writeSnapshotLocked()
	c.mu.Unlock()

	if err := c.writeSnapshot(snapshot); err != nil {
		c.log.Warn().Err(err).Msg("flushing cache after cleanup")
	}
}

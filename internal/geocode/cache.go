// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wneessen/friendsmap/internal/geo"
	"github.com/wneessen/friendsmap/internal/logger"
)

// coordPrecision is the precision used to quantize coordinates (0.01 degrees ≈ 1.1 km)
const coordPrecision = 1e-2

// Entry is a cached search result. Found is false for a remembered "not found" answer.
type Entry struct {
	Coordinate geo.Coordinate
	Found      bool
	Expiry     time.Time
}

// Store persists search results between restarts.
type Store interface {
	Load(ctx context.Context, key string) (Entry, bool, error)
	Save(ctx context.Context, key string, entry Entry) error
	Prune(ctx context.Context, now time.Time) (int, error)
}

type reverseKey struct {
	LatQ int32
	LonQ int32
}

type reverseEntry struct {
	Address Address
	Expiry  time.Time
}

// CachedGeocoder keeps search results in memory, keyed by provider and normalized address.
// Misses are remembered for a shorter time than hits. Lookups of different addresses run
// independently, concurrent lookups of the same address share one request.
type CachedGeocoder struct {
	coder   Geocoder
	ttlHit  time.Duration
	ttlMiss time.Duration
	timeout time.Duration
	store   Store
	logger  *logger.Logger
	group   singleflight.Group

	mu      sync.RWMutex
	cache   map[string]Entry
	reverse map[reverseKey]reverseEntry
}

func NewCachedGeocoder(coder Geocoder, ttlHit, ttlMiss time.Duration) *CachedGeocoder {
	return &CachedGeocoder{
		coder:   coder,
		ttlHit:  ttlHit,
		ttlMiss: ttlMiss,
		timeout: DefaultTimeout,
		cache:   make(map[string]Entry),
		reverse: make(map[reverseKey]reverseEntry),
	}
}

// WithStore adds a persistent layer below the memory cache. Store failures are logged to log and
// never change a lookup result.
func (c *CachedGeocoder) WithStore(store Store, log *logger.Logger) *CachedGeocoder {
	c.store = store
	c.logger = log
	return c
}

// WithTimeout bounds a shared lookup. A non-positive timeout selects DefaultTimeout.
func (c *CachedGeocoder) WithTimeout(timeout time.Duration) *CachedGeocoder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c.timeout = timeout
	return c
}

func (c *CachedGeocoder) Name() string {
	return "geocoder cache using " + c.coder.Name()
}

func (c *CachedGeocoder) Search(ctx context.Context, address string) (geo.Coordinate, error) {
	key := c.coder.Name() + "|" + NormalizeAddress(address)

	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.Expiry) {
		return entry.result()
	}

	// The shared lookup outlives a cancelled caller, the others waiting for it still get a result.
	resChan := c.group.DoChan(key, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.lookup(lookupCtx, key, address)
	})
	select {
	case <-ctx.Done():
		return geo.Coordinate{}, ctx.Err()
	case res := <-resChan:
		if res.Err != nil {
			return geo.Coordinate{}, res.Err
		}
		return res.Val.(Entry).result()
	}
}

func (c *CachedGeocoder) lookup(ctx context.Context, key, address string) (Entry, error) {
	if c.store != nil {
		entry, ok, err := c.store.Load(ctx, key)
		if err != nil {
			c.logger.Warn("failed to load cached geocode result", slog.String("key", key), logger.Err(err))
		}
		if err == nil && ok && time.Now().Before(entry.Expiry) {
			c.remember(key, entry)
			return entry, nil
		}
	}

	coords, err := c.coder.Search(ctx, address)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Entry{}, err
	}

	entry := Entry{Coordinate: coords, Found: err == nil, Expiry: time.Now().Add(c.ttlHit)}
	if !entry.Found {
		entry.Coordinate = geo.Unresolved
		entry.Expiry = time.Now().Add(c.ttlMiss)
	}
	c.remember(key, entry)
	if c.store != nil {
		if err = c.store.Save(ctx, key, entry); err != nil {
			c.logger.Warn("failed to persist geocode result", slog.String("key", key), logger.Err(err))
		}
	}
	return entry, nil
}

func (c *CachedGeocoder) remember(key string, entry Entry) {
	c.mu.Lock()
	c.cache[key] = entry
	c.mu.Unlock()
}

// Reverse implements ReverseGeocoder when the wrapped geocoder does. Coordinates are quantized so
// that nearby points share a cache entry.
func (c *CachedGeocoder) Reverse(ctx context.Context, coords geo.Coordinate) (Address, error) {
	reverser, ok := c.coder.(ReverseGeocoder)
	if !ok {
		return Address{}, fmt.Errorf("%s does not support reverse lookups", c.coder.Name())
	}
	key := reverseKey{LatQ: quantizeCoord(coords.Lat), LonQ: quantizeCoord(coords.Lon)}

	c.mu.RLock()
	entry, ok := c.reverse[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.Expiry) {
		return entry.Address, nil
	}

	addr, err := reverser.Reverse(ctx, coords)
	if err != nil {
		return addr, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reverse[key] = reverseEntry{Address: addr, Expiry: time.Now().Add(c.ttlHit)}
	return addr, nil
}

// Prune removes expired entries from memory and from the persistent store and returns the number
// of removed memory entries.
func (c *CachedGeocoder) Prune(ctx context.Context) (int, error) {
	now := time.Now()
	removed := 0

	c.mu.Lock()
	for key, entry := range c.cache {
		if !now.Before(entry.Expiry) {
			delete(c.cache, key)
			removed++
		}
	}
	for key, entry := range c.reverse {
		if !now.Before(entry.Expiry) {
			delete(c.reverse, key)
			removed++
		}
	}
	c.mu.Unlock()

	if c.store != nil {
		if _, err := c.store.Prune(ctx, now); err != nil {
			return removed, fmt.Errorf("failed to prune geocode store: %w", err)
		}
	}
	return removed, nil
}

// Len returns the number of search results held in memory.
func (c *CachedGeocoder) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (e Entry) result() (geo.Coordinate, error) {
	if !e.Found {
		return geo.Unresolved, ErrNotFound
	}
	return e.Coordinate, nil
}

func quantizeCoord(val float64) int32 {
	return int32(math.Round(val / coordPrecision))
}

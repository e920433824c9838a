package cache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/stregea/LiveChatOverlay/internal/metrics"
)

// DefaultTTL is the entry lifetime used when no other TTL is configured.
const DefaultTTL = 5 * time.Minute

// QuotaCache caches lookup payloads per key for a fixed TTL. An entry older
// than the TTL is treated as absent; expired and never-stored keys are
// indistinguishable to callers. The TTL is fixed at construction.
type QuotaCache[V any] struct {
	mu      sync.Mutex
	entries map[string]quotaEntry[V]
	ttl     time.Duration
	clock   clockwork.Clock
}

type quotaEntry[V any] struct {
	payload  V
	storedAt time.Time
}

// EntryStats describes one cache entry's age, for observability only.
type EntryStats struct {
	Key       string        `json:"key"`
	Age       time.Duration `json:"age"`
	Remaining time.Duration `json:"remaining"`
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Size    int           `json:"size"`
	TTL     time.Duration `json:"ttl"`
	Entries []EntryStats  `json:"entries"`
}

// New creates a quota cache with the given TTL.
func New[V any](ttl time.Duration, clock clockwork.Clock) *QuotaCache[V] {
	return &QuotaCache[V]{
		entries: make(map[string]quotaEntry[V]),
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns the cached payload if present and younger than the TTL.
// An expired entry is evicted on the spot and reported as absent.
func (c *QuotaCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		metrics.QuotaCacheMisses.Inc()
		var zero V
		return zero, false
	}

	if c.clock.Since(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		metrics.QuotaCacheMisses.Inc()
		metrics.QuotaCacheEvictions.Inc()
		var zero V
		return zero, false
	}

	metrics.QuotaCacheHits.Inc()
	return entry.payload, true
}

// Set stores the payload with the current timestamp, overwriting any
// existing entry for the key.
func (c *QuotaCache[V]) Set(key string, payload V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = quotaEntry[V]{payload: payload, storedAt: c.clock.Now()}
	metrics.QuotaCacheSize.Set(float64(len(c.entries)))
}

// Clear drops all entries.
func (c *QuotaCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]quotaEntry[V])
	metrics.QuotaCacheSize.Set(0)
}

// Stats returns the entry count, configured TTL, and per-entry ages.
// Expired entries still sitting in the map are excluded.
func (c *QuotaCache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	stats := Stats{TTL: c.ttl}
	for key, entry := range c.entries {
		age := now.Sub(entry.storedAt)
		if age > c.ttl {
			continue
		}
		stats.Entries = append(stats.Entries, EntryStats{
			Key:       key,
			Age:       age,
			Remaining: c.ttl - age,
		})
	}
	stats.Size = len(stats.Entries)
	return stats
}

// evictExpired removes all expired entries and returns the count evicted.
func (c *QuotaCache[V]) evictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	evicted := 0
	for key, entry := range c.entries {
		if now.Sub(entry.storedAt) > c.ttl {
			delete(c.entries, key)
			evicted++
		}
	}
	metrics.QuotaCacheSize.Set(float64(len(c.entries)))
	return evicted
}

// StartEvictionTimer starts a background goroutine that periodically removes
// expired entries, preventing unbounded growth from one-off keys. Returns a
// stop function.
func (c *QuotaCache[V]) StartEvictionTimer(interval time.Duration) func() {
	ticker := c.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.Chan():
				if evicted := c.evictExpired(); evicted > 0 {
					slog.Debug("Evicted expired quota cache entries", "count", evicted)
					metrics.QuotaCacheEvictions.Add(float64(evicted))
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}

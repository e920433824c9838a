package cache

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaCache_GetMissOnUnknownKey(t *testing.T) {
	c := New[string](DefaultTTL, clockwork.NewFakeClock())

	_, ok := c.Get("never-stored")
	assert.False(t, ok)
}

func TestQuotaCache_HitWithinTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[string](5*time.Minute, clock)

	c.Set("chan-1", "payload")
	clock.Advance(4 * time.Minute)

	got, ok := c.Get("chan-1")
	require.True(t, ok)
	assert.Equal(t, "payload", got)
}

func TestQuotaCache_ExpiredEntryIsAbsent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[string](5*time.Minute, clock)

	c.Set("chan-1", "payload")
	clock.Advance(5*time.Minute + time.Second)

	_, ok := c.Get("chan-1")
	assert.False(t, ok, "an entry aged 301 seconds with a 300 second TTL is a miss")

	// Expired and never-stored are indistinguishable afterwards too.
	_, ok = c.Get("chan-1")
	assert.False(t, ok)
}

func TestQuotaCache_SetRefreshesTimestamp(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[string](5*time.Minute, clock)

	c.Set("chan-1", "old")
	clock.Advance(4 * time.Minute)
	c.Set("chan-1", "new")
	clock.Advance(4 * time.Minute)

	got, ok := c.Get("chan-1")
	require.True(t, ok, "overwrite restarts the clock")
	assert.Equal(t, "new", got)
}

func TestQuotaCache_Clear(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[int](5*time.Minute, clock)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Stats().Size)
}

func TestQuotaCache_StatsExcludesExpired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[string](5*time.Minute, clock)

	c.Set("old", "x")
	clock.Advance(3 * time.Minute)
	c.Set("fresh", "y")
	clock.Advance(3 * time.Minute)

	stats := c.Stats()
	assert.Equal(t, 5*time.Minute, stats.TTL)
	require.Equal(t, 1, stats.Size)
	assert.Equal(t, "fresh", stats.Entries[0].Key)
	assert.Equal(t, 3*time.Minute, stats.Entries[0].Age)
	assert.Equal(t, 2*time.Minute, stats.Entries[0].Remaining)
}

func TestQuotaCache_EvictExpired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[string](5*time.Minute, clock)

	c.Set("old", "x")
	clock.Advance(6 * time.Minute)
	c.Set("fresh", "y")

	assert.Equal(t, 1, c.evictExpired())

	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestQuotaCache_EvictionTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[string](5*time.Minute, clock)

	c.Set("old", "x")
	stop := c.StartEvictionTimer(time.Minute)
	defer stop()

	clock.Advance(6 * time.Minute)

	// The ticker goroutine runs asynchronously; poll until it has fired.
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.entries) == 0
	}, time.Second, 5*time.Millisecond)
}

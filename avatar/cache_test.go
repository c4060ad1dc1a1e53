package avatar

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingFetcher struct {
	calls  atomic.Int32
	result map[string]Avatar
}

func (f *countingFetcher) Fetch(_ context.Context, username string) Avatar {
	f.calls.Add(1)
	return f.result[username]
}

func TestCache_PutGet(t *testing.T) {
	clock := newFakeClock()
	c := NewCache(Options{Now: clock.Now})

	_, ok := c.Get("alice")
	assert.False(t, ok)

	c.Put("Alice", Avatar{URL: "https://img/alice.png"}, time.Minute)
	v, ok := c.Get("alice")
	require.True(t, ok)
	assert.Equal(t, "https://img/alice.png", v.URL)

	v, ok = c.Get("  ALICE ")
	require.True(t, ok)
	assert.Equal(t, "https://img/alice.png", v.URL)
}

func TestCache_PutOverwrites(t *testing.T) {
	clock := newFakeClock()
	c := NewCache(Options{Now: clock.Now})

	c.Put("bob", Avatar{URL: "a"}, time.Minute)
	c.Put("bob", Avatar{URL: "b"}, time.Minute)
	v, ok := c.Get("bob")
	require.True(t, ok)
	assert.Equal(t, "b", v.URL)
	assert.Equal(t, 1, c.Len())
}

func TestCache_Expiry(t *testing.T) {
	clock := newFakeClock()
	c := NewCache(Options{Now: clock.Now})

	c.Put("carol", Avatar{URL: "x"}, time.Minute)
	clock.Advance(59 * time.Second)
	_, ok := c.Get("carol")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("carol")
	assert.False(t, ok, "entry must be expired at now == expires")
}

func TestCache_AbsentIsAHit(t *testing.T) {
	clock := newFakeClock()
	c := NewCache(Options{Now: clock.Now})

	c.Put("ghost", Absent, time.Minute)
	v, ok := c.Get("ghost")
	assert.True(t, ok)
	assert.False(t, v.Found())
}

func TestCache_Sweep(t *testing.T) {
	clock := newFakeClock()
	c := NewCache(Options{Now: clock.Now})

	c.Put("keep", Avatar{URL: "k"}, time.Hour)
	before := c.Len()

	c.Put("drop1", Avatar{URL: "1"}, time.Minute)
	c.Put("drop2", Absent, 2*time.Minute)
	assert.Equal(t, before+2, c.Len())

	assert.Equal(t, 0, c.Sweep())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 2, c.Sweep())
	assert.Equal(t, before, c.Len())

	_, ok := c.Get("keep")
	assert.True(t, ok)
}

func TestCache_ResolveCachesAbsent(t *testing.T) {
	clock := newFakeClock()
	fetcher := &countingFetcher{result: map[string]Avatar{}}
	c := NewCache(
		Options{
			TTL:     time.Hour,
			Fetcher: fetcher,
			Now:     clock.Now,
		},
	)
	ctx := context.Background()

	v := c.Resolve(ctx, "NoSuchUser")
	assert.False(t, v.Found())
	assert.EqualValues(t, 1, fetcher.calls.Load())

	v = c.Resolve(ctx, "nosuchuser")
	assert.False(t, v.Found())
	assert.EqualValues(t, 1, fetcher.calls.Load(), "absent value must be served from the cache")

	clock.Advance(time.Hour)
	c.Resolve(ctx, "NoSuchUser")
	assert.EqualValues(t, 2, fetcher.calls.Load(), "expired absent value must be refetched")
}

func TestCache_ResolveFound(t *testing.T) {
	clock := newFakeClock()
	fetcher := &countingFetcher{
		result: map[string]Avatar{
			"Roblox": {URL: "https://img/roblox.png"},
		},
	}
	c := NewCache(
		Options{
			Fetcher: fetcher,
			Now:     clock.Now,
		},
	)
	assert.Equal(t, DefaultTTL, c.TTL())

	v := c.Resolve(context.Background(), "Roblox")
	assert.Equal(t, "https://img/roblox.png", v.URL)
	cached, ok := c.Get("roblox")
	require.True(t, ok)
	assert.Equal(t, v, cached)
}

func TestCache_ResolveEmptyUsername(t *testing.T) {
	fetcher := &countingFetcher{}
	c := NewCache(Options{Fetcher: fetcher})
	assert.Equal(t, Absent, c.Resolve(context.Background(), "   "))
	assert.EqualValues(t, 0, fetcher.calls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestCache_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	require.NotNil(t, m)
	clock := newFakeClock()
	c := NewCache(
		Options{
			Fetcher: &countingFetcher{},
			Now:     clock.Now,
			Metrics: m,
		},
	)
	ctx := context.Background()
	c.Resolve(ctx, "a")
	c.Resolve(ctx, "a")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.hits))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.misses))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.fetchFailures))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.size))

	clock.Advance(DefaultTTL)
	c.Sweep()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.sweptEntries))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.size))
}

func TestNewMetrics_NilRegistry(t *testing.T) {
	var m *Metrics = NewMetrics(nil)
	assert.Nil(t, m)
	// nil metrics must be usable
	m.hit()
	m.setSize(3)
}

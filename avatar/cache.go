package avatar

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the lifetime of a cache entry if none is configured
const DefaultTTL = time.Hour

type entry struct {
	value   Avatar
	expires time.Time
}

// Options configures a Cache
type Options struct {
	// TTL is the lifetime of entries written by Resolve
	TTL time.Duration
	// Fetcher is called on a cache miss
	Fetcher Fetcher
	// Shared is an optional second tier consulted before the Fetcher
	Shared SharedTier
	// Now returns the current time; defaults to time.Now
	Now func() time.Time
	// Metrics receives cache statistics, may be nil
	Metrics *Metrics
}

// Cache is a time-expiring map from lower-cased usernames to avatars.
// All map accesses are guarded by a single mutex that is never held during a
// fetch.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry

	ttl     time.Duration
	fetcher Fetcher
	shared  SharedTier
	now     func() time.Time
	metrics *Metrics
	flight  singleflight.Group
}

// NewCache creates a new Cache
func NewCache(opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Fetcher == nil {
		opts.Fetcher = FetcherFunc(
			func(context.Context, string) Avatar {
				return Absent
			},
		)
	}
	return &Cache{
		entries: make(map[string]entry),
		ttl:     opts.TTL,
		fetcher: opts.Fetcher,
		shared:  opts.Shared,
		now:     opts.Now,
		metrics: opts.Metrics,
	}
}

// TTL returns the lifetime of entries written by Resolve
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached avatar for username. ok is false on a miss or if the
// entry expired; a cached Absent value is a hit.
func (c *Cache) Get(username string) (Avatar, bool) {
	k := key(username)
	now := c.now()
	c.mu.Lock()
	e, ok := c.entries[k]
	c.mu.Unlock()
	if !ok || !now.Before(e.expires) {
		return Absent, false
	}
	return e.value, true
}

// Put stores value for username with an expiry of now+ttl, replacing any
// previous entry.
func (c *Cache) Put(username string, value Avatar, ttl time.Duration) {
	k := key(username)
	expires := c.now().Add(ttl)
	c.mu.Lock()
	c.entries[k] = entry{
		value:   value,
		expires: expires,
	}
	size := len(c.entries)
	c.mu.Unlock()
	c.metrics.setSize(size)
}

// Sweep removes all expired entries and returns the number of removed
// entries
func (c *Cache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			removed++
		}
	}
	size := len(c.entries)
	c.mu.Unlock()
	c.metrics.swept(removed)
	c.metrics.setSize(size)
	return removed
}

// Len returns the number of entries, including expired ones not yet swept
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Resolve returns the avatar for username. On a miss the shared tier and then
// the Fetcher are consulted and the outcome, including Absent, is cached.
func (c *Cache) Resolve(ctx context.Context, username string) Avatar {
	k := key(username)
	if k == "" {
		return Absent
	}
	if v, ok := c.Get(k); ok {
		c.metrics.hit()
		return v
	}
	c.metrics.miss()

	v, _, _ := c.flight.Do(
		k, func() (any, error) {
			if c.shared != nil {
				if v, remaining, ok := c.shared.Load(ctx, k); ok {
					ttl := c.ttl
					if remaining > 0 && remaining < ttl {
						ttl = remaining
					}
					c.Put(k, v, ttl)
					return v, nil
				}
			}
			v := c.fetcher.Fetch(ctx, username)
			c.metrics.fetched(v.Found())
			if !v.Found() {
				log.WithField("username", username).Debug("no avatar found, caching absent value")
			}
			c.Put(k, v, c.ttl)
			if c.shared != nil {
				c.shared.Store(ctx, k, v, c.ttl)
			}
			return v, nil
		},
	)
	return v.(Avatar)
}

// Warm resolves username in the background so that the next render hits the
// cache
func (c *Cache) Warm(username string) {
	go func() {
		c.Resolve(context.Background(), username)
	}()
}

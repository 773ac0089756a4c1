package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrOffline is returned for a fetch that has no cached value while the
// network mode is offline. Operations fail fast rather than queueing.
var ErrOffline = errors.New("querycache: offline and no cached value")

// now is a small indirection to allow test stubbing.
var now = time.Now

// Entry is one cached result keyed by fingerprint.
type Entry struct {
	Value      json.RawMessage `json:"value"`
	FetchedAt  time.Time       `json:"fetchedAt"`
	LastUsedAt time.Time       `json:"lastUsedAt"`
}

// FetchFunc performs the underlying network fetch for a fingerprint.
type FetchFunc func(ctx context.Context) (json.RawMessage, error)

// Options controls construction of a Cache.
type Options struct {
	// FreshFor is how long a fetched result is served without a network call.
	FreshFor time.Duration

	// EvictAfter is how long an unused entry survives regardless of freshness.
	EvictAfter time.Duration
}

// Cache is the process-wide query cache. A fetched result is fresh for
// FreshFor; within that window repeated fetches of the same fingerprint hit
// memory. Per-fingerprint fetches are deduplicated so concurrent requesters
// share one in-flight call. Entries unused for EvictAfter are swept by the
// janitor. All mutation goes through the cache's own lock.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	subs     map[string]int
	fetchers map[string]FetchFunc

	group singleflight.Group

	freshFor   time.Duration
	evictAfter time.Duration

	online      bool
	janitorQuit chan struct{}
}

// New constructs a Cache. The cache starts online; the connectivity monitor
// owns the flag afterwards.
func New(opts Options) *Cache {
	if opts.FreshFor <= 0 {
		opts.FreshFor = 5 * time.Minute
	}
	if opts.EvictAfter <= 0 {
		opts.EvictAfter = 10 * time.Minute
	}
	return &Cache{
		entries:    make(map[string]*Entry),
		subs:       make(map[string]int),
		fetchers:   make(map[string]FetchFunc),
		freshFor:   opts.FreshFor,
		evictAfter: opts.EvictAfter,
		online:     true,
	}
}

// SetOnline flips the network mode.
func (c *Cache) SetOnline(online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.online = online
}

// Online reports the current network mode.
func (c *Cache) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Fetch returns the cached value for the fingerprint when it is still fresh.
// Otherwise it runs fetch (deduplicated per fingerprint) and stores the
// result. Offline, any cached value is served regardless of freshness; with
// no cached value the call fails fast with ErrOffline.
func (c *Cache) Fetch(ctx context.Context, fingerprint string, fetch FetchFunc) (json.RawMessage, error) {
	if v, ok := c.freshValue(fingerprint); ok {
		return v, nil
	}
	c.mu.Lock()
	if !c.online {
		if e := c.entries[fingerprint]; e != nil {
			e.LastUsedAt = now()
			v := e.Value
			c.mu.Unlock()
			return v, nil
		}
		c.mu.Unlock()
		return nil, ErrOffline
	}
	// Remember the fetcher so refresh triggers can revalidate later.
	c.fetchers[fingerprint] = fetch
	c.mu.Unlock()

	return c.flight(ctx, fingerprint, fetch)
}

// freshValue returns the cached value while it is inside the freshness
// window, marking it used.
func (c *Cache) freshValue(fingerprint string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[fingerprint]
	if e == nil {
		return nil, false
	}
	ts := now()
	if ts.Sub(e.FetchedAt) >= c.freshFor {
		return nil, false
	}
	e.LastUsedAt = ts
	return e.Value, true
}

// flight runs the deduplicated fetch for a fingerprint. A subscription
// refresh may have stored a fresh entry after the caller decided to fetch;
// it is served instead of fetching the same data twice.
func (c *Cache) flight(ctx context.Context, fingerprint string, fetch FetchFunc) (json.RawMessage, error) {
	v, err, _ := c.group.Do(fingerprint, func() (any, error) {
		if value, ok := c.freshValue(fingerprint); ok {
			return value, nil
		}
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(fingerprint, value)
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

func (c *Cache) store(fingerprint string, value json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := now()
	c.entries[fingerprint] = &Entry{Value: value, FetchedAt: ts, LastUsedAt: ts}
}

// Invalidate drops a single fingerprint.
func (c *Cache) Invalidate(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, fingerprint)
}

// InvalidateOp drops every entry belonging to an operation. Mutations call
// this so the next read refetches.
func (c *Cache) InvalidateOp(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for fp := range c.entries {
		if matchesOp(fp, op) {
			delete(c.entries, fp)
		}
	}
}

// Subscribe registers interest in a fingerprint (component mount). A stale
// or missing entry triggers a background refresh. The fetcher is retained
// for later refresh triggers.
func (c *Cache) Subscribe(fingerprint string, fetch FetchFunc) {
	c.mu.Lock()
	c.subs[fingerprint]++
	c.fetchers[fingerprint] = fetch
	e := c.entries[fingerprint]
	stale := e == nil || now().Sub(e.FetchedAt) >= c.freshFor
	online := c.online
	c.mu.Unlock()

	if stale && online {
		go c.refresh(fingerprint, fetch)
	}
}

// Unsubscribe drops one subscription (component unmount). A shared in-flight
// fetch keeps running for the remaining subscribers; singleflight hands the
// result to everyone who joined it.
func (c *Cache) Unsubscribe(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs[fingerprint] <= 1 {
		delete(c.subs, fingerprint)
		delete(c.fetchers, fingerprint)
		return
	}
	c.subs[fingerprint]--
}

// RefreshStale revalidates every subscribed fingerprint whose entry is stale
// or missing. Called on window refocus and network reconnect.
func (c *Cache) RefreshStale(reason string) {
	c.mu.Lock()
	if !c.online {
		c.mu.Unlock()
		return
	}
	type job struct {
		fp    string
		fetch FetchFunc
	}
	var jobs []job
	ts := now()
	for fp := range c.subs {
		fetch := c.fetchers[fp]
		if fetch == nil {
			continue
		}
		e := c.entries[fp]
		if e == nil || ts.Sub(e.FetchedAt) >= c.freshFor {
			jobs = append(jobs, job{fp: fp, fetch: fetch})
		}
	}
	c.mu.Unlock()

	if len(jobs) > 0 {
		log.Printf("querycache: refreshing %d stale entries (%s)", len(jobs), reason)
	}
	for _, j := range jobs {
		go c.refresh(j.fp, j.fetch)
	}
}

func (c *Cache) refresh(fingerprint string, fetch FetchFunc) {
	if _, err := c.flight(context.Background(), fingerprint, fetch); err != nil {
		// Background refreshes are best effort; the stale value stays served.
		log.Printf("querycache: background refresh of %s failed: %v", fingerprint, err)
	}
}

// StartJanitor begins the eviction sweep. Entries unused for EvictAfter are
// removed regardless of freshness.
func (c *Cache) StartJanitor(interval time.Duration) {
	c.mu.Lock()
	if c.janitorQuit != nil {
		c.mu.Unlock()
		return
	}
	quit := make(chan struct{})
	c.janitorQuit = quit
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				c.EvictUnused()
			}
		}
	}()
}

// StopJanitor stops the eviction sweep.
func (c *Cache) StopJanitor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.janitorQuit != nil {
		close(c.janitorQuit)
		c.janitorQuit = nil
	}
}

// EvictUnused removes entries idle past the eviction age. Exposed for the
// janitor and for tests.
func (c *Cache) EvictUnused() {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := now()
	for fp, e := range c.entries {
		if ts.Sub(e.LastUsedAt) >= c.evictAfter {
			delete(c.entries, fp)
		}
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Export copies out every entry for snapshot persistence. The copy is not
// atomic with respect to later mutation; a snapshot may capture a state that
// changes immediately after.
func (c *Cache) Export() map[string]Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Entry, len(c.entries))
	for fp, e := range c.entries {
		out[fp] = *e
	}
	return out
}

// Import seeds the cache from a restored snapshot. Existing entries win over
// snapshot entries with the same fingerprint.
func (c *Cache) Import(entries map[string]Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for fp, e := range entries {
		if _, ok := c.entries[fp]; ok {
			continue
		}
		restored := e
		c.entries[fp] = &restored
	}
}

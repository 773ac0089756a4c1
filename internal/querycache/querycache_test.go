package querycache

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func freezeTime(t *testing.T) *time.Time {
	t.Helper()
	base := time.Now()
	now = func() time.Time { return base }
	t.Cleanup(func() { now = time.Now })
	return &base
}

func countingFetch(calls *int32, value string) FetchFunc {
	return func(ctx context.Context) (json.RawMessage, error) {
		atomic.AddInt32(calls, 1)
		return json.RawMessage(value), nil
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint("courses.get", map[string]string{"id": "c-1", "lang": "en"})
	b := Fingerprint("courses.get", map[string]string{"lang": "en", "id": "c-1"})
	require.Equal(t, a, b)
	require.NotEqual(t, a, Fingerprint("courses.get", map[string]string{"id": "c-2", "lang": "en"}))
	require.Equal(t, "courses.list", Fingerprint("courses.list", nil))
}

func TestFetch_FreshWindowHitsCache(t *testing.T) {
	base := freezeTime(t)
	c := New(Options{FreshFor: 5 * time.Minute, EvictAfter: 10 * time.Minute})

	var calls int32
	fetch := countingFetch(&calls, `"v1"`)

	v, err := c.Fetch(context.Background(), "op:1", fetch)
	require.NoError(t, err)
	require.Equal(t, json.RawMessage(`"v1"`), v)

	// Second read within the freshness window: no network call
	*base = base.Add(4 * time.Minute)
	v, err = c.Fetch(context.Background(), "op:1", fetch)
	require.NoError(t, err)
	require.Equal(t, json.RawMessage(`"v1"`), v)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// Past the window: refetch
	*base = base.Add(2 * time.Minute)
	_, err = c.Fetch(context.Background(), "op:1", fetch)
	require.NoError(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetch_OfflineBehavior(t *testing.T) {
	base := freezeTime(t)
	c := New(Options{FreshFor: 5 * time.Minute, EvictAfter: time.Hour})

	var calls int32
	fetch := countingFetch(&calls, `"v1"`)

	_, err := c.Fetch(context.Background(), "op:1", fetch)
	require.NoError(t, err)

	c.SetOnline(false)

	// A stale cached read is still servable offline
	*base = base.Add(10 * time.Minute)
	v, err := c.Fetch(context.Background(), "op:1", fetch)
	require.NoError(t, err)
	require.Equal(t, json.RawMessage(`"v1"`), v)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// An uncached read fails fast
	_, err = c.Fetch(context.Background(), "op:2", fetch)
	require.ErrorIs(t, err, ErrOffline)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetch_ConcurrentRequestersShareOneFlight(t *testing.T) {
	c := New(Options{})

	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (json.RawMessage, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return json.RawMessage(`"shared"`), nil
	}

	var wg sync.WaitGroup
	results := make([]json.RawMessage, 4)
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Fetch(context.Background(), "op:1", fetch)
		}(i)
	}
	// Let the goroutines pile onto the single flight, then release it
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for i := range results {
		require.NoError(t, errs[i])
		require.Equal(t, json.RawMessage(`"shared"`), results[i])
	}
}

func TestFlight_ServesEntryStoredAfterStalenessCheck(t *testing.T) {
	freezeTime(t)
	c := New(Options{FreshFor: 5 * time.Minute})

	var calls int32
	fetch := countingFetch(&calls, `"network"`)

	// A subscription refresh landed after the caller found the entry stale
	// but before its own flight started; the flight serves the fresh entry
	// instead of issuing a second upstream call.
	c.store("courses.list", json.RawMessage(`"refreshed"`))

	v, err := c.flight(context.Background(), "courses.list", fetch)
	require.NoError(t, err)
	require.Equal(t, json.RawMessage(`"refreshed"`), v)
	require.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestEvictUnused(t *testing.T) {
	base := freezeTime(t)
	c := New(Options{FreshFor: 5 * time.Minute, EvictAfter: 10 * time.Minute})

	var calls int32
	_, err := c.Fetch(context.Background(), "op:1", countingFetch(&calls, `"v1"`))
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	// Unused past the eviction age: gone regardless of freshness
	*base = base.Add(10 * time.Minute)
	c.EvictUnused()
	require.Equal(t, 0, c.Len())
}

func TestInvalidateOp(t *testing.T) {
	c := New(Options{})

	var calls int32
	fetch := countingFetch(&calls, `"v"`)
	_, err := c.Fetch(context.Background(), Fingerprint("courses.list", nil), fetch)
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), Fingerprint("courses.get", "c-1"), fetch)
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), Fingerprint("units.list", "c-1"), fetch)
	require.NoError(t, err)

	c.InvalidateOp("courses.list")
	c.InvalidateOp("courses.get")
	require.Equal(t, 1, c.Len())

	// Invalidated reads refetch
	_, err = c.Fetch(context.Background(), Fingerprint("courses.get", "c-1"), fetch)
	require.NoError(t, err)
	require.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestSubscribe_MountRefreshesStaleEntry(t *testing.T) {
	c := New(Options{FreshFor: 5 * time.Minute})

	var calls int32
	done := make(chan struct{})
	fetch := func(ctx context.Context) (json.RawMessage, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			defer close(done)
		}
		return json.RawMessage(`"v"`), nil
	}

	// No entry yet: subscribing triggers a background fetch
	c.Subscribe("op:1", fetch)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected background refresh on subscribe")
	}
	require.Eventually(t, func() bool { return c.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	c.Unsubscribe("op:1")
}

func TestRefreshStale_RevalidatesSubscribedEntries(t *testing.T) {
	c := New(Options{FreshFor: 50 * time.Millisecond})

	var calls int32
	fetch := countingFetch(&calls, `"v"`)

	_, err := c.Fetch(context.Background(), "op:1", fetch)
	require.NoError(t, err)
	c.Subscribe("op:1", fetch)
	// Subscribe fired no refresh while fresh; wait out the window
	require.Eventually(t, func() bool {
		before := atomic.LoadInt32(&calls)
		c.RefreshStale("focus")
		return atomic.LoadInt32(&calls) > before || atomic.LoadInt32(&calls) > 1
	}, 2*time.Second, 60*time.Millisecond)
}

func TestExportImport(t *testing.T) {
	c := New(Options{})

	var calls int32
	_, err := c.Fetch(context.Background(), "op:1", countingFetch(&calls, `"v1"`))
	require.NoError(t, err)

	exported := c.Export()
	require.Len(t, exported, 1)

	restored := New(Options{})
	restored.Import(exported)
	require.Equal(t, 1, restored.Len())

	// Restored entries serve without a network call while fresh
	v, err := restored.Fetch(context.Background(), "op:1", countingFetch(&calls, `"v2"`))
	require.NoError(t, err)
	require.Equal(t, json.RawMessage(`"v1"`), v)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

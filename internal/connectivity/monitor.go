package connectivity

import (
	"context"
	"log"
	"sync"
	"time"

	"lms-companion-api/internal/querycache"
	"lms-companion-api/internal/realtime"
)

// Pinger checks upstream reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor owns the network mode. It pings the upstream on an interval,
// flips the cache's online flag on transitions, broadcasts net events to
// the front-end, and triggers a stale refresh when connectivity returns.
type Monitor struct {
	pinger   Pinger
	cache    *querycache.Cache
	hub      *realtime.Hub
	interval time.Duration

	// forcedOffline pins the mode regardless of reachability.
	forcedOffline bool

	mu     sync.Mutex
	online bool
	quit   chan struct{}
}

// NewMonitor builds a monitor and applies the initial mode to the cache.
func NewMonitor(pinger Pinger, cache *querycache.Cache, hub *realtime.Hub, interval time.Duration, forcedOffline bool) *Monitor {
	m := &Monitor{
		pinger:        pinger,
		cache:         cache,
		hub:           hub,
		interval:      interval,
		forcedOffline: forcedOffline,
		online:        !forcedOffline,
	}
	cache.SetOnline(m.online)
	return m
}

// Start begins the ping loop. Forced-offline mode never pings.
func (m *Monitor) Start() {
	if m.forcedOffline {
		log.Println("connectivity: offline mode forced, monitor idle")
		return
	}
	m.mu.Lock()
	if m.quit != nil {
		m.mu.Unlock()
		return
	}
	quit := make(chan struct{})
	m.quit = quit
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				m.check()
			}
		}
	}()
}

// Stop halts the ping loop.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
}

// Online reports the current mode.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *Monitor) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.setOnline(m.pinger.Ping(ctx) == nil)
}

// setOnline applies a transition. Exposed through check and tests only.
func (m *Monitor) setOnline(online bool) {
	m.mu.Lock()
	changed := online != m.online
	m.online = online
	m.mu.Unlock()
	if !changed {
		return
	}

	m.cache.SetOnline(online)
	if online {
		log.Println("connectivity: upstream reachable, back online")
		m.hub.Broadcast(realtime.Event{Type: realtime.EventNetOnline})
		m.cache.RefreshStale("reconnect")
	} else {
		log.Println("connectivity: upstream unreachable, going offline")
		m.hub.Broadcast(realtime.Event{Type: realtime.EventNetOffline})
	}
}

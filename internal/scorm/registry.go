package scorm

import (
	"errors"
	"sync"
)

var (
	// ErrBridgeInstalled is returned when attaching while a bridge is live.
	ErrBridgeInstalled = errors.New("scorm: a bridge is already installed")

	// ErrNoBridge is returned for runtime calls with no bridge attached.
	ErrNoBridge = errors.New("scorm: no bridge installed")
)

// Registry holds at most one installed bridge. The legacy protocol assumes
// a single global runtime, so installing requires the previous bridge to be
// uninstalled first.
type Registry struct {
	mu     sync.Mutex
	bridge *Bridge
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Install attaches a bridge. It fails when one is already installed.
func (r *Registry) Install(b *Bridge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bridge != nil {
		return ErrBridgeInstalled
	}
	r.bridge = b
	return nil
}

// Uninstall detaches the current bridge, if any, and returns it.
func (r *Registry) Uninstall() *Bridge {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.bridge
	r.bridge = nil
	return b
}

// Current returns the installed bridge.
func (r *Registry) Current() (*Bridge, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bridge == nil {
		return nil, false
	}
	return r.bridge, true
}

// Package regions binds region-claim capabilities at startup. Providers are
// probed once; a missing provider is replaced by a no-op so callers never
// branch on presence.
package regions

import (
	"log"
	"sync"

	"voxelrtp.ai/internal/world"
)

// Provider answers whether a coordinate is free of claims that forbid
// teleporting there.
type Provider interface {
	Name() string
	IsLocationSafe(c world.Coordinate) bool
}

// Probe reports a provider when its backing plugin/service is present.
type Probe func() (Provider, bool)

type Registry struct {
	mu        sync.RWMutex
	providers []Provider
	log       *log.Logger
}

func NewRegistry(logger *log.Logger) *Registry {
	return &Registry{log: logger}
}

// Bind runs the probe once. A found provider is appended in bind order;
// otherwise a no-op named after the capability is recorded.
func (r *Registry) Bind(name string, probe Probe) {
	p, ok := probe()
	r.mu.Lock()
	defer r.mu.Unlock()
	if !ok || p == nil {
		if r.log != nil {
			r.log.Printf("region hook %s not present; using no-op", name)
		}
		r.providers = append(r.providers, Noop{Label: name})
		return
	}
	if r.log != nil {
		r.log.Printf("region hook %s bound", p.Name())
	}
	r.providers = append(r.providers, p)
}

func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// IsLocationSafe is the AND of every bound provider.
func (r *Registry) IsLocationSafe(c world.Coordinate) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		if !p.IsLocationSafe(c) {
			return false
		}
	}
	return true
}

type Noop struct{ Label string }

func (n Noop) Name() string                       { return n.Label }
func (Noop) IsLocationSafe(world.Coordinate) bool { return true }

package world

import (
	"fmt"
	"sort"
	"sync"
)

// Handle is everything the search needs to know about one world.
type Handle struct {
	Profile Profile
	Border  Border
}

type Registry struct {
	mu     sync.RWMutex
	worlds map[string]Handle
}

func NewRegistry() *Registry {
	return &Registry{worlds: map[string]Handle{}}
}

func (r *Registry) Put(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.worlds[h.Profile.Name] = h
}

func (r *Registry) Get(name string) (Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.worlds[name]
	if !ok {
		return Handle{}, fmt.Errorf("%w: %s", ErrUnknownWorld, name)
	}
	return h, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.worlds))
	for n := range r.worlds {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

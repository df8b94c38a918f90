package voxel

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"voxelrtp.ai/internal/world"
)

// Host dispatches world capabilities to the world that owns a coordinate.
type Host struct {
	mu     sync.RWMutex
	worlds map[string]*World
}

func NewHost(worlds ...*World) *Host {
	h := &Host{worlds: map[string]*World{}}
	for _, w := range worlds {
		h.worlds[w.Name()] = w
	}
	return h
}

func (h *Host) World(name string) (*World, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	w := h.worlds[name]
	if w == nil {
		return nil, fmt.Errorf("%w: %s", world.ErrUnknownWorld, name)
	}
	return w, nil
}

func (h *Host) Worlds() []*World {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*World, 0, len(h.worlds))
	for _, w := range h.worlds {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Start runs every world loop until ctx is done.
func (h *Host) Start(ctx context.Context) {
	for _, w := range h.Worlds() {
		go func(w *World) { _ = w.Run(ctx) }(w)
	}
}

func (h *Host) EnsureChunk(ctx context.Context, name string, cx, cz int, generate bool) (world.Chunk, error) {
	w, err := h.World(name)
	if err != nil {
		return nil, err
	}
	return w.EnsureChunk(ctx, cx, cz, generate)
}

func (h *Host) Run(ctx context.Context, at world.Coordinate, fn func()) error {
	w, err := h.World(at.World)
	if err != nil {
		return err
	}
	return w.Do(ctx, fn)
}

// Relocate moves the player into the target world and out of any other.
func (h *Host) Relocate(ctx context.Context, identity string, to world.Coordinate) (bool, error) {
	dst, err := h.World(to.World)
	if err != nil {
		return false, err
	}
	ok, err := dst.Relocate(ctx, identity, to)
	if err != nil || !ok {
		return ok, err
	}
	for _, w := range h.Worlds() {
		if w == dst {
			continue
		}
		if err := w.removePlayer(ctx, identity); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Locate finds the player in any hosted world.
func (h *Host) Locate(ctx context.Context, identity string) (world.Coordinate, bool, error) {
	for _, w := range h.Worlds() {
		pos, ok, err := w.Position(ctx, identity)
		if err != nil {
			return world.Coordinate{}, false, err
		}
		if ok {
			return pos, true, nil
		}
	}
	return world.Coordinate{}, false, nil
}

// Package voxel is a self-contained world runtime: deterministic terrain per
// world type, a chunk store with a generate/no-generate policy, and one loop
// goroutine per world that owns all geometry and player positions.
package voxel

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"voxelrtp.ai/internal/world"
)

var ErrStopped = errors.New("world loop stopped")

type Config struct {
	Name            string
	Type            world.Type
	Seed            int64
	Border          world.Border
	MinY            int
	MaxY            int
	BiomeRegionSize int
	// PregenRadius is the half-width, in chunks, of the square around the
	// border center that loads without generation.
	PregenRadius int
}

func (c *Config) normalize() {
	if c.Type == "" {
		c.Type = world.TypeNormal
	}
	if c.MaxY <= c.MinY {
		switch c.Type {
		case world.TypeNether:
			c.MinY, c.MaxY = 0, 128
		default:
			c.MinY, c.MaxY = 0, 256
		}
	}
	if c.BiomeRegionSize <= 0 {
		c.BiomeRegionSize = 64
	}
	if c.Border.Size <= 0 {
		c.Border.Size = 60000
	}
}

type task struct {
	fn   func()
	done chan struct{}
}

type World struct {
	cfg   Config
	store *chunkStore

	players map[string]world.Coordinate

	tasks   chan task
	stop    chan struct{}
	running atomic.Bool

	loadedChunks atomic.Int64
}

func New(cfg Config) *World {
	cfg.normalize()
	return &World{
		cfg:     cfg,
		store:   newChunkStore(cfg),
		players: map[string]world.Coordinate{},
		tasks:   make(chan task, 1024),
		stop:    make(chan struct{}),
	}
}

func (w *World) Name() string         { return w.cfg.Name }
func (w *World) Type() world.Type     { return w.cfg.Type }
func (w *World) Border() world.Border { return w.cfg.Border }
func (w *World) LoadedChunks() int    { return int(w.loadedChunks.Load()) }

// Run executes submitted tasks one at a time until ctx is done or Stop is called.
func (w *World) Run(ctx context.Context) error {
	w.running.Store(true)
	defer w.running.Store(false)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case t := <-w.tasks:
			t.fn()
			close(t.done)
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// Do runs fn on the world loop and waits for it to finish.
func (w *World) Do(ctx context.Context, fn func()) error {
	t := task{fn: fn, done: make(chan struct{})}
	select {
	case w.tasks <- t:
	case <-w.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-t.done:
		return nil
	case <-w.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *World) EnsureChunk(ctx context.Context, cx, cz int, generate bool) (world.Chunk, error) {
	var ch *chunk
	err := w.Do(ctx, func() {
		before := len(w.store.chunks)
		ch = w.store.load(cx, cz, generate)
		if len(w.store.chunks) != before {
			w.loadedChunks.Store(int64(len(w.store.chunks)))
		}
	})
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, nil
	}
	return ch, nil
}

// SetBlock overrides terrain; used for fixtures and admin edits.
func (w *World) SetBlock(ctx context.Context, x, y, z int, b world.Block) error {
	return w.Do(ctx, func() { w.store.setBlock(x, y, z, b) })
}

func (w *World) Relocate(ctx context.Context, identity string, to world.Coordinate) (bool, error) {
	if to.World != w.cfg.Name {
		return false, fmt.Errorf("relocate %s: coordinate belongs to %q", w.cfg.Name, to.World)
	}
	if !w.cfg.Border.Contains(to.X, to.Z) {
		return false, nil
	}
	err := w.Do(ctx, func() { w.players[identity] = to })
	return err == nil, err
}

func (w *World) removePlayer(ctx context.Context, identity string) error {
	return w.Do(ctx, func() { delete(w.players, identity) })
}

// Position returns the player's last relocated position in this world.
func (w *World) Position(ctx context.Context, identity string) (world.Coordinate, bool, error) {
	var (
		pos world.Coordinate
		ok  bool
	)
	err := w.Do(ctx, func() { pos, ok = w.players[identity] })
	return pos, ok, err
}

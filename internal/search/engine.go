// Package search finds safe random teleport destinations. A search is a
// bounded loop of annulus samples; each sample waits for its chunk, scans
// the column on the world's owning context, and asks the validator.
package search

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"sync/atomic"
	"time"

	"voxelrtp.ai/internal/mathx"
	"voxelrtp.ai/internal/safety"
	"voxelrtp.ai/internal/world"
)

// WorldAccess is the slice of the world host the engine needs.
type WorldAccess interface {
	world.ChunkProvider
	world.Executor
}

type Request struct {
	World     string
	MinRadius *int
	MaxRadius *int
	// Attempts <= 0 uses the engine default.
	Attempts int
	// Generate nil follows the world profile.
	Generate *bool
	// Requester is empty for cache pre-warm searches.
	Requester string
}

// Exhausted describes a search that ran out of attempts.
type Exhausted struct {
	World     string
	Requester string
	Attempts  int
	MinRadius int
	MaxRadius int
	Summary   *safety.Summary
	At        time.Time
}

// Sink receives exhausted-search diagnostics.
type Sink interface {
	SearchExhausted(e Exhausted)
}

type Options struct {
	Attempts  int
	MinRadius int
	MaxRadius int
	Seed      uint64
	Logger    *log.Logger
	Sink      Sink
}

type Stats struct {
	Searches    int64
	Found       int64
	Exhausted   int64
	Attempts    int64
	ChunkMisses int64
}

type Engine struct {
	worlds    *world.Registry
	host      WorldAccess
	validator *safety.Validator
	opts      Options
	log       *log.Logger
	rng       *sampler

	searches    atomic.Int64
	found       atomic.Int64
	exhausted   atomic.Int64
	attempts    atomic.Int64
	chunkMisses atomic.Int64
}

func NewEngine(worlds *world.Registry, host WorldAccess, validator *safety.Validator, opts Options) *Engine {
	if opts.Attempts <= 0 {
		opts.Attempts = 32
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stdout, "[search] ", log.LstdFlags|log.Lmicroseconds)
	}
	if opts.Seed == 0 {
		opts.Seed = uint64(time.Now().UnixNano())
	}
	return &Engine{
		worlds:    worlds,
		host:      host,
		validator: validator,
		opts:      opts,
		log:       opts.Logger,
		rng:       newSampler(opts.Seed),
	}
}

func (e *Engine) Stats() Stats {
	return Stats{
		Searches:    e.searches.Load(),
		Found:       e.found.Load(),
		Exhausted:   e.exhausted.Load(),
		Attempts:    e.attempts.Load(),
		ChunkMisses: e.chunkMisses.Load(),
	}
}

// Radii resolves the effective bounds for a request against world h:
// request, then profile, then engine defaults; max is clamped to half the
// border, the pair is swapped when inverted and neither bound goes below 0.
func (e *Engine) Radii(h world.Handle, reqMin, reqMax *int) (int, int) {
	minR, maxR := e.opts.MinRadius, e.opts.MaxRadius
	if h.Profile.MinRadius > 0 {
		minR = h.Profile.MinRadius
	}
	if h.Profile.MaxRadius > 0 {
		maxR = h.Profile.MaxRadius
	}
	if reqMin != nil {
		minR = *reqMin
	}
	if reqMax != nil {
		maxR = *reqMax
	}
	if half := int(h.Border.Half()); maxR > half {
		maxR = half
	}
	if minR > maxR {
		minR, maxR = maxR, minR
	}
	return max(minR, 0), max(maxR, 0)
}

func center(h world.Handle) (float64, float64) {
	if c := h.Profile.Center; c != nil {
		return float64(c.X), float64(c.Z)
	}
	return h.Border.CenterX, h.Border.CenterZ
}

// FindSafeLocation runs up to req.Attempts samples and returns the first
// standing position that passes validation. ok is false when every attempt
// failed; err is set only for cancellation or an unknown world.
func (e *Engine) FindSafeLocation(ctx context.Context, req Request) (world.Coordinate, bool, error) {
	h, err := e.worlds.Get(req.World)
	if err != nil {
		return world.Coordinate{}, false, err
	}
	e.searches.Add(1)

	attempts := req.Attempts
	if attempts <= 0 {
		attempts = e.opts.Attempts
	}
	generate := h.Profile.GenerateChunks
	if req.Generate != nil {
		generate = *req.Generate
	}
	minR, maxR := e.Radii(h, req.MinRadius, req.MaxRadius)
	cx, cz := center(h)
	summary := safety.NewSummary()

	for remaining := attempts; remaining > 0; remaining-- {
		if err := ctx.Err(); err != nil {
			return world.Coordinate{}, false, err
		}
		e.attempts.Add(1)
		theta, r := e.rng.polar(minR, maxR)
		x, z := point(cx, cz, theta, r, h.Border)

		pos, ok, reason, err := e.attempt(ctx, h, x, z, generate)
		if err != nil {
			return world.Coordinate{}, false, err
		}
		if ok {
			e.found.Add(1)
			return pos, true, nil
		}
		if reason == 0 {
			e.chunkMisses.Add(1)
			summary.RecordChunkMiss()
			continue
		}
		summary.Record(reason)
	}

	e.exhausted.Add(1)
	who := req.Requester
	if who == "" {
		who = "<prewarm>"
	}
	e.log.Printf("no safe location: world=%s requester=%s attempts=%d radius=[%d,%d] failures: %s",
		h.Profile.Name, who, attempts, minR, maxR, summary)
	if e.opts.Sink != nil {
		e.opts.Sink.SearchExhausted(Exhausted{
			World:     h.Profile.Name,
			Requester: req.Requester,
			Attempts:  attempts,
			MinRadius: minR,
			MaxRadius: maxR,
			Summary:   summary,
			At:        time.Now().UTC(),
		})
	}
	return world.Coordinate{}, false, nil
}

// attempt evaluates one column. A zero reason with ok false means the chunk
// was unavailable.
func (e *Engine) attempt(ctx context.Context, h world.Handle, x, z int, generate bool) (world.Coordinate, bool, safety.FailureReason, error) {
	at := world.Coordinate{World: h.Profile.Name, X: x, Z: z}
	ch, err := e.host.EnsureChunk(ctx, h.Profile.Name, at.ChunkX(), at.ChunkZ(), generate)
	if err != nil {
		if ctx.Err() != nil {
			return world.Coordinate{}, false, 0, ctx.Err()
		}
		e.log.Printf("chunk %d,%d in %s: %v", at.ChunkX(), at.ChunkZ(), h.Profile.Name, err)
		return world.Coordinate{}, false, 0, nil
	}
	if ch == nil {
		return world.Coordinate{}, false, 0, nil
	}

	var (
		ok     bool
		reason safety.FailureReason
		floor  world.Coordinate
	)
	err = e.host.Run(ctx, at, func() {
		y, found := scanColumn(ch, h.Profile.Type, x, z)
		if !found {
			reason = safety.Unknown
			return
		}
		floor = world.Coordinate{World: h.Profile.Name, X: x, Y: y, Z: z}
		ok, reason = e.validator.Evaluate(ch, h.Profile.Type, floor)
	})
	if err != nil {
		return world.Coordinate{}, false, 0, fmt.Errorf("read %s: %w", at, err)
	}
	if !ok {
		return world.Coordinate{}, false, reason, nil
	}
	return floor.Add(0, 1, 0), true, 0, nil
}

// ResolveGround finds a validated standing position in the column at x,z.
func (e *Engine) ResolveGround(ctx context.Context, worldName string, x, z int) (world.Coordinate, bool, error) {
	h, err := e.worlds.Get(worldName)
	if err != nil {
		return world.Coordinate{}, false, err
	}
	if !h.Border.Contains(x, z) {
		return world.Coordinate{}, false, nil
	}
	pos, ok, _, err := e.attempt(ctx, h, x, z, h.Profile.GenerateChunks)
	return pos, ok, err
}

// Revalidate re-checks a previously found standing position.
func (e *Engine) Revalidate(ctx context.Context, pos world.Coordinate) (bool, error) {
	h, err := e.worlds.Get(pos.World)
	if err != nil {
		return false, err
	}
	ch, err := e.host.EnsureChunk(ctx, pos.World, pos.ChunkX(), pos.ChunkZ(), false)
	if err != nil || ch == nil {
		return false, err
	}
	var ok bool
	err = e.host.Run(ctx, pos, func() {
		ok, _ = e.validator.Evaluate(ch, h.Profile.Type, pos.Add(0, -1, 0))
	})
	return ok, err
}

// Spread picks a point around (x,z) whose distance is area-uniform on
// [minR, maxR]. The point is not clamped or validated.
func (e *Engine) Spread(x, z int, minR, maxR float64) (int, int) {
	if minR > maxR {
		minR, maxR = maxR, minR
	}
	theta, r := e.rng.areaUniform(minR, maxR)
	return mathx.RoundInt(float64(x) + r*math.Cos(theta)), mathx.RoundInt(float64(z) + r*math.Sin(theta))
}

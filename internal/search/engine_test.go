package search

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"sync"
	"testing"

	"voxelrtp.ai/internal/safety"
	"voxelrtp.ai/internal/world"
)

type columnFunc func(x, y, z int) world.Block

type fakeChunk struct {
	cx, cz     int
	minY, maxY int
	col        columnFunc
}

func (c *fakeChunk) X() int    { return c.cx }
func (c *fakeChunk) Z() int    { return c.cz }
func (c *fakeChunk) MinY() int { return c.minY }
func (c *fakeChunk) MaxY() int { return c.maxY }

func (c *fakeChunk) Block(x, y, z int) world.Block {
	if y < c.minY || y >= c.maxY {
		return world.VoidAir
	}
	return c.col(x, y, z)
}

func (c *fakeChunk) Biome(x, y, z int) world.Biome { return world.Plains }

func (c *fakeChunk) HighestBlockY(x, z int) int {
	for y := c.maxY - 1; y >= c.minY; y-- {
		b := c.Block(x, y, z)
		if b.BlocksMotion() && !b.IsLeaves() {
			return y
		}
	}
	return c.minY
}

type fakeHost struct {
	mu      sync.Mutex
	col     columnFunc
	missing bool
	ensures int
	runs    []world.Coordinate
}

func (h *fakeHost) setColumn(col columnFunc) {
	h.mu.Lock()
	h.col = col
	h.mu.Unlock()
}

func (h *fakeHost) EnsureChunk(ctx context.Context, name string, cx, cz int, generate bool) (world.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ensures++
	if h.missing {
		return nil, nil
	}
	col := h.col
	return &fakeChunk{cx: cx, cz: cz, minY: 0, maxY: 256, col: col}, nil
}

func (h *fakeHost) Run(ctx context.Context, at world.Coordinate, fn func()) error {
	h.mu.Lock()
	h.runs = append(h.runs, at)
	h.mu.Unlock()
	fn()
	return nil
}

type sinkRecorder struct {
	mu  sync.Mutex
	got []Exhausted
}

func (s *sinkRecorder) SearchExhausted(e Exhausted) {
	s.mu.Lock()
	s.got = append(s.got, e)
	s.mu.Unlock()
}

func flatGrass(x, y, z int) world.Block {
	switch {
	case y == 0:
		return world.Bedrock
	case y < 63:
		return world.Stone
	case y == 63:
		return world.GrassBlock
	default:
		return world.Air
	}
}

func allAir(x, y, z int) world.Block { return world.Air }

func intp(v int) *int { return &v }

func normalWorld(size float64) world.Handle {
	return world.Handle{
		Profile: world.Profile{Name: "world", Type: world.TypeNormal, GenerateChunks: true},
		Border:  world.Border{Size: size},
	}
}

func newTestEngine(t *testing.T, h world.Handle, host *fakeHost, sink Sink) *Engine {
	t.Helper()
	reg := world.NewRegistry()
	reg.Put(h)
	v := safety.NewValidator(safety.Rules{}, nil)
	return NewEngine(reg, host, v, Options{
		Attempts:  16,
		MinRadius: 10,
		MaxRadius: 100,
		Seed:      42,
		Logger:    log.New(io.Discard, "", 0),
		Sink:      sink,
	})
}

func TestRadii_ResolutionOrderClampAndSwap(t *testing.T) {
	e := newTestEngine(t, normalWorld(2000), &fakeHost{col: flatGrass}, nil)
	h := normalWorld(2000)

	if lo, hi := e.Radii(h, nil, nil); lo != 10 || hi != 100 {
		t.Fatalf("defaults: got [%d,%d]", lo, hi)
	}
	h.Profile.MinRadius, h.Profile.MaxRadius = 20, 300
	if lo, hi := e.Radii(h, nil, nil); lo != 20 || hi != 300 {
		t.Fatalf("profile: got [%d,%d]", lo, hi)
	}
	if lo, hi := e.Radii(h, intp(500), intp(100)); lo != 100 || hi != 500 {
		t.Fatalf("swap: got [%d,%d]", lo, hi)
	}
	if lo, hi := e.Radii(h, intp(10), intp(5000)); lo != 10 || hi != 1000 {
		t.Fatalf("clamp: got [%d,%d]", lo, hi)
	}
	if lo, hi := e.Radii(h, nil, intp(-10)); lo != 0 || hi != 20 {
		t.Fatalf("negative max: got [%d,%d]", lo, hi)
	}
	if lo, hi := e.Radii(h, intp(-30), intp(-5)); lo != 0 || hi != 0 {
		t.Fatalf("both negative: got [%d,%d]", lo, hi)
	}
}

func TestFindSafeLocation_SwapsInvertedRadiiEveryCall(t *testing.T) {
	host := &fakeHost{col: allAir}
	e := newTestEngine(t, normalWorld(10000), host, nil)
	for i := 0; i < 5; i++ {
		_, ok, err := e.FindSafeLocation(context.Background(), Request{
			World: "world", MinRadius: intp(400), MaxRadius: intp(200), Attempts: 50,
		})
		if err != nil || ok {
			t.Fatalf("ok=%v err=%v", ok, err)
		}
	}
	if len(host.runs) != 250 {
		t.Fatalf("runs=%d", len(host.runs))
	}
	for _, at := range host.runs {
		d := math.Hypot(float64(at.X), float64(at.Z))
		if d < 199 || d > 401 {
			t.Fatalf("sample %v at distance %.1f outside [200,400]", at, d)
		}
	}
}

func TestFindSafeLocation_StaysInsideBorder(t *testing.T) {
	host := &fakeHost{col: allAir}
	h := world.Handle{
		Profile: world.Profile{Name: "world", Type: world.TypeNormal, Center: &world.Point2{X: 60, Z: -20}},
		Border:  world.Border{CenterX: 10, CenterZ: -20, Size: 100},
	}
	e := newTestEngine(t, h, host, nil)
	if _, ok, err := e.FindSafeLocation(context.Background(), Request{World: "world", MinRadius: intp(0), Attempts: 500}); ok || err != nil {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	for _, at := range host.runs {
		if at.X < -40 || at.X > 60 || at.Z < -70 || at.Z > 30 {
			t.Fatalf("sample %v outside border", at)
		}
	}
}

func TestFindSafeLocation_ExhaustsExactlyNAttempts(t *testing.T) {
	host := &fakeHost{col: allAir}
	sink := &sinkRecorder{}
	e := newTestEngine(t, normalWorld(2000), host, sink)

	_, ok, err := e.FindSafeLocation(context.Background(), Request{World: "world", Attempts: 9, Requester: "p1"})
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if len(host.runs) != 9 {
		t.Fatalf("attempts run=%d want 9", len(host.runs))
	}
	if len(sink.got) != 1 {
		t.Fatalf("sink calls=%d", len(sink.got))
	}
	s := sink.got[0].Summary
	if s.Total() != 9 || s.Counts[safety.AirFloor] != 9 {
		t.Fatalf("summary=%s", s)
	}
	if st := e.Stats(); st.Exhausted != 1 || st.Attempts != 9 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestFindSafeLocation_ChunkMissConsumesAttempt(t *testing.T) {
	host := &fakeHost{col: flatGrass, missing: true}
	sink := &sinkRecorder{}
	e := newTestEngine(t, normalWorld(2000), host, sink)

	_, ok, err := e.FindSafeLocation(context.Background(), Request{World: "world", Attempts: 5})
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if host.ensures != 5 || len(host.runs) != 0 {
		t.Fatalf("ensures=%d runs=%d", host.ensures, len(host.runs))
	}
	s := sink.got[0].Summary
	if s.ChunkMisses != 5 || s.Total() != 0 {
		t.Fatalf("summary=%s", s)
	}
}

func TestFindSafeLocation_ReturnsStandingPosition(t *testing.T) {
	e := newTestEngine(t, normalWorld(2000), &fakeHost{col: flatGrass}, nil)
	pos, ok, err := e.FindSafeLocation(context.Background(), Request{World: "world", Requester: "p1"})
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if pos.World != "world" || pos.Y != 64 {
		t.Fatalf("pos=%v", pos)
	}
	if d := math.Hypot(float64(pos.X), float64(pos.Z)); d < 9 || d > 101 {
		t.Fatalf("distance %.1f outside default radii", d)
	}
}

func TestFindSafeLocation_EndVoidRecordsUnknown(t *testing.T) {
	host := &fakeHost{col: allAir}
	sink := &sinkRecorder{}
	h := normalWorld(2000)
	h.Profile.Type = world.TypeEnd
	e := newTestEngine(t, h, host, sink)

	if _, ok, _ := e.FindSafeLocation(context.Background(), Request{World: "world", Attempts: 4}); ok {
		t.Fatalf("void column accepted")
	}
	if got := sink.got[0].Summary.Counts[safety.Unknown]; got != 4 {
		t.Fatalf("unknown=%d", got)
	}
}

func TestFindSafeLocation_Errors(t *testing.T) {
	e := newTestEngine(t, normalWorld(2000), &fakeHost{col: flatGrass}, nil)
	if _, _, err := e.FindSafeLocation(context.Background(), Request{World: "nope"}); !errors.Is(err, world.ErrUnknownWorld) {
		t.Fatalf("err=%v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := e.FindSafeLocation(ctx, Request{World: "world"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
}

func TestResolveGroundAndRevalidate(t *testing.T) {
	host := &fakeHost{col: flatGrass}
	e := newTestEngine(t, normalWorld(2000), host, nil)

	pos, ok, err := e.ResolveGround(context.Background(), "world", 12, -7)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if pos != (world.Coordinate{World: "world", X: 12, Y: 64, Z: -7}) {
		t.Fatalf("pos=%v", pos)
	}
	if _, ok, _ := e.ResolveGround(context.Background(), "world", 5000, 0); ok {
		t.Fatalf("outside border accepted")
	}
	if ok, err := e.Revalidate(context.Background(), pos); err != nil || !ok {
		t.Fatalf("revalidate ok=%v err=%v", ok, err)
	}
	host.setColumn(allAir)
	if ok, _ := e.Revalidate(context.Background(), pos); ok {
		t.Fatalf("revalidate accepted air floor")
	}
}

func TestSpread_BoundedOffset(t *testing.T) {
	e := newTestEngine(t, normalWorld(2000), &fakeHost{col: flatGrass}, nil)
	for i := 0; i < 200; i++ {
		x, z := e.Spread(10, -5, 8, 2)
		d := math.Hypot(float64(x-10), float64(z+5))
		if d < 1 || d > 9 {
			t.Fatalf("offset %.2f outside [2,8] (+rounding)", d)
		}
	}
}

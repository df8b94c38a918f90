package voxel

import (
	"context"
	"testing"
	"time"

	"voxelrtp.ai/internal/world"
)

func startWorld(t *testing.T, cfg Config) *World {
	t.Helper()
	w := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = w.Run(ctx) }()
	return w
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestEnsureChunk_GeneratePolicy(t *testing.T) {
	w := startWorld(t, Config{Name: "world", Seed: 1, Border: world.Border{Size: 4000}, PregenRadius: 2})
	ctx := testCtx(t)

	ch, err := w.EnsureChunk(ctx, 1, -1, false)
	if err != nil || ch == nil {
		t.Fatalf("pregenerated chunk should load: ch=%v err=%v", ch, err)
	}
	ch, err = w.EnsureChunk(ctx, 40, 40, false)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if ch != nil {
		t.Fatalf("far chunk must be unavailable without generation")
	}
	ch, err = w.EnsureChunk(ctx, 40, 40, true)
	if err != nil || ch == nil {
		t.Fatalf("generation should load chunk: ch=%v err=%v", ch, err)
	}
	if w.LoadedChunks() != 2 {
		t.Fatalf("loaded chunks=%d want 2", w.LoadedChunks())
	}
}

func TestNormalTerrain_SurfaceIsStandable(t *testing.T) {
	w := startWorld(t, Config{Name: "world", Seed: 7, Border: world.Border{Size: 4000}, PregenRadius: 4})
	ctx := testCtx(t)
	ch, err := w.EnsureChunk(ctx, 0, 0, true)
	if err != nil || ch == nil {
		t.Fatalf("ensure: %v", err)
	}
	var y int
	var floor, above world.Block
	_ = w.Do(ctx, func() {
		y = ch.HighestBlockY(5, 5)
		floor = ch.Block(5, y, 5)
		above = ch.Block(5, y+1, 5)
	})
	if !floor.BlocksMotion() || floor.IsLeaves() {
		t.Fatalf("highest block %s at y=%d is not motion blocking", floor, y)
	}
	if above.BlocksMotion() && !above.IsLeaves() {
		t.Fatalf("block above surface should not block motion: %s", above)
	}
}

func TestNetherTerrain_HasRoofAndFloor(t *testing.T) {
	w := startWorld(t, Config{Name: "nether", Type: world.TypeNether, Seed: 3, Border: world.Border{Size: 4000}, PregenRadius: 1})
	ctx := testCtx(t)
	ch, err := w.EnsureChunk(ctx, 0, 0, true)
	if err != nil || ch == nil {
		t.Fatalf("ensure: %v", err)
	}
	var roof, bottom world.Block
	_ = w.Do(ctx, func() {
		roof = ch.Block(3, netherRoof, 3)
		bottom = ch.Block(3, 0, 3)
	})
	if roof != world.Bedrock || bottom != world.Bedrock {
		t.Fatalf("nether bedrock layers missing: roof=%s bottom=%s", roof, bottom)
	}
}

func TestHostRelocate_MovesBetweenWorlds(t *testing.T) {
	a := startWorld(t, Config{Name: "a", Border: world.Border{Size: 1000}})
	b := startWorld(t, Config{Name: "b", Border: world.Border{Size: 1000}})
	h := NewHost(a, b)
	ctx := testCtx(t)

	if ok, err := h.Relocate(ctx, "p1", world.Coordinate{World: "a", X: 1, Y: 70, Z: 1}); err != nil || !ok {
		t.Fatalf("relocate a: ok=%v err=%v", ok, err)
	}
	if ok, err := h.Relocate(ctx, "p1", world.Coordinate{World: "b", X: 2, Y: 70, Z: 2}); err != nil || !ok {
		t.Fatalf("relocate b: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := a.Position(ctx, "p1"); ok {
		t.Fatalf("player should have left world a")
	}
	pos, ok, err := h.Locate(ctx, "p1")
	if err != nil || !ok || pos.World != "b" || pos.X != 2 {
		t.Fatalf("locate = %v %v %v", pos, ok, err)
	}
	if ok, _ := h.Relocate(ctx, "p1", world.Coordinate{World: "b", X: 5000, Y: 70}); ok {
		t.Fatalf("relocation outside the border must fail")
	}
}

package safety

import (
	"testing"

	"voxelrtp.ai/internal/world"
)

type fakeView struct {
	blocks map[[3]int]world.Block
	biome  world.Biome
	reads  int
}

func (f *fakeView) Block(x, y, z int) world.Block {
	f.reads++
	if b, ok := f.blocks[[3]int{x, y, z}]; ok {
		return b
	}
	return world.Air
}
func (f *fakeView) Biome(int, int, int) world.Biome { return f.biome }
func (f *fakeView) HighestBlockY(int, int) int      { return 0 }
func (f *fakeView) MinY() int                       { return 0 }
func (f *fakeView) MaxY() int                       { return 256 }

// column builds below/floor/feet/head at (0,64..66,0).
func column(below, floor, feet, head world.Block) *fakeView {
	return &fakeView{
		blocks: map[[3]int]world.Block{
			{0, 63, 0}: below,
			{0, 64, 0}: floor,
			{0, 65, 0}: feet,
			{0, 66, 0}: head,
		},
		biome: world.Plains,
	}
}

type countingHook struct {
	allow bool
	calls int
}

func (h *countingHook) IsLocationSafe(world.Coordinate) bool {
	h.calls++
	return h.allow
}

var at = world.Coordinate{World: "world", X: 0, Y: 64, Z: 0}

func set(bs ...world.Block) map[world.Block]struct{} {
	m := map[world.Block]struct{}{}
	for _, b := range bs {
		m[b] = struct{}{}
	}
	return m
}

func TestEvaluate_BlacklistShortCircuits(t *testing.T) {
	hook := &countingHook{allow: true}
	v := NewValidator(Rules{Blacklist: set(world.Lava), RespectRegions: true}, hook)
	view := column(world.Lava, world.Lava, world.Stone, world.Stone)

	ok, reason := v.Evaluate(view, world.TypeNormal, at)
	if ok || reason != BlacklistedBlock {
		t.Fatalf("got ok=%v reason=%s want BLACKLISTED_BLOCK", ok, reason)
	}
	if view.reads != 1 {
		t.Fatalf("later checks ran: %d block reads", view.reads)
	}
	if hook.calls != 0 {
		t.Fatalf("region hook consulted after a blacklist hit")
	}
}

func TestEvaluate_CheckOrder(t *testing.T) {
	cases := []struct {
		name string
		view *fakeView
		typ  world.Type
		want FailureReason
	}{
		{"lava under floor", column(world.Lava, world.Stone, world.Air, world.Air), world.TypeNormal, LavaNearby},
		{"liquid floor", column(world.Stone, world.Water, world.Air, world.Air), world.TypeNormal, LiquidFloor},
		{"air floor", column(world.Stone, world.Air, world.Air, world.Air), world.TypeNormal, AirFloor},
		{"feet blocked", column(world.Stone, world.Stone, world.Stone, world.Air), world.TypeNormal, Obstructed},
		{"head blocked", column(world.Stone, world.GrassBlock, world.ShortGrass, world.OakLeaves), world.TypeNormal, Obstructed},
		{"lava beats liquid floor", column(world.Lava, world.Water, world.Air, world.Air), world.TypeNether, LavaNearby},
	}
	v := NewValidator(Rules{}, nil)
	for _, c := range cases {
		ok, reason := v.Evaluate(c.view, c.typ, at)
		if ok || reason != c.want {
			t.Fatalf("%s: ok=%v reason=%s want %s", c.name, ok, reason, c.want)
		}
	}
}

func TestEvaluate_EndSkipsLavaCheck(t *testing.T) {
	v := NewValidator(Rules{}, nil)
	ok, reason := v.Evaluate(column(world.Lava, world.EndStone, world.Air, world.Air), world.TypeEnd, at)
	if !ok {
		t.Fatalf("END world should ignore lava below floor, got %s", reason)
	}
}

func TestEvaluate_BiomeModes(t *testing.T) {
	view := column(world.Stone, world.Sand, world.Air, world.Air)
	view.biome = world.Desert

	deny := NewValidator(Rules{Biomes: map[world.Biome]struct{}{world.Desert: {}}, BiomeMode: BiomeBlacklist}, nil)
	if ok, r := deny.Evaluate(view, world.TypeNormal, at); ok || r != InvalidBiome {
		t.Fatalf("blacklist: ok=%v r=%s", ok, r)
	}
	allow := NewValidator(Rules{Biomes: map[world.Biome]struct{}{world.Plains: {}}, BiomeMode: BiomeWhitelist}, nil)
	if ok, r := allow.Evaluate(view, world.TypeNormal, at); ok || r != InvalidBiome {
		t.Fatalf("whitelist: ok=%v r=%s", ok, r)
	}
	allowDesert := NewValidator(Rules{Biomes: map[world.Biome]struct{}{world.Desert: {}}, BiomeMode: BiomeWhitelist}, nil)
	if ok, r := allowDesert.Evaluate(view, world.TypeNormal, at); !ok {
		t.Fatalf("whitelisted biome rejected: %s", r)
	}
}

func TestEvaluate_RegionRespectToggle(t *testing.T) {
	view := column(world.Stone, world.GrassBlock, world.Air, world.Air)
	hook := &countingHook{allow: false}

	on := NewValidator(Rules{RespectRegions: true}, hook)
	if ok, r := on.Evaluate(view, world.TypeNormal, at); ok || r != RegionClaim {
		t.Fatalf("claimed location accepted: ok=%v r=%s", ok, r)
	}
	off := NewValidator(Rules{RespectRegions: false}, hook)
	if ok, _ := off.Evaluate(view, world.TypeNormal, at); !ok {
		t.Fatalf("region toggle off should ignore claims")
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	v := NewValidator(Rules{Blacklist: set(world.Cactus)}, &countingHook{allow: true})
	views := []*fakeView{
		column(world.Stone, world.GrassBlock, world.Air, world.Air),
		column(world.Stone, world.Cactus, world.Air, world.Air),
		column(world.Lava, world.Stone, world.Air, world.Air),
	}
	for _, view := range views {
		ok1, r1 := v.Evaluate(view, world.TypeNormal, at)
		for i := 0; i < 5; i++ {
			ok2, r2 := v.Evaluate(view, world.TypeNormal, at)
			if ok1 != ok2 || r1 != r2 {
				t.Fatalf("verdict changed: (%v,%s) -> (%v,%s)", ok1, r1, ok2, r2)
			}
		}
	}
}

func TestSummary_TotalsAndString(t *testing.T) {
	s := NewSummary()
	s.Record(Obstructed)
	s.Record(Obstructed)
	s.Record(LavaNearby)
	s.RecordChunkMiss()
	if s.Total() != 3 {
		t.Fatalf("total=%d want 3", s.Total())
	}
	if got := s.String(); got != "LAVA_NEARBY=1 OBSTRUCTED=2 CHUNK_UNAVAILABLE=1" {
		t.Fatalf("summary string = %q", got)
	}
	if NewSummary().String() != "none" {
		t.Fatalf("empty summary string")
	}
}

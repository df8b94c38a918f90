package world

import (
	"errors"
	"testing"
)

func TestBorderExtents(t *testing.T) {
	b := Border{CenterX: 100, CenterZ: -50, Size: 200}
	if b.MinX() != 0 || b.MaxX() != 200 || b.MinZ() != -150 || b.MaxZ() != 50 {
		t.Fatalf("extents: x=[%d,%d] z=[%d,%d]", b.MinX(), b.MaxX(), b.MinZ(), b.MaxZ())
	}
	if !b.Contains(0, 50) || b.Contains(201, 0) {
		t.Fatalf("contains mismatch")
	}
}

func TestParseBlockAndBiome(t *testing.T) {
	if b, ok := ParseBlock(" lava "); !ok || b != Lava {
		t.Fatalf("ParseBlock lava = %q %v", b, ok)
	}
	if _, ok := ParseBlock("NOT_A_BLOCK"); ok {
		t.Fatalf("unknown block accepted")
	}
	if b, ok := ParseBiome("deep_ocean"); !ok || b != DeepOcean {
		t.Fatalf("ParseBiome = %q %v", b, ok)
	}
	if !OakLeaves.IsLeaves() || !Water.IsLiquid() || !CaveAir.IsAir() || Stone.IsPassable() {
		t.Fatalf("block props mismatch")
	}
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{"": TypeNormal, "nether": TypeNether, "THE_END": TypeEnd} {
		got, ok := ParseType(in)
		if !ok || got != want {
			t.Fatalf("ParseType(%q)=%s,%v", in, got, ok)
		}
	}
	if _, ok := ParseType("moon"); ok {
		t.Fatalf("unknown type accepted")
	}
}

func TestRegistryUnknownWorld(t *testing.T) {
	r := NewRegistry()
	r.Put(Handle{Profile: Profile{Name: "world"}})
	if _, err := r.Get("world"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := r.Get("nope"); !errors.Is(err, ErrUnknownWorld) {
		t.Fatalf("want ErrUnknownWorld, got %v", err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voxelrtp.ai/internal/safety"
	"voxelrtp.ai/internal/world"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "rtp.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, warns, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(warns) != 0 {
		t.Fatalf("warns=%v", warns)
	}
	if cfg.Search.Attempts != 32 || len(cfg.Worlds) != 3 {
		t.Fatalf("defaults not applied: %+v", cfg.Search)
	}
}

func TestLoad_MalformedNumbersFallBack(t *testing.T) {
	p := writeYAML(t, `
search:
  attempts: -4
queue:
  enabled: true
  interval_ms: 0
  batch_size: 3
worlds:
  - name: world
    type: NORMAL
    border: {size: 2000}
`)
	cfg, warns, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Search.Attempts != 32 {
		t.Fatalf("attempts=%d", cfg.Search.Attempts)
	}
	if cfg.Queue.IntervalMS != 1000 || cfg.Queue.BatchSize != 3 {
		t.Fatalf("queue=%+v", cfg.Queue)
	}
	if len(warns) != 2 {
		t.Fatalf("warns=%v", warns)
	}
	if len(cfg.Worlds) != 1 || cfg.Worlds[0].Border.Size != 2000 {
		t.Fatalf("worlds=%+v", cfg.Worlds)
	}
}

func TestLoad_DuplicateWorldRejected(t *testing.T) {
	p := writeYAML(t, `
worlds:
  - name: world
  - name: world
`)
	if _, _, err := Load(p); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestCompile_UnknownNamesSkipped(t *testing.T) {
	cfg := Defaults()
	cfg.Search.BlacklistedBlocks = []string{"lava", "UNOBTAINIUM"}
	cfg.Search.Biomes = BiomeSpec{Mode: "whitelist", List: []string{"PLAINS", "MOON"}}
	cfg.Worlds[0].Type = "SKYLANDS"
	cfg.Claims = []ClaimSpec{{World: "nowhere"}, {World: "world", MinX: 1, MaxX: 2}}

	c, warns := cfg.Compile()
	if len(warns) != 4 {
		t.Fatalf("warns=%v", warns)
	}
	if _, ok := c.Rules.Blacklist[world.Lava]; !ok || len(c.Rules.Blacklist) != 1 {
		t.Fatalf("blacklist=%v", c.Rules.Blacklist)
	}
	if c.Rules.BiomeMode != safety.BiomeWhitelist || len(c.Rules.Biomes) != 1 {
		t.Fatalf("biomes=%v mode=%s", c.Rules.Biomes, c.Rules.BiomeMode)
	}
	if c.Handles[0].Profile.Type != world.TypeNormal {
		t.Fatalf("type=%s", c.Handles[0].Profile.Type)
	}
	if len(c.Claims) != 1 {
		t.Fatalf("claims=%v", c.Claims)
	}
}

func TestCompile_WorldProfiles(t *testing.T) {
	off := false
	cfg := Defaults()
	cfg.Worlds[1].GenerateChunks = &off
	cfg.Worlds[2].Center = &CenterSpec{X: 5, Z: -5}

	c, _ := cfg.Compile()
	if !c.Handles[0].Profile.GenerateChunks {
		t.Fatalf("generate should default on")
	}
	if c.Handles[1].Profile.GenerateChunks {
		t.Fatalf("generate override ignored")
	}
	if c.Handles[1].Profile.Type != world.TypeNether || c.Voxel[1].Type != world.TypeNether {
		t.Fatalf("nether type not compiled")
	}
	if got := c.Handles[2].Profile.Center; got == nil || got.X != 5 || got.Z != -5 {
		t.Fatalf("center=%v", got)
	}
}

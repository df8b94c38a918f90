package config

import (
	"fmt"
	"strings"
	"time"

	"voxelrtp.ai/internal/regions"
	"voxelrtp.ai/internal/safety"
	"voxelrtp.ai/internal/world"
	"voxelrtp.ai/internal/world/voxel"
)

// Compiled is the config resolved into the typed values the runtime uses.
type Compiled struct {
	Rules     safety.Rules
	Attempts  int
	MinRadius int
	MaxRadius int
	Handles   []world.Handle
	Voxel     []voxel.Config
	Claims    []regions.Claim

	QueueEnabled  bool
	QueueInterval time.Duration
	BatchSize     int

	HandoffTTL   time.Duration
	HandoffSweep time.Duration
}

// Compile resolves block, biome and world-type names. Unknown names are
// skipped with a warning.
func (c Config) Compile() (Compiled, []string) {
	var warns []string
	out := Compiled{
		Rules: safety.Rules{
			Blacklist:      map[world.Block]struct{}{},
			Biomes:         map[world.Biome]struct{}{},
			RespectRegions: c.Search.RespectRegions,
		},
		Attempts:      c.Search.Attempts,
		MinRadius:     c.Search.MinRadius,
		MaxRadius:     c.Search.MaxRadius,
		QueueEnabled:  c.Queue.Enabled,
		QueueInterval: time.Duration(c.Queue.IntervalMS) * time.Millisecond,
		BatchSize:     c.Queue.BatchSize,
		HandoffTTL:    time.Duration(c.Handoff.TTLSeconds) * time.Second,
		HandoffSweep:  time.Duration(c.Handoff.SweepSeconds) * time.Second,
	}
	for _, name := range c.Search.BlacklistedBlocks {
		b, ok := world.ParseBlock(name)
		if !ok {
			warns = append(warns, fmt.Sprintf("search.blacklisted_blocks: unknown block %q skipped", name))
			continue
		}
		out.Rules.Blacklist[b] = struct{}{}
	}
	for _, name := range c.Search.Biomes.List {
		b, ok := world.ParseBiome(name)
		if !ok {
			warns = append(warns, fmt.Sprintf("search.biomes.list: unknown biome %q skipped", name))
			continue
		}
		out.Rules.Biomes[b] = struct{}{}
	}
	switch strings.ToUpper(strings.TrimSpace(c.Search.Biomes.Mode)) {
	case "", "BLACKLIST":
		out.Rules.BiomeMode = safety.BiomeBlacklist
	case "WHITELIST":
		out.Rules.BiomeMode = safety.BiomeWhitelist
	default:
		warns = append(warns, fmt.Sprintf("search.biomes.mode: unknown mode %q; using BLACKLIST", c.Search.Biomes.Mode))
		out.Rules.BiomeMode = safety.BiomeBlacklist
	}

	for _, w := range c.Worlds {
		t, ok := world.ParseType(w.Type)
		if !ok {
			warns = append(warns, fmt.Sprintf("world %s: unknown type %q; using NORMAL", w.Name, w.Type))
		}
		border := world.Border{CenterX: w.Border.CenterX, CenterZ: w.Border.CenterZ, Size: w.Border.Size}
		p := world.Profile{
			Name:           w.Name,
			Type:           t,
			MinRadius:      w.MinRadius,
			MaxRadius:      w.MaxRadius,
			GenerateChunks: w.GenerateChunks == nil || *w.GenerateChunks,
		}
		if w.Center != nil {
			p.Center = &world.Point2{X: w.Center.X, Z: w.Center.Z}
		}
		out.Handles = append(out.Handles, world.Handle{Profile: p, Border: border})
		out.Voxel = append(out.Voxel, voxel.Config{
			Name:         w.Name,
			Type:         t,
			Seed:         w.Seed,
			Border:       border,
			PregenRadius: w.PregenRadius,
		})
	}
	for _, cl := range c.Claims {
		if _, ok := c.WorldSpecByName(cl.World); !ok {
			warns = append(warns, fmt.Sprintf("claims: unknown world %q skipped", cl.World))
			continue
		}
		out.Claims = append(out.Claims, regions.Claim{
			World: cl.World, Owner: cl.Owner,
			MinX: cl.MinX, MinZ: cl.MinZ, MaxX: cl.MaxX, MaxZ: cl.MaxZ,
		})
	}
	return out, warns
}

// Package safety decides whether a candidate floor block is a safe place to
// stand. Evaluate is a pure function of the rules and the world view.
package safety

import "voxelrtp.ai/internal/world"

type BiomeMode string

const (
	BiomeWhitelist BiomeMode = "WHITELIST"
	BiomeBlacklist BiomeMode = "BLACKLIST"
)

// RegionHook is the AND-combined region-claim capability.
type RegionHook interface {
	IsLocationSafe(c world.Coordinate) bool
}

type Rules struct {
	Blacklist      map[world.Block]struct{}
	Biomes         map[world.Biome]struct{}
	BiomeMode      BiomeMode
	RespectRegions bool
}

type Validator struct {
	rules   Rules
	regions RegionHook
}

func NewValidator(rules Rules, regions RegionHook) *Validator {
	if rules.BiomeMode == "" {
		rules.BiomeMode = BiomeBlacklist
	}
	return &Validator{rules: rules, regions: regions}
}

// Evaluate checks the floor block at c; feet and head are c.Y+1 and c.Y+2.
// The first failing check is returned.
func (v *Validator) Evaluate(view world.BlockView, t world.Type, c world.Coordinate) (bool, FailureReason) {
	floor := view.Block(c.X, c.Y, c.Z)
	if _, bad := v.rules.Blacklist[floor]; bad {
		return false, BlacklistedBlock
	}
	if t != world.TypeEnd && view.Block(c.X, c.Y-1, c.Z) == world.Lava {
		return false, LavaNearby
	}
	if floor.IsLiquid() {
		return false, LiquidFloor
	}
	if floor.IsAir() {
		return false, AirFloor
	}
	if !view.Block(c.X, c.Y+1, c.Z).IsPassable() || !view.Block(c.X, c.Y+2, c.Z).IsPassable() {
		return false, Obstructed
	}
	if !v.biomeAllowed(view.Biome(c.X, c.Y, c.Z)) {
		return false, InvalidBiome
	}
	if v.rules.RespectRegions && v.regions != nil && !v.regions.IsLocationSafe(c) {
		return false, RegionClaim
	}
	return true, 0
}

func (v *Validator) biomeAllowed(b world.Biome) bool {
	_, listed := v.rules.Biomes[b]
	if v.rules.BiomeMode == BiomeWhitelist {
		return len(v.rules.Biomes) == 0 || listed
	}
	return !listed
}

package voxel

import (
	"voxelrtp.ai/internal/mathx"
	"voxelrtp.ai/internal/world"
)

const (
	seaLevel        = 62
	netherLavaLevel = 31
	netherRoof      = 127
	endIslandR      = 160
)

func biomeFrom(t world.Type, noise uint64) world.Biome {
	switch t {
	case world.TypeNether:
		if noise%4 == 0 {
			return world.SoulSandValley
		}
		return world.NetherWastes
	case world.TypeEnd:
		if noise%3 == 0 {
			return world.EndHighlands
		}
		return world.TheEnd
	}
	switch noise % 6 {
	case 0, 1:
		return world.Plains
	case 2:
		return world.Forest
	case 3:
		return world.Desert
	case 4:
		return world.Taiga
	default:
		return world.Ocean
	}
}

func biomeAt(t world.Type, seed int64, x, z, regionSize int) world.Biome {
	if regionSize <= 0 {
		regionSize = 1
	}
	rx := mathx.FloorDiv(x, regionSize)
	rz := mathx.FloorDiv(z, regionSize)
	return biomeFrom(t, mathx.Hash2(seed, rx, rz))
}

// surfaceHeight interpolates a coarse hash lattice so neighbouring columns
// differ by a few blocks at most.
func surfaceHeight(seed int64, x, z, base, amp int) int {
	const cell = 8
	gx, gz := mathx.FloorDiv(x, cell), mathx.FloorDiv(z, cell)
	fx, fz := mathx.Mod(x, cell), mathx.Mod(z, cell)
	corner := func(cx, cz int) int { return int(mathx.Hash2(seed, cx, cz) % uint64(amp+1)) }
	h00, h10 := corner(gx, gz), corner(gx+1, gz)
	h01, h11 := corner(gx, gz+1), corner(gx+1, gz+1)
	top := h00*(cell-fx) + h10*fx
	bot := h01*(cell-fx) + h11*fx
	return base + (top*(cell-fz)+bot*fz)/(cell*cell)
}

func (s *chunkStore) generate(ch *chunk) {
	for lz := 0; lz < 16; lz++ {
		for lx := 0; lx < 16; lx++ {
			x := ch.cx*16 + lx
			z := ch.cz*16 + lz
			b := biomeAt(s.cfg.Type, s.cfg.Seed, x, z, s.cfg.BiomeRegionSize)
			ch.setBiome(lx, lz, b)
			switch s.cfg.Type {
			case world.TypeNether:
				s.genNetherColumn(ch, lx, lz, x, z)
			case world.TypeEnd:
				s.genEndColumn(ch, lx, lz, x, z)
			default:
				s.genNormalColumn(ch, lx, lz, x, z, b)
			}
		}
	}
}

func (s *chunkStore) genNormalColumn(ch *chunk, lx, lz, x, z int, b world.Biome) {
	seed := s.cfg.Seed
	h := surfaceHeight(seed, x, z, seaLevel+2, 10)
	if b == world.Ocean {
		h = surfaceHeight(seed, x, z, seaLevel-12, 6)
	}
	ch.set(lx, s.cfg.MinY, lz, world.Bedrock)
	for y := s.cfg.MinY + 1; y < h-3; y++ {
		ch.set(lx, y, lz, world.Stone)
	}
	surface, under := world.GrassBlock, world.Dirt
	switch b {
	case world.Desert:
		surface, under = world.Sand, world.Sand
	case world.Ocean:
		surface, under = world.Gravel, world.Gravel
	case world.Taiga:
		surface = world.Snow
	}
	for y := h - 3; y < h; y++ {
		ch.set(lx, y, lz, under)
	}
	ch.set(lx, h, lz, surface)
	if b == world.Ocean {
		for y := h + 1; y <= seaLevel; y++ {
			ch.set(lx, y, lz, world.Water)
		}
		return
	}

	feature := mathx.Hash3(seed, x, 1, z)
	switch {
	case feature%89 == 0:
		ch.set(lx, h, lz, world.Lava)
	case b == world.Desert && feature%41 == 0:
		ch.set(lx, h+1, lz, world.Cactus)
	case (b == world.Forest || b == world.Taiga) && feature%17 == 0:
		// Single-column tree: log trunk capped with leaves.
		for y := h + 1; y <= h+4; y++ {
			ch.set(lx, y, lz, world.OakLog)
		}
		ch.set(lx, h+5, lz, world.OakLeaves)
		ch.set(lx, h+6, lz, world.OakLeaves)
	case feature%7 == 0:
		ch.set(lx, h+1, lz, world.ShortGrass)
	}
}

func (s *chunkStore) genNetherColumn(ch *chunk, lx, lz, x, z int) {
	seed := s.cfg.Seed
	floor := surfaceHeight(seed, x, z, 26, 20)
	ceiling := surfaceHeight(seed^0x5eed, x, z, 92, 18)
	ch.set(lx, s.cfg.MinY, lz, world.Bedrock)
	for y := s.cfg.MinY + 1; y <= floor; y++ {
		ch.set(lx, y, lz, world.Netherrack)
	}
	for y := floor + 1; y <= netherLavaLevel; y++ {
		ch.set(lx, y, lz, world.Lava)
	}
	for y := ceiling; y < netherRoof && y < s.cfg.MaxY; y++ {
		ch.set(lx, y, lz, world.Netherrack)
	}
	if netherRoof < s.cfg.MaxY {
		ch.set(lx, netherRoof, lz, world.Bedrock)
	}
	if mathx.Hash3(seed, x, 2, z)%13 == 0 && floor > netherLavaLevel {
		ch.set(lx, floor, lz, world.MagmaBlock)
	}
}

func (s *chunkStore) genEndColumn(ch *chunk, lx, lz, x, z int) {
	seed := s.cfg.Seed
	inMain := x*x+z*z <= endIslandR*endIslandR
	inOuter := false
	if !inMain {
		gx, gz := mathx.FloorDiv(x, 64), mathx.FloorDiv(z, 64)
		h := mathx.Hash2(seed, gx, gz)
		if h%3 == 0 {
			cx := gx*64 + int((h>>8)%64)
			cz := gz*64 + int((h>>16)%64)
			dx, dz := x-cx, z-cz
			inOuter = dx*dx+dz*dz <= 20*20
		}
	}
	if !inMain && !inOuter {
		return
	}
	top := surfaceHeight(seed, x, z, 56, 8)
	for y := 40; y <= top; y++ {
		ch.set(lx, y, lz, world.EndStone)
	}
}

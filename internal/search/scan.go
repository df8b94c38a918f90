package search

import "voxelrtp.ai/internal/world"

const netherScanTop = 120

// scanColumn picks the candidate floor y for a column.
func scanColumn(v world.BlockView, t world.Type, x, z int) (int, bool) {
	switch t {
	case world.TypeNether:
		top := netherScanTop
		if top > v.MaxY()-3 {
			top = v.MaxY() - 3
		}
		return scanDown(v, x, z, top, v.MinY()+1)
	case world.TypeEnd:
		return scanDown(v, x, z, v.MaxY()-1, v.MinY())
	default:
		return v.HighestBlockY(x, z), true
	}
}

// scanDown walks from top to bottom (inclusive) looking for a solid floor
// with air at feet and head.
func scanDown(v world.BlockView, x, z, top, bottom int) (int, bool) {
	for y := top; y >= bottom; y-- {
		if !v.Block(x, y, z).IsSolid() {
			continue
		}
		if v.Block(x, y+1, z).IsAir() && v.Block(x, y+2, z).IsAir() {
			return y, true
		}
	}
	return 0, false
}

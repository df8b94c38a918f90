package search

import (
	"testing"

	"voxelrtp.ai/internal/world"
)

func borderOf(cx, cz, size float64) world.Border {
	return world.Border{CenterX: cx, CenterZ: cz, Size: size}
}

func netherColumn(x, y, z int) world.Block {
	switch {
	case y == 0 || y == 127:
		return world.Bedrock
	case y <= 40:
		return world.Netherrack
	case y >= 118:
		return world.Netherrack
	default:
		return world.Air
	}
}

func TestScanColumn_Nether(t *testing.T) {
	ch := &fakeChunk{minY: 0, maxY: 128, col: netherColumn}
	y, ok := scanColumn(ch, world.TypeNether, 0, 0)
	if !ok || y != 40 {
		t.Fatalf("y=%d ok=%v", y, ok)
	}
}

func TestScanColumn_NetherSolidColumn(t *testing.T) {
	ch := &fakeChunk{minY: 0, maxY: 128, col: func(x, y, z int) world.Block { return world.Netherrack }}
	if _, ok := scanColumn(ch, world.TypeNether, 0, 0); ok {
		t.Fatalf("solid column produced a candidate")
	}
}

func TestScanColumn_End(t *testing.T) {
	ch := &fakeChunk{minY: 0, maxY: 256, col: func(x, y, z int) world.Block {
		if y >= 40 && y <= 60 {
			return world.EndStone
		}
		return world.Air
	}}
	y, ok := scanColumn(ch, world.TypeEnd, 3, 3)
	if !ok || y != 60 {
		t.Fatalf("y=%d ok=%v", y, ok)
	}
}

func TestScanColumn_NormalUsesSurface(t *testing.T) {
	ch := &fakeChunk{minY: 0, maxY: 256, col: func(x, y, z int) world.Block {
		switch {
		case y <= 70:
			return world.Stone
		case y <= 72:
			return world.OakLeaves
		default:
			return world.Air
		}
	}}
	y, ok := scanColumn(ch, world.TypeNormal, 0, 0)
	if !ok || y != 70 {
		t.Fatalf("y=%d ok=%v", y, ok)
	}
}

package voxel

import (
	"sort"

	"voxelrtp.ai/internal/world"
)

type chunkKey struct {
	CX int
	CZ int
}

type chunk struct {
	cx, cz int
	minY   int
	height int

	palette []world.Block
	index   map[world.Block]uint8
	blocks  []uint8 // x + z*16 + (y-minY)*256
	biomes  []world.Biome
}

func newChunk(cx, cz, minY, maxY int) *chunk {
	h := maxY - minY
	return &chunk{
		cx:      cx,
		cz:      cz,
		minY:    minY,
		height:  h,
		palette: []world.Block{world.Air},
		index:   map[world.Block]uint8{world.Air: 0},
		blocks:  make([]uint8, 16*16*h),
		biomes:  make([]world.Biome, 16*16),
	}
}

func (c *chunk) X() int    { return c.cx }
func (c *chunk) Z() int    { return c.cz }
func (c *chunk) MinY() int { return c.minY }
func (c *chunk) MaxY() int { return c.minY + c.height }

func (c *chunk) offset(lx, y, lz int) (int, bool) {
	if lx < 0 || lx > 15 || lz < 0 || lz > 15 {
		return 0, false
	}
	dy := y - c.minY
	if dy < 0 || dy >= c.height {
		return 0, false
	}
	return lx + lz*16 + dy*256, true
}

func (c *chunk) set(lx, y, lz int, b world.Block) {
	i, ok := c.offset(lx, y, lz)
	if !ok {
		return
	}
	p, ok := c.index[b]
	if !ok {
		p = uint8(len(c.palette))
		c.palette = append(c.palette, b)
		c.index[b] = p
	}
	c.blocks[i] = p
}

func (c *chunk) setBiome(lx, lz int, b world.Biome) {
	c.biomes[lx+lz*16] = b
}

func (c *chunk) local(x, z int) (int, int, bool) {
	lx, lz := x-c.cx*16, z-c.cz*16
	return lx, lz, lx >= 0 && lx < 16 && lz >= 0 && lz < 16
}

// Block reads a block by absolute coordinates; positions outside the chunk
// or the build height read as air.
func (c *chunk) Block(x, y, z int) world.Block {
	lx, lz, ok := c.local(x, z)
	if !ok {
		return world.Air
	}
	i, ok := c.offset(lx, y, lz)
	if !ok {
		return world.VoidAir
	}
	return c.palette[c.blocks[i]]
}

func (c *chunk) Biome(x, _, z int) world.Biome {
	lx, lz, ok := c.local(x, z)
	if !ok {
		return ""
	}
	return c.biomes[lx+lz*16]
}

func (c *chunk) HighestBlockY(x, z int) int {
	for y := c.MaxY() - 1; y >= c.minY; y-- {
		b := c.Block(x, y, z)
		if b.BlocksMotion() && !b.IsLeaves() {
			return y
		}
	}
	return c.minY
}

type chunkStore struct {
	cfg    Config
	chunks map[chunkKey]*chunk
}

func newChunkStore(cfg Config) *chunkStore {
	return &chunkStore{cfg: cfg, chunks: map[chunkKey]*chunk{}}
}

// onDisk reports whether a chunk counts as previously generated: everything
// within PregenRadius chunks of the border center.
func (s *chunkStore) onDisk(cx, cz int) bool {
	ccx := int(s.cfg.Border.CenterX) >> 4
	ccz := int(s.cfg.Border.CenterZ) >> 4
	dx, dz := cx-ccx, cz-ccz
	r := s.cfg.PregenRadius
	return dx >= -r && dx <= r && dz >= -r && dz <= r
}

func (s *chunkStore) load(cx, cz int, generate bool) *chunk {
	k := chunkKey{CX: cx, CZ: cz}
	if ch, ok := s.chunks[k]; ok {
		return ch
	}
	if !generate && !s.onDisk(cx, cz) {
		return nil
	}
	ch := newChunk(cx, cz, s.cfg.MinY, s.cfg.MaxY)
	s.generate(ch)
	s.chunks[k] = ch
	return ch
}

func (s *chunkStore) setBlock(x, y, z int, b world.Block) {
	ch := s.load(x>>4, z>>4, true)
	ch.set(x-ch.cx*16, y, z-ch.cz*16, b)
}

func (s *chunkStore) loadedKeys() []chunkKey {
	keys := make([]chunkKey, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

package world

import "context"

// BlockView is read access to world geometry around a loaded chunk. Reads
// must happen on the owning execution context (see Executor).
type BlockView interface {
	Block(x, y, z int) Block
	Biome(x, y, z int) Biome
	// HighestBlockY returns the y of the highest motion-blocking, non-leaf
	// block in the column.
	HighestBlockY(x, z int) int
	MinY() int
	MaxY() int
}

// Chunk is a loaded 16x16 column of world data.
type Chunk interface {
	BlockView
	X() int
	Z() int
}

// ChunkProvider makes a chunk available, optionally generating it. A nil
// chunk with a nil error means the chunk is not available.
type ChunkProvider interface {
	EnsureChunk(ctx context.Context, world string, cx, cz int, generate bool) (Chunk, error)
}

// Executor runs fn on the execution context that owns the coordinate.
type Executor interface {
	Run(ctx context.Context, at Coordinate, fn func()) error
}

// Relocator moves a player to a coordinate on the local process.
type Relocator interface {
	Relocate(ctx context.Context, identity string, to Coordinate) (bool, error)
}

// Host bundles the capabilities a world runtime exposes to the search.
type Host interface {
	ChunkProvider
	Executor
	Relocator
}

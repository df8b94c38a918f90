package world

import "strings"

type Block string

const (
	Air          Block = "AIR"
	CaveAir      Block = "CAVE_AIR"
	VoidAir      Block = "VOID_AIR"
	Bedrock      Block = "BEDROCK"
	Stone        Block = "STONE"
	Dirt         Block = "DIRT"
	GrassBlock   Block = "GRASS_BLOCK"
	Sand         Block = "SAND"
	Gravel       Block = "GRAVEL"
	Snow         Block = "SNOW_BLOCK"
	Water        Block = "WATER"
	Lava         Block = "LAVA"
	OakLog       Block = "OAK_LOG"
	OakLeaves    Block = "OAK_LEAVES"
	SpruceLeaves Block = "SPRUCE_LEAVES"
	Cactus       Block = "CACTUS"
	MagmaBlock   Block = "MAGMA_BLOCK"
	Netherrack   Block = "NETHERRACK"
	SoulSand     Block = "SOUL_SAND"
	Glowstone    Block = "GLOWSTONE"
	EndStone     Block = "END_STONE"
	Obsidian     Block = "OBSIDIAN"
	ShortGrass   Block = "SHORT_GRASS"
	Poppy        Block = "POPPY"
	Torch        Block = "TORCH"
)

type blockProps struct {
	air      bool
	liquid   bool
	solid    bool
	leaves   bool
	passable bool
}

var blockTable = map[Block]blockProps{
	Air:          {air: true, passable: true},
	CaveAir:      {air: true, passable: true},
	VoidAir:      {air: true, passable: true},
	Bedrock:      {solid: true},
	Stone:        {solid: true},
	Dirt:         {solid: true},
	GrassBlock:   {solid: true},
	Sand:         {solid: true},
	Gravel:       {solid: true},
	Snow:         {solid: true},
	Water:        {liquid: true},
	Lava:         {liquid: true},
	OakLog:       {solid: true},
	OakLeaves:    {solid: true, leaves: true},
	SpruceLeaves: {solid: true, leaves: true},
	Cactus:       {solid: true},
	MagmaBlock:   {solid: true},
	Netherrack:   {solid: true},
	SoulSand:     {solid: true},
	Glowstone:    {solid: true},
	EndStone:     {solid: true},
	Obsidian:     {solid: true},
	ShortGrass:   {passable: true},
	Poppy:        {passable: true},
	Torch:        {passable: true},
}

// ParseBlock resolves a configured block name. Unknown names report false.
func ParseBlock(name string) (Block, bool) {
	b := Block(strings.ToUpper(strings.TrimSpace(name)))
	_, ok := blockTable[b]
	return b, ok
}

func (b Block) IsAir() bool    { return blockTable[b].air }
func (b Block) IsLiquid() bool { return blockTable[b].liquid }
func (b Block) IsSolid() bool  { return blockTable[b].solid }
func (b Block) IsLeaves() bool { return blockTable[b].leaves }

// IsPassable reports whether an entity can occupy the block's space.
func (b Block) IsPassable() bool { return blockTable[b].passable }

// BlocksMotion matches the heightmap notion of a motion-blocking block:
// anything solid or liquid.
func (b Block) BlocksMotion() bool {
	p := blockTable[b]
	return p.solid || p.liquid
}

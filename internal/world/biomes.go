package world

import "strings"

type Biome string

const (
	Plains         Biome = "PLAINS"
	Forest         Biome = "FOREST"
	Desert         Biome = "DESERT"
	Taiga          Biome = "TAIGA"
	Ocean          Biome = "OCEAN"
	DeepOcean      Biome = "DEEP_OCEAN"
	River          Biome = "RIVER"
	Mountains      Biome = "MOUNTAINS"
	NetherWastes   Biome = "NETHER_WASTES"
	SoulSandValley Biome = "SOUL_SAND_VALLEY"
	TheEnd         Biome = "THE_END"
	EndHighlands   Biome = "END_HIGHLANDS"
)

var knownBiomes = map[Biome]struct{}{
	Plains: {}, Forest: {}, Desert: {}, Taiga: {}, Ocean: {}, DeepOcean: {},
	River: {}, Mountains: {}, NetherWastes: {}, SoulSandValley: {},
	TheEnd: {}, EndHighlands: {},
}

func ParseBiome(name string) (Biome, bool) {
	b := Biome(strings.ToUpper(strings.TrimSpace(name)))
	_, ok := knownBiomes[b]
	return b, ok
}

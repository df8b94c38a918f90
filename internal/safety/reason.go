package safety

import (
	"fmt"
	"strings"
)

type FailureReason int

const (
	BlacklistedBlock FailureReason = iota + 1
	LavaNearby
	LiquidFloor
	AirFloor
	Obstructed
	InvalidBiome
	RegionClaim
	Unknown
)

var reasonNames = map[FailureReason]string{
	BlacklistedBlock: "BLACKLISTED_BLOCK",
	LavaNearby:       "LAVA_NEARBY",
	LiquidFloor:      "LIQUID_FLOOR",
	AirFloor:         "AIR_FLOOR",
	Obstructed:       "OBSTRUCTED",
	InvalidBiome:     "INVALID_BIOME",
	RegionClaim:      "REGION_CLAIM",
	Unknown:          "UNKNOWN",
}

// AllReasons lists reasons in check order, UNKNOWN last.
var AllReasons = []FailureReason{
	BlacklistedBlock, LavaNearby, LiquidFloor, AirFloor, Obstructed, InvalidBiome, RegionClaim, Unknown,
}

func (r FailureReason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return "UNKNOWN"
}

func (r FailureReason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Summary is the per-search failure histogram. Chunk misses are tracked on
// their own because they never reach the validator.
type Summary struct {
	Counts      map[FailureReason]int
	ChunkMisses int
}

func NewSummary() *Summary {
	return &Summary{Counts: map[FailureReason]int{}}
}

func (s *Summary) Record(r FailureReason) { s.Counts[r]++ }

func (s *Summary) RecordChunkMiss() { s.ChunkMisses++ }

// Total is the number of validator rejections.
func (s *Summary) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

func (s *Summary) String() string {
	var b strings.Builder
	for _, r := range AllReasons {
		n := s.Counts[r]
		if n == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%d", r, n)
	}
	if s.ChunkMisses > 0 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "CHUNK_UNAVAILABLE=%d", s.ChunkMisses)
	}
	if b.Len() == 0 {
		return "none"
	}
	return b.String()
}

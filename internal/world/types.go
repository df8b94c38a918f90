// Package world holds the value types shared by the search, queue and handoff
// layers, and the capabilities they consume from the host world runtime.
package world

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrUnknownWorld = errors.New("unknown world")

// Coordinate is an integer block position inside a named world.
type Coordinate struct {
	World string `json:"world"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%s(%d,%d,%d)", c.World, c.X, c.Y, c.Z)
}

func (c Coordinate) Add(dx, dy, dz int) Coordinate {
	return Coordinate{World: c.World, X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
}

func (c Coordinate) ChunkX() int { return c.X >> 4 }
func (c Coordinate) ChunkZ() int { return c.Z >> 4 }

type Type string

const (
	TypeNormal Type = "NORMAL"
	TypeNether Type = "NETHER"
	TypeEnd    Type = "END"
)

func ParseType(s string) (Type, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NORMAL", "OVERWORLD":
		return TypeNormal, true
	case "NETHER":
		return TypeNether, true
	case "END", "THE_END":
		return TypeEnd, true
	default:
		return TypeNormal, false
	}
}

// Border is a square world border described by its center and full side length.
type Border struct {
	CenterX float64
	CenterZ float64
	Size    float64
}

func (b Border) Half() float64 { return b.Size / 2 }

// Extents are rounded inward so every returned block lies inside the border.
func (b Border) MinX() int { return int(math.Ceil(b.CenterX - b.Half())) }
func (b Border) MaxX() int { return int(math.Floor(b.CenterX + b.Half())) }
func (b Border) MinZ() int { return int(math.Ceil(b.CenterZ - b.Half())) }
func (b Border) MaxZ() int { return int(math.Floor(b.CenterZ + b.Half())) }

func (b Border) Contains(x, z int) bool {
	return x >= b.MinX() && x <= b.MaxX() && z >= b.MinZ() && z <= b.MaxZ()
}

// Point2 is a horizontal (x,z) point.
type Point2 struct {
	X int `yaml:"x" json:"x"`
	Z int `yaml:"z" json:"z"`
}

// Profile is the per-world search configuration.
type Profile struct {
	Name           string
	Type           Type
	Center         *Point2
	MinRadius      int
	MaxRadius      int
	GenerateChunks bool
}

package regions

import "voxelrtp.ai/internal/world"

// Claim is an axis-aligned protected rectangle in one world, bounds inclusive.
type Claim struct {
	World string
	Owner string
	MinX  int
	MinZ  int
	MaxX  int
	MaxZ  int
}

func (c Claim) Contains(x, z int) bool {
	return x >= c.MinX && x <= c.MaxX && z >= c.MinZ && z <= c.MaxZ
}

// ClaimProvider denies any coordinate inside a configured claim.
type ClaimProvider struct {
	byWorld map[string][]Claim
}

func NewClaimProvider(claims []Claim) *ClaimProvider {
	p := &ClaimProvider{byWorld: map[string][]Claim{}}
	for _, c := range claims {
		if c.MinX > c.MaxX {
			c.MinX, c.MaxX = c.MaxX, c.MinX
		}
		if c.MinZ > c.MaxZ {
			c.MinZ, c.MaxZ = c.MaxZ, c.MinZ
		}
		p.byWorld[c.World] = append(p.byWorld[c.World], c)
	}
	return p
}

func (p *ClaimProvider) Name() string { return "claims" }

func (p *ClaimProvider) IsLocationSafe(c world.Coordinate) bool {
	for _, cl := range p.byWorld[c.World] {
		if cl.Contains(c.X, c.Z) {
			return false
		}
	}
	return true
}

// ProbeClaims binds the claim provider only when claims are configured.
func ProbeClaims(claims []Claim) Probe {
	return func() (Provider, bool) {
		if len(claims) == 0 {
			return nil, false
		}
		return NewClaimProvider(claims), true
	}
}

package search

import (
	"math"
	"math/rand/v2"
	"sync"

	"voxelrtp.ai/internal/mathx"
	"voxelrtp.ai/internal/world"
)

// sampler draws annulus points. Safe for concurrent use.
type sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newSampler(seed uint64) *sampler {
	return &sampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// polar returns a uniform angle and a radius of sqrt(U)*(max-min)+min.
func (s *sampler) polar(minR, maxR int) (theta, r float64) {
	s.mu.Lock()
	u := s.rng.Float64()
	theta = s.rng.Float64() * 2 * math.Pi
	s.mu.Unlock()
	r = math.Sqrt(u)*float64(maxR-minR) + float64(minR)
	return theta, r
}

// areaUniform draws a radius whose density is proportional to r on
// [minR, maxR].
func (s *sampler) areaUniform(minR, maxR float64) (theta, r float64) {
	s.mu.Lock()
	u := s.rng.Float64()
	theta = s.rng.Float64() * 2 * math.Pi
	s.mu.Unlock()
	r = math.Sqrt(u*(maxR*maxR-minR*minR) + minR*minR)
	return theta, r
}

// point projects a polar sample around center and clamps it to the border.
func point(cx, cz, theta, r float64, b world.Border) (int, int) {
	x := mathx.RoundInt(cx + r*math.Cos(theta))
	z := mathx.RoundInt(cz + r*math.Sin(theta))
	return mathx.ClampInt(x, b.MinX(), b.MaxX()), mathx.ClampInt(z, b.MinZ(), b.MaxZ())
}

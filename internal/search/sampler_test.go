package search

import (
	"math"
	"testing"
)

// Over an annulus 100..500 the outer half (r > 300) holds 3/4 of the mass
// under sqrt(U) sampling; uniform-in-r sampling would put half there.
func TestSampler_RadiusWeightedTowardOuterEdge(t *testing.T) {
	s := newSampler(7)
	const n = 10000
	var outer int
	buckets := make([]int, 4)
	for i := 0; i < n; i++ {
		_, r := s.polar(100, 500)
		if r < 100 || r > 500 {
			t.Fatalf("radius %.2f outside [100,500]", r)
		}
		if r > 300 {
			outer++
		}
		b := int((r - 100) / 100)
		if b > 3 {
			b = 3
		}
		buckets[b]++
	}
	if frac := float64(outer) / n; math.Abs(frac-0.75) > 0.02 {
		t.Fatalf("outer fraction %.3f, want ~0.75", frac)
	}
	for i := 1; i < len(buckets); i++ {
		if buckets[i] <= buckets[i-1] {
			t.Fatalf("bucket counts not increasing with r: %v", buckets)
		}
	}
}

func TestSampler_AreaUniformSpread(t *testing.T) {
	s := newSampler(11)
	const n = 10000
	mid := math.Sqrt((2*2 + 8*8) / 2.0)
	var inner int
	for i := 0; i < n; i++ {
		_, r := s.areaUniform(2, 8)
		if r < 2 || r > 8 {
			t.Fatalf("radius %.2f outside [2,8]", r)
		}
		if r <= mid {
			inner++
		}
	}
	if frac := float64(inner) / n; math.Abs(frac-0.5) > 0.02 {
		t.Fatalf("inner fraction %.3f, want ~0.5", frac)
	}
}

func TestPoint_ClampsToBorder(t *testing.T) {
	b := borderOf(0, 0, 100)
	x, z := point(0, 0, 0, 80, b)
	if x != 50 || z != 0 {
		t.Fatalf("got %d,%d", x, z)
	}
	x, z = point(0, 0, math.Pi, 80, b)
	if x != -50 || z != 0 {
		t.Fatalf("got %d,%d", x, z)
	}
}

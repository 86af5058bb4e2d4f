package forecast

import (
	"math"
	"math/rand/v2"
)

// NoisePolicy scales the per-step perturbation with the last observed
// daily change, bounded by Cap.
type NoisePolicy struct {
	Scale float64
	Cap   float64
}

// Sigma returns min(|lastChange|*Scale, Cap), never negative.
func (p NoisePolicy) Sigma(lastChange float64) float64 {
	s := math.Abs(lastChange) * p.Scale
	if s > p.Cap {
		s = p.Cap
	}
	if s < 0 || math.IsNaN(s) {
		return 0
	}
	return s
}

// Draw samples N(0, Sigma(lastChange)) from rng.
func (p NoisePolicy) Draw(rng *rand.Rand, lastChange float64) float64 {
	s := p.Sigma(lastChange)
	if s == 0 {
		return 0
	}
	return rng.NormFloat64() * s
}

// pathRNG returns the deterministic source of path idx under seed.
func pathRNG(seed uint64, idx int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(idx)))
}

package disclosure

import "gonum.org/v1/gonum/stat/distuv"

// NoiseSource yields one independent noise draw per call.
type NoiseSource interface {
	Sample() float64
}

// NoiseScale is the Laplace scale parameter applied to published counts.
const NoiseScale = 1.0

// LaplaceNoise draws zero-mean Laplace noise from the process-wide random source, so
// draws differ across groups and across runs.
type LaplaceNoise struct {
	dist distuv.Laplace
}

// NewLaplaceNoise returns a Laplace(0, NoiseScale) sampler.
func NewLaplaceNoise() *LaplaceNoise {
	return &LaplaceNoise{dist: distuv.Laplace{Mu: 0, Scale: NoiseScale}}
}

// Sample implements NoiseSource.
func (l *LaplaceNoise) Sample() float64 {
	return l.dist.Rand()
}

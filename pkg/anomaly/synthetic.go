package anomaly

import "math/rand/v2"

// SyntheticBatch returns n values drawn uniformly from [lo, hi). It stands in
// for real readings when demonstrating the detector.
func SyntheticBatch(n int, lo, hi float64, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, ^seed))
	values := make([]float64, n)
	for i := range values {
		values[i] = lo + rng.Float64()*(hi-lo)
	}
	return values
}

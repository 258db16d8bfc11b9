package anomaly

import (
	"math"
	"math/rand/v2"
)

const eulerGamma = 0.5772156649015329

type node struct {
	split       float64
	left, right *node
	size        int
}

type forest struct {
	trees      []*node
	sampleSize int
}

func fit(points []float64, trees, maxSamples int, rng *rand.Rand) *forest {
	psi := min(maxSamples, len(points))
	limit := int(math.Ceil(math.Log2(float64(psi))))

	f := &forest{
		trees:      make([]*node, 0, trees),
		sampleSize: psi,
	}
	work := make([]float64, len(points))
	for t := 0; t < trees; t++ {
		copy(work, points)
		// partial Fisher-Yates: the first psi entries become the subsample
		for i := 0; i < psi; i++ {
			j := i + rng.IntN(len(work)-i)
			work[i], work[j] = work[j], work[i]
		}
		sample := make([]float64, psi)
		copy(sample, work[:psi])
		f.trees = append(f.trees, grow(sample, 0, limit, rng))
	}
	return f
}

func grow(values []float64, depth, limit int, rng *rand.Rand) *node {
	if depth >= limit || len(values) <= 1 {
		return &node{size: len(values)}
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return &node{size: len(values)}
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right []float64
	for _, v := range values {
		if v < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	return &node{
		split: split,
		left:  grow(left, depth+1, limit, rng),
		right: grow(right, depth+1, limit, rng),
		size:  len(values),
	}
}

func (n *node) pathLength(x float64, depth int) float64 {
	if n.left == nil {
		return float64(depth) + averagePathLength(n.size)
	}
	if x < n.split {
		return n.left.pathLength(x, depth+1)
	}
	return n.right.pathLength(x, depth+1)
}

func (f *forest) score(x float64) float64 {
	var total float64
	for _, tree := range f.trees {
		total += tree.pathLength(x, 0)
	}
	mean := total / float64(len(f.trees))
	return math.Pow(2, -mean/averagePathLength(f.sampleSize))
}

// averagePathLength is the expected path length of an unsuccessful search in
// a binary search tree built from n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		m := float64(n)
		return 2*(math.Log(m-1)+eulerGamma) - 2*(m-1)/m
	}
}

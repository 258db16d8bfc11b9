package timeseries

import (
	"math"

	"github.com/voluzi/taskpilot/pkg/types"
)

// AverageCPU returns the mean CPU percent over valid samples, or NaN when
// there are none.
func (b *Buffer) AverageCPU() float64 {
	return average(b.Snapshot(), func(s types.MetricSample) float64 { return s.CPUPercent })
}

// AverageMemory returns the mean memory percent over valid samples, or NaN
// when there are none.
func (b *Buffer) AverageMemory() float64 {
	return average(b.Snapshot(), func(s types.MetricSample) float64 { return s.MemPercent })
}

// Peak returns the valid sample with the highest CPU percent.
func (b *Buffer) Peak() (types.MetricSample, bool) {
	var (
		best  types.MetricSample
		found bool
	)
	for _, s := range b.Snapshot() {
		if math.IsNaN(s.CPUPercent) {
			continue
		}
		if !found || s.CPUPercent > best.CPUPercent {
			best = s
			found = true
		}
	}
	return best, found
}

func average(samples []types.MetricSample, value func(types.MetricSample) float64) float64 {
	var total float64
	var count int
	for _, s := range samples {
		v := value(s)
		if math.IsNaN(v) {
			continue
		}
		total += v
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return total / float64(count)
}

package pipeline

import (
	"time"

	"github.com/voluzi/taskpilot/pkg/anomaly"
	"github.com/voluzi/taskpilot/pkg/effect"
	"github.com/voluzi/taskpilot/pkg/ranker"
	"github.com/voluzi/taskpilot/pkg/timeseries"
	"github.com/voluzi/taskpilot/pkg/types"
)

const (
	// SyntheticBatchSize, SyntheticLow and SyntheticHigh describe the demo
	// batch: one value per simulated process, uniform in [low, high).
	SyntheticBatchSize = 50
	SyntheticLow       = 1.0
	SyntheticHigh      = 100.0
)

func defaultOptions() *Options {
	return &Options{
		Capacity:      timeseries.DefaultCapacity,
		TopK:          types.DefaultTopK,
		RankBy:        ranker.ByCPU,
		Contamination: anomaly.DefaultContamination,
		Ticks:         Immediate{},
		Wait:          effect.DefaultWait,
	}
}

type Options struct {
	Capacity      int
	TopK          int
	RankBy        ranker.Key
	Contamination float64
	Seed          *uint64
	Ticks         TickSource
	Synthetic     bool
	Compare       bool
	Action        effect.Action
	Wait          time.Duration
	OnSample      func(types.MetricSample)
}

type Option func(*Options)

func WithCapacity(n int) Option {
	return func(opts *Options) {
		opts.Capacity = n
	}
}

func WithTopK(k int) Option {
	return func(opts *Options) {
		opts.TopK = k
	}
}

func WithRankBy(key ranker.Key) Option {
	return func(opts *Options) {
		opts.RankBy = key
	}
}

func WithContamination(c float64) Option {
	return func(opts *Options) {
		opts.Contamination = c
	}
}

func WithSeed(seed uint64) Option {
	return func(opts *Options) {
		opts.Seed = &seed
	}
}

func WithTicks(t TickSource) Option {
	return func(opts *Options) {
		opts.Ticks = t
	}
}

// WithSynthetic feeds the detector a generated batch instead of the live
// per-process CPU readings.
func WithSynthetic(enabled bool) Option {
	return func(opts *Options) {
		opts.Synthetic = enabled
	}
}

// WithComparison enables the before/after stage. action may be nil, in
// which case the comparator only waits.
func WithComparison(action effect.Action, wait time.Duration) Option {
	return func(opts *Options) {
		opts.Compare = true
		opts.Action = action
		opts.Wait = wait
	}
}

func WithSampleObserver(fn func(types.MetricSample)) Option {
	return func(opts *Options) {
		opts.OnSample = fn
	}
}

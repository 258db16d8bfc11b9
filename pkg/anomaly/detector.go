// Package anomaly flags outlying values in a batch of scalar resource
// readings with an isolation forest.
//
// Every call fits a fresh forest on the batch it is given; nothing is kept
// between calls. Scores lie in (0,1] and grow as a value becomes easier to
// isolate, so higher means more outlying. A value is anomalous when its score
// is strictly above the (1 - contamination) quantile of the batch scores.
package anomaly

import (
	"math"
	"math/rand/v2"
	"sort"

	"emperror.dev/errors"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/voluzi/taskpilot/pkg/types"
)

const (
	ErrInvalidContamination = errors.Sentinel("contamination must be in the open interval (0, 1)")

	// neutralScore is reported when a batch is too small to isolate anything.
	neutralScore = 0.5
)

// Detector classifies batches of values.
type Detector struct {
	cfg *Options
}

// New creates a Detector.
func New(opts ...Option) *Detector {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.Trees < 1 {
		options.Trees = DefaultTrees
	}
	if options.MaxSamples < 2 {
		options.MaxSamples = DefaultMaxSamples
	}
	return &Detector{cfg: options}
}

// Detect is a shorthand for New(...).Detect(values) with the given
// contamination and optional seed.
func Detect(values []float64, contamination float64, seed *uint64) ([]types.AnomalyResult, error) {
	opts := []Option{WithContamination(contamination)}
	if seed != nil {
		opts = append(opts, WithSeed(*seed))
	}
	return New(opts...).Detect(values)
}

// Detect returns one result per value, in input order. NaN values do not
// take part in the fit and are reported with a NaN score.
func (d *Detector) Detect(values []float64) ([]types.AnomalyResult, error) {
	c := d.cfg.Contamination
	if math.IsNaN(c) || c <= 0 || c >= 1 {
		return nil, errors.WithDetails(ErrInvalidContamination, "contamination", c)
	}

	results := make([]types.AnomalyResult, len(values))
	points := make([]float64, 0, len(values))
	for i, v := range values {
		results[i].Index = i
		if math.IsNaN(v) {
			results[i].Score = math.NaN()
			continue
		}
		points = append(points, v)
	}

	if len(points) < 2 {
		for i := range results {
			if !math.IsNaN(results[i].Score) {
				results[i].Score = neutralScore
			}
		}
		return results, nil
	}

	seed, err := d.seedFor(values)
	if err != nil {
		return nil, err
	}
	f := fit(points, d.cfg.Trees, d.cfg.MaxSamples, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))

	scores := make([]float64, 0, len(points))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		results[i].Score = f.score(v)
		scores = append(scores, results[i].Score)
	}

	threshold := quantile(scores, 1-c)
	for i := range results {
		results[i].IsAnomalous = results[i].Score > threshold
	}
	return results, nil
}

func (d *Detector) seedFor(values []float64) (uint64, error) {
	if d.cfg.Seed != nil {
		return *d.cfg.Seed, nil
	}
	hash, err := hashstructure.Hash(values, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, errors.Wrap(err, "deriving seed from batch")
	}
	return hash, nil
}

// quantile returns the q-quantile of values using linear interpolation
// between closest ranks.
func quantile(values []float64, q float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

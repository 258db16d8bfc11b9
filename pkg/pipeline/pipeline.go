// Package pipeline wires the sampler, buffer, ranker, detector and
// comparator into a single run.
package pipeline

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/voluzi/taskpilot/pkg/anomaly"
	"github.com/voluzi/taskpilot/pkg/effect"
	"github.com/voluzi/taskpilot/pkg/ranker"
	"github.com/voluzi/taskpilot/pkg/sampler"
	"github.com/voluzi/taskpilot/pkg/timeseries"
	"github.com/voluzi/taskpilot/pkg/types"
)

const (
	SourceProcessCPU = "process-cpu"
	SourceSynthetic  = "synthetic"
)

type Pipeline struct {
	sampler sampler.Sampler
	cfg     *Options
}

func New(s sampler.Sampler, opts ...Option) *Pipeline {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.Ticks == nil {
		options.Ticks = Immediate{}
	}
	if options.RankBy == nil {
		options.RankBy = ranker.ByCPU
	}
	return &Pipeline{sampler: s, cfg: options}
}

// NewReport starts an empty report with a fresh run id.
func NewReport() *Report {
	return &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
}

// Run executes every stage in order. It only fails outright when the
// sampler cannot read metrics at all; a cancelled run returns the partial
// report together with the context error.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	if err := p.sampler.Probe(ctx); err != nil {
		return nil, err
	}

	report := NewReport()
	logger := log.WithField("run", report.RunID)

	logger.WithField("capacity", p.cfg.Capacity).Info("collecting system samples")
	series, err := p.Collect(ctx)
	report.Series = series
	if err != nil {
		report.Partial = true
		logger.WithField("collected", len(series)).Warn("collection interrupted")
		return report, err
	}

	snapshot, err := p.sampler.SampleProcesses(ctx)
	if err != nil {
		// enumeration worked during Probe; treat a later failure as an empty snapshot
		logger.Warnf("process snapshot failed: %v", err)
		snapshot = []types.ProcessEntry{}
	}

	report.Top = ranker.RankBy(snapshot, p.cfg.TopK, p.cfg.RankBy)
	logger.WithField("processes", len(snapshot)).Info("ranked processes")

	report.Anomalies, err = p.Anomalies(snapshot)
	if err != nil {
		return report, err
	}
	logger.WithField("flagged", len(report.Anomalies.Flagged())).Info("scored anomalies")

	if p.cfg.Compare {
		record, err := effect.New(p.sampler, effect.WithWait(p.cfg.Wait)).Measure(ctx, p.cfg.Action)
		if err != nil {
			report.Partial = true
			return report, err
		}
		report.Comparison = &record
	}

	return report, nil
}

// Collect runs the fill phase and returns the buffered series, which may be
// partial when err is non-nil.
func (p *Pipeline) Collect(ctx context.Context) ([]types.MetricSample, error) {
	buf := timeseries.New(p.cfg.Capacity)
	err := Fill(ctx, p.sampler, buf, p.cfg.Ticks, p.cfg.OnSample)
	return buf.Snapshot(), err
}

// Anomalies scores a snapshot, or the synthetic batch when configured.
func (p *Pipeline) Anomalies(snapshot []types.ProcessEntry) (*AnomalyTable, error) {
	table := &AnomalyTable{Source: SourceProcessCPU}
	if p.cfg.Synthetic {
		seed := uint64(time.Now().UnixNano())
		if p.cfg.Seed != nil {
			seed = *p.cfg.Seed
		}
		table.Source = SourceSynthetic
		table.Values = anomaly.SyntheticBatch(SyntheticBatchSize, SyntheticLow, SyntheticHigh, seed)
	} else {
		table.Values = sampler.ProcessValues(snapshot, ranker.ByCPU)
		table.PIDs = make([]int32, len(snapshot))
		for i, e := range snapshot {
			table.PIDs[i] = e.PID
		}
	}

	results, err := anomaly.Detect(table.Values, p.cfg.Contamination, p.cfg.Seed)
	if err != nil {
		return nil, errors.WrapIf(err, "detecting anomalies")
	}
	table.Results = results
	return table, nil
}

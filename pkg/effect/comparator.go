// Package effect measures system usage before and after an external
// corrective action.
package effect

import (
	"context"
	"time"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"

	"github.com/voluzi/taskpilot/pkg/sampler"
	"github.com/voluzi/taskpilot/pkg/types"
)

const DefaultWait = 5 * time.Second

// Action is performed by an external actor between the two captures. It
// may return an event describing what was done, or nil.
type Action func(ctx context.Context) (*types.ActionEvent, error)

type Options struct {
	// Wait is the pause between the action and the second capture.
	Wait time.Duration
}

type Option func(*Options)

func WithWait(d time.Duration) Option {
	return func(opts *Options) {
		opts.Wait = d
	}
}

// Comparator brackets an action with two system readings.
type Comparator struct {
	sampler sampler.Sampler
	cfg     *Options
}

func New(s sampler.Sampler, opts ...Option) *Comparator {
	options := &Options{Wait: DefaultWait}
	for _, opt := range opts {
		opt(options)
	}
	return &Comparator{sampler: s, cfg: options}
}

// CaptureBefore takes the reading preceding the action.
func (c *Comparator) CaptureBefore(ctx context.Context) types.MetricSample {
	sample := c.sampler.SampleSystem(ctx)
	sample.Tick = 0
	return sample
}

// CaptureAfter takes the reading following the action.
func (c *Comparator) CaptureAfter(ctx context.Context) types.MetricSample {
	sample := c.sampler.SampleSystem(ctx)
	sample.Tick = 1
	return sample
}

// Compare reports after minus before for each metric. It does not judge
// whether the action helped.
func Compare(before, after types.MetricSample) types.ComparisonRecord {
	return types.ComparisonRecord{
		Before:   before,
		After:    after,
		CPUDelta: after.CPUPercent - before.CPUPercent,
		MemDelta: after.MemPercent - before.MemPercent,
	}
}

// Measure captures a reading, runs action, waits, then captures again.
// A nil action only waits.
func (c *Comparator) Measure(ctx context.Context, action Action) (types.ComparisonRecord, error) {
	before := c.CaptureBefore(ctx)
	log.WithFields(map[string]interface{}{
		"cpu":    before.CPUPercent,
		"memory": before.MemPercent,
	}).Info("captured state before action")

	var event *types.ActionEvent
	if action != nil {
		var err error
		event, err = action(ctx)
		if err != nil {
			return types.ComparisonRecord{Before: before}, errors.WrapIf(err, "waiting for action")
		}
		if event != nil {
			log.WithFields(map[string]interface{}{
				"action": event.Action,
				"pid":    event.PID,
			}).Info("action reported")
		}
	}

	if c.cfg.Wait > 0 {
		log.WithField("wait", c.cfg.Wait).Debug("waiting for system to settle")
		timer := time.NewTimer(c.cfg.Wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return types.ComparisonRecord{Before: before, Action: event}, ctx.Err()
		case <-timer.C:
		}
	}

	after := c.CaptureAfter(ctx)
	record := Compare(before, after)
	record.Action = event

	log.WithFields(map[string]interface{}{
		"cpuDelta":    record.CPUDelta,
		"memoryDelta": record.MemDelta,
	}).Info("captured state after action")
	return record, nil
}

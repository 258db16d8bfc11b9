// Package sampler reads system-wide and per-process resource usage.
package sampler

import (
	"context"

	"emperror.dev/errors"

	"github.com/voluzi/taskpilot/pkg/types"
)

const (
	// ErrMetricsUnavailable means the OS metrics subsystem cannot be used at
	// all. It is the only sampler error that should end a run.
	ErrMetricsUnavailable = errors.Sentinel("os metrics are unavailable")

	ErrProcessEnumeration = errors.Sentinel("failed to enumerate processes")
)

// Sampler is the source of resource readings for the pipeline.
type Sampler interface {
	// SampleSystem blocks for the measurement window and returns a reading.
	// It never fails; unreadable metrics are NaN.
	SampleSystem(ctx context.Context) types.MetricSample

	// SampleProcesses returns one entry per live process. Processes that exit
	// while being read are left out.
	SampleProcesses(ctx context.Context) ([]types.ProcessEntry, error)

	// Probe checks that metrics can be read at all.
	Probe(ctx context.Context) error
}

// ProcessValues extracts one metric from a snapshot, preserving order.
func ProcessValues(entries []types.ProcessEntry, value func(types.ProcessEntry) float64) []float64 {
	result := make([]float64, len(entries))
	for i, e := range entries {
		result[i] = value(e)
	}
	return result
}

package sampler

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/voluzi/taskpilot/pkg/types"
)

// Mock is a scripted Sampler. System readings are served in order; once the
// script runs out the last reading repeats.
type Mock struct {
	mu        sync.Mutex
	system    []types.MetricSample
	processes []types.ProcessEntry
	probeErr  error
	window    time.Duration
	calls     int
}

var _ Sampler = (*Mock)(nil)

// NewMock creates a Mock that returns the given system readings.
func NewMock(system ...types.MetricSample) *Mock {
	return &Mock{system: system}
}

// SetProcesses sets the snapshot returned by SampleProcesses.
func (m *Mock) SetProcesses(entries []types.ProcessEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processes = entries
	log.WithField("processes", len(entries)).Debug("mock snapshot updated")
}

// SetProbeError makes Probe fail with err.
func (m *Mock) SetProbeError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probeErr = err
}

// SetWindow makes SampleSystem block for d, honouring ctx.
func (m *Mock) SetWindow(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.window = d
}

// Calls returns how many system readings were taken.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Mock) SampleSystem(ctx context.Context) types.MetricSample {
	m.mu.Lock()
	window := m.window
	m.mu.Unlock()

	if window > 0 {
		select {
		case <-ctx.Done():
			return types.InvalidSample()
		case <-time.After(window):
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sample := types.InvalidSample()
	if len(m.system) > 0 {
		idx := min(m.calls, len(m.system)-1)
		sample = m.system[idx]
	}
	m.calls++
	sample.Time = time.Now()
	return sample
}

func (m *Mock) SampleProcesses(_ context.Context) ([]types.ProcessEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]types.ProcessEntry, len(m.processes))
	copy(result, m.processes)
	return result, nil
}

func (m *Mock) Probe(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.probeErr
}

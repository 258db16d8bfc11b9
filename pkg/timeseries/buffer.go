package timeseries

import (
	"sync"

	"github.com/voluzi/taskpilot/pkg/types"
)

// DefaultCapacity is the number of ticks collected during one fill phase.
const DefaultCapacity = 30

// Buffer accumulates system samples up to a fixed capacity. Once full it
// rejects further appends; the oldest samples are never overwritten.
type Buffer struct {
	samples []types.MetricSample
	lock    sync.RWMutex

	// capacity is the maximum number of samples the buffer accepts
	capacity int
}

// New creates a Buffer holding at most capacity samples.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		samples:  make([]types.MetricSample, 0, capacity),
		capacity: capacity,
	}
}

// Append records a sample. It returns false when the buffer is already full.
func (b *Buffer) Append(sample types.MetricSample) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	if len(b.samples) >= b.capacity {
		return false
	}
	b.samples = append(b.samples, sample)
	return true
}

// Snapshot returns a copy of all samples in insertion order.
func (b *Buffer) Snapshot() []types.MetricSample {
	b.lock.RLock()
	defer b.lock.RUnlock()

	result := make([]types.MetricSample, len(b.samples))
	copy(result, b.samples)
	return result
}

// IsFull reports whether capacity has been reached.
func (b *Buffer) IsFull() bool {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.samples) >= b.capacity
}

// Len returns the number of samples held.
func (b *Buffer) Len() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.samples)
}

// Cap returns the configured capacity.
func (b *Buffer) Cap() int {
	return b.capacity
}

// FromSamples wraps an already collected series in a Buffer sized to fit it.
func FromSamples(samples []types.MetricSample) *Buffer {
	b := New(len(samples))
	b.samples = append(b.samples, samples...)
	return b
}

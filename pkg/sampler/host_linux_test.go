//go:build linux

package sampler

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/shirou/gopsutil/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vanishedPID is above the default pid_max, so it never names a live process.
const vanishedPID = 4194304 + 17

func TestHost_SampleProcesses_SkipsVanishedAndDuplicates(t *testing.T) {
	self, err := process.NewProcess(int32(os.Getpid()))
	require.NoError(t, err)

	h := newTestHost()
	h.processes = func(context.Context) ([]*process.Process, error) {
		return []*process.Process{self, {Pid: vanishedPID}, self}, nil
	}

	entries, err := h.SampleProcesses(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int32(os.Getpid()), entries[0].PID)
	assert.NotEmpty(t, entries[0].Name)
	assert.False(t, math.IsNaN(entries[0].MemPercent))

	// second pass serves the name from cache
	item := h.names.Get(int32(os.Getpid()))
	require.NotNil(t, item)
	assert.Equal(t, entries[0].Name, item.Value())
}

func TestHost_SampleProcesses_Live(t *testing.T) {
	h := newTestHost()
	require.NoError(t, h.Probe(context.Background()))

	entries, err := h.SampleProcesses(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	seen := make(map[int32]bool)
	for _, e := range entries {
		assert.Positive(t, e.PID)
		assert.False(t, seen[e.PID], "duplicate pid %d", e.PID)
		seen[e.PID] = true
	}
	assert.True(t, seen[int32(os.Getpid())])
}

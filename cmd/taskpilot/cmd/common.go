package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voluzi/taskpilot/pkg/anomaly"
	"github.com/voluzi/taskpilot/pkg/effect"
	"github.com/voluzi/taskpilot/pkg/pipeline"
	"github.com/voluzi/taskpilot/pkg/sampler"
	"github.com/voluzi/taskpilot/pkg/sink"
	"github.com/voluzi/taskpilot/pkg/trigger"
	"github.com/voluzi/taskpilot/pkg/types"
)

const (
	demoProcesses = 12
	demoReadings  = 60
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newSampler() sampler.Sampler {
	if useMock {
		return demoSampler(window)
	}
	return sampler.NewHost(
		sampler.WithWindow(window),
		sampler.WithRetryDelay(settings.Sampler.RetryDelay.Std()),
		sampler.WithNameCacheTTL(settings.Sampler.NameCacheTTL.Std()),
	)
}

// demoSampler scripts plausible readings so every command can be tried
// without touching the host.
func demoSampler(window time.Duration) *sampler.Mock {
	cpu := anomaly.SyntheticBatch(demoReadings, 5, 60, 1)
	mem := anomaly.SyntheticBatch(demoReadings, 30, 45, 2)
	readings := make([]types.MetricSample, len(cpu))
	for i := range readings {
		readings[i] = types.MetricSample{CPUPercent: cpu[i], MemPercent: mem[i]}
	}

	procCPU := anomaly.SyntheticBatch(demoProcesses, 0, 20, 3)
	procMem := anomaly.SyntheticBatch(demoProcesses, 0, 5, 4)
	entries := make([]types.ProcessEntry, demoProcesses)
	for i := range entries {
		entries[i] = types.ProcessEntry{
			PID:        int32(100 + i),
			Name:       fmt.Sprintf("worker-%d", i),
			CPUPercent: procCPU[i],
			MemPercent: procMem[i],
		}
	}
	// one runaway process for the detector to find
	entries[demoProcesses-1].Name = "runaway"
	entries[demoProcesses-1].CPUPercent = 97.5

	m := sampler.NewMock(readings...)
	m.SetProcesses(entries)
	m.SetWindow(window)
	return m
}

// actionSource returns the action awaited between the two readings of a
// comparison. The action file is only watched once the first reading is
// taken.
func actionSource() effect.Action {
	if actionFifo == "" {
		return nil
	}
	path, create := actionFifo, createFifo
	return func(ctx context.Context) (*types.ActionEvent, error) {
		return trigger.Await(ctx, path, create)
	}
}

func writeReport(w io.Writer, report *pipeline.Report) error {
	s, err := sink.ForFormat(format, w)
	if err != nil {
		return err
	}
	return s.Write(report)
}

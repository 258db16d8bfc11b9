package sampler

import (
	"context"
	"fmt"
	"math"
	"time"

	"emperror.dev/errors"
	"github.com/cenkalti/backoff/v4"
	"github.com/jellydator/ttlcache/v3"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
	log "github.com/sirupsen/logrus"

	"github.com/voluzi/taskpilot/pkg/types"
)

// Host samples the local machine through gopsutil.
type Host struct {
	cfg   *Options
	names *ttlcache.Cache[int32, string]

	// hooks replaced in tests
	cpuPercent    func(ctx context.Context, window time.Duration) (float64, error)
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	processes     func(ctx context.Context) ([]*process.Process, error)
}

var _ Sampler = (*Host)(nil)

// NewHost creates a Host sampler.
func NewHost(opts ...Option) *Host {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Host{
		cfg: options,
		names: ttlcache.New(
			ttlcache.WithTTL[int32, string](options.NameCacheTTL),
		),
		cpuPercent:    systemCPUPercent,
		virtualMemory: mem.VirtualMemoryWithContext,
		processes:     process.ProcessesWithContext,
	}
}

func systemCPUPercent(ctx context.Context, window time.Duration) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, window, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, errors.New("no cpu reading returned")
	}
	return percents[0], nil
}

func (h *Host) Probe(ctx context.Context) error {
	if _, err := h.virtualMemory(ctx); err != nil {
		return fmt.Errorf("reading memory: %w: %w", ErrMetricsUnavailable, err)
	}
	if _, err := h.processes(ctx); err != nil {
		return fmt.Errorf("enumerating processes: %w: %w", ErrMetricsUnavailable, err)
	}
	return nil
}

func (h *Host) SampleSystem(ctx context.Context) types.MetricSample {
	sample := types.InvalidSample()

	var cpuPercent float64
	err := h.retryOnce(ctx, "cpu", func() error {
		var err error
		cpuPercent, err = h.cpuPercent(ctx, h.cfg.Window)
		return err
	})
	if err == nil {
		sample.CPUPercent = cpuPercent
	}

	var vm *mem.VirtualMemoryStat
	err = h.retryOnce(ctx, "memory", func() error {
		var err error
		vm, err = h.virtualMemory(ctx)
		return err
	})
	if err == nil && vm != nil {
		sample.MemPercent = vm.UsedPercent
		sample.MemUsedBytes = vm.Used
		sample.MemTotalBytes = vm.Total
	}

	sample.Time = time.Now()
	return sample
}

// retryOnce runs op, and runs it a second time if the first attempt failed.
func (h *Host) retryOnce(ctx context.Context, metric string, op func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(h.cfg.RetryDelay), 1), ctx)
	err := backoff.RetryNotify(
		func() error {
			if err := ctx.Err(); err != nil {
				return backoff.Permanent(err)
			}
			return op()
		},
		policy,
		func(err error, d time.Duration) {
			log.WithField("metric", metric).Debugf("reading failed: %v, retrying in %v", err, d)
		},
	)
	if err != nil {
		log.WithField("metric", metric).Warnf("marking reading invalid: %v", err)
	}
	return err
}

// SampleProcesses reads every visible process once. A process CPU percentage
// is its average since the process started, not a rate over the sampling
// window; short spikes in long-lived processes barely move it.
func (h *Host) SampleProcesses(ctx context.Context) ([]types.ProcessEntry, error) {
	procs, err := h.processes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pids: %w: %w", ErrProcessEnumeration, err)
	}

	h.names.DeleteExpired()

	entries := make([]types.ProcessEntry, 0, len(procs))
	seen := make(map[int32]struct{}, len(procs))
	for _, p := range procs {
		if _, dup := seen[p.Pid]; dup {
			continue
		}
		entry, ok := h.readProcess(ctx, p)
		if !ok {
			continue
		}
		seen[p.Pid] = struct{}{}
		entries = append(entries, entry)
	}
	return entries, nil
}

// readProcess reads one process. It returns false when the process is gone.
func (h *Host) readProcess(ctx context.Context, p *process.Process) (types.ProcessEntry, bool) {
	entry := types.ProcessEntry{
		PID:        p.Pid,
		CPUPercent: math.NaN(),
		MemPercent: math.NaN(),
	}
	failed := false

	if item := h.names.Get(p.Pid); item != nil {
		entry.Name = item.Value()
	} else if name, err := p.NameWithContext(ctx); err == nil {
		entry.Name = name
		h.names.Set(p.Pid, name, ttlcache.DefaultTTL)
	} else {
		failed = true
	}

	// lifetime average: busy time over wall time since process start
	if cpuPercent, err := p.CPUPercentWithContext(ctx); err == nil {
		entry.CPUPercent = cpuPercent
	} else {
		failed = true
	}

	if memPercent, err := p.MemoryPercentWithContext(ctx); err == nil {
		entry.MemPercent = float64(memPercent)
	} else {
		failed = true
	}

	if failed && !pidExists(ctx, p.Pid) {
		log.WithField("pid", p.Pid).Debug("process exited while sampling")
		h.names.Delete(p.Pid)
		return entry, false
	}
	return entry, true
}

func pidExists(ctx context.Context, pid int32) bool {
	exists, err := process.PidExistsWithContext(ctx, pid)
	return err == nil && exists
}

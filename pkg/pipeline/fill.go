package pipeline

import (
	"context"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"

	"github.com/voluzi/taskpilot/pkg/sampler"
	"github.com/voluzi/taskpilot/pkg/timeseries"
	"github.com/voluzi/taskpilot/pkg/types"
)

// Fill samples the system once per tick until buf is full. Cancellation is
// only observed between ticks, so buf always holds whole samples. On
// cancellation the context error is returned and buf keeps what was
// collected so far.
func Fill(ctx context.Context, s sampler.Sampler, buf *timeseries.Buffer, ticks TickSource, observe func(types.MetricSample)) error {
	if ticks == nil {
		ticks = Immediate{}
	}

	for !buf.IsFull() {
		if err := ticks.Wait(ctx); err != nil {
			return errors.WrapIfWithDetails(err, "fill interrupted", "collected", buf.Len())
		}

		sample := s.SampleSystem(ctx)
		if ctx.Err() != nil {
			// a reading cut short by cancellation is not a real sample
			return errors.WrapIfWithDetails(ctx.Err(), "fill interrupted", "collected", buf.Len())
		}
		sample.Tick = buf.Len()
		buf.Append(sample)

		log.WithFields(map[string]interface{}{
			"tick":   sample.Tick,
			"cpu":    sample.CPUPercent,
			"memory": sample.MemPercent,
		}).Debug("collected sample")
		if observe != nil {
			observe(sample)
		}
	}
	return nil
}

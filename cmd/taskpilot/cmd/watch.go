package cmd

import (
	"context"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voluzi/taskpilot/pkg/pipeline"
	"github.com/voluzi/taskpilot/pkg/types"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Collects system samples until the buffer is full",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		s := newSampler()
		if err := s.Probe(ctx); err != nil {
			return err
		}

		p := pipeline.New(s,
			pipeline.WithCapacity(capacity),
			pipeline.WithTicks(pipeline.NewTicks(interval)),
			pipeline.WithSampleObserver(func(sample types.MetricSample) {
				log.WithFields(map[string]interface{}{
					"tick":   sample.Tick,
					"cpu":    sample.CPUPercent,
					"memory": sample.MemPercent,
				}).Info("sample")
			}),
		)

		report := pipeline.NewReport()
		series, err := p.Collect(ctx)
		report.Series = series
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				return err
			}
			report.Partial = true
		}
		return writeReport(cmd.OutOrStdout(), report)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addSamplerFlags(watchCmd)
	addCollectionFlags(watchCmd)
}

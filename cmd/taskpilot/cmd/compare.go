package cmd

import (
	"context"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voluzi/taskpilot/pkg/effect"
	"github.com/voluzi/taskpilot/pkg/pipeline"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Measures system usage before and after an external action",
	Long: `Compare takes a system reading, waits for an action event on --action-fifo
(or just waits when none is given), pauses for --wait and takes a second
reading. The external actor performs the action itself.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		s := newSampler()
		if err := s.Probe(ctx); err != nil {
			return err
		}

		record, err := effect.New(s, effect.WithWait(wait)).Measure(ctx, actionSource())
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("comparison interrupted before the second reading")
				return nil
			}
			return err
		}

		report := pipeline.NewReport()
		report.Comparison = &record
		return writeReport(cmd.OutOrStdout(), report)
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
	addSamplerFlags(compareCmd)
	addComparisonFlags(compareCmd)
}

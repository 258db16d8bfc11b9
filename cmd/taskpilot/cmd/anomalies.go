package cmd

import (
	"github.com/spf13/cobra"

	"github.com/voluzi/taskpilot/pkg/pipeline"
	"github.com/voluzi/taskpilot/pkg/types"
)

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "Scores per-process CPU usage of one snapshot for outliers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := pipelineOptions()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		s := newSampler()
		p := pipeline.New(s, opts...)

		var snapshot []types.ProcessEntry
		if !synthetic {
			if err := s.Probe(ctx); err != nil {
				return err
			}
			if snapshot, err = s.SampleProcesses(ctx); err != nil {
				return err
			}
		}

		report := pipeline.NewReport()
		if report.Anomalies, err = p.Anomalies(snapshot); err != nil {
			return err
		}
		return writeReport(cmd.OutOrStdout(), report)
	},
}

func init() {
	rootCmd.AddCommand(anomaliesCmd)
	addSamplerFlags(anomaliesCmd)
	addDetectionFlags(anomaliesCmd)
}

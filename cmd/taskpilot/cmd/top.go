package cmd

import (
	"emperror.dev/errors"
	"github.com/spf13/cobra"

	"github.com/voluzi/taskpilot/pkg/pipeline"
	"github.com/voluzi/taskpilot/pkg/ranker"
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Lists the busiest processes from one snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, ok := ranker.KeyFromString(rankBy)
		if !ok {
			return errors.NewWithDetails("unknown ranking key", "by", rankBy)
		}

		ctx, cancel := signalContext()
		defer cancel()

		s := newSampler()
		if err := s.Probe(ctx); err != nil {
			return err
		}
		snapshot, err := s.SampleProcesses(ctx)
		if err != nil {
			return err
		}

		report := pipeline.NewReport()
		report.Top = ranker.RankBy(snapshot, topK, key)
		return writeReport(cmd.OutOrStdout(), report)
	},
}

func init() {
	rootCmd.AddCommand(topCmd)
	addSamplerFlags(topCmd)
	addRankingFlags(topCmd)
}

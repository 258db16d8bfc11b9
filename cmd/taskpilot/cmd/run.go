package cmd

import (
	"context"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voluzi/taskpilot/pkg/environ"
	"github.com/voluzi/taskpilot/pkg/pipeline"
	"github.com/voluzi/taskpilot/pkg/ranker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs the whole sampling, ranking and detection pipeline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := pipelineOptions()
		if err != nil {
			return err
		}

		if compare {
			opts = append(opts, pipeline.WithComparison(actionSource(), wait))
		}

		ctx, cancel := signalContext()
		defer cancel()

		report, err := pipeline.New(newSampler(), opts...).Run(ctx)
		if report == nil {
			return err
		}
		if werr := writeReport(cmd.OutOrStdout(), report); werr != nil {
			return werr
		}
		if errors.Is(err, context.Canceled) {
			log.Warn("run interrupted, partial report written")
			return nil
		}
		return err
	},
}

func pipelineOptions() ([]pipeline.Option, error) {
	key, ok := ranker.KeyFromString(rankBy)
	if !ok {
		return nil, errors.NewWithDetails("unknown ranking key", "by", rankBy)
	}

	opts := []pipeline.Option{
		pipeline.WithCapacity(capacity),
		pipeline.WithTicks(pipeline.NewTicks(interval)),
		pipeline.WithTopK(topK),
		pipeline.WithRankBy(key),
		pipeline.WithContamination(contamination),
		pipeline.WithSynthetic(synthetic),
	}

	s, err := parseSeed()
	if err != nil {
		return nil, err
	}
	if s != nil {
		opts = append(opts, pipeline.WithSeed(*s))
	}
	return opts, nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	addSamplerFlags(runCmd)
	addCollectionFlags(runCmd)
	addRankingFlags(runCmd)
	addDetectionFlags(runCmd)
	addComparisonFlags(runCmd)
	runCmd.Flags().BoolVar(&compare, "compare",
		environ.GetBool(environ.Key("compare"), false),
		"Measure usage before and after an external action once detection is done",
	)
}

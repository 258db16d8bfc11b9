package cmd

import (
	"os"
	"strconv"
	"time"

	"emperror.dev/errors"
	"github.com/spf13/cobra"

	"github.com/voluzi/taskpilot/internal/config"
	"github.com/voluzi/taskpilot/pkg/anomaly"
	"github.com/voluzi/taskpilot/pkg/effect"
	"github.com/voluzi/taskpilot/pkg/environ"
	"github.com/voluzi/taskpilot/pkg/sampler"
	"github.com/voluzi/taskpilot/pkg/timeseries"
	"github.com/voluzi/taskpilot/pkg/types"
)

var (
	window   time.Duration
	useMock  bool
	capacity int
	interval time.Duration

	topK   int
	rankBy string

	contamination float64
	seed          string
	synthetic     bool

	compare    bool
	wait       time.Duration
	actionFifo string
	createFifo bool

	settings = config.Default()
)

// configValues maps flag names to the config file value used when neither
// the flag nor its environment variable is set.
var configValues = map[string]func(*config.Config) string{
	"log-level": func(c *config.Config) string { return c.LogLevel },
	"format":    func(c *config.Config) string { return c.Format },
	"window":    func(c *config.Config) string { return c.Sampler.Window.Std().String() },
	"mock":      func(c *config.Config) string { return strconv.FormatBool(c.Sampler.Mock) },
	"capacity":  func(c *config.Config) string { return strconv.Itoa(c.Collection.Capacity) },
	"interval":  func(c *config.Config) string { return c.Collection.Interval.Std().String() },
	"top":       func(c *config.Config) string { return strconv.Itoa(c.Ranking.TopK) },
	"by":        func(c *config.Config) string { return c.Ranking.By },
	"contamination": func(c *config.Config) string {
		return strconv.FormatFloat(c.Detection.Contamination, 'g', -1, 64)
	},
	"seed": func(c *config.Config) string {
		if c.Detection.Seed == nil {
			return ""
		}
		return strconv.FormatUint(*c.Detection.Seed, 10)
	},
	"synthetic":   func(c *config.Config) string { return strconv.FormatBool(c.Detection.Synthetic) },
	"compare":     func(c *config.Config) string { return strconv.FormatBool(c.Comparison.Enabled) },
	"wait":        func(c *config.Config) string { return c.Comparison.Wait.Std().String() },
	"action-fifo": func(c *config.Config) string { return c.Comparison.ActionFifo },
	"create-fifo": func(c *config.Config) string { return strconv.FormatBool(c.Comparison.CreateFifo) },
}

func envKey(flag string) string {
	if flag == "log-level" {
		return "LOG_LEVEL"
	}
	return environ.Key(flag)
}

// settleFlags fills flags that were set neither on the command line nor in
// the environment from the config file.
func settleFlags(cmd *cobra.Command, cfg *config.Config) error {
	settings = cfg
	for name, value := range configValues {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || flag.Changed {
			continue
		}
		if _, ok := os.LookupEnv(envKey(name)); ok {
			continue
		}
		if err := flag.Value.Set(value(cfg)); err != nil {
			return errors.WrapIfWithDetails(err, "applying config value", "flag", name)
		}
	}
	return nil
}

func addSamplerFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&window, "window",
		environ.GetDuration(environ.Key("window"), sampler.DefaultWindow),
		"Measurement window of each system CPU reading",
	)
	cmd.Flags().BoolVar(&useMock, "mock",
		environ.GetBool(environ.Key("mock"), false),
		"Use a scripted sampler with generated readings instead of the host",
	)
}

func addCollectionFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&capacity, "capacity",
		environ.GetInt(environ.Key("capacity"), timeseries.DefaultCapacity),
		"Number of system samples to collect",
	)
	cmd.Flags().DurationVar(&interval, "interval",
		environ.GetDuration(environ.Key("interval"), 0),
		"Minimum spacing between samples. Zero samples back to back.",
	)
}

func addRankingFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&topK, "top",
		environ.GetInt(environ.Key("top"), types.DefaultTopK),
		"Number of processes to list",
	)
	cmd.Flags().StringVar(&rankBy, "by",
		environ.GetString(environ.Key("by"), "cpu"),
		"Ranking key. One of cpu, memory.",
	)
}

func addDetectionFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&contamination, "contamination",
		environ.GetFloat64(environ.Key("contamination"), anomaly.DefaultContamination),
		"Expected fraction of anomalies, in (0,1)",
	)
	cmd.Flags().StringVar(&seed, "seed",
		environ.GetString(environ.Key("seed"), ""),
		"Detector seed. Empty derives the seed from the scored values.",
	)
	cmd.Flags().BoolVar(&synthetic, "synthetic",
		environ.GetBool(environ.Key("synthetic"), false),
		"Score a generated batch of 50 values instead of live process CPU",
	)
}

func addComparisonFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&wait, "wait",
		environ.GetDuration(environ.Key("wait"), effect.DefaultWait),
		"Pause between the action and the second reading",
	)
	cmd.Flags().StringVar(&actionFifo, "action-fifo",
		environ.GetString(environ.Key("action-fifo"), ""),
		"File or FIFO the external actor writes action events to",
	)
	cmd.Flags().BoolVar(&createFifo, "create-fifo",
		environ.GetBool(environ.Key("create-fifo"), false),
		"Create the action FIFO before watching it",
	)
}

func parseSeed() (*uint64, error) {
	if seed == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(seed, 10, 64)
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "invalid seed", "seed", seed)
	}
	return &v, nil
}

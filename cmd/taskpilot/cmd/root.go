package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voluzi/taskpilot/internal/config"
	"github.com/voluzi/taskpilot/pkg/environ"
)

var (
	logLevel    string
	configPaths []string
	format      string
)

var rootCmd = &cobra.Command{
	Use:   "taskpilot",
	Short: "Samples system load and flags unusual processes",
	Long: `Taskpilot samples system-wide CPU and memory usage, ranks running processes,
flags outliers with an isolation forest and measures the effect of corrective
actions taken by an external actor.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPaths...)
		if err != nil {
			return err
		}
		if err := settleFlags(cmd, cfg); err != nil {
			return err
		}

		logLvl, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		log.SetLevel(logLvl)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel,
		"log-level",
		environ.GetString("LOG_LEVEL", "info"),
		"Log level. One of debug, info, warn, error, fatal, panic.",
	)
	rootCmd.PersistentFlags().StringSliceVar(&configPaths,
		"config",
		environ.GetStringSlice(environ.Key("config"), nil),
		"YAML or TOML config files. Later files override earlier ones.",
	)
	rootCmd.PersistentFlags().StringVar(&format,
		"format",
		environ.GetString(environ.Key("format"), "auto"),
		"Output format. One of auto, text, json, prometheus.",
	)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

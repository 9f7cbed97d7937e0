// Package cmd implements the solver binary's cobra command tree (spec.md §6).
//
// Grounded on the teacher's cmd/cli/cmd/{root,analyze,version}.go structure.
package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/perf-analysis/pkg/config"
	"github.com/perf-analysis/pkg/telemetry"
	"github.com/perf-analysis/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configPath string

	logger utils.Logger
	cfg    *config.Config

	telemetryShutdown telemetry.ShutdownFunc
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "solver",
	Short: "A factory-layout solver for the informaticup grid puzzle",
	Long: `solver searches a task's grid for a factory/mine/conveyor/combiner
layout that maximizes production score within a fixed turn and time budget.

It reads a task (or a combined task+solution file) from a file or stdin,
runs a randomized multi-start local search, and writes the best solution
found to stdout or a file.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := utils.LevelInfo
		if verbose {
			logLevel = utils.LevelDebug
		}
		logger = utils.NewDefaultLogger(logLevel, os.Stderr)
		utils.SetGlobalLogger(logger)

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		bridgeTelemetryEnv(cfg.Telemetry)
		shutdown, err := telemetry.Init(context.Background())
		if err != nil {
			logger.Warn("telemetry init: %v", err)
			shutdown = func(context.Context) error { return nil }
		}
		telemetryShutdown = shutdown
		return nil
	},
}

// bridgeTelemetryEnv forwards the config file's telemetry settings into the
// OTEL_* environment variables pkg/telemetry.Init reads, without overriding
// anything the environment already sets explicitly.
func bridgeTelemetryEnv(t config.TelemetryConfig) {
	setIfUnset := func(key, val string) {
		if val == "" {
			return
		}
		if _, ok := os.LookupEnv(key); !ok {
			os.Setenv(key, val)
		}
	}
	if t.Enabled {
		setIfUnset("OTEL_ENABLED", strconv.FormatBool(t.Enabled))
	}
	setIfUnset("OTEL_SERVICE_NAME", t.ServiceName)
	setIfUnset("OTEL_EXPORTER_OTLP_ENDPOINT", t.Endpoint)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if telemetryShutdown != nil {
		telemetryShutdown(context.Background())
	}
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	binName := BinName()
	rootCmd.Example = `  # Solve a task read from a file, writing the solution to stdout
  ` + binName + ` solve -i ./task.json

  # Solve a task read from stdin within a 30 second budget, on 4 cores
  cat task.json | ` + binName + ` solve --time 30 --cores 4

  # Solve and print the combined task+solution array instead of the bare solution
  ` + binName + ` solve -i ./task.json --out cli

  # Run the bundled fixture self-test
  ` + binName + ` selftest`
}

// GetLogger returns the configured logger.
func GetLogger() utils.Logger {
	return logger
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return cfg
}

// BinName returns the base name of the current executable.
func BinName() string {
	return filepath.Base(os.Args[0])
}

// Package main provides the entry point for the Scour data quality tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TFMV/scour/config"
	"github.com/TFMV/scour/logger"
	"github.com/TFMV/scour/metrics"
	"github.com/TFMV/scour/pipeline"
	"github.com/TFMV/scour/version"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

// GlobalOptions are the flags shared by every subcommand.
type GlobalOptions struct {
	ConfigPath string
	LogLevel   string
	LogFile    string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	g := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "scour",
		Short: "Scour assesses and cleans tabular datasets",
		Long: `Scour profiles every column of a tabular dataset, scores its quality,
chooses a cleaning strategy per issue and applies it, then reports the
before and after quality side by side.

Inputs and outputs can be CSV, JSON, Excel, Parquet, Arrow IPC or a database
table reached through ADBC (DuckDB, PostgreSQL).`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "", "Path to scour.yaml (defaults to ./scour.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&g.LogLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&g.LogFile, "log-file", "", "JSON log file override; '-' disables the file")

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newProfileCommand(g))
	rootCmd.AddCommand(newCleanCommand(g))
	rootCmd.AddCommand(newServeCommand(g))

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of Scour",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Scour v%s (built %s)\n", version.GetVersion(), version.GetBuildDate())
		},
	}
}

// load reads the configuration, applies flag overrides and starts the logger.
func (g *GlobalOptions) load() error {
	if g.cfg != nil {
		return nil
	}
	cfg, err := config.LoadConfig(g.ConfigPath)
	if err != nil {
		return err
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	if g.LogFile != "" {
		cfg.Logging.File = g.LogFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logger.Init(logger.Options{Level: cfg.Logging.Level, File: cfg.Logging.File}); err != nil {
		return err
	}
	g.cfg = cfg
	g.logger = logger.Get()
	return nil
}

// engine builds a pipeline engine from the loaded configuration.
func (g *GlobalOptions) engine(opts ...pipeline.Option) (*pipeline.Engine, error) {
	pc, err := g.cfg.Pipeline()
	if err != nil {
		return nil, err
	}
	opts = append([]pipeline.Option{pipeline.WithLogger(g.logger)}, opts...)
	if g.cfg.Metrics.SummaryFile != "" {
		opts = append(opts, pipeline.WithStore(&metrics.JSONMetricsStore{FilePath: g.cfg.Metrics.SummaryFile}))
	}
	return pipeline.New(pc, opts...), nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

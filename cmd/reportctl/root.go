package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/expense-reports/internal/application/service"
	"github.com/garyjia/expense-reports/internal/config"
	"github.com/garyjia/expense-reports/internal/container"
	"github.com/garyjia/expense-reports/pkg/utils"
)

// Global flags
var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "reportctl",
	Short: "Render expense configuration reports from an exported JSON document",
	Long: `reportctl reads an expense configuration export (profiles, natures and
charts of accounts), flattens it into report tables, audits it and writes
CSV, PDF or XLSX files.

Example Usage:
  reportctl export --input Full.json --table rules --format pdf
  reportctl export --input Full.json --table all --format xlsx --out ./exports
  reportctl audit --input Full.json --notify`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command and exits with status 1 on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a YAML configuration file (defaults only when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
}

// runtimeEnv bundles what every subcommand needs
type runtimeEnv struct {
	container *container.Container
	logger    *zap.Logger
}

// bootstrap loads configuration, builds a stderr logger and starts the
// container. outDir overrides storage.output_dir when not empty.
func bootstrap(ctx context.Context, configPath, outDir string, debug bool, stderr io.Writer) (*runtimeEnv, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if outDir != "" {
		cfg.Storage.OutputDir = outDir
	}

	level := cfg.Logger.Level
	if debug {
		level = "debug"
	} else if level == "info" {
		level = "warn"
	}
	logger := utils.NewLoggerTo(utils.LoggerConfig{
		Level:  level,
		Format: "console",
	}, stderr)

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	return &runtimeEnv{container: c, logger: logger}, nil
}

func (e *runtimeEnv) close() {
	_ = e.container.Close()
	_ = e.logger.Sync()
}

// process reads input and runs the pipeline. strict is nil when the flag
// was not given.
func (e *runtimeEnv) process(ctx context.Context, input string, strict *bool) (*service.Snapshot, error) {
	raw, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	reports := e.container.Services().Reports
	opts := service.ProcessOptions{
		Strict: reports.DefaultStrict(),
		Progress: func(stage service.Stage, done, total int) {
			e.logger.Debug("Stage completed",
				zap.String("stage", string(stage)),
				zap.Int("done", done),
				zap.Int("total", total))
		},
	}
	if strict != nil {
		opts.Strict = *strict
	}

	snap, _, err := reports.Process(ctx, raw, opts)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// shortFingerprint names the output folder of a document
func shortFingerprint(snap *service.Snapshot) string {
	if len(snap.Fingerprint) > 12 {
		return snap.Fingerprint[:12]
	}
	return snap.Fingerprint
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/alucardeht/ghostnote/internal/config"
	"github.com/alucardeht/ghostnote/internal/daemon"
	"github.com/alucardeht/ghostnote/internal/logger"
	"github.com/alucardeht/ghostnote/pkg/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
		stdio      bool
	)

	cmd := &cobra.Command{
		Use:           "ghostnote-daemon",
		Short:         "Serve GhostNote tools over a unix socket",
		Version:       version.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}

			logCfg := logger.DefaultConfig()
			logCfg.Level = logger.ParseLevel(cfg.Log.Level)
			logCfg.Format = cfg.Log.Format
			logger.Init(logCfg)

			ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
			defer stop()

			return run(ctx, cfg, stdio)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "config file (default $GHOSTNOTE_HOME/config.yaml)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&stdio, "stdio", false, "serve newline-delimited JSON-RPC on stdin/stdout instead of the socket")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, stdio bool) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to ensure directories: %w", err)
	}

	instance := daemon.NewInstance(cfg.BaseDir, cfg.Daemon.PIDPath)
	if err := instance.Acquire(); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			logger.Info("daemon already running", "pid_file", cfg.Daemon.PIDPath)
			return nil
		}
		return err
	}
	defer instance.Release()

	d, err := daemon.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	if stdio {
		defer d.Shutdown()
		return d.ServeStdio(ctx, os.Stdin, os.Stdout)
	}

	logger.Info("starting daemon", "version", version.Version, "pid", os.Getpid())
	return d.Run(ctx)
}

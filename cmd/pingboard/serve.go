package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pingboard"
	"github.com/jpalmerr/pingboard/config"
	"github.com/jpalmerr/pingboard/internal/logging"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the pingboard dashboard server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the pingboard dashboard server.

The server will:
  - Load configuration from the specified file
  - Start one probe loop per configured host
  - Serve the dashboard UI on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  pingboard serve -c config.yaml
  pingboard serve --config /etc/pingboard/config.yaml --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	serveCmd.Flags().String("log-level", "", "override logging.level from the config file")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		level = override
	}
	logger, logFile, err := logging.New(logging.Options{
		Level:  level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logFile.Close()

	hosts, err := config.BuildHosts(cfg)
	if err != nil {
		return fmt.Errorf("failed to build hosts: %w", err)
	}

	logger.Info("config loaded",
		"hosts", len(cfg.Hosts),
		"devices", len(cfg.Devices),
		"grids", len(cfg.Grids),
		"total", len(hosts),
	)
	logger.Info("starting server",
		"port", cfg.Port,
		"interval", cfg.Interval.Duration().String(),
		"method", cfg.Method,
	)

	opts := append(config.BoardOptions(cfg, hosts), pingboard.WithLogger(logger))
	b, err := pingboard.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create board: %w", err)
	}

	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- b.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}

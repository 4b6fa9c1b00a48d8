package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pingboard/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a pingboard configuration file without starting the server.

This command parses the file, expands environment variables, validates all
fields and expands host grids. Every problem found is reported.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  pingboard validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	hosts, err := config.BuildHosts(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	fromGrids := len(hosts) - len(cfg.Hosts) - len(cfg.Devices)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:     %d\n", cfg.Port)
	fmt.Fprintf(out, "  Interval: %s\n", cfg.Interval.Duration())
	fmt.Fprintf(out, "  Timeout:  %s\n", cfg.Timeout.Duration())
	fmt.Fprintf(out, "  Method:   %s\n", cfg.Method)
	fmt.Fprintf(out, "  Hosts:    %d direct + %d devices + %d from grids = %d total\n",
		len(cfg.Hosts), len(cfg.Devices), fromGrids, len(hosts))

	return nil
}

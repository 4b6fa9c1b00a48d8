// Package main is the entry point for the pingboard CLI.
//
// pingboard can be run either as a library (SDK) or as a standalone binary
// with a YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	pingboard serve -c config.yaml    # Start the dashboard
//	pingboard check -c config.yaml    # Probe every host once
//	pingboard validate -c config.yaml # Validate configuration
//	pingboard version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd only displays help; functionality lives in subcommands.
var rootCmd = &cobra.Command{
	Use:   "pingboard",
	Short: "A live reachability panel for network hosts",
	Long: `pingboard probes a fixed list of network hosts and shows which are
online, offline or not yet checked, with their round-trip latency.

Quick start:
  1. Create a config file (pingboard.yaml)
  2. Run: pingboard serve -c pingboard.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  interval: 5s
  hosts:
    - name: Router
      address: 192.168.0.1
    - name: NAS
      address: nas.local`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this pingboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pingboard %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/pingboard"
	"github.com/jpalmerr/pingboard/config"
	"github.com/jpalmerr/pingboard/internal/logging"
)

var errHostsOffline = errors.New("one or more hosts are offline")

const (
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorGrey  = "\033[90m"
	colorReset = "\033[0m"
)

// checkCmd probes every host once and prints the result.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe every host once and print a status table",
	Long: `Probe every configured host once, concurrently, and print one line per
host in configuration order.

Exit codes:
  0 - Every host is online
  1 - A host is offline or the config is invalid

Example:
  pingboard check -c config.yaml
  pingboard check -c config.yaml --no-color`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	checkCmd.Flags().Bool("no-color", false, "disable coloured output")
	_ = checkCmd.MarkFlagRequired("config")
}

func runCheck(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, logFile, err := logging.New(logging.Options{
		Level:  "warn",
		Format: cfg.Logging.Format,
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

	opts := append(config.BoardOptions(cfg, hosts), pingboard.WithLogger(logger))
	b, err := pingboard.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create board: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	statuses, err := b.Check(ctx)
	if err != nil {
		return fmt.Errorf("check interrupted: %w", err)
	}

	noColor, _ := cmd.Flags().GetBool("no-color")
	out := cmd.OutOrStdout()
	if err := printStatuses(out, statuses, !noColor && isTerminal(out)); err != nil {
		return err
	}

	for _, st := range statuses {
		if st.State != pingboard.StateOnline {
			return errHostsOffline
		}
	}
	return nil
}

// printStatuses writes one aligned row per host.
func printStatuses(w io.Writer, statuses []pingboard.HostStatus, color bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tADDRESS\tSTATE\tLATENCY\tCHECKED")

	for _, st := range statuses {
		checked := "never"
		if !st.CheckedAt.IsZero() {
			checked = humanize.Time(st.CheckedAt)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			st.Name, st.Address, colorState(st.State, color), formatLatency(st), checked)
	}
	return tw.Flush()
}

func formatLatency(st pingboard.HostStatus) string {
	switch {
	case st.State != pingboard.StateOnline:
		return "-"
	case !st.LatencyKnown:
		return "N/A"
	default:
		return fmt.Sprintf("%s ms", humanize.FormatFloat("#,###.##", float64(st.Latency)/float64(time.Millisecond)))
	}
}

func colorState(state pingboard.State, color bool) string {
	if !color {
		return state.String()
	}
	switch state {
	case pingboard.StateOnline:
		return colorGreen + state.String() + colorReset
	case pingboard.StateOffline:
		return colorRed + state.String() + colorReset
	default:
		return colorGrey + state.String() + colorReset
	}
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

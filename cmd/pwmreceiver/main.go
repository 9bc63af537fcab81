// Package main is the entry point for the pwmreceiver CLI.
//
// pwmreceiver is used as a library on the target board. This CLI runs the
// same receiver on hosted Go against simulated pulse trains, driven by a
// YAML configuration.
//
// Usage:
//
//	pwmreceiver simulate -c config.yaml  # Play pulse trains through the receiver
//	pwmreceiver validate -c config.yaml  # Validate configuration
//	pwmreceiver version                  # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "pwmreceiver",
	Short: "Multi-channel PWM pulse-width receiver",
	Long: `pwmreceiver measures the high time of PWM signals on several channels
and hands the latest width of each channel to a per-channel pipeline of
filter, transform and callback.

Quick start:
  1. Create a config file (pwmreceiver.yaml)
  2. Run: pwmreceiver simulate -c pwmreceiver.yaml --duration 5s
  3. Add --port 8080 and open http://localhost:8080/api/readings

Example config:
  poll_interval: 20ms
  channels:
    - channel: 2
      name: throttle
      filter: between:900:2100
      transform: map:988:2012:0:1000
      simulate:
        period: 20ms
        widths: [1000us, 1500us, 2000us]`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
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
	Long:  `Print the version, commit hash, and build date of this pwmreceiver binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pwmreceiver %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
}

// newLogger creates a JSON logger for CLI use.
func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: l,
	})), nil
}

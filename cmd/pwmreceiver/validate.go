package main

import (
	"fmt"

	"github.com/jpalmerr/pwmreceiver/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without running the receiver.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a pwmreceiver configuration file without running the receiver.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI pipelines or pre-flash checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  pwmreceiver validate -c config.yaml`,
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

	simulated := len(config.Trains(cfg))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Capacity:      %d\n", cfg.Capacity)
	fmt.Fprintf(out, "  Poll interval: %s\n", cfg.PollInterval.Duration())
	fmt.Fprintf(out, "  Channels:      %d (%d simulated)\n", len(cfg.Channels), simulated)

	return nil
}

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath  string
	verbose     bool
	jsonOutput  bool
	policyPaths []string
	journalPath string
	metricsAddr string
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "machine-sdc",
		Short: "SmartDataCenter machine provisioner",
		Long: `machine-sdc reconciles a desired set of virtual machines against a
SmartDataCenter (Triton) CloudAPI datacenter.

Features:
  - Declarative machine configs in YAML, CUE or Starlark
  - Exact-count reconciliation over tagged machine groups
  - Stop-before-delete teardown with convergence polling
  - Policy gating of every mutating run via Rego
  - Local run journal for auditability`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "machine config file (.yaml, .cue or .star)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "log in JSON format")
	rootCmd.PersistentFlags().StringSliceVar(&policyPaths, "policy", nil, "additional Rego policy files or directories")
	rootCmd.PersistentFlags().StringVar(&journalPath, "journal", "", "run journal database path (empty disables journaling)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	// Add subcommands
	rootCmd.AddCommand(newApplyCommand())
	rootCmd.AddCommand(newDestroyCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newRunsCommand())

	return rootCmd
}

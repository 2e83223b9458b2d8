package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/machine-sdc/pkg/config"
)

func newApplyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Reconcile machines to match the configuration",
		Long: `Reconcile the datacenter to match the machine configuration.

This command:
  - Loads and validates the config file
  - Evaluates the planned operation against policies
  - Creates machines up to count, or reconciles to exact_count
  - Optionally waits until created machines report "running"
  - Prints the terminal result payload as JSON`,
		Example: `  # Create machines described by a YAML config
  machine-sdc apply --config web.yaml

  # Reconcile with extra policies and a run journal
  machine-sdc apply --config web.cue --policy policies/ --journal runs.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("no config file provided (use --config)")
			}

			ctx := cmd.Context()
			cfg, err := config.Load(ctx, configPath)
			if err != nil {
				printFailure(err)
				return err
			}

			r, err := newRunner(ctx)
			if err != nil {
				return err
			}
			defer r.close(ctx)

			result, err := r.execute(ctx, cfg)
			if err != nil {
				printFailure(err)
				return err
			}
			return printResult(result)
		},
	}

	return cmd
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/machine-sdc/pkg/config"
)

func newDestroyCommand() *cobra.Command {
	var machineID string

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Stop and delete matching machines",
		Long: `Stop and delete the machines selected by the configuration.

The config's state is forced to "absent": machines matching its tags (or
the machine given with --machine-id) are stopped, polled until they report
"stopped", and then deleted.`,
		Example: `  # Delete every machine matching the config tags
  machine-sdc destroy --config web.yaml

  # Delete one machine by ID
  machine-sdc destroy --config web.yaml --machine-id 3d51f2d5-46f2-4da5-bb04-3238f2f64768`,
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

			cfg.State = config.StateAbsent
			if machineID != "" {
				cfg.MachineID = machineID
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

	cmd.Flags().StringVar(&machineID, "machine-id", "", "delete this machine instead of the config's tag selection")

	return cmd
}

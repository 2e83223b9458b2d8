package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/machine-sdc/pkg/config"
	"github.com/openfroyo/machine-sdc/pkg/policy"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a machine configuration file",
		Long: `Validate a machine configuration file without touching the provider.

This command checks:
  - Config syntax (YAML, CUE or Starlark)
  - Schema conformance and cross-field rules
  - Policy compliance of the planned operation`,
		Example: `  # Validate a config
  machine-sdc validate web.yaml

  # Validate against extra policies
  machine-sdc validate web.cue --policy policies/`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no config file provided")
			}

			ctx := cmd.Context()
			cfg, err := config.Load(ctx, path)
			if err != nil {
				return err
			}

			engine, err := policy.NewEngine(log.Logger)
			if err != nil {
				return err
			}
			if len(policyPaths) > 0 {
				if err := engine.LoadPolicies(ctx, policyPaths); err != nil {
					return err
				}
			}

			operation := "create"
			if cfg.State == config.StateAbsent {
				operation = "delete"
			}
			gate, err := engine.EvaluatePlan(ctx, buildPlan(cfg, operation))
			if err != nil {
				return err
			}

			for _, w := range gate.Warnings {
				log.Warn().Str("policy", w.Policy).Msg(w.Message)
			}
			if !gate.Allowed {
				for _, v := range gate.Violations {
					log.Error().Str("policy", v.Policy).Msg(v.Message)
				}
				return fmt.Errorf("config violates %d policy rule(s)", len(gate.Violations))
			}

			fmt.Printf("%s is valid (state=%s)\n", path, cfg.State)
			return nil
		},
	}

	return cmd
}

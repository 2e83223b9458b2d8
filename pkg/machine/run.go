package machine

import (
	"context"
	"fmt"

	"github.com/openfroyo/machine-sdc/pkg/config"
)

// Run is the provider entry point: it dispatches a validated configuration
// to the reconciler and returns the terminal result. The host owns
// argument parsing and result reporting; Run owns nothing but the
// reconciliation itself.
func Run(ctx context.Context, cfg *config.Config, api CloudAPI, opts ...Option) (*Result, error) {
	r := NewReconciler(api, opts...)

	switch cfg.State {
	case config.StateAbsent:
		changed, err := r.DeleteMatching(ctx, DeleteRequest{
			Tags:        cfg.Tags,
			MachineID:   cfg.MachineID,
			WaitTimeout: cfg.WaitTimeoutDuration(),
		})
		if err != nil {
			return nil, err
		}
		return &Result{Changed: changed, Machines: nil}, nil

	case config.StatePresent:
		if cfg.Image == "" {
			return nil, configErrorf("image is required to create machines")
		}

		changed, machines, err := r.EnsureCount(ctx, EnsureRequest{
			Tags:       cfg.Tags,
			CountTag:   cfg.CountTag,
			ExactCount: cfg.ExactCount,
			Count:      cfg.CreateCount(),
			Create: CreateOptions{
				Name:     cfg.Name,
				Image:    cfg.Image,
				Package:  cfg.Package,
				Networks: cfg.Networks,
			},
			Wait:        cfg.WaitEnabled(),
			WaitTimeout: cfg.WaitTimeoutDuration(),
		})
		if err != nil {
			return nil, err
		}

		result := &Result{Changed: changed}
		for _, m := range machines {
			raw, err := api.RawMachine(ctx, m.ID)
			if err != nil {
				return nil, fmt.Errorf("reading machine %s record: %w", m.ID, err)
			}
			result.Machines = append(result.Machines, raw)
		}
		return result, nil

	default:
		return nil, configErrorf("unknown state %q", cfg.State)
	}
}

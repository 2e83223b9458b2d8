package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openfroyo/machine-sdc/pkg/cloudapi"
	"github.com/openfroyo/machine-sdc/pkg/config"
	"github.com/openfroyo/machine-sdc/pkg/journal"
	"github.com/openfroyo/machine-sdc/pkg/machine"
	"github.com/openfroyo/machine-sdc/pkg/policy"
	"github.com/openfroyo/machine-sdc/pkg/telemetry"
)

// runner wires telemetry, policy gating, and the run journal around a
// reconciliation pass. apply, destroy, and watch share one runner.
type runner struct {
	tel    *telemetry.Telemetry
	engine *policy.Engine
	store  *journal.Store
}

func newRunner(ctx context.Context) (*runner, error) {
	tcfg := telemetry.DefaultConfig()
	if verbose {
		tcfg.Logging.Level = "debug"
	}
	if jsonOutput {
		tcfg.Logging.Format = "json"
	}
	if metricsAddr != "" {
		tcfg.Metrics.Enabled = true
		tcfg.Metrics.ListenAddress = metricsAddr
	}

	tel, err := telemetry.New(tcfg)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	if tcfg.Metrics.Enabled {
		tel.Metrics.StartServer()
	}

	engine, err := policy.NewEngine(tel.Logger.Zerolog())
	if err != nil {
		return nil, fmt.Errorf("initializing policy engine: %w", err)
	}
	if len(policyPaths) > 0 {
		if err := engine.LoadPolicies(ctx, policyPaths); err != nil {
			return nil, err
		}
	}

	r := &runner{tel: tel, engine: engine}

	if journalPath != "" {
		store, err := journal.Open(ctx, journalPath)
		if err != nil {
			return nil, fmt.Errorf("opening run journal: %w", err)
		}
		r.store = store
	}

	return r, nil
}

func (r *runner) close(ctx context.Context) {
	if r.store != nil {
		_ = r.store.Close()
	}
	_ = r.tel.Shutdown(ctx)
}

// execute runs one reconciliation pass for the configuration: policy
// gate, provider reconciliation, journal record.
func (r *runner) execute(ctx context.Context, cfg *config.Config) (*machine.Result, error) {
	runID := uuid.New().String()
	logger := r.tel.Logger.WithRunID(runID)

	operation := "create"
	if cfg.State == config.StateAbsent {
		operation = "delete"
	}

	ctx, span := r.tel.Tracer.StartRunSpan(ctx, runID, operation)
	defer span.End()

	gate, err := r.engine.EvaluatePlan(ctx, buildPlan(cfg, operation))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	for _, w := range gate.Warnings {
		logger.Warnf("policy %s: %s", w.Policy, w.Message)
	}
	if !gate.Allowed {
		msgs := make([]string, len(gate.Violations))
		for i, v := range gate.Violations {
			msgs[i] = fmt.Sprintf("%s: %s", v.Policy, v.Message)
		}
		err := fmt.Errorf("run denied by policy: %s", strings.Join(msgs, "; "))
		telemetry.RecordError(span, err)
		return nil, err
	}

	if r.store != nil {
		rec := &journal.Run{
			ID:        runID,
			Operation: operation,
			Location:  cfg.Location,
			Status:    journal.RunStatusPending,
			StartedAt: time.Now(),
		}
		if err := r.store.CreateRun(ctx, rec); err != nil {
			logger.WithError(err).Warn("Failed to journal run start")
		}
	}

	api, err := cloudapi.New(cloudapi.Options{
		Location:      cfg.Location,
		Account:       cfg.Account,
		KeyID:         cfg.KeyID,
		SecretKeyPath: cfg.SecretKeyPath,
		Logger:        logger.Zerolog(),
	})
	if err != nil {
		r.finishRun(ctx, runID, nil, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	start := time.Now()
	result, err := machine.Run(ctx, cfg, api,
		machine.WithLogger(logger.Zerolog()),
		machine.WithMetrics(r.tel.Metrics),
	)

	status := "completed"
	if err != nil {
		status = "failed"
	}
	r.tel.Metrics.RecordRun(operation, status, time.Since(start))
	r.finishRun(ctx, runID, result, err)

	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.RecordSuccess(span)
	return result, nil
}

// finishRun records the run outcome in the journal, if one is open.
func (r *runner) finishRun(ctx context.Context, runID string, result *machine.Result, runErr error) {
	if r.store == nil {
		return
	}

	if runErr != nil {
		msg := runErr.Error()
		if err := r.store.FinishRun(ctx, runID, journal.RunStatusFailed, false, 0, &msg, nil); err != nil {
			r.tel.Logger.WithError(err).Warn("Failed to journal run failure")
		}
		return
	}

	var encoded *string
	if raw, err := json.Marshal(result); err == nil {
		s := string(raw)
		encoded = &s
	}
	if err := r.store.FinishRun(ctx, runID, journal.RunStatusCompleted, result.Changed, len(result.Machines), nil, encoded); err != nil {
		r.tel.Logger.WithError(err).Warn("Failed to journal run completion")
	}
}

// buildPlan derives the policy input from the configuration. For
// exact-count runs the worst case is creating the full target, so that is
// what the policy sees.
func buildPlan(cfg *config.Config, operation string) *policy.Plan {
	plan := &policy.Plan{
		Operation: operation,
		Tags:      cfg.Tags,
		CountTag:  cfg.CountTag,
		MachineID: cfg.MachineID,
	}
	if operation == "create" {
		if cfg.ExactCount != nil {
			plan.TargetCount = *cfg.ExactCount
			plan.CreateCount = *cfg.ExactCount
		} else {
			plan.CreateCount = cfg.CreateCount()
		}
	}
	return plan
}

// printResult writes the terminal result payload to stdout.
func printResult(result *machine.Result) error {
	if result.Machines == nil {
		result.Machines = []json.RawMessage{}
	}
	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(result)
}

// printFailure writes the terminal failure payload to stdout.
func printFailure(err error) {
	payload := map[string]string{"msg": err.Error()}
	_ = json.NewEncoder(os.Stdout).Encode(payload)
}

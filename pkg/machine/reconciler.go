package machine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/openfroyo/machine-sdc/pkg/telemetry"
)

// DefaultPollInterval is the fixed sleep between convergence poll checks.
const DefaultPollInterval = 2 * time.Second

// Reconciler reconciles a desired machine count against provider state.
// It holds no state between calls; every operation is a single pass over
// the provider API.
type Reconciler struct {
	api          CloudAPI
	logger       zerolog.Logger
	metrics      *telemetry.Metrics
	tracer       trace.Tracer
	pollInterval time.Duration
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger used by the reconciler.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger.With().Str("component", "reconciler").Logger()
	}
}

// WithMetrics sets the metrics collector. A nil collector disables
// recording.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// WithPollInterval overrides the convergence poll interval. Intended for
// tests; production uses DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// NewReconciler creates a reconciler driving the given provider client.
func NewReconciler(api CloudAPI, opts ...Option) *Reconciler {
	r := &Reconciler{
		api:          api,
		logger:       zerolog.Nop(),
		tracer:       otel.Tracer("github.com/openfroyo/machine-sdc/pkg/machine"),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureCount brings the number of machines up to the requested count and
// returns whether anything was created along with the full set of matching
// machines: pre-existing matches first, then machines created by this call.
//
// With CountTag and ExactCount set, machines carrying CountTag in status
// "running" count toward the target and only the shortfall is created.
// Otherwise req.Count machines are created unconditionally. Creates are
// issued sequentially; a failed create aborts the whole operation with the
// provider error unmodified and without deleting machines already created.
func (r *Reconciler) EnsureCount(ctx context.Context, req EnsureRequest) (bool, []*Machine, error) {
	ctx, span := r.tracer.Start(ctx, "machine.ensure_count")
	defer span.End()

	// Created machines must always carry the selector tags, otherwise a
	// batch created now would be invisible to the next exact-count run.
	fullTags := MergeTags(req.Tags, req.CountTag)

	var existing []*Machine
	countNeeded := req.Count

	if req.ExactCount != nil {
		if len(req.CountTag) == 0 {
			err := configErrorf("count_tag is required when exact_count is set")
			span.SetStatus(codes.Error, err.Error())
			return false, nil, err
		}

		var err error
		existing, err = r.listMachines(ctx, ListFilter{Tags: req.CountTag, Status: StatusRunning})
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return false, nil, err
		}
		countNeeded = *req.ExactCount - len(existing)

		r.logger.Debug().
			Int("exact_count", *req.ExactCount).
			Int("existing", len(existing)).
			Int("needed", countNeeded).
			Msg("Counted existing machines")
	}

	span.SetAttributes(
		attribute.Int("machine.count_needed", countNeeded),
		attribute.Int("machine.existing", len(existing)),
	)

	if countNeeded <= 0 {
		return false, existing, nil
	}

	created := make([]*Machine, 0, countNeeded)
	for i := 0; i < countNeeded; i++ {
		m, err := r.createMachine(ctx, CreateOptions{
			Name:     req.Create.Name,
			Image:    req.Create.Image,
			Package:  req.Create.Package,
			Networks: req.Create.Networks,
			Tags:     fullTags,
		})
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return true, nil, err
		}
		created = append(created, m)

		r.logger.Info().
			Str("machine_id", m.ID).
			Str("name", m.Name).
			Msg("Machine created")
	}
	r.metrics.RecordMachinesCreated(len(created))

	if req.Wait {
		if err := r.waitForStatus(ctx, created, StatusRunning, req.WaitTimeout); err != nil {
			// Machines that did start stay allocated; cleanup is
			// left to the operator.
			r.logger.Warn().
				Err(err).
				Int("created", len(created)).
				Msg("Created machines left allocated after wait failure")
			span.SetStatus(codes.Error, err.Error())
			return true, nil, err
		}
	}

	return true, append(existing, created...), nil
}

// DeleteMatching stops and deletes the machines selected by the request
// and reports whether anything was selected. Tags select all machines
// carrying them in any status; otherwise MachineID selects one machine;
// with neither set, nothing is selected, no provider call is made, and
// changed is false.
//
// Every selected machine is stopped first, then the reconciler polls until
// all report "stopped", then each is deleted. Stopping first follows the
// provider API recommendation and also keeps a half-deleted machine from
// being counted as "running" by a concurrent exact-count run over the same
// tag set.
func (r *Reconciler) DeleteMatching(ctx context.Context, req DeleteRequest) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "machine.delete_matching")
	defer span.End()

	var machines []*Machine
	switch {
	case len(req.Tags) > 0:
		var err error
		machines, err = r.listMachines(ctx, ListFilter{Tags: req.Tags})
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return false, err
		}
	case req.MachineID != "":
		m, err := r.getMachine(ctx, req.MachineID)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return false, err
		}
		machines = []*Machine{m}
	}

	span.SetAttributes(attribute.Int("machine.selected", len(machines)))
	if len(machines) == 0 {
		return false, nil
	}

	for _, m := range machines {
		if err := r.stopMachine(ctx, m.ID); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return false, err
		}
		r.logger.Info().Str("machine_id", m.ID).Msg("Machine stop requested")
	}

	if err := r.waitForStatus(ctx, machines, StatusStopped, req.WaitTimeout); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	for _, m := range machines {
		if err := r.deleteMachine(ctx, m.ID); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return false, err
		}
		r.logger.Info().Str("machine_id", m.ID).Msg("Machine deleted")
	}
	r.metrics.RecordMachinesDeleted(len(machines))

	return true, nil
}

// waitForStatus polls until every machine reports the target status or the
// timeout elapses since the call began. The poll is a fixed-interval sleep
// with a wall-clock deadline; there is no backoff or jitter.
func (r *Reconciler) waitForStatus(ctx context.Context, machines []*Machine, target Status, timeout time.Duration) error {
	start := time.Now()
	deadline := start.Add(timeout)

	for {
		converged, err := r.allAtStatus(ctx, machines, target)
		if err != nil {
			return err
		}
		if converged {
			r.metrics.RecordWaitDuration(string(target), time.Since(start))
			return nil
		}
		if !time.Now().Before(deadline) {
			return &TimeoutError{Target: target, Timeout: timeout, Machines: len(machines)}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
}

// allAtStatus re-reads every machine and reports whether all are at the
// target status.
func (r *Reconciler) allAtStatus(ctx context.Context, machines []*Machine, target Status) (bool, error) {
	for _, m := range machines {
		current, err := r.getMachine(ctx, m.ID)
		if err != nil {
			return false, err
		}
		if current.Status != target {
			r.logger.Debug().
				Str("machine_id", m.ID).
				Str("status", string(current.Status)).
				Str("target", string(target)).
				Msg("Machine not yet at target status")
			return false, nil
		}
	}
	return true, nil
}

// Instrumented provider call wrappers. Provider errors pass through
// unmodified apart from operation context added via %w wrapping.

func (r *Reconciler) listMachines(ctx context.Context, filter ListFilter) ([]*Machine, error) {
	start := time.Now()
	machines, err := r.api.ListMachines(ctx, filter)
	r.metrics.RecordProviderCall("list", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("listing machines: %w", err)
	}
	return machines, nil
}

func (r *Reconciler) getMachine(ctx context.Context, id string) (*Machine, error) {
	start := time.Now()
	m, err := r.api.GetMachine(ctx, id)
	r.metrics.RecordProviderCall("get", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("getting machine %s: %w", id, err)
	}
	return m, nil
}

func (r *Reconciler) createMachine(ctx context.Context, opts CreateOptions) (*Machine, error) {
	start := time.Now()
	m, err := r.api.CreateMachine(ctx, opts)
	r.metrics.RecordProviderCall("create", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("creating machine: %w", err)
	}
	return m, nil
}

func (r *Reconciler) stopMachine(ctx context.Context, id string) error {
	start := time.Now()
	err := r.api.StopMachine(ctx, id)
	r.metrics.RecordProviderCall("stop", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("stopping machine %s: %w", id, err)
	}
	return nil
}

func (r *Reconciler) deleteMachine(ctx context.Context, id string) error {
	start := time.Now()
	err := r.api.DeleteMachine(ctx, id)
	r.metrics.RecordProviderCall("delete", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("deleting machine %s: %w", id, err)
	}
	return nil
}

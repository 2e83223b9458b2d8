package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/machine-sdc/pkg/config"
)

// watchDebounce coalesces editor write bursts into one reconcile.
const watchDebounce = 500 * time.Millisecond

func newWatchCommand() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-reconcile whenever the config file changes",
		Long: `Watch the machine configuration file and re-run reconciliation
whenever it changes. An optional interval additionally re-reconciles on a
timer so machines deleted out-of-band are replaced.

Reconciliation is idempotent: a run that finds the datacenter already
converged makes no provider mutations.`,
		Example: `  # Reconcile on every config change
  machine-sdc watch --config web.yaml

  # Also re-reconcile every 10 minutes
  machine-sdc watch --config web.yaml --interval 10m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("no config file provided (use --config)")
			}

			ctx := cmd.Context()
			r, err := newRunner(ctx)
			if err != nil {
				return err
			}
			defer r.close(ctx)

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("creating watcher: %w", err)
			}
			defer watcher.Close()

			if err := watcher.Add(configPath); err != nil {
				return fmt.Errorf("watching %s: %w", configPath, err)
			}

			// One pass immediately; the watcher only covers changes.
			reconcile(ctx, r)

			var ticker *time.Ticker
			var tick <-chan time.Time
			if interval > 0 {
				ticker = time.NewTicker(interval)
				defer ticker.Stop()
				tick = ticker.C
			}

			var debounce *time.Timer
			var pending <-chan time.Time

			for {
				select {
				case <-ctx.Done():
					return nil

				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
						continue
					}
					if debounce == nil {
						debounce = time.NewTimer(watchDebounce)
					} else {
						debounce.Reset(watchDebounce)
					}
					pending = debounce.C

				case <-pending:
					pending = nil
					reconcile(ctx, r)
					// Editors often replace the file; re-add keeps
					// the watch alive after a rename.
					_ = watcher.Add(configPath)

				case <-tick:
					reconcile(ctx, r)

				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.Warn().Err(err).Msg("Watcher error")
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "also re-reconcile on this interval (0 disables)")

	return cmd
}

// reconcile loads and applies the config once, logging instead of exiting
// on failure so the watch loop survives bad intermediate saves.
func reconcile(ctx context.Context, r *runner) {
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		log.Error().Err(err).Msg("Config load failed")
		return
	}

	result, err := r.execute(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Reconciliation failed")
		return
	}

	log.Info().
		Bool("changed", result.Changed).
		Int("machines", len(result.Machines)).
		Msg("Reconciliation completed")
}

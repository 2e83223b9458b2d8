package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openfroyo/machine-sdc/pkg/journal"
)

func newRunsCommand() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List journaled provisioning runs",
		Long: `List past provisioning runs from the run journal, newest first.

The journal is a local audit record only; reconciliation always works
from live provider state.`,
		Example: `  # Show the last 20 runs
  machine-sdc runs --journal runs.db

  # Page through older runs as JSON
  machine-sdc runs --journal runs.db --offset 20 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if journalPath == "" {
				return fmt.Errorf("no journal database provided (use --journal)")
			}

			ctx := cmd.Context()
			store, err := journal.Open(ctx, journalPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(ctx, limit, offset)
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(runs)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tOPERATION\tSTATUS\tCHANGED\tMACHINES\tSTARTED")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%d\t%s\n",
					run.ID,
					run.Operation,
					run.Status,
					run.Changed,
					run.MachineCount,
					run.StartedAt.Format("2006-01-02 15:04:05"),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "runs to skip from the newest")

	return cmd
}

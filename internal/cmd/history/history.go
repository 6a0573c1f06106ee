package history

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/schmitthub/crashloop/internal/cmdutil"
	"github.com/schmitthub/crashloop/internal/iostreams"
	"github.com/schmitthub/crashloop/internal/loop"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	IOStreams *iostreams.IOStreams
	History   func() (*loop.HistoryStore, error)

	Limit int
}

// NewCmdHistory creates the "history" subcommand.
func NewCmdHistory(f *cmdutil.Factory, runF func(context.Context, *HistoryOptions) error) *cobra.Command {
	opts := &HistoryOptions{
		IOStreams: f.IOStreams,
		History: func() (*loop.HistoryStore, error) {
			dir, err := f.HistoryDir()
			if err != nil {
				return nil, err
			}
			return loop.NewHistoryStore(dir), nil
		},
	}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past runs",
		Long: `Lists recorded runs, most recent last, with the working dataset each run
used. Retained datasets of failed runs can be found under that dataset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Limit < 0 {
				return cmdutil.FlagErrorf("--limit must be non-negative, got %d", opts.Limit)
			}
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return historyRun(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "Show only the most recent N runs (0 = all)")

	return cmd
}

func historyRun(ctx context.Context, opts *HistoryOptions) error {
	store, err := opts.History()
	if err != nil {
		return err
	}

	entries, err := store.List()
	if err != nil {
		return err
	}
	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[len(entries)-opts.Limit:]
	}

	ios := opts.IOStreams
	if len(entries) == 0 {
		fmt.Fprintln(ios.Out, "no runs recorded")
		return nil
	}

	table := ios.NewTablePrinter("WHEN", "SNAPSHOT", "WORKERS", "TRIES", "RESULT", "DATASET")
	for _, e := range entries {
		table.AddRow(
			e.Timestamp.Local().Format(time.DateTime),
			e.Snapshot,
			strconv.Itoa(e.Concurrency),
			strconv.Itoa(e.Tries),
			e.Result,
			e.WorkDataset,
		)
	}
	return table.Render()
}

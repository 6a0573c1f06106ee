package run

import (
	"context"
	"fmt"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/schmitthub/crashloop/internal/cmdutil"
	"github.com/schmitthub/crashloop/internal/config"
	"github.com/schmitthub/crashloop/internal/iostreams"
	"github.com/schmitthub/crashloop/internal/logger"
	"github.com/schmitthub/crashloop/internal/loop"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	IOStreams *iostreams.IOStreams
	Settings  func() (*config.Settings, error)
	NewRunner func() (*loop.Runner, error)

	Snapshot    string
	Concurrency int
	StopAfter   int
	KeepSuccess bool
	Command     string
	Workdir     string

	// Changed flags win over settings.yaml values.
	ConcurrencyChanged bool
	KeepSuccessChanged bool
	CommandChanged     bool
	WorkdirChanged     bool
}

// NewCmdRun creates the "run" subcommand.
func NewCmdRun(f *cmdutil.Factory, runF func(context.Context, *RunOptions) error) *cobra.Command {
	opts := &RunOptions{
		IOStreams: f.IOStreams,
		Settings:  f.Settings,
		NewRunner: func() (*loop.Runner, error) {
			return loop.NewRunner(f)
		},
	}

	cmd := &cobra.Command{
		Use:   "run <snapshot>",
		Short: "Run a test command in parallel against clones of a ZFS snapshot",
		Long: `Repeatedly runs a test command against fresh ZFS clones of the given
snapshot, using several workers in parallel, until one run fails.

Each attempt gets its own clone, so runs cannot interfere with each
other. The attempt's stdout and stderr are captured into files inside
the clone; a clone whose run failed is kept for inspection, a clone
whose run succeeded is destroyed (unless --keep-success is given).

The run stops when any attempt fails, or — with --stop-after — once
every worker has completed that many successful runs.`,
		Example: `  # Shake out a flaky Go test suite, two workers
  crashloop run rpool/go@base

  # Eight workers, keep everything, stop after 10 clean runs each
  crashloop run rpool/go@base --concurrency 8 --keep-success --stop-after 10

  # A different test command and working directory
  crashloop run rpool/proj@rc1 --command "make check" --workdir src`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Snapshot = args[0]
			opts.ConcurrencyChanged = cmd.Flags().Changed("concurrency")
			opts.KeepSuccessChanged = cmd.Flags().Changed("keep-success")
			opts.CommandChanged = cmd.Flags().Changed("command")
			opts.WorkdirChanged = cmd.Flags().Changed("workdir")

			if opts.StopAfter < 0 {
				return cmdutil.FlagErrorf("--stop-after must be non-negative, got %d", opts.StopAfter)
			}

			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return runRun(cmd.Context(), opts)
		},
	}

	defaults := config.DefaultSettings()
	cmd.Flags().IntVarP(&opts.Concurrency, "concurrency", "c", defaults.Runner.Concurrency, "Number of parallel workers")
	cmd.Flags().IntVar(&opts.StopAfter, "stop-after", 0, "Stop after this many successful runs per worker (0 = run until failure)")
	cmd.Flags().BoolVar(&opts.KeepSuccess, "keep-success", defaults.Runner.KeepSuccess, "Keep datasets for successful runs too")
	cmd.Flags().StringVar(&opts.Command, "command", defaults.Test.Command, "Test command to run inside each clone (shell-style quoting)")
	cmd.Flags().StringVar(&opts.Workdir, "workdir", defaults.Test.Workdir, "Directory inside the clone to run the command in")

	return cmd
}

// buildLoopOptions merges command line flags with settings.yaml values:
// settings fill in whatever flags were left at their defaults.
func buildLoopOptions(opts *RunOptions, settings *config.Settings) (loop.Options, error) {
	concurrency := settings.Runner.Concurrency
	if opts.ConcurrencyChanged {
		concurrency = opts.Concurrency
	}
	keepSuccess := settings.Runner.KeepSuccess
	if opts.KeepSuccessChanged {
		keepSuccess = opts.KeepSuccess
	}
	command := settings.Test.Command
	if opts.CommandChanged {
		command = opts.Command
	}
	workdir := settings.Test.Workdir
	if opts.WorkdirChanged {
		workdir = opts.Workdir
	}

	if concurrency < 1 {
		return loop.Options{}, cmdutil.FlagErrorf("--concurrency must be at least 1, got %d", concurrency)
	}
	argv, err := shlex.Split(command)
	if err != nil {
		return loop.Options{}, cmdutil.FlagErrorf("--command is not valid shell syntax: %v", err)
	}
	if len(argv) == 0 {
		return loop.Options{}, cmdutil.FlagErrorf("--command must not be empty")
	}

	return loop.Options{
		Snapshot:    opts.Snapshot,
		Concurrency: concurrency,
		StopAfter:   opts.StopAfter,
		KeepSuccess: keepSuccess,
		Command:     argv,
		Workdir:     workdir,
	}, nil
}

func runRun(ctx context.Context, opts *RunOptions) error {
	settings, err := opts.Settings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	loopOpts, err := buildLoopOptions(opts, settings)
	if err != nil {
		return err
	}

	logger.Debug().
		Str("snapshot", loopOpts.Snapshot).
		Int("concurrency", loopOpts.Concurrency).
		Int("stop_after", loopOpts.StopAfter).
		Bool("keep_success", loopOpts.KeepSuccess).
		Strs("command", loopOpts.Command).
		Msg("starting run")

	runner, err := opts.NewRunner()
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx, loopOpts)
	if err != nil {
		return err
	}

	if !result.OK() {
		// Per-worker results were already printed; the error just drives
		// the exit status.
		return fmt.Errorf("test failed")
	}
	return nil
}

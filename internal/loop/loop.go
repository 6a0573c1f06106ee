// Package loop implements the crashloop core: a fixed pool of workers
// that each repeatedly clone a ZFS snapshot, run an external test command
// against the clone, and stop the whole run on the first failure.
package loop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/schmitthub/crashloop/internal/cmdutil"
	"github.com/schmitthub/crashloop/internal/iostreams"
	"github.com/schmitthub/crashloop/internal/logger"
	"github.com/schmitthub/crashloop/internal/zfs"
)

// Options configures one run.
type Options struct {
	// Snapshot is the source snapshot, "pool/dataset@snap".
	Snapshot string

	// Concurrency is the number of parallel workers, at least 1.
	Concurrency int

	// StopAfter caps attempts per worker; 0 means run until failure.
	StopAfter int

	// KeepSuccess retains clones of successful attempts.
	KeepSuccess bool

	// Command is the external test command (program + args).
	Command []string

	// Workdir is the subpath inside each clone the command runs in.
	Workdir string
}

// Result is the aggregate outcome of a run.
type Result struct {
	// WorkDataset is the session's working dataset.
	WorkDataset string

	// Workers holds one result per worker, indexed by worker index.
	Workers []WorkerResult
}

// Failures counts workers that ended with an error.
func (r *Result) Failures() int {
	n := 0
	for _, wr := range r.Workers {
		if wr.Err != nil {
			n++
		}
	}
	return n
}

// OK reports whether every worker succeeded (including normal
// limit-reached stops).
func (r *Result) OK() bool {
	return r.Failures() == 0
}

// PanicError reports a worker goroutine that terminated abnormally
// instead of returning a classified result.
type PanicError struct {
	Worker int
	Value  any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker %d panicked: %v", e.Worker, e.Value)
}

// LifecycleFn builds the Lifecycle for a session. Tests substitute fakes;
// production wires NewZFSLifecycle.
type LifecycleFn func(snapshot, workDataset string) Lifecycle

// Runner executes crashloop sessions.
type Runner struct {
	ios          *iostreams.IOStreams
	newLifecycle LifecycleFn
	history      *HistoryStore
}

// NewRunner creates a Runner from the command factory.
func NewRunner(f *cmdutil.Factory) (*Runner, error) {
	mgr, err := f.ZFS()
	if err != nil {
		return nil, err
	}
	historyDir, err := f.HistoryDir()
	if err != nil {
		return nil, err
	}
	return &Runner{
		ios: f.IOStreams,
		newLifecycle: func(snapshot, workDataset string) Lifecycle {
			return NewZFSLifecycle(mgr, snapshot, workDataset)
		},
		history: NewHistoryStore(historyDir),
	}, nil
}

// NewRunnerWith creates a Runner with explicit dependencies.
// This is useful for testing with fake lifecycles and storage dirs.
func NewRunnerWith(ios *iostreams.IOStreams, newLifecycle LifecycleFn, history *HistoryStore) *Runner {
	return &Runner{ios: ios, newLifecycle: newLifecycle, history: history}
}

// Run executes one session: it creates the working dataset, launches the
// workers, joins them all, and prints per-worker results in index order.
//
// A non-nil error means the run could not be carried out at all (bad
// snapshot name, working dataset creation failure). Test failures are
// reported through the Result, not the error.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, got %d", opts.Concurrency)
	}
	if len(opts.Command) == 0 {
		return nil, fmt.Errorf("no test command configured")
	}

	dataset, _, err := zfs.SplitSnapshot(opts.Snapshot)
	if err != nil {
		return nil, err
	}
	workDataset := zfs.SessionDataset(dataset)

	session := &Session{
		SourceSnapshot: opts.Snapshot,
		WorkDataset:    workDataset,
		StopAfter:      opts.StopAfter,
		KeepSuccess:    opts.KeepSuccess,
		Command:        opts.Command,
		Workdir:        opts.Workdir,
	}

	r.printSummary(opts, workDataset)

	lifecycle := r.newLifecycle(opts.Snapshot, workDataset)

	r.ios.StartProgressIndicatorWithLabel("creating working dataset")
	err = lifecycle.CreateWorkArea(ctx)
	r.ios.StopProgressIndicator()
	if err != nil {
		return nil, fmt.Errorf("failed to create working dataset %s: %w", workDataset, err)
	}
	fmt.Fprintf(r.ios.Out, "created zfs dataset %q\n\n", workDataset)

	logger.Info().
		Str("snapshot", opts.Snapshot).
		Str("work_dataset", workDataset).
		Int("concurrency", opts.Concurrency).
		Msg("starting workers")

	results := make([]WorkerResult, opts.Concurrency)

	var wg sync.WaitGroup
	for i := 0; i < opts.Concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// A panicking worker must not take down the run or leave
			// its slot empty; it stops the others and is reported
			// against its own index.
			defer func() {
				if rec := recover(); rec != nil {
					session.Stop()
					results[i] = WorkerResult{Worker: i, Err: &PanicError{Worker: i, Value: rec}}
				}
			}()

			w := &worker{
				id:        i,
				session:   session,
				lifecycle: lifecycle,
				ios:       r.ios,
				log:       logger.WithWorker(i),
			}
			results[i] = w.run(ctx)
		}(i)
	}
	wg.Wait()

	result := &Result{WorkDataset: workDataset, Workers: results}

	fmt.Fprintln(r.ios.Out)
	for _, wr := range result.Workers {
		fmt.Fprintf(r.ios.Out, "worker %d: %d tries, result = %s\n", wr.Worker, wr.Tries, wr.Summary())
	}

	r.recordHistory(opts, result)

	return result, nil
}

// printSummary prints the run parameters, mirroring what an operator
// needs to find the working dataset later.
func (r *Runner) printSummary(opts Options, workDataset string) {
	out := r.ios.Out

	fmt.Fprintf(out, "using snapshot:  %s\n", opts.Snapshot)
	fmt.Fprintf(out, "working dataset: %s\n", workDataset)
	fmt.Fprintf(out, "concurrency:     %d\n", opts.Concurrency)

	save := "for failed runs only"
	if opts.KeepSuccess {
		save = "for all runs"
	}
	fmt.Fprintf(out, "save results:    %s\n", save)

	stop := "after any run fails"
	if opts.StopAfter > 0 {
		plural := "s"
		if opts.StopAfter == 1 {
			plural = ""
		}
		stop = fmt.Sprintf("after all workers do %d run%s", opts.StopAfter, plural)
	}
	fmt.Fprintf(out, "stop:            %s\n\n", stop)
}

// recordHistory appends the run to the history store. Best-effort: a
// history write failure must not turn a finished run into an error.
func (r *Runner) recordHistory(opts Options, result *Result) {
	if r.history == nil {
		return
	}

	totalTries := 0
	for _, wr := range result.Workers {
		totalTries += wr.Tries
	}

	outcome := "ok"
	if !result.OK() {
		outcome = "failed"
	}

	entry := HistoryEntry{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		Snapshot:    opts.Snapshot,
		WorkDataset: result.WorkDataset,
		Concurrency: opts.Concurrency,
		StopAfter:   opts.StopAfter,
		KeepSuccess: opts.KeepSuccess,
		Tries:       totalTries,
		Failures:    result.Failures(),
		Result:      outcome,
	}
	if err := r.history.Append(entry); err != nil {
		logger.Error().Err(err).Msg("failed to record run in history")
	}
}

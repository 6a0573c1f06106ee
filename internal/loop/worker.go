package loop

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/schmitthub/crashloop/internal/execx"
	"github.com/schmitthub/crashloop/internal/iostreams"
)

// Names of the output sinks written inside every attempt volume. A
// retained volume carries these two files as the attempt's evidence.
const (
	StdoutSinkName = "test_run_stdout"
	StderrSinkName = "test_run_stderr"
)

// WorkerResult is the final outcome of one worker.
type WorkerResult struct {
	// Worker is the worker's index, 0..concurrency-1.
	Worker int

	// Tries counts fully successful attempts. The attempt a failure
	// occurred on is not counted.
	Tries int

	// Err is the worker's terminal error, nil when the worker stopped
	// normally (limit reached, stop signal observed, or run canceled).
	Err error
}

// Summary renders the result the way the coordinator prints it.
func (r WorkerResult) Summary() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return "ok"
}

// worker owns one thread of execution: it loops allocating a fresh clone,
// running the test command in it, and destroying or keeping the clone,
// until it fails, reaches the attempt limit, or observes the stop signal.
type worker struct {
	id        int
	session   *Session
	lifecycle Lifecycle
	ios       *iostreams.IOStreams
	log       zerolog.Logger
}

// run is the worker body. It never retries a failed attempt: the first
// failure raises the session stop signal and becomes the worker's
// terminal error.
func (w *worker) run(ctx context.Context) WorkerResult {
	tries := 0
	for !w.session.Stopping() && ctx.Err() == nil {
		if err := w.runOnce(ctx, tries); err != nil {
			// A cancellation that lands between the loop-top check and
			// the process launch surfaces as a refusal to start. That
			// is an interrupt, not a test failure.
			if errors.Is(err, context.Canceled) {
				w.log.Debug().Int("tries", tries).Msg("interrupted before attempt started")
				break
			}
			w.session.Stop()
			return WorkerResult{Worker: w.id, Tries: tries, Err: err}
		}

		tries++

		if w.session.StopAfter > 0 && tries >= w.session.StopAfter {
			w.log.Debug().Int("tries", tries).Msg("attempt limit reached")
			break
		}
	}
	return WorkerResult{Worker: w.id, Tries: tries}
}

// runOnce carries out one attempt. Every exit path reaches a Release
// decision: destroy on success (unless the session keeps successes), keep
// on any failure so the evidence survives.
func (w *worker) runOnce(ctx context.Context, attempt int) error {
	vol, err := w.lifecycle.Allocate(ctx, w.id, attempt)
	if err != nil {
		return err
	}

	stdoutPath := filepath.Join(vol.Mountpoint, StdoutSinkName)
	stderrPath := filepath.Join(vol.Mountpoint, StderrSinkName)

	fmt.Fprintf(w.ios.Out, "%s: worker %d: attempt %d: start (see %s)\n",
		time.Now().UTC().Format(time.RFC3339), w.id, attempt, stdoutPath)
	w.log.Info().
		Int("attempt", attempt).
		Str("dataset", vol.Dataset).
		Msg("starting attempt")

	// O_EXCL: a pre-existing sink means the volume is being reused,
	// which the naming scheme is supposed to make impossible.
	stdoutFile, err := os.OpenFile(stdoutPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		w.keep(ctx, vol)
		return fmt.Errorf("failed to create stdout sink: %w", err)
	}

	stderrFile, err := os.OpenFile(stderrPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		stdoutFile.Close()
		w.keep(ctx, vol)
		return fmt.Errorf("failed to create stderr sink: %w", err)
	}

	_, runErr := execx.Run(ctx, execx.Cmd{
		Program: w.session.Command[0],
		Args:    w.session.Command[1:],
		Dir:     filepath.Join(vol.Mountpoint, w.session.Workdir),
		Stdout:  stdoutFile,
		Stderr:  stderrFile,
	})

	// Close the sinks before any destroy; closing after the dataset is
	// gone would lose buffered output.
	stdoutCloseErr := stdoutFile.Close()
	stderrCloseErr := stderrFile.Close()

	if runErr != nil {
		w.keep(ctx, vol)
		return runErr
	}
	if stdoutCloseErr != nil || stderrCloseErr != nil {
		w.keep(ctx, vol)
		if stdoutCloseErr != nil {
			return fmt.Errorf("failed to close stdout sink: %w", stdoutCloseErr)
		}
		return fmt.Errorf("failed to close stderr sink: %w", stderrCloseErr)
	}

	// A destroy failure after a successful run is still a worker
	// failure: the environment is no longer clean.
	destroy := !w.session.KeepSuccess
	if err := w.lifecycle.Release(ctx, vol, destroy); err != nil {
		return fmt.Errorf("failed to release %s: %w", vol.Dataset, err)
	}

	w.log.Debug().Int("attempt", attempt).Bool("destroyed", destroy).Msg("attempt succeeded")
	return nil
}

// keep releases the volume without destroying it. Best-effort: the volume
// is the attempt's evidence, and the attempt's own error takes precedence
// over any release hiccup.
func (w *worker) keep(ctx context.Context, vol Volume) {
	if err := w.lifecycle.Release(ctx, vol, false); err != nil {
		w.log.Warn().Err(err).Str("dataset", vol.Dataset).Msg("failed to release retained volume")
	}
}

package loop

import "sync/atomic"

// Session holds the immutable parameters of one crashloop run plus the
// single piece of state shared across workers: the stop signal.
//
// The parameters are set once by the coordinator before any worker starts
// and never written again; workers only read them. The stop signal is a
// monotonic flag — it transitions false→true exactly once and is never
// reset — so plain sequentially-consistent atomics are all the
// coordination it needs.
type Session struct {
	// SourceSnapshot is the snapshot cloned for every attempt.
	SourceSnapshot string

	// WorkDataset is the session-scoped parent dataset all attempt
	// clones are created under.
	WorkDataset string

	// StopAfter caps attempts per worker; 0 means run until failure.
	StopAfter int

	// KeepSuccess retains clones of successful attempts.
	// Failed attempts are always retained.
	KeepSuccess bool

	// Command is the external test command (program + args).
	Command []string

	// Workdir is the subpath inside a clone's mountpoint the command
	// runs in. Empty means the mountpoint itself.
	Workdir string

	stopping atomic.Bool
}

// Stop raises the shared stop signal. Idempotent; there is no way to
// lower it again.
func (s *Session) Stop() {
	s.stopping.Store(true)
}

// Stopping reports whether any worker has raised the stop signal.
// Workers check this at the top of every attempt loop.
func (s *Session) Stopping() bool {
	return s.stopping.Load()
}

// Package signals provides OS signal utilities for graceful shutdown.
// This is a leaf package — stdlib only, no internal imports, no logging.
package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalContext creates a context that's canceled on SIGINT/SIGTERM.
//
// Cancellation here is cooperative: workers observe the canceled context
// at the top of their attempt loop and finish their in-flight attempt
// first. A second signal is not intercepted, so an impatient operator can
// still kill the process the usual way.
func SetupSignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

package crashloop

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/schmitthub/crashloop/internal/cmd/factory"
	"github.com/schmitthub/crashloop/internal/cmd/root"
	"github.com/schmitthub/crashloop/internal/cmdutil"
	"github.com/schmitthub/crashloop/internal/logger"
	"github.com/schmitthub/crashloop/internal/signals"
)

// Build-time variables injected via ldflags
var (
	Version = "dev"
	Commit  = "none"
)

// Main is the entry point for the crashloop CLI.
// It initializes the Factory, creates the root command, and executes it.
func Main() int {
	// Ensure logs are flushed on exit
	defer logger.CloseFileWriter()

	f := factory.New(Version, Commit)

	rootCmd, err := root.NewCmdRoot(f, Version, Commit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create root command: %v\n", err)
		return 1
	}

	// A first Ctrl-C cancels the context so workers stop between
	// attempts; a second one kills the process outright.
	ctx, cancel := signals.SetupSignalContext(context.Background())
	defer cancel()

	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err != nil {
		var exitErr *cmdutil.ExitError
		var flagErr *cmdutil.FlagError

		switch {
		case errors.Is(err, cmdutil.SilentError):
			// Already reported.
		case errors.As(err, &exitErr):
			return exitErr.Code
		case errors.As(err, &flagErr):
			fmt.Fprintln(f.IOStreams.ErrOut, cmd.UsageString())
		}
		return 1
	}

	return 0
}

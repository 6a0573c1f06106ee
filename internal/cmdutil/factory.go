package cmdutil

import (
	"github.com/schmitthub/crashloop/internal/config"
	"github.com/schmitthub/crashloop/internal/iostreams"
	"github.com/schmitthub/crashloop/internal/zfs"
)

// Factory provides shared dependencies for CLI commands.
// It is a dependency injection container: the struct defines what
// dependencies exist (the contract), while internal/cmd/factory wires the
// real implementations.
//
// Closure fields are set by the factory constructor and use lazy
// initialization internally. Commands extract only the fields they need
// into per-command Options structs. Tests construct &cmdutil.Factory{}
// directly with whatever fakes they need.
type Factory struct {
	// Version info (set at build time via ldflags).
	Version string
	Commit  string

	// IO streams for input/output (for testability).
	IOStreams *iostreams.IOStreams

	// Dependency providers (closures wired by the factory constructor).
	SettingsLoader func() (*config.SettingsLoader, error)
	Settings       func() (*config.Settings, error)
	ZFS            func() (*zfs.Manager, error)
	HistoryDir     func() (string, error)
}

package root

import (
	"github.com/spf13/cobra"

	historycmd "github.com/schmitthub/crashloop/internal/cmd/history"
	initcmd "github.com/schmitthub/crashloop/internal/cmd/init"
	runcmd "github.com/schmitthub/crashloop/internal/cmd/run"
	versioncmd "github.com/schmitthub/crashloop/internal/cmd/version"
	"github.com/schmitthub/crashloop/internal/cmdutil"
	internalconfig "github.com/schmitthub/crashloop/internal/config"
	"github.com/schmitthub/crashloop/internal/logger"
)

// NewCmdRoot creates the root command for the crashloop CLI.
func NewCmdRoot(f *cmdutil.Factory, version, commit string) (*cobra.Command, error) {
	var debug bool

	cmd := &cobra.Command{
		Use:   "crashloop",
		Short: "Shake out flaky test suites against ZFS snapshot clones",
		Long: `Crashloop runs a test command over and over, in parallel, each run
against a pristine ZFS clone of a snapshot, until a run fails. The
failing run's clone is kept, with the captured output inside, so the
failure can be inspected at leisure.

Quick start:
  crashloop init                  # Write ~/.crashloop/settings.yaml
  crashloop run rpool/go@base     # Loop until something breaks
  crashloop history               # See past runs and their datasets`,
		SilenceUsage: true,
		Annotations: map[string]string{
			"versionInfo": versioncmd.Format(version, commit),
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initializeLogger(debug)

			logger.Debug().
				Str("version", f.Version).
				Bool("debug", debug).
				Msg("crashloop starting")

			return nil
		},
		Version: f.Version,
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "D", false, "Enable debug logging")

	// Version template
	cmd.SetVersionTemplate(versioncmd.Format(version, commit) + "\n")

	cmd.AddCommand(runcmd.NewCmdRun(f, nil))
	cmd.AddCommand(historycmd.NewCmdHistory(f, nil))
	cmd.AddCommand(initcmd.NewCmdInit(f, nil))
	cmd.AddCommand(versioncmd.NewCmdVersion(f, version, commit))

	return cmd, nil
}

// initializeLogger sets up the logger with file logging if possible.
// Falls back to console-only logging on any errors.
func initializeLogger(debug bool) {
	loader, err := internalconfig.NewSettingsLoader()
	if err != nil {
		logger.Init(debug)
		logger.Warn().Err(err).Msg("file logging unavailable: failed to create settings loader")
		return
	}

	settings, err := loader.Load()
	if err != nil {
		logger.Init(debug)
		logger.Warn().Err(err).Msg("file logging unavailable: failed to load settings")
		return
	}

	logsDir, err := internalconfig.LogsDir()
	if err != nil {
		logger.Init(debug)
		logger.Warn().Err(err).Msg("file logging unavailable: failed to get logs directory")
		return
	}

	logCfg := &logger.LoggingConfig{
		FileEnabled: settings.Logging.FileEnabled,
		MaxSizeMB:   settings.Logging.MaxSizeMB,
		MaxAgeDays:  settings.Logging.MaxAgeDays,
		MaxBackups:  settings.Logging.MaxBackups,
	}

	if err := logger.InitWithFile(debug, logsDir, logCfg); err != nil {
		logger.Init(debug)
		logger.Warn().Err(err).Msg("file logging unavailable: failed to initialize file writer")
	}
}

package init

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schmitthub/crashloop/internal/cmdutil"
	"github.com/schmitthub/crashloop/internal/config"
	"github.com/schmitthub/crashloop/internal/iostreams"
	"github.com/schmitthub/crashloop/internal/logger"
)

// InitOptions contains the options for the init command.
type InitOptions struct {
	IOStreams      *iostreams.IOStreams
	SettingsLoader func() (*config.SettingsLoader, error)
}

// NewCmdInit creates the init command for user-level setup.
func NewCmdInit(f *cmdutil.Factory, runF func(context.Context, *InitOptions) error) *cobra.Command {
	opts := &InitOptions{
		IOStreams:      f.IOStreams,
		SettingsLoader: f.SettingsLoader,
	}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize crashloop user settings",
		Long: `Creates the user settings file at ~/.crashloop/settings.yaml with a
commented template of all available options. An existing file is left
untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return initRun(cmd.Context(), opts)
		},
	}

	return cmd
}

func initRun(ctx context.Context, opts *InitOptions) error {
	loader, err := opts.SettingsLoader()
	if err != nil {
		return fmt.Errorf("failed to create settings loader: %w", err)
	}

	created, err := loader.EnsureExists()
	if err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	if created {
		logger.Info().Str("file", loader.Path()).Msg("created user settings")
		fmt.Fprintf(opts.IOStreams.Out, "Created %s\n", loader.Path())
	} else {
		fmt.Fprintf(opts.IOStreams.Out, "Settings already exist at %s\n", loader.Path())
	}
	return nil
}

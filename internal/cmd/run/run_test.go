package run

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/shlex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/crashloop/internal/cmdutil"
	"github.com/schmitthub/crashloop/internal/config"
)

func TestNewCmdRun(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantOpts RunOptions
		wantErr  bool
	}{
		{
			name:  "defaults",
			input: "rpool/go@base",
			wantOpts: RunOptions{
				Snapshot:    "rpool/go@base",
				Concurrency: 2,
				Command:     "bash ./all.bash",
				Workdir:     "goroot/src",
			},
		},
		{
			name:  "concurrency shorthand",
			input: "-c 8 rpool/go@base",
			wantOpts: RunOptions{
				Snapshot:           "rpool/go@base",
				Concurrency:        8,
				Command:            "bash ./all.bash",
				Workdir:            "goroot/src",
				ConcurrencyChanged: true,
			},
		},
		{
			name:  "stop after and keep success",
			input: "--stop-after 10 --keep-success rpool/go@base",
			wantOpts: RunOptions{
				Snapshot:           "rpool/go@base",
				Concurrency:        2,
				StopAfter:          10,
				KeepSuccess:        true,
				Command:            "bash ./all.bash",
				Workdir:            "goroot/src",
				KeepSuccessChanged: true,
			},
		},
		{
			name:  "custom command and workdir",
			input: `--command "make check" --workdir src rpool/proj@rc1`,
			wantOpts: RunOptions{
				Snapshot:       "rpool/proj@rc1",
				Concurrency:    2,
				Command:        "make check",
				Workdir:        "src",
				CommandChanged: true,
				WorkdirChanged: true,
			},
		},
		{
			name:    "no snapshot",
			input:   "",
			wantErr: true,
		},
		{
			name:    "too many arguments",
			input:   "rpool/a@x rpool/b@y",
			wantErr: true,
		},
		{
			name:    "negative stop-after",
			input:   "--stop-after -1 rpool/go@base",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &cmdutil.Factory{}

			var gotOpts *RunOptions
			cmd := NewCmdRun(f, func(_ context.Context, opts *RunOptions) error {
				gotOpts = opts
				return nil
			})

			argv, err := shlex.Split(tt.input)
			require.NoError(t, err)
			cmd.SetArgs(argv)
			cmd.SetIn(&bytes.Buffer{})
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})

			_, err = cmd.ExecuteC()
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, gotOpts)
			require.Equal(t, tt.wantOpts.Snapshot, gotOpts.Snapshot)
			require.Equal(t, tt.wantOpts.Concurrency, gotOpts.Concurrency)
			require.Equal(t, tt.wantOpts.StopAfter, gotOpts.StopAfter)
			require.Equal(t, tt.wantOpts.KeepSuccess, gotOpts.KeepSuccess)
			require.Equal(t, tt.wantOpts.Command, gotOpts.Command)
			require.Equal(t, tt.wantOpts.Workdir, gotOpts.Workdir)
			require.Equal(t, tt.wantOpts.ConcurrencyChanged, gotOpts.ConcurrencyChanged)
			require.Equal(t, tt.wantOpts.KeepSuccessChanged, gotOpts.KeepSuccessChanged)
			require.Equal(t, tt.wantOpts.CommandChanged, gotOpts.CommandChanged)
			require.Equal(t, tt.wantOpts.WorkdirChanged, gotOpts.WorkdirChanged)
		})
	}
}

func TestCmdRun_Properties(t *testing.T) {
	f := &cmdutil.Factory{}
	cmd := NewCmdRun(f, nil)

	require.Equal(t, "run <snapshot>", cmd.Use)
	require.NotEmpty(t, cmd.Short)
	require.NotEmpty(t, cmd.Long)
	require.NotEmpty(t, cmd.Example)
	require.NotNil(t, cmd.RunE)

	require.NotNil(t, cmd.Flags().Lookup("concurrency"))
	require.NotNil(t, cmd.Flags().Lookup("stop-after"))
	require.NotNil(t, cmd.Flags().Lookup("keep-success"))
	require.NotNil(t, cmd.Flags().Lookup("command"))
	require.NotNil(t, cmd.Flags().Lookup("workdir"))
	require.NotNil(t, cmd.Flags().ShorthandLookup("c"))
}

func TestBuildLoopOptions(t *testing.T) {
	settings := config.DefaultSettings()
	settings.Runner.Concurrency = 5
	settings.Runner.KeepSuccess = true
	settings.Test.Command = "make stress"
	settings.Test.Workdir = "sub"

	t.Run("settings fill unchanged flags", func(t *testing.T) {
		opts := &RunOptions{Snapshot: "rpool/go@base", StopAfter: 4}

		got, err := buildLoopOptions(opts, settings)
		require.NoError(t, err)
		assert.Equal(t, "rpool/go@base", got.Snapshot)
		assert.Equal(t, 5, got.Concurrency)
		assert.Equal(t, 4, got.StopAfter)
		assert.True(t, got.KeepSuccess)
		assert.Equal(t, []string{"make", "stress"}, got.Command)
		assert.Equal(t, "sub", got.Workdir)
	})

	t.Run("changed flags win over settings", func(t *testing.T) {
		opts := &RunOptions{
			Snapshot:           "rpool/go@base",
			Concurrency:        3,
			ConcurrencyChanged: true,
			KeepSuccessChanged: true,
			Command:            "bash ./all.bash",
			CommandChanged:     true,
			Workdir:            "goroot/src",
			WorkdirChanged:     true,
		}

		got, err := buildLoopOptions(opts, settings)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Concurrency)
		assert.False(t, got.KeepSuccess)
		assert.Equal(t, []string{"bash", "./all.bash"}, got.Command)
		assert.Equal(t, "goroot/src", got.Workdir)
	})

	t.Run("quoted arguments stay whole", func(t *testing.T) {
		opts := &RunOptions{
			Snapshot:       "rpool/go@base",
			Command:        `sh -c 'make check'`,
			CommandChanged: true,
		}

		got, err := buildLoopOptions(opts, settings)
		require.NoError(t, err)
		assert.Equal(t, []string{"sh", "-c", "make check"}, got.Command)
	})

	t.Run("rejects unbalanced quote", func(t *testing.T) {
		opts := &RunOptions{
			Snapshot:       "rpool/go@base",
			Command:        `sh -c 'make check`,
			CommandChanged: true,
		}

		_, err := buildLoopOptions(opts, settings)
		require.Error(t, err)
		assert.ErrorContains(t, err, "--command is not valid shell syntax")

		var flagErr *cmdutil.FlagError
		assert.ErrorAs(t, err, &flagErr)
	})

	t.Run("rejects bad concurrency from settings", func(t *testing.T) {
		bad := config.DefaultSettings()
		bad.Runner.Concurrency = 0

		_, err := buildLoopOptions(&RunOptions{Snapshot: "rpool/go@base"}, bad)
		require.Error(t, err)
		assert.ErrorContains(t, err, "--concurrency must be at least 1")

		var flagErr *cmdutil.FlagError
		assert.ErrorAs(t, err, &flagErr)
	})

	t.Run("rejects blank command", func(t *testing.T) {
		bad := config.DefaultSettings()
		bad.Test.Command = "   "

		_, err := buildLoopOptions(&RunOptions{Snapshot: "rpool/go@base"}, bad)
		require.Error(t, err)
		assert.ErrorContains(t, err, "--command must not be empty")
	})
}

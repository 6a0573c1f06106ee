package root

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/crashloop/internal/cmdutil"
	"github.com/schmitthub/crashloop/internal/iostreams/iostreamstest"
)

func TestNewCmdRoot(t *testing.T) {
	ios := iostreamstest.New()
	f := &cmdutil.Factory{Version: "1.2.3", IOStreams: ios.IOStreams}

	cmd, err := NewCmdRoot(f, "1.2.3", "abc1234")
	require.NoError(t, err)

	assert.Equal(t, "crashloop", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
	assert.Contains(t, cmd.Annotations["versionInfo"], "crashloop version 1.2.3 (abc1234)")
	assert.NotNil(t, cmd.PersistentFlags().Lookup("debug"))

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "run")
	assert.Contains(t, names, "history")
	assert.Contains(t, names, "init")
	assert.Contains(t, names, "version")
}

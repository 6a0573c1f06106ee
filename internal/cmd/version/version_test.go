package version

import (
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/crashloop/internal/cmdutil"
	"github.com/schmitthub/crashloop/internal/iostreams/iostreamstest"
)

func TestFormat(t *testing.T) {
	out := Format("v1.4.0", "abc1234")
	assert.True(t, strings.HasPrefix(out, "crashloop version 1.4.0 (abc1234)\n"), out)
	assert.Contains(t, out, fmt.Sprintf("built with %s for %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH))

	assert.True(t, strings.HasPrefix(Format("1.4.0", ""), "crashloop version 1.4.0\n"))
	assert.True(t, strings.HasPrefix(Format("dev", "none"), "crashloop version dev (none)\n"))
}

func TestCmdVersionPrintsVersionInfo(t *testing.T) {
	ios := iostreamstest.New()
	f := &cmdutil.Factory{IOStreams: ios.IOStreams}

	cmd := NewCmdVersion(f, "1.4.0", "abc1234")
	// A standalone command is its own root, so the annotation the real
	// root carries has to be planted here.
	cmd.Annotations = map[string]string{"versionInfo": Format("1.4.0", "abc1234")}
	cmd.SetArgs([]string{})

	_, err := cmd.ExecuteC()
	require.NoError(t, err)

	out := ios.OutBuf.String()
	assert.Contains(t, out, "crashloop version 1.4.0 (abc1234)")
	assert.Contains(t, out, runtime.Version())
	assert.Contains(t, out, runtime.GOOS+"/"+runtime.GOARCH)
}

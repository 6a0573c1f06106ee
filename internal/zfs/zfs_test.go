package zfs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/crashloop/internal/execx"
)

// recordingRunner captures every command the Manager issues.
type recordingRunner struct {
	calls []string
	out   string
	err   error
}

func (r *recordingRunner) run(_ context.Context, c execx.Cmd) (string, error) {
	r.calls = append(r.calls, strings.Join(append([]string{c.Program}, c.Args...), " "))
	return r.out, r.err
}

func TestCreateUsesPrivilegeHelper(t *testing.T) {
	rec := &recordingRunner{}
	m := NewManager(WithHelper("pfexec"), WithRunner(rec.run))

	require.NoError(t, m.Create(context.Background(), "rpool/crashloop-1"))
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "pfexec zfs create rpool/crashloop-1", rec.calls[0])
}

func TestCloneAndDestroy(t *testing.T) {
	rec := &recordingRunner{}
	m := NewManager(WithHelper("sudo"), WithRunner(rec.run))

	require.NoError(t, m.Clone(context.Background(), "rpool/go@base", "rpool/go/crashloop-1/worker-0-run-0"))
	require.NoError(t, m.Destroy(context.Background(), "rpool/go/crashloop-1/worker-0-run-0"))

	require.Len(t, rec.calls, 2)
	assert.Equal(t, "sudo zfs clone rpool/go@base rpool/go/crashloop-1/worker-0-run-0", rec.calls[0])
	assert.Equal(t, "sudo zfs destroy rpool/go/crashloop-1/worker-0-run-0", rec.calls[1])
}

func TestNoHelperInvokesZFSDirectly(t *testing.T) {
	rec := &recordingRunner{}
	m := NewManager(WithRunner(rec.run))

	require.NoError(t, m.Create(context.Background(), "rpool/ds"))
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "zfs create rpool/ds", rec.calls[0])
}

func TestMountpointTrimsAndSkipsHelper(t *testing.T) {
	rec := &recordingRunner{out: "/rpool/go/crashloop-1/worker-2-run-7\n"}
	m := NewManager(WithHelper("pfexec"), WithRunner(rec.run))

	mp, err := m.Mountpoint(context.Background(), "rpool/go/crashloop-1/worker-2-run-7")
	require.NoError(t, err)
	assert.Equal(t, "/rpool/go/crashloop-1/worker-2-run-7", mp)

	require.Len(t, rec.calls, 1)
	// list is read-only: no pfexec.
	assert.Equal(t, "zfs list -H -o mountpoint rpool/go/crashloop-1/worker-2-run-7", rec.calls[0])
}

func TestOperationErrorsPropagate(t *testing.T) {
	rec := &recordingRunner{err: errors.New("cannot open 'rpool/nope': dataset does not exist")}
	m := NewManager(WithRunner(rec.run))

	err := m.Clone(context.Background(), "rpool/nope@snap", "rpool/target")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	_, err = m.Mountpoint(context.Background(), "rpool/nope")
	require.Error(t, err)
}

func TestSplitSnapshot(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantDataset string
		wantSnap    string
		wantErr     bool
	}{
		{name: "valid", input: "rpool/go@base", wantDataset: "rpool/go", wantSnap: "base"},
		{name: "nested dataset", input: "tank/build/go@2024-01-01", wantDataset: "tank/build/go", wantSnap: "2024-01-01"},
		{name: "missing at sign", input: "rpool/go", wantErr: true},
		{name: "empty dataset", input: "@snap", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataset, snap, err := SplitSnapshot(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "missing '@'")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDataset, dataset)
			assert.Equal(t, tt.wantSnap, snap)
		})
	}
}

func TestSessionDatasetIsScopedAndPrefixed(t *testing.T) {
	name := SessionDataset("rpool/go")
	assert.True(t, strings.HasPrefix(name, "rpool/go/crashloop-"), "got %q", name)
}

func TestAttemptDatasetUniqueAcrossWorkersAndRuns(t *testing.T) {
	session := "rpool/go/crashloop-123"
	seen := make(map[string]bool)
	for worker := 0; worker < 4; worker++ {
		for attempt := 0; attempt < 25; attempt++ {
			name := AttemptDataset(session, worker, attempt)
			require.False(t, seen[name], "duplicate attempt dataset %q", name)
			seen[name] = true
			assert.True(t, strings.HasPrefix(name, session+"/"))
		}
	}
	assert.Len(t, seen, 100)
}

func TestAttemptDatasetFormat(t *testing.T) {
	got := AttemptDataset("rpool/go/crashloop-9", 1, 3)
	assert.Equal(t, fmt.Sprintf("%s/worker-1-run-3", "rpool/go/crashloop-9"), got)
}

// Package zfs drives the zfs(8) command-line tools for dataset creation,
// snapshot cloning, mountpoint resolution, and destruction. It does not
// talk to the kernel directly; every operation is an external command so
// the package works the same on illumos, FreeBSD, and Linux.
package zfs

import (
	"context"
	"strings"

	"github.com/schmitthub/crashloop/internal/execx"
)

// RunFn executes one external command. It exists so tests can observe and
// fake zfs invocations without a pool.
type RunFn func(ctx context.Context, c execx.Cmd) (string, error)

// Manager wraps the zfs CLI.
//
// Mutating operations (create, clone, destroy) usually need elevated
// privileges; they are routed through the configured privilege helper
// (pfexec, sudo, doas, ...). Read-only operations run unwrapped.
type Manager struct {
	helper string

	// run overrides command execution when non-nil. Tests set this to
	// avoid requiring a real pool.
	run RunFn
}

// Option configures a Manager.
type Option func(*Manager)

// WithHelper sets the privilege helper prepended to mutating zfs commands.
// Empty means the zfs binary is invoked directly.
func WithHelper(helper string) Option {
	return func(m *Manager) { m.helper = helper }
}

// WithRunner replaces the command execution function. Intended for tests.
func WithRunner(run RunFn) Option {
	return func(m *Manager) { m.run = run }
}

// NewManager creates a Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{run: execx.Run}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Helper returns the configured privilege helper, empty if none.
func (m *Manager) Helper() string { return m.helper }

// Create creates a new, empty dataset.
func (m *Manager) Create(ctx context.Context, dataset string) error {
	_, err := m.elevated(ctx, "create", dataset)
	return err
}

// Clone creates a writable dataset from a snapshot. zfs itself fails
// loudly if the target name already exists, which is exactly the behavior
// attempt allocation relies on to catch naming bugs.
func (m *Manager) Clone(ctx context.Context, snapshot, dataset string) error {
	_, err := m.elevated(ctx, "clone", snapshot, dataset)
	return err
}

// Destroy irreversibly removes a dataset and everything in it.
func (m *Manager) Destroy(ctx context.Context, dataset string) error {
	_, err := m.elevated(ctx, "destroy", dataset)
	return err
}

// Mountpoint resolves where a dataset is mounted. Read-only, so it never
// goes through the privilege helper.
func (m *Manager) Mountpoint(ctx context.Context, dataset string) (string, error) {
	out, err := m.run(ctx, execx.Cmd{
		Program: "zfs",
		Args:    []string{"list", "-H", "-o", "mountpoint", dataset},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// elevated runs a mutating zfs subcommand through the privilege helper.
func (m *Manager) elevated(ctx context.Context, args ...string) (string, error) {
	program := "zfs"
	if m.helper != "" {
		program = m.helper
		args = append([]string{"zfs"}, args...)
	}
	return m.run(ctx, execx.Cmd{Program: program, Args: args})
}

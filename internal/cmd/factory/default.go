package factory

import (
	"os"
	"sync"

	"github.com/schmitthub/crashloop/internal/cmdutil"
	"github.com/schmitthub/crashloop/internal/config"
	"github.com/schmitthub/crashloop/internal/iostreams"
	"github.com/schmitthub/crashloop/internal/zfs"
)

// New creates a fully-wired Factory with lazy-initialized dependency closures.
// Called exactly once at the CLI entry point (internal/crashloop/cmd.go).
// Tests should NOT import this package — construct &cmdutil.Factory{} directly.
func New(version, commit string) *cmdutil.Factory {
	ios := iostreams.NewIOStreams()

	if !ios.IsOutputTTY() || os.Getenv("NO_COLOR") != "" {
		ios.SetColorEnabled(false)
	}

	f := &cmdutil.Factory{
		Version:   version,
		Commit:    commit,
		IOStreams: ios,
	}

	// --- Lazy dependency closures ---

	// Settings
	var (
		settingsOnce   sync.Once
		settingsLoader *config.SettingsLoader
		settingsData   *config.Settings
		settingsErr    error
	)
	f.SettingsLoader = func() (*config.SettingsLoader, error) {
		settingsOnce.Do(func() {
			settingsLoader, settingsErr = config.NewSettingsLoader()
		})
		return settingsLoader, settingsErr
	}
	f.Settings = func() (*config.Settings, error) {
		if settingsData != nil || settingsErr != nil {
			return settingsData, settingsErr
		}
		loader, err := f.SettingsLoader()
		if err != nil {
			return nil, err
		}
		settingsData, settingsErr = loader.Load()
		return settingsData, settingsErr
	}

	// ZFS manager, configured with the privilege helper from settings.
	var (
		zfsOnce sync.Once
		zfsMgr  *zfs.Manager
		zfsErr  error
	)
	f.ZFS = func() (*zfs.Manager, error) {
		zfsOnce.Do(func() {
			settings, err := f.Settings()
			if err != nil {
				zfsErr = err
				return
			}
			zfsMgr = zfs.NewManager(zfs.WithHelper(settings.ZFS.PrivilegeHelper))
		})
		return zfsMgr, zfsErr
	}

	// History store directory
	f.HistoryDir = config.HistoryDir

	return f
}

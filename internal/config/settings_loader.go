package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// SettingsFileName is the name of the user settings file.
const SettingsFileName = "settings.yaml"

// SettingsLoader handles loading and saving of user settings.
type SettingsLoader struct {
	path string
}

// NewSettingsLoader creates a SettingsLoader. It resolves the settings
// path from CRASHLOOP_HOME or the default location.
func NewSettingsLoader() (*SettingsLoader, error) {
	home, err := CrashloopHome()
	if err != nil {
		return nil, fmt.Errorf("failed to determine crashloop home: %w", err)
	}
	return &SettingsLoader{path: filepath.Join(home, SettingsFileName)}, nil
}

// NewSettingsLoaderAt creates a SettingsLoader for an explicit file path.
// Intended for tests.
func NewSettingsLoaderAt(path string) *SettingsLoader {
	return &SettingsLoader{path: path}
}

// Path returns the full path to the settings file.
func (l *SettingsLoader) Path() string {
	return l.path
}

// Exists checks if the settings file exists. Errors other than "file not
// found" (permission denied, ...) also report false since the file cannot
// be read anyway.
func (l *SettingsLoader) Exists() bool {
	_, err := os.Stat(l.path)
	return err == nil
}

// Load reads and parses the settings file through viper so built-in
// defaults fill any keys the file omits. A missing file yields the
// defaults, not an error.
func (l *SettingsLoader) Load() (*Settings, error) {
	if !l.Exists() {
		return DefaultSettings(), nil
	}

	v := viper.New()
	v.SetConfigFile(l.path)
	v.SetConfigType("yaml")

	defaults := DefaultSettings()
	v.SetDefault("runner.concurrency", defaults.Runner.Concurrency)
	v.SetDefault("runner.keep_success", defaults.Runner.KeepSuccess)
	v.SetDefault("test.command", defaults.Test.Command)
	v.SetDefault("test.workdir", defaults.Test.Workdir)
	v.SetDefault("zfs.privilege_helper", defaults.ZFS.PrivilegeHelper)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := v.Unmarshal(&settings, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	return &settings, nil
}

// Save writes the settings to the file, creating the parent directory if
// needed.
func (l *SettingsLoader) Save(s *Settings) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// EnsureExists creates the settings file with the default template if it
// doesn't exist. Returns true if the file was created.
func (l *SettingsLoader) EnsureExists() (bool, error) {
	if l.Exists() {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("failed to create settings directory: %w", err)
	}

	if err := os.WriteFile(l.path, []byte(DefaultSettingsYAML), 0644); err != nil {
		return false, fmt.Errorf("failed to write settings file: %w", err)
	}
	return true, nil
}

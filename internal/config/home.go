package config

import (
	"os"
	"path/filepath"
)

const (
	// HomeEnv is the environment variable overriding the crashloop home directory.
	HomeEnv = "CRASHLOOP_HOME"
	// DefaultHomeDir is the default directory name under the user home.
	DefaultHomeDir = ".crashloop"
	// LogsSubdir is the subdirectory for rotated log files.
	LogsSubdir = "logs"
	// HistorySubdir is the subdirectory for the run history store.
	HistorySubdir = "history"
)

// CrashloopHome returns the crashloop home directory. It checks the
// CRASHLOOP_HOME environment variable first, then defaults to ~/.crashloop.
func CrashloopHome() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultHomeDir), nil
}

// LogsDir returns the log file directory (~/.crashloop/logs).
func LogsDir() (string, error) {
	home, err := CrashloopHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, LogsSubdir), nil
}

// HistoryDir returns the run history directory (~/.crashloop/history).
func HistoryDir() (string, error) {
	home, err := CrashloopHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, HistorySubdir), nil
}

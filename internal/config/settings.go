package config

// Settings holds user-level defaults loaded from settings.yaml. Command
// line flags override anything here.
type Settings struct {
	Runner  RunnerSettings  `yaml:"runner" mapstructure:"runner"`
	Test    TestSettings    `yaml:"test" mapstructure:"test"`
	ZFS     ZFSSettings     `yaml:"zfs" mapstructure:"zfs"`
	Logging LoggingSettings `yaml:"logging" mapstructure:"logging"`
}

// RunnerSettings configures the worker pool defaults.
type RunnerSettings struct {
	// Concurrency is the default number of parallel workers.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	// KeepSuccess retains volumes for successful attempts when true.
	KeepSuccess bool `yaml:"keep_success" mapstructure:"keep_success"`
}

// TestSettings configures the external test command.
type TestSettings struct {
	// Command is the test command line, split with shell-style quoting.
	Command string `yaml:"command" mapstructure:"command"`
	// Workdir is the subpath inside the mounted clone the command runs in.
	Workdir string `yaml:"workdir" mapstructure:"workdir"`
}

// ZFSSettings configures how zfs(8) is invoked.
type ZFSSettings struct {
	// PrivilegeHelper is prepended to mutating zfs commands
	// (pfexec, sudo, doas, or empty to run zfs directly).
	PrivilegeHelper string `yaml:"privilege_helper" mapstructure:"privilege_helper"`
}

// LoggingSettings configures file-based logging.
type LoggingSettings struct {
	FileEnabled *bool `yaml:"file_enabled,omitempty" mapstructure:"file_enabled"`
	MaxSizeMB   int   `yaml:"max_size_mb,omitempty" mapstructure:"max_size_mb"`
	MaxAgeDays  int   `yaml:"max_age_days,omitempty" mapstructure:"max_age_days"`
	MaxBackups  int   `yaml:"max_backups,omitempty" mapstructure:"max_backups"`
}

// DefaultSettings returns the built-in defaults: two workers, the Go
// test-suite command the tool was written for, and pfexec privilege
// escalation.
func DefaultSettings() *Settings {
	return &Settings{
		Runner: RunnerSettings{
			Concurrency: 2,
		},
		Test: TestSettings{
			Command: "bash ./all.bash",
			Workdir: "goroot/src",
		},
		ZFS: ZFSSettings{
			PrivilegeHelper: "pfexec",
		},
	}
}

// DefaultSettingsYAML is the commented template written by `crashloop init`.
const DefaultSettingsYAML = `# crashloop user settings
# Command line flags override anything set here.

runner:
  # Number of parallel workers.
  concurrency: 2
  # Keep datasets for successful test runs too (failed runs are always kept).
  keep_success: false

test:
  # Test command to run inside each clone. Shell-style quoting applies,
  # so quoted arguments may contain spaces.
  command: bash ./all.bash
  # Subpath inside the clone's mountpoint to run the command in.
  workdir: goroot/src

zfs:
  # Privilege helper for mutating zfs commands: pfexec, sudo, doas, or
  # empty to invoke zfs directly.
  privilege_helper: pfexec

logging:
  # Write JSON logs to ~/.crashloop/logs/crashloop.log (rotated).
  file_enabled: true
  max_size_mb: 50
  max_age_days: 7
  max_backups: 3
`

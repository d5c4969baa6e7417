package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Log      LogConfig      `mapstructure:"log"      validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Run      RunConfig      `mapstructure:"run"`
	Daemon   DaemonConfig   `mapstructure:"daemon"`

	// FeedsFile is the path of the YAML file holding the feed
	// definitions.
	FeedsFile string `mapstructure:"feeds_file" validate:"required"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig selects and configures the persistent cache backend.
// The memory driver keeps nothing across runs and exists for tests and
// dry runs.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres sqlite memory"`

	// URL is the postgres connection string or the sqlite file path,
	// depending on the driver. Unused by the memory driver.
	URL string `mapstructure:"url" validate:"required_unless=Driver memory"`
}

// RunConfig carries the default run-mode flags; CLI flags override
// them per invocation.
type RunConfig struct {
	Quiet   bool `mapstructure:"quiet"`
	Details bool `mapstructure:"details"`
	Learn   bool `mapstructure:"learn"`

	// FailedKeep bounds the persisted failed-entry log.
	FailedKeep int `mapstructure:"failed_keep" validate:"gte=0,lte=10000"`
}

// DaemonConfig configures daemon mode, where feeds execute on a cron
// schedule instead of once.
type DaemonConfig struct {
	// Schedule is a cron expression; empty disables daemon mode unless
	// given on the command line.
	Schedule string `mapstructure:"schedule"`
}

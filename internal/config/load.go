package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Defaults applied when neither the config file nor the environment
// provides a value.
const (
	defaultLogLevel   = "info"
	defaultDriver     = "sqlite"
	defaultURL        = "feedrunner.db"
	defaultFeedsFile  = "feeds.yml"
	defaultFailedKeep = 255
)

// Load reads configuration from an optional config file and from
// environment variables. Environment variables take precedence over
// values from the file; both override the built-in defaults.
//
// path names the config file explicitly; when empty, a file called
// feedrunner.yml is searched in the working directory. A missing file
// is not an error since every setting has a default.
// Returns a populated Config struct or an error if loading or
// validation fails.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("database.driver", defaultDriver)
	v.SetDefault("database.url", defaultURL)
	v.SetDefault("run.failed_keep", defaultFailedKeep)
	v.SetDefault("feeds_file", defaultFeedsFile)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("feedrunner")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FEEDRUNNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

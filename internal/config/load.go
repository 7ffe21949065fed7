package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "TRADEREADS"

// defaults are applied before any file or environment value.
// Every key must appear here so that viper binds its environment variable.
var defaults = map[string]any{
	"server.port":                         8080,
	"server.log_level":                    "info",
	"server.log_file":                     "",
	"server.shutdown_timeout_seconds":     10,
	"database.driver":                     DriverPostgres,
	"database.url":                        "",
	"database.max_open_conns":             25,
	"database.max_idle_conns":             5,
	"auth.jwt_secret":                     "",
	"auth.access_token_lifetime_minutes":  10,
	"auth.refresh_token_lifetime_minutes": 7 * 24 * 60,
	"auth.max_sessions_per_user":          5,
	"auth.bcrypt_cost":                    10,
	"sessions.sweep_interval_minutes":     60,
	"limiter.enabled":                     true,
	"limiter.rps":                         2.0,
	"limiter.burst":                       4,
}

// Load reads configuration from an optional config.yaml (working directory
// or the path in TRADEREADS_CONFIG_FILE) and from TRADEREADS_* environment
// variables, which take precedence. The result is validated before returning.
func Load() (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
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

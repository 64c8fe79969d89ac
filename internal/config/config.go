// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Environment is a deployment stage.
type Environment string

const (
	EnvLocal   Environment = "local"
	EnvStaging Environment = "staging"
	EnvProd    Environment = "prod"
)

// ParseEnvironment maps a raw value onto a known Environment. Unknown values
// fall back to local.
func ParseEnvironment(raw string) Environment {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "prod", "production":
		return EnvProd
	case "staging":
		return EnvStaging
	default:
		return EnvLocal
	}
}

// Config holds runtime configuration. Database credentials are not part of
// it; they come from the secrets provider.
type Config struct {
	Env         string `envconfig:"ENV" default:"local"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"unknown-service"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	SecretsFile string `envconfig:"SECRETS_FILE" default:"secrets.local.json"`

	DBPort            int           `envconfig:"DB_PORT" default:"5432"`
	DBMaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
	DBConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"5m"`

	MigrateTimeout time.Duration `envconfig:"MIGRATE_TIMEOUT" default:"30s"`
}

// Load reads RIG_* variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("rig", &cfg); err != nil {
		return nil, err
	}
	if cfg.DBMaxConns <= 0 {
		return nil, errors.New("config: RIG_DB_MAX_CONNS must be positive")
	}
	if cfg.DBPort <= 0 || cfg.DBPort > 65535 {
		return nil, errors.New("config: RIG_DB_PORT out of range")
	}
	return &cfg, nil
}

// Environment returns the parsed deployment stage.
func (c *Config) Environment() Environment {
	if c == nil {
		return EnvLocal
	}
	return ParseEnvironment(c.Env)
}

// Package config loads vuo settings from a TOML file and VUO_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/vuo/internal/persist"
)

// EnvPrefix prefixes environment overrides, e.g. VUO_API_BASE_URL.
const EnvPrefix = "VUO"

// Config holds application configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Persist PersistConfig `mapstructure:"persist"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// APIConfig holds transport settings.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	AuthToken string        `mapstructure:"auth_token"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// PersistConfig selects the persistence backend for persisted cells.
type PersistConfig struct {
	Backend     string `mapstructure:"backend"`
	Path        string `mapstructure:"path"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig controls the Prometheus endpoint of "vuo run".
type MetricsConfig struct {
	// Addr is the listen address, e.g. ":9090". Empty disables the endpoint.
	Addr string `mapstructure:"addr"`
}

// DefaultPath returns $HOME/.config/vuo/config.toml.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "vuo", "config.toml")
}

func newViper() *viper.Viper {
	v := viper.New()

	// default values
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.auth_token", "")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("persist.backend", persist.BackendMemory)
	v.SetDefault("persist.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "vuo", "state.db"))
	v.SetDefault("persist.redis_addr", "")
	v.SetDefault("persist.redis_prefix", persist.DefaultRedisPrefix)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("metrics.addr", "")

	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// Load reads configuration. An explicit path must exist; otherwise
// VUO_CONFIG or the default location is read if present.
func Load(path string) (Config, error) {
	v := newViper()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvPrefix + "_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath()
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if explicit || !missing {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes cfg as TOML, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("api.base_url", cfg.API.BaseURL)
	v.Set("api.auth_token", cfg.API.AuthToken)
	v.Set("api.timeout", cfg.API.Timeout.String())
	v.Set("persist.backend", cfg.Persist.Backend)
	v.Set("persist.path", cfg.Persist.Path)
	v.Set("persist.redis_addr", cfg.Persist.RedisAddr)
	v.Set("persist.redis_prefix", cfg.Persist.RedisPrefix)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("metrics.addr", cfg.Metrics.Addr)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// PersistOptions converts the persistence section for persist.Open.
func (c Config) PersistOptions() persist.Options {
	return persist.Options{
		Backend:     c.Persist.Backend,
		Path:        c.Persist.Path,
		RedisAddr:   c.Persist.RedisAddr,
		RedisPrefix: c.Persist.RedisPrefix,
	}
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// PARTSYNC_GATEWAY_DSN for gateway.dsn.
const EnvPrefix = "PARTSYNC"

// Config is the process configuration of the partsync binary. Library
// packages never read it; the CLI passes the values explicitly.
type Config struct {
	Gateway GatewayConfig `mapstructure:"gateway"`
	Store   StoreConfig   `mapstructure:"store"`
	Write   WriteConfig   `mapstructure:"write"`
	Log     LogConfig     `mapstructure:"log"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GatewayConfig selects the query engine.
type GatewayConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// StoreConfig selects the object store. An endpoint selects an S3 service;
// otherwise buckets are directories under LocalRoot.
type StoreConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
	LocalRoot string `mapstructure:"local_root"`
}

// WriteConfig tunes partitioned writes.
type WriteConfig struct {
	Parallelism int `mapstructure:"parallelism"`
}

// LogConfig mirrors logger.Config.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]interface{}{
	"gateway.driver":    "postgres",
	"gateway.dsn":       "",
	"store.endpoint":    "",
	"store.access_key":  "",
	"store.secret_key":  "",
	"store.use_ssl":     true,
	"store.region":      "",
	"store.local_root":  ".",
	"write.parallelism": 4,
	"log.level":         "info",
	"log.format":        "text",
	"timeout":           "5m",
}

// Load reads the YAML file at path (optional when empty) and applies
// environment overrides.
func Load(path string) (*Config, error) {
	return LoadFS(afero.NewOsFs(), path)
}

// LoadFS is Load over fsys.
func LoadFS(fsys afero.Fs, path string) (*Config, error) {
	v := viper.New()
	v.SetFs(fsys)

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Every key has a default, so AutomaticEnv also reaches Unmarshal.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that have no usable zero.
func (c *Config) Validate() error {
	var errs []error
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.Write.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("write.parallelism must be at least 1, got %d", c.Write.Parallelism))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	if c.Store.Endpoint == "" && c.Store.LocalRoot == "" {
		errs = append(errs, errors.New("either store.endpoint or store.local_root is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

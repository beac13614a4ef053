// Package config loads fwloom settings from flags, FWLOOM_* environment
// variables and an optional YAML file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/atikulmunna/fwloom/internal/fwlogs"
	"github.com/atikulmunna/fwloom/internal/sink"
)

// Redis configures the stream sink. An empty Addr disables it.
type Redis struct {
	Addr   string `mapstructure:"addr"`
	Stream string `mapstructure:"stream"`
	MaxLen int64  `mapstructure:"max_len"`
}

// Config is the resolved fwloom configuration.
type Config struct {
	Schema     string  `mapstructure:"schema"`
	Source     int     `mapstructure:"source"` // -1: use Schema as the parser document
	DeltaScale float64 `mapstructure:"delta_scale"`
	HeaderSize int     `mapstructure:"header_size"`
	Output     string  `mapstructure:"output"`
	Level      string  `mapstructure:"level"`
	Port       string  `mapstructure:"port"`
	Checkpoint string  `mapstructure:"checkpoint"`
	FromStart  bool    `mapstructure:"from_start"`
	Verbose    bool    `mapstructure:"verbose"`
	Redis      Redis   `mapstructure:"redis"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("schema", "")
	v.SetDefault("source", -1)
	v.SetDefault("delta_scale", fwlogs.DefaultDeltaScale)
	v.SetDefault("header_size", 0)
	v.SetDefault("output", "text")
	v.SetDefault("level", "")
	v.SetDefault("port", "")
	v.SetDefault("checkpoint", ".fwloom-state.json")
	v.SetDefault("from_start", false)
	v.SetDefault("verbose", false)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.stream", sink.DefaultStream)
	v.SetDefault("redis.max_len", 100000)
}

// Init points v at the config file and environment. An explicit file must
// exist; the default $HOME/.fwloom.yaml is optional.
func Init(v *viper.Viper, file string) error {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".fwloom")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("fwloom")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	if c.Schema != "" {
		c.Schema = filepath.Clean(c.Schema)
	}
	return c, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Output {
	case "text", "json":
	default:
		return fmt.Errorf("output: unknown format %q (want text or json)", c.Output)
	}
	if c.DeltaScale <= 0 {
		return fmt.Errorf("delta_scale: must be positive, got %v", c.DeltaScale)
	}
	if c.HeaderSize < 0 {
		return fmt.Errorf("header_size: must not be negative, got %d", c.HeaderSize)
	}
	if c.Source >= 0 && c.Schema == "" {
		return fmt.Errorf("source: %d given without a schema", c.Source)
	}
	return nil
}

// Levels splits the comma-separated level filter.
func (c Config) Levels() []string {
	if strings.TrimSpace(c.Level) == "" {
		return nil
	}
	parts := strings.Split(c.Level, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

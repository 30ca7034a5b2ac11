// Package config loads cardstack CLI settings from a config file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds CLI configuration.
type Config struct {
	Runtime RuntimeConfig
	Player  PlayerConfig
	Log     LogConfig
}

// RuntimeConfig holds stack tick settings.
type RuntimeConfig struct {
	TPS           int  `mapstructure:"tps"`
	PeriodicEvery int  `mapstructure:"periodic_every"`
	Editing       bool `mapstructure:"editing"`
	Debug         bool `mapstructure:"debug"`
	// SystemClipboard uses the OS clipboard instead of an in-memory one.
	SystemClipboard bool `mapstructure:"system_clipboard"`
}

// PlayerConfig holds window settings for the player.
type PlayerConfig struct {
	Title  string `mapstructure:"title"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
}

// LogConfig holds console logging settings.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	NoColor bool   `mapstructure:"no_color"`
}

// Load reads configuration from file and env. Env var overrides use prefix
// CARDSTACK_, e.g. CARDSTACK_RUNTIME_TPS. An explicit path must exist; the
// default location is optional.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("runtime.tps", 60)
	v.SetDefault("runtime.periodic_every", 2)
	v.SetDefault("runtime.editing", false)
	v.SetDefault("runtime.debug", false)
	v.SetDefault("runtime.system_clipboard", false)
	v.SetDefault("player.title", "cardstack")
	v.SetDefault("player.width", 500)
	v.SetDefault("player.height", 500)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.no_color", false)

	if path == "" {
		path = os.Getenv("CARDSTACK_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "cardstack"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("CARDSTACK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Runtime.TPS <= 0 {
		return Config{}, fmt.Errorf("config: runtime.tps must be positive, got %d", c.Runtime.TPS)
	}
	if c.Runtime.PeriodicEvery <= 0 {
		return Config{}, fmt.Errorf("config: runtime.periodic_every must be positive, got %d", c.Runtime.PeriodicEvery)
	}
	return c, nil
}

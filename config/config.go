// Package config carries the runtime knobs for the engine and its CLIs.
// Values come from defaults, an optional config file, and HINDSIGHT_*
// environment variables, in increasing priority.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	// Search budget per analyzed position.
	MaxDepth   int
	MoveTimeMs int

	// Position-cache size as 2^CachePowerOf2 entries.
	CachePowerOf2 int

	ArchiveBaseURL string

	LogLevel string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("max-depth", 4)
	v.SetDefault("move-time-ms", 2000)
	v.SetDefault("cache-power-of-2", 20)
	v.SetDefault("archive-base-url", "https://api.chess.com/pub")
	v.SetDefault("log-level", "info")
}

func fromViper(v *viper.Viper) Config {
	return Config{
		MaxDepth:       v.GetInt("max-depth"),
		MoveTimeMs:     v.GetInt("move-time-ms"),
		CachePowerOf2:  v.GetInt("cache-power-of-2"),
		ArchiveBaseURL: v.GetString("archive-base-url"),
		LogLevel:       v.GetString("log-level"),
	}
}

// DefaultConfig returns the built-in defaults, ignoring the environment.
func DefaultConfig() Config {
	v := viper.New()
	setDefaults(v)
	return fromViper(v)
}

// Load reads configuration from the environment and, when path is not
// empty, from a config file.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("hindsight")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}
	return fromViper(v), nil
}

// Package config loads the storefront configuration from YAML with
// environment-variable overrides for the backend credentials.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Supabase SupabaseConfig `yaml:"supabase"`
	Log      LogConfig      `yaml:"log"`
	Realtime RealtimeConfig `yaml:"realtime"`
}

// SupabaseConfig points the client at a project.
type SupabaseConfig struct {
	URL     string `yaml:"url"`
	AnonKey string `yaml:"anon_key"`
	// RequestsPerSecond paces outbound calls when > 0.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// RealtimeConfig controls the websocket live-refresh channel.
type RealtimeConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the default configuration. Credentials still have to
// come from the file or the environment.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the configuration from path. A missing file is fine; the
// defaults plus environment variables may be enough.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg)

	if cfg.Supabase.URL == "" {
		return nil, fmt.Errorf("supabase url is required (config or SUPABASE_URL)")
	}
	if cfg.Supabase.AnonKey == "" {
		return nil, fmt.Errorf("supabase anon key is required (config or SUPABASE_ANON_KEY)")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		cfg.Supabase.URL = v
	}
	if v := os.Getenv("SUPABASE_ANON_KEY"); v != "" {
		cfg.Supabase.AnonKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Client   ClientConfig   `yaml:"client"`
	Sync     SyncConfig     `yaml:"sync"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// ClientConfig configures the synchronizing client.
type ClientConfig struct {
	APIBaseURL string `yaml:"api_base_url"`
	CachePath  string `yaml:"cache_path"`
	Timeout    string `yaml:"timeout"`
}

// ParseTimeout returns the request timeout as time.Duration.
func (c ClientConfig) ParseTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// SyncConfig configures the background retry flusher.
type SyncConfig struct {
	FlushInterval string `yaml:"flush_interval"`
}

// ParseFlushInterval returns the flush interval as time.Duration.
func (s SyncConfig) ParseFlushInterval() time.Duration {
	d, err := time.ParseDuration(s.FlushInterval)
	if err != nil {
		return time.Minute
	}
	return d
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./tradingboard.db"},
		Server: ServerConfig{
			Port: 3001,
			CORSOrigins: []string{
				"http://localhost:3000",
				"http://localhost:5173",
				"http://localhost:8080",
			},
		},
		Client: ClientConfig{
			APIBaseURL: "http://localhost:3001/api",
			CachePath:  "./.tradingboard/watchlists.json",
			Timeout:    "10s",
		},
		Sync: SyncConfig{FlushInterval: "1m"},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADINGBOARD_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("TRADINGBOARD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TRADINGBOARD_API_URL"); v != "" {
		cfg.Client.APIBaseURL = v
	}
	if v := os.Getenv("TRADINGBOARD_CACHE_PATH"); v != "" {
		cfg.Client.CachePath = v
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
}

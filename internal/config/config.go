// Package config loads the repertoire server configuration from YAML, with
// environment overrides on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hailam/repertoire/internal/explorer"
)

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Storage   StorageConfig   `yaml:"storage"`
	Session   SessionConfig   `yaml:"session"`
	Eco       EcoConfig       `yaml:"eco"`
	Explorer  ExplorerConfig  `yaml:"explorer"`
	Recommend RecommendConfig `yaml:"recommend"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	// Mode is "dev" or "prod".
	Mode string `yaml:"mode"`
}

type StorageConfig struct {
	// Dir is the badger directory. Empty selects the platform data dir.
	Dir      string `yaml:"dir"`
	InMemory bool   `yaml:"in_memory"`
}

type SessionConfig struct {
	Backend   string        `yaml:"backend"`
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

type EcoConfig struct {
	// File is a TSV opening table. Empty disables classification.
	File string `yaml:"file"`
}

type ExplorerConfig struct {
	Enabled   bool          `yaml:"enabled"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	MinShare  float64       `yaml:"min_share"`
	CacheSize int           `yaml:"cache_size"`
}

type RecommendConfig struct {
	// DefaultInterval applies to users without saved preferences.
	DefaultInterval int `yaml:"default_interval"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Mode: "dev"},
		Session: SessionConfig{
			Backend: SessionBackendMemory,
			TTL:     2 * time.Hour,
		},
		Explorer: ExplorerConfig{
			BaseURL:   explorer.DefaultBaseURL,
			Timeout:   5 * time.Second,
			MinShare:  0.10,
			CacheSize: 4096,
		},
		Recommend: RecommendConfig{DefaultInterval: 1},
	}
}

// Load reads the file at path over the defaults. A missing file yields the
// defaults; environment variables are applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("REPERTOIRE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("REPERTOIRE_LOG_MODE"); v != "" {
		cfg.Log.Mode = v
	}
	if v := os.Getenv("REPERTOIRE_DATA_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("REPERTOIRE_SESSION_BACKEND"); v != "" {
		cfg.Session.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Session.RedisAddr = v
	}
	if v := os.Getenv("REPERTOIRE_EXPLORER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Explorer.Enabled = b
		}
	}
}

func (c Config) Validate() error {
	switch c.Session.Backend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if c.Session.RedisAddr == "" {
			return errors.New("session.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown session.backend %q", c.Session.Backend)
	}
	if c.Session.TTL < 0 {
		return errors.New("session.ttl must not be negative")
	}
	if c.Explorer.MinShare < 0 || c.Explorer.MinShare > 1 {
		return fmt.Errorf("explorer.min_share %v out of range [0,1]", c.Explorer.MinShare)
	}
	if c.Recommend.DefaultInterval < 0 || c.Recommend.DefaultInterval > 3 {
		return fmt.Errorf("recommend.default_interval %d out of range [0,3]", c.Recommend.DefaultInterval)
	}
	return nil
}

// WriteDefault writes the default configuration to path, creating parent
// directories.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

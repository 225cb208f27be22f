// Package config loads the exchange bot configuration: the shared core
// settings plus the exchange API and session storage.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"

	coreconfig "github.com/m3rciful/exchangebot/core/config"
	coredatabase "github.com/m3rciful/exchangebot/core/database"
)

// Session storage backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

const (
	defaultAPITimeout     = 10 * time.Second
	defaultIdleTimeout    = 30 * time.Minute
	defaultSweepInterval  = time.Minute
	defaultMigrationsPath = "migrations"
)

// APIConfig points at the exchange backend.
type APIConfig struct {
	URL     string        `yaml:"url" envconfig:"API_URL"`
	Timeout time.Duration `yaml:"timeout" envconfig:"API_TIMEOUT"`
}

// SessionConfig selects where conversation state lives.
type SessionConfig struct {
	Backend        string                   `yaml:"backend" envconfig:"SESSION_BACKEND"`
	IdleTimeout    time.Duration            `yaml:"idle_timeout" envconfig:"SESSION_IDLE_TIMEOUT"`
	SweepInterval  time.Duration            `yaml:"sweep_interval" envconfig:"SESSION_SWEEP_INTERVAL"`
	Redis          coredatabase.RedisConfig `yaml:"redis"`
	Postgres       coredatabase.Config      `yaml:"postgres"`
	MigrationsPath string                   `yaml:"migrations_path" envconfig:"MIGRATIONS_PATH"`
}

// Config is the full application configuration.
type Config struct {
	Core    coreconfig.Config `yaml:",inline"`
	API     APIConfig         `yaml:"api"`
	Session SessionConfig     `yaml:"session"`
}

// CoreConfig returns the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
}

// Load reads .env (when present), the optional YAML file at path and the
// environment, then validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := coreconfig.Decode(path, true, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required values and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Core); err != nil {
		return err
	}

	c.API.URL = strings.TrimRight(strings.TrimSpace(c.API.URL), "/")
	if c.API.URL == "" {
		return fmt.Errorf("api url is required (API_URL)")
	}
	u, err := url.Parse(c.API.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api url must be an absolute http(s) URL, got %q", c.API.URL)
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = defaultAPITimeout
	}

	s := &c.Session
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if s.Backend == "" {
		s.Backend = BackendMemory
	}
	switch s.Backend {
	case BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(s.Redis.Addr) == "" {
			return fmt.Errorf("session.redis.addr is required when session.backend is 'redis'")
		}
	case BackendPostgres:
		if s.Postgres.Name == "" || s.Postgres.User == "" {
			return fmt.Errorf("session.postgres.name and user are required when session.backend is 'postgres'")
		}
		s.Postgres.Normalize()
		if s.MigrationsPath == "" {
			s.MigrationsPath = defaultMigrationsPath
		}
	default:
		return fmt.Errorf("invalid session.backend %q; allowed: memory, redis, postgres", s.Backend)
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = defaultIdleTimeout
	}
	if s.SweepInterval <= 0 {
		s.SweepInterval = defaultSweepInterval
	}
	return nil
}

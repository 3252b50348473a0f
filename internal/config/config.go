package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Backends names the task stores CreateTasker can build.
var Backends = []string{"memory", "postgres", "mysql", "sqlite", "redis"}

// Config holds all configuration options for the task board
type Config struct {
	Server ServerConfig
	Store  StoreConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr           string        `env:"TASKS_ADDR"`
	RequestTimeout time.Duration `env:"TASKS_REQUEST_TIMEOUT"`
}

// StoreConfig holds task store configuration
type StoreConfig struct {
	Backend      string `env:"TASKS_STORE"`
	DSN          string `env:"TASKS_DSN"`
	RedisAddr    string `env:"TASKS_REDIS_ADDR"`
	RedisPrefix  string `env:"TASKS_REDIS_PREFIX"`
	StrictRename bool   `env:"TASKS_STRICT_RENAME"`
	Seed         bool   `env:"TASKS_SEED"`
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           "localhost:8080",
			RequestTimeout: time.Second,
		},
		Store: StoreConfig{
			Backend:     "memory",
			DSN:         "taskboard.db",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "taskboard",
			Seed:        true,
		},
	}
}

// LoadFromEnvironment overrides fields from environment variables. Values that
// do not parse are reported, not ignored.
func (c *Config) LoadFromEnvironment() error {
	if addr := os.Getenv("TASKS_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if timeout := os.Getenv("TASKS_REQUEST_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return &ConfigError{Field: "server.request_timeout", Message: fmt.Sprintf("bad duration %q", timeout)}
		}
		c.Server.RequestTimeout = d
	}

	if backend := os.Getenv("TASKS_STORE"); backend != "" {
		c.Store.Backend = backend
	}
	if dsn := os.Getenv("TASKS_DSN"); dsn != "" {
		c.Store.DSN = dsn
	}
	if addr := os.Getenv("TASKS_REDIS_ADDR"); addr != "" {
		c.Store.RedisAddr = addr
	}
	if prefix := os.Getenv("TASKS_REDIS_PREFIX"); prefix != "" {
		c.Store.RedisPrefix = prefix
	}
	if strict := os.Getenv("TASKS_STRICT_RENAME"); strict != "" {
		b, err := strconv.ParseBool(strict)
		if err != nil {
			return &ConfigError{Field: "store.strict_rename", Message: fmt.Sprintf("bad bool %q", strict)}
		}
		c.Store.StrictRename = b
	}
	if seed := os.Getenv("TASKS_SEED"); seed != "" {
		b, err := strconv.ParseBool(seed)
		if err != nil {
			return &ConfigError{Field: "store.seed", Message: fmt.Sprintf("bad bool %q", seed)}
		}
		c.Store.Seed = b
	}

	return nil
}

// Validate validates the configuration and returns any errors
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return &ConfigError{Field: "server.addr", Message: "listen address cannot be empty"}
	}
	if c.Server.RequestTimeout <= 0 {
		return &ConfigError{Field: "server.request_timeout", Message: "request timeout must be positive"}
	}

	known := false
	for _, b := range Backends {
		if c.Store.Backend == b {
			known = true
			break
		}
	}
	if !known {
		return &ConfigError{Field: "store.backend", Message: fmt.Sprintf("unknown store %q", c.Store.Backend)}
	}

	switch c.Store.Backend {
	case "postgres", "mysql", "sqlite":
		if c.Store.DSN == "" {
			return &ConfigError{Field: "store.dsn", Message: "dsn cannot be empty for " + c.Store.Backend}
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			return &ConfigError{Field: "store.redis_addr", Message: "redis address cannot be empty"}
		}
		if c.Store.RedisPrefix == "" {
			return &ConfigError{Field: "store.redis_prefix", Message: "redis key prefix cannot be empty"}
		}
	}

	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

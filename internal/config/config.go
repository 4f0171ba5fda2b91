// Package config loads the aql command configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the aql configuration file.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	LLM     LLMConfig     `yaml:"llm"`
	Cache   CacheConfig   `yaml:"cache"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig holds execution defaults.
type EngineConfig struct {
	Timeout  string `yaml:"timeout"` // e.g., "30s"
	Retries  int    `yaml:"retries"`
	Parallel bool   `yaml:"parallel"`
	Caching  bool   `yaml:"caching"`
	Debug    bool   `yaml:"debug"`

	// Templating fills {{name}} placeholders in agent prompts.
	Templating bool `yaml:"templating"`
}

// LLMConfig selects the agent caller.
type LLMConfig struct {
	Provider          string `yaml:"provider"` // placeholder, anthropic
	Model             string `yaml:"model"`
	BaseURL           string `yaml:"base_url"`
	APIKey            string `yaml:"api_key"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

// CacheConfig selects the result cache.
type CacheConfig struct {
	Driver   string `yaml:"driver"` // memory, redis
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTL      string `yaml:"ttl"` // e.g., "1h"
}

// StoreConfig controls run history.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json
}

// Providers and drivers.
const (
	ProviderPlaceholder = "placeholder"
	ProviderAnthropic   = "anthropic"
	DriverMemory        = "memory"
	DriverRedis         = "redis"
)

// Home returns the aql home directory.
// It defaults to ~/.aql but can be overridden with the AQL_HOME environment variable.
func Home() string {
	if v := os.Getenv("AQL_HOME"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".aql")
}

// DefaultDBPath returns the default SQLite database path (~/.aql/aql.db).
func DefaultDBPath() string {
	return filepath.Join(Home(), "aql.db")
}

// DefaultPath returns the default configuration file path (~/.aql/config.yaml).
func DefaultPath() string {
	return filepath.Join(Home(), "config.yaml")
}

// EnsureHome creates the aql home directory if it doesn't exist.
func EnsureHome() error {
	return os.MkdirAll(Home(), 0o755)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Timeout: "30s",
			Retries: 3,
		},
		LLM: LLMConfig{
			Provider: ProviderPlaceholder,
		},
		Cache: CacheConfig{
			Driver: DriverMemory,
			TTL:    "1h",
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    DefaultDBPath(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration at path on top of the defaults and applies
// environment overrides. An empty path loads the default file if present.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("AQL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("AQL_REDIS_ADDR"); v != "" {
		c.Cache.Driver = DriverRedis
		c.Cache.Addr = v
	}
	if v := os.Getenv("AQL_PARALLEL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Engine.Parallel = b
		}
	}
}

// Validate checks enumerations and durations.
func (c *Config) Validate() error {
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	if c.Engine.Retries < 0 {
		return fmt.Errorf("engine.retries must not be negative")
	}
	switch c.LLM.Provider {
	case "", ProviderPlaceholder, ProviderAnthropic:
	default:
		return fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider)
	}
	switch c.Cache.Driver {
	case "", DriverMemory:
	case DriverRedis:
		if c.Cache.Addr == "" {
			return errors.New("cache.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("cache.driver: unknown driver %q", c.Cache.Driver)
	}
	return nil
}

// Timeout returns the parsed engine timeout. An empty value means none.
func (c *Config) Timeout() (time.Duration, error) {
	return parseDuration("engine.timeout", c.Engine.Timeout)
}

// CacheTTL returns the parsed cache TTL. An empty value means no expiry.
func (c *Config) CacheTTL() (time.Duration, error) {
	return parseDuration("cache.ttl", c.Cache.TTL)
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", field)
	}
	return d, nil
}

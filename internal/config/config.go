// Package config loads and validates semcall.yml configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "semcall.yml"

// Config represents the top-level semcall.yml configuration
type Config struct {
	Version string         `yaml:"version"`
	Models  *ModelsConfig  `yaml:"models,omitempty"`
	Cache   *CacheConfig   `yaml:"cache,omitempty"`
	Compile *CompileConfig `yaml:"compile,omitempty"`
	Logging *LoggingConfig `yaml:"logging,omitempty"`
}

// ModelsConfig names the compile-time and runtime models and the endpoint
// they are served from. The API key is always taken from the environment,
// never from the file.
type ModelsConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"` // env var holding the API key (default: SEMCALL_API_KEY)
	Compiler  string `yaml:"compiler"`              // model used to compile call sites
	Runtime   string `yaml:"runtime"`               // model used to answer rendered prompts
}

// CacheConfig selects and parameterizes the artifact store backing the cache
type CacheConfig struct {
	Backend   string `yaml:"backend,omitempty"` // "disk" (default), "redis", or "memory"
	Dir       string `yaml:"dir,omitempty"`     // disk backend: artifact directory (default: .semcall/cache)
	RedisURL  string `yaml:"redis_url,omitempty"`
	Namespace string `yaml:"namespace,omitempty"` // redis backend: key namespace (default: "default")
}

// CompileConfig bounds the compile path
type CompileConfig struct {
	Timeout   Duration `yaml:"timeout,omitempty"`    // per-compilation deadline, e.g. "2m" (default: 2m)
	ExtraDirs []string `yaml:"extra_dirs,omitempty"` // additional directories searched for type definitions
}

// Duration wraps time.Duration so values like "90s" parse from YAML
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error (default: info)
}

// ApplyDefaults fills in every omitted section and field default. Validate
// calls it, and engine construction applies it directly so a hand-built
// Config (for example one without a models section, used with injected
// collaborators) never leaves nil sections behind.
func (c *Config) ApplyDefaults() {
	if c.Models != nil && c.Models.APIKeyEnv == "" {
		c.Models.APIKeyEnv = "SEMCALL_API_KEY"
	}

	if c.Cache == nil {
		c.Cache = &CacheConfig{}
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "disk"
	}
	if c.Cache.Backend == "disk" && c.Cache.Dir == "" {
		c.Cache.Dir = filepath.Join(".semcall", "cache")
	}
	if c.Cache.Backend == "redis" {
		if c.Cache.RedisURL == "" {
			c.Cache.RedisURL = "redis://localhost:6379"
		}
		if c.Cache.Namespace == "" {
			c.Cache.Namespace = "default"
		}
	}

	if c.Compile == nil {
		c.Compile = &CompileConfig{}
	}
	if c.Compile.Timeout == 0 {
		c.Compile.Timeout = Duration(2 * time.Minute)
	}

	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate applies defaults and performs strict validation
func (c *Config) Validate() error {
	c.ApplyDefaults()

	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Models == nil {
		return fmt.Errorf("models section is required")
	}
	if c.Models.BaseURL == "" {
		return fmt.Errorf("models.base_url is required")
	}
	if c.Models.Compiler == "" {
		return fmt.Errorf("models.compiler is required")
	}
	if c.Models.Runtime == "" {
		return fmt.Errorf("models.runtime is required")
	}

	switch c.Cache.Backend {
	case "disk", "redis", "memory":
	default:
		return fmt.Errorf("invalid cache backend: %s (must be 'disk', 'redis', or 'memory')", c.Cache.Backend)
	}

	if c.Compile.Timeout < 0 {
		return fmt.Errorf("compile.timeout must be positive, got %s", c.Compile.Timeout.Std())
	}
	for _, dir := range c.Compile.ExtraDirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("compile.extra_dirs entry does not exist: %s", dir)
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s (must be 'debug', 'info', 'warn', or 'error')", c.Logging.Level)
	}

	return nil
}

// APIKey resolves the configured API key from the environment
func (c *Config) APIKey() string {
	return os.Getenv(c.Models.APIKeyEnv)
}

// Load reads and validates semcall.yml from the specified path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "semcall.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `version: "1.0"
models:
  base_url: https://openrouter.ai/api/v1
  compiler: compiler-model
  runtime: runtime-model
`

func TestLoad(t *testing.T) {
	t.Run("minimal config gets defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, minimalConfig))
		require.NoError(t, err)

		assert.Equal(t, "SEMCALL_API_KEY", cfg.Models.APIKeyEnv)
		assert.Equal(t, "disk", cfg.Cache.Backend)
		assert.Equal(t, filepath.Join(".semcall", "cache"), cfg.Cache.Dir)
		assert.Equal(t, 2*time.Minute, cfg.Compile.Timeout.Std())
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("full config", func(t *testing.T) {
		extra := t.TempDir()
		cfg, err := Load(writeConfig(t, `version: "1.0"
models:
  base_url: http://localhost:8080/v1
  api_key_env: MY_KEY
  compiler: big-model
  runtime: small-model
cache:
  backend: redis
  redis_url: redis://cache:6379
  namespace: staging
compile:
  timeout: 90s
  extra_dirs:
    - `+extra+`
logging:
  level: debug
`))
		require.NoError(t, err)

		assert.Equal(t, "MY_KEY", cfg.Models.APIKeyEnv)
		assert.Equal(t, "redis", cfg.Cache.Backend)
		assert.Equal(t, "redis://cache:6379", cfg.Cache.RedisURL)
		assert.Equal(t, "staging", cfg.Cache.Namespace)
		assert.Equal(t, 90*time.Second, cfg.Compile.Timeout.Std())
		assert.Equal(t, []string{extra}, cfg.Compile.ExtraDirs)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("redis backend defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, minimalConfig+`cache:
  backend: redis
`))
		require.NoError(t, err)
		assert.Equal(t, "redis://localhost:6379", cfg.Cache.RedisURL)
		assert.Equal(t, "default", cfg.Cache.Namespace)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config")
	})

	t.Run("malformed YAML", func(t *testing.T) {
		_, err := Load(writeConfig(t, "version: [unclosed"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse YAML")
	})

	t.Run("invalid duration", func(t *testing.T) {
		_, err := Load(writeConfig(t, minimalConfig+`compile:
  timeout: soon
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid duration "soon"`)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Version: "1.0",
			Models: &ModelsConfig{
				BaseURL:  "https://api.example.com/v1",
				Compiler: "c",
				Runtime:  "r",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"wrong version", func(c *Config) { c.Version = "2.0" }, "unsupported version"},
		{"missing models", func(c *Config) { c.Models = nil }, "models section is required"},
		{"missing base_url", func(c *Config) { c.Models.BaseURL = "" }, "models.base_url is required"},
		{"missing compiler", func(c *Config) { c.Models.Compiler = "" }, "models.compiler is required"},
		{"missing runtime", func(c *Config) { c.Models.Runtime = "" }, "models.runtime is required"},
		{"bad backend", func(c *Config) { c.Cache = &CacheConfig{Backend: "etcd"} }, "invalid cache backend"},
		{"negative timeout", func(c *Config) { c.Compile = &CompileConfig{Timeout: Duration(-time.Second)} }, "must be positive"},
		{"absent extra dir", func(c *Config) {
			c.Compile = &CompileConfig{ExtraDirs: []string{"/no/such/dir"}}
		}, "does not exist"},
		{"bad log level", func(c *Config) { c.Logging = &LoggingConfig{Level: "verbose"} }, "invalid logging level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	t.Run("fills nil sections without requiring models", func(t *testing.T) {
		cfg := &Config{}
		cfg.ApplyDefaults()

		assert.Nil(t, cfg.Models)
		require.NotNil(t, cfg.Cache)
		assert.Equal(t, "disk", cfg.Cache.Backend)
		assert.Equal(t, filepath.Join(".semcall", "cache"), cfg.Cache.Dir)
		require.NotNil(t, cfg.Compile)
		assert.Equal(t, 2*time.Minute, cfg.Compile.Timeout.Std())
		require.NotNil(t, cfg.Logging)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		cfg := &Config{
			Cache:   &CacheConfig{Backend: "memory"},
			Compile: &CompileConfig{Timeout: Duration(time.Second)},
			Logging: &LoggingConfig{Level: "debug"},
		}
		cfg.ApplyDefaults()

		assert.Equal(t, "memory", cfg.Cache.Backend)
		assert.Equal(t, time.Second, cfg.Compile.Timeout.Std())
		assert.Equal(t, "debug", cfg.Logging.Level)
	})
}

func TestAPIKey(t *testing.T) {
	cfg := &Config{Models: &ModelsConfig{APIKeyEnv: "SEMCALL_TEST_KEY"}}

	t.Setenv("SEMCALL_TEST_KEY", "sk-secret")
	assert.Equal(t, "sk-secret", cfg.APIKey())
}

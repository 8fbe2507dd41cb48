package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/bindgraph/pkg/cache"
	bgerrors "github.com/matzehuels/bindgraph/pkg/errors"
)

func TestLoadDefaultsMatchDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindgraph.yaml")
	data := `
log:
  level: warn
  format: json
metadata:
  backend: redis
  redisAddr: cache:6379
  ttl: 1h
resolve:
  parallel: true
  workers: 4
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	t.Setenv("BINDGRAPH_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level, "environment overrides file")
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, cache.BackendRedis, cfg.Metadata.Backend)
	assert.Equal(t, time.Hour, cfg.Metadata.TTL)
	assert.Equal(t, "bindgraph", cfg.Metadata.MongoDatabase, "unset fields keep defaults")
	assert.True(t, cfg.Resolve.Parallel)
	assert.Equal(t, 4, cfg.Resolve.Workers)

	opts := cfg.CacheOptions()
	assert.Equal(t, "cache:6379", opts.Redis.Addr)
	assert.Equal(t, cache.BackendRedis, opts.Backend)

	so := cfg.SessionOptions()
	assert.True(t, so.Parallel)
	assert.Equal(t, 4, so.Workers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, bgerrors.Is(err, bgerrors.ErrCodeInvalidConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, false},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, false},
		{"bad backend", func(c *Config) { c.Metadata.Backend = "s3" }, false},
		{"file output without path", func(c *Config) { c.Log.Output = "file"; c.Log.FilePath = "" }, false},
		{"negative workers", func(c *Config) { c.Resolve.Workers = -1 }, false},
		{"tracing without endpoint", func(c *Config) { c.Tracing.Enabled = true }, false},
		{"tracing bad sampling", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Endpoint = "localhost:4318"
			c.Tracing.SamplingRate = 1.5
		}, false},
		{"tracing ok", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Endpoint = "localhost:4318"
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, bgerrors.ErrCodeInvalidConfig, bgerrors.GetCode(err))
		})
	}
}

func TestObservabilityBridges(t *testing.T) {
	cfg := Default()
	cfg.Tracing.Endpoint = "http://collector:4318"
	tc := cfg.ObservabilityTracing("v1.2.3")
	assert.Equal(t, "v1.2.3", tc.Version)
	assert.Equal(t, "http://collector:4318", tc.Endpoint)
	assert.Equal(t, 5*time.Second, tc.Timeout)

	mc := cfg.ObservabilityMetrics()
	assert.Equal(t, "bindgraph", mc.Namespace)
	assert.Equal(t, 10*time.Second, mc.Timeout)
}

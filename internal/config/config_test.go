package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syriahub-gateway/middleware/ratelimit/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
upstream:
  url: http://app:3000
ratelimit:
  policies:
    write:
      max_requests: 40
    auth:
      window: 30m
routes:
  - method: POST
    prefix: /api/polls/
    category: write
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, SweepProbabilistic, cfg.RateLimit.Sweep.Mode)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	require.Len(t, cfg.Routes, 1)
	assert.Equal(t, "write", cfg.Routes[0].Category)

	policies, err := cfg.Policies()
	require.NoError(t, err)
	assert.Equal(t, 40, policies[domain.CategoryWrite].MaxRequests)
	assert.Equal(t, time.Minute, policies[domain.CategoryWrite].Window)
	assert.Equal(t, 30*time.Minute, policies[domain.CategoryAuth].Window)
	assert.Equal(t, 10, policies[domain.CategoryAuth].MaxRequests)
	assert.Equal(t, 100, policies[domain.CategoryRead].MaxRequests)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "upstream:\n  url: http://app:3000\n")
	t.Setenv("SYRIAHUB_STORAGE_TYPE", "redis")
	t.Setenv("SYRIAHUB_SERVER_PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Storage.Type)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_RejectsUnknownPolicyCategory(t *testing.T) {
	path := writeConfig(t, `
upstream:
  url: http://app:3000
ratelimit:
  policies:
    comments:
      max_requests: 5
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, domain.IsUnknownCategory(err))
}

func TestLoad_RejectsUnknownRouteCategory(t *testing.T) {
	path := writeConfig(t, `
upstream:
  url: http://app:3000
routes:
  - prefix: /api/x
    category: bogus
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, domain.IsUnknownCategory(err))
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Upstream:  UpstreamConfig{URL: "http://app:3000"},
			Storage:   StorageConfig{Type: "memory"},
			RateLimit: RateLimitConfig{Sweep: SweepConfig{Mode: SweepProbabilistic, Probability: 0.01}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing upstream", mutate: func(c *Config) { c.Upstream.URL = "" }, wantErr: true},
		{name: "relative upstream", mutate: func(c *Config) { c.Upstream.URL = "app:3000/x" }, wantErr: true},
		{name: "bad storage", mutate: func(c *Config) { c.Storage.Type = "memcached" }, wantErr: true},
		{name: "bad probability", mutate: func(c *Config) { c.RateLimit.Sweep.Probability = 2 }, wantErr: true},
		{name: "interval without duration", mutate: func(c *Config) { c.RateLimit.Sweep = SweepConfig{Mode: SweepInterval} }, wantErr: true},
		{name: "negative policy", mutate: func(c *Config) {
			c.RateLimit.Policies = map[string]PolicyConfig{"read": {MaxRequests: -1}}
		}, wantErr: true},
		{name: "burst without rps", mutate: func(c *Config) { c.Burst = BurstConfig{Enabled: true, Burst: 1} }, wantErr: true},
		{name: "route prefix", mutate: func(c *Config) {
			c.Routes = []RouteConfig{{Prefix: "api", Category: "read"}}
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

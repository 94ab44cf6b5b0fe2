package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zeebo/assert"

	"github.com/lbp0200/sentinelcheck/internal/sentinel"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.NoError(t, c.Validate())

	endpoints, err := c.Endpoints()
	assert.NoError(t, err)
	assert.Equal(t, 3, len(endpoints))
	assert.Equal(t, sentinel.Endpoint{Host: "sentinel-1", Port: 26379}, endpoints[0])
	assert.Equal(t, "mymaster", c.MasterName)
	assert.Equal(t, 3, c.MaxAttempts)
	assert.Equal(t, 5*time.Second, c.RetryDelay.Duration)
	assert.Equal(t, time.Second, c.DiscoveryTimeout.Duration)
	assert.Equal(t, 500*time.Millisecond, c.ProbeTimeout.Duration)
	assert.Equal(t, sentinel.DefaultProbeKey, c.ProbeKey)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinelcheck.toml")
	content := `
sentinels = ["10.0.0.1:26379", "10.0.0.2:26379", "10.0.0.3:26379"]
master_name = "cache"
sentinel_password = "sentinel_password"
password = "bitnami"
max_attempts = 5
retry_delay = "2s"
probe_timeout = "250ms"
`
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c := Default()
	assert.NoError(t, c.LoadFile(path))
	assert.Equal(t, "cache", c.MasterName)
	assert.Equal(t, 5, c.MaxAttempts)
	assert.Equal(t, 2*time.Second, c.RetryDelay.Duration)
	assert.Equal(t, 250*time.Millisecond, c.ProbeTimeout.Duration)
	// 未出现在文件中的字段保持默认
	assert.Equal(t, time.Second, c.DiscoveryTimeout.Duration)
	assert.Equal(t, sentinel.DefaultProbeKey, c.ProbeKey)

	// 两套凭据互不影响
	assert.Equal(t, sentinel.Credentials{Password: "sentinel_password"}, c.SentinelCredentials())
	assert.Equal(t, sentinel.Credentials{Password: "bitnami"}, c.DataCredentials())
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	assert.NoError(t, os.WriteFile(path, []byte("master = \"cache\"\n"), 0o600))

	err := Default().LoadFile(path)
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown keys master"))
}

func TestLoadFileMissing(t *testing.T) {
	assert.Error(t, Default().LoadFile(filepath.Join(t.TempDir(), "missing.toml")))
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvSentinels:        "a:1, b:2",
		EnvMasterName:       "cache",
		EnvSentinelPassword: "s3cret",
		EnvPassword:         "",
	}
	c := Default()
	c.Password = "from-file"
	c.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, []string{"a:1", "b:2"}, c.Sentinels)
	assert.Equal(t, "cache", c.MasterName)
	assert.Equal(t, "s3cret", c.SentinelPassword)
	// 显式设置为空表示清除密码
	assert.Equal(t, "", c.Password)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"no sentinels", func(c *Config) { c.Sentinels = nil }, "at least one sentinel"},
		{"bad sentinel", func(c *Config) { c.Sentinels = []string{"sentinel-1"} }, "invalid endpoint"},
		{"no master", func(c *Config) { c.MasterName = " " }, "master name"},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, "max attempts"},
		{"negative delay", func(c *Config) { c.RetryDelay.Duration = -time.Second }, "retry delay"},
		{"zero discovery timeout", func(c *Config) { c.DiscoveryTimeout.Duration = 0 }, "discovery timeout"},
		{"zero probe timeout", func(c *Config) { c.ProbeTimeout.Duration = 0 }, "probe timeout"},
		{"no probe key", func(c *Config) { c.ProbeKey = "" }, "probe key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			assert.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want))
		})
	}
}

func TestWorstCase(t *testing.T) {
	c := Default()
	// 3 × (6 × 1s + 0.5s) + 2 × 5s
	assert.Equal(t, 29500*time.Millisecond, c.WorstCase())
}

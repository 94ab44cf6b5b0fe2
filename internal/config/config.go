package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lbp0200/sentinelcheck/internal/sentinel"
)

// 环境变量，密码优先从这里读取以免出现在命令行参数里
const (
	EnvSentinels        = "SENTINELCHECK_SENTINELS"
	EnvMasterName       = "SENTINELCHECK_MASTER"
	EnvSentinelPassword = "SENTINELCHECK_SENTINEL_PASSWORD"
	EnvPassword         = "SENTINELCHECK_PASSWORD"
)

// Duration 支持 "5s" 形式的 toml 字段
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config 检查一次哨兵集群所需的全部输入
type Config struct {
	Sentinels  []string `toml:"sentinels"`
	MasterName string   `toml:"master_name"`

	// 控制面和数据面使用各自独立的凭据
	SentinelUsername string `toml:"sentinel_username"`
	SentinelPassword string `toml:"sentinel_password"`
	Username         string `toml:"username"`
	Password         string `toml:"password"`

	MaxAttempts      int      `toml:"max_attempts"`
	RetryDelay       Duration `toml:"retry_delay"`
	DiscoveryTimeout Duration `toml:"discovery_timeout"`
	ProbeTimeout     Duration `toml:"probe_timeout"`
	ProbeKey         string   `toml:"probe_key"`

	// 诊断信息输出文件，.lz4 / .zst 后缀会压缩
	DiagnosticsOut string `toml:"diagnostics_out"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Sentinels:        []string{"sentinel-1:26379", "sentinel-2:26379", "sentinel-3:26379"},
		MasterName:       "mymaster",
		MaxAttempts:      3,
		RetryDelay:       Duration{5 * time.Second},
		DiscoveryTimeout: Duration{time.Second},
		ProbeTimeout:     Duration{500 * time.Millisecond},
		ProbeKey:         sentinel.DefaultProbeKey,
	}
}

// LoadFile 用 toml 文件覆盖已有配置，文件中未出现的字段保持不变
func (c *Config) LoadFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv 用环境变量覆盖配置
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvSentinels); ok && v != "" {
		c.Sentinels = splitList(v)
	}
	if v, ok := lookup(EnvMasterName); ok && v != "" {
		c.MasterName = v
	}
	if v, ok := lookup(EnvSentinelPassword); ok {
		c.SentinelPassword = v
	}
	if v, ok := lookup(EnvPassword); ok {
		c.Password = v
	}
}

// Endpoints 解析哨兵地址
func (c *Config) Endpoints() ([]sentinel.Endpoint, error) {
	return sentinel.ParseEndpoints(strings.Join(c.Sentinels, ","))
}

// SentinelCredentials 控制面凭据
func (c *Config) SentinelCredentials() sentinel.Credentials {
	return sentinel.Credentials{Username: c.SentinelUsername, Password: c.SentinelPassword}
}

// DataCredentials 数据面凭据
func (c *Config) DataCredentials() sentinel.Credentials {
	return sentinel.Credentials{Username: c.Username, Password: c.Password}
}

// Validate 校验配置
func (c *Config) Validate() error {
	var errs []error
	endpoints, err := c.Endpoints()
	if err != nil {
		errs = append(errs, err)
	} else if len(endpoints) == 0 {
		errs = append(errs, errors.New("at least one sentinel is required"))
	}
	if strings.TrimSpace(c.MasterName) == "" {
		errs = append(errs, errors.New("master name is required"))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts))
	}
	if c.RetryDelay.Duration < 0 {
		errs = append(errs, fmt.Errorf("retry delay must not be negative, got %s", c.RetryDelay))
	}
	if c.DiscoveryTimeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("discovery timeout must be positive, got %s", c.DiscoveryTimeout))
	}
	if c.ProbeTimeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("probe timeout must be positive, got %s", c.ProbeTimeout))
	}
	if c.ProbeKey == "" {
		errs = append(errs, errors.New("probe key is required"))
	}
	return errors.Join(errs...)
}

// WorstCase 所有调用都超时时整个检查的耗时上限
func (c *Config) WorstCase() time.Duration {
	n := len(c.Sentinels)
	// 每次尝试：发现每个哨兵一次，探测一次，枚举每个哨兵一次
	perAttempt := time.Duration(2*n)*c.DiscoveryTimeout.Duration + c.ProbeTimeout.Duration
	return time.Duration(c.MaxAttempts)*perAttempt + time.Duration(c.MaxAttempts-1)*c.RetryDelay.Duration
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

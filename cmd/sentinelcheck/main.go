package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lbp0200/sentinelcheck/internal/check"
	"github.com/lbp0200/sentinelcheck/internal/config"
	"github.com/lbp0200/sentinelcheck/internal/logger"
	"github.com/lbp0200/sentinelcheck/internal/report"
)

// 退出码
const (
	exitOK        = 0
	exitExhausted = 1
	exitConfig    = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.LookupEnv))
}

func run(args []string, lookupEnv func(string) (string, bool)) int {
	d := config.Default()
	fs := flag.NewFlagSet("sentinelcheck", flag.ContinueOnError)
	configPath := fs.String("config", "", "toml config file")
	sentinels := fs.String("sentinels", strings.Join(d.Sentinels, ","), "comma separated sentinel host:port list")
	master := fs.String("master", d.MasterName, "monitored master name")
	sentinelUsername := fs.String("sentinel-username", "", "ACL username for sentinels")
	sentinelPassword := fs.String("sentinel-password", "", "password for sentinels (prefer "+config.EnvSentinelPassword+")")
	username := fs.String("username", "", "ACL username for the master")
	password := fs.String("password", "", "password for the master (prefer "+config.EnvPassword+")")
	maxAttempts := fs.Int("max-attempts", d.MaxAttempts, "number of attempts before giving up")
	retryDelay := fs.Duration("retry-delay", d.RetryDelay.Duration, "wait between attempts")
	discoveryTimeout := fs.Duration("discovery-timeout", d.DiscoveryTimeout.Duration, "timeout of each sentinel call")
	probeTimeout := fs.Duration("probe-timeout", d.ProbeTimeout.Duration, "timeout of each master call")
	probeKey := fs.String("probe-key", d.ProbeKey, "key written by the read/write probe")
	diagnosticsOut := fs.String("diagnostics-out", "", "write sentinel diagnostics to file (.lz4 / .zst compress)")
	logLevel := fs.String("log-level", "", "log level: DEBUG, INFO, WARNING, ERROR")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitConfig
	}

	// 设置日志级别
	if *logLevel != "" {
		logger.SetLevelFromString(*logLevel)
	}

	// 默认值 < 配置文件 < 环境变量 < 命令行
	cfg := config.Default()
	if *configPath != "" {
		if err := cfg.LoadFile(*configPath); err != nil {
			logger.Logger.Error().Err(err).Msg("invalid configuration")
			return exitConfig
		}
	}
	cfg.ApplyEnv(lookupEnv)
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sentinels":
			cfg.Sentinels = strings.Split(*sentinels, ",")
		case "master":
			cfg.MasterName = *master
		case "sentinel-username":
			cfg.SentinelUsername = *sentinelUsername
		case "sentinel-password":
			cfg.SentinelPassword = *sentinelPassword
		case "username":
			cfg.Username = *username
		case "password":
			cfg.Password = *password
		case "max-attempts":
			cfg.MaxAttempts = *maxAttempts
		case "retry-delay":
			cfg.RetryDelay.Duration = *retryDelay
		case "discovery-timeout":
			cfg.DiscoveryTimeout.Duration = *discoveryTimeout
		case "probe-timeout":
			cfg.ProbeTimeout.Duration = *probeTimeout
		case "probe-key":
			cfg.ProbeKey = *probeKey
		case "diagnostics-out":
			cfg.DiagnosticsOut = *diagnosticsOut
		}
	})

	comp, policy, err := check.Build(cfg)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("invalid configuration")
		return exitConfig
	}
	logger.Logger.Debug().
		Strs("sentinels", cfg.Sentinels).
		Str("master_name", cfg.MasterName).
		Dur("worst_case", cfg.WorstCase()).
		Msg("configuration loaded")

	// 信号只打断两次尝试之间的等待
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := check.New(comp, policy, check.NewLogObserver(logger.Logger)).Run(ctx)
	if !res.Succeeded {
		return exitExhausted
	}

	if cfg.DiagnosticsOut != "" {
		if err := report.Write(cfg.DiagnosticsOut, res.Diagnostics); err != nil {
			logger.Warning("写入诊断文件失败: %v", err)
		} else {
			logger.Info("诊断信息已写入 %s", cfg.DiagnosticsOut)
		}
	}
	return exitOK
}

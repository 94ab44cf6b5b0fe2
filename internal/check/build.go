package check

import (
	"github.com/lbp0200/sentinelcheck/internal/config"
	"github.com/lbp0200/sentinelcheck/internal/sentinel"
)

// Build 根据配置组装真实的 redis 组件
func Build(cfg *config.Config) (Components, Policy, error) {
	if err := cfg.Validate(); err != nil {
		return Components{}, Policy{}, err
	}
	endpoints, err := cfg.Endpoints()
	if err != nil {
		return Components{}, Policy{}, err
	}

	discovery := cfg.DiscoveryTimeout.Duration
	control := sentinel.NewControlDialer(cfg.SentinelCredentials(), discovery)
	data := sentinel.NewDataDialer(cfg.DataCredentials(), cfg.ProbeTimeout.Duration)

	comp := Components{
		Discoverer: sentinel.NewDiscoverer(endpoints, cfg.MasterName, control, discovery),
		Verifier:   sentinel.NewVerifier(data, cfg.ProbeKey, cfg.ProbeTimeout.Duration),
		Enumerator: sentinel.NewEnumerator(endpoints, cfg.MasterName, control, discovery),
		Collector:  sentinel.NewCollector(endpoints, cfg.MasterName, control, discovery),
	}
	policy := Policy{
		MaxAttempts: cfg.MaxAttempts,
		RetryDelay:  cfg.RetryDelay.Duration,
	}
	return comp, policy, nil
}

package check

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lbp0200/sentinelcheck/internal/sentinel"
)

// Observer 接收检查过程中的离散事件，由调用方决定如何展示
type Observer interface {
	Started(runID string, policy Policy)
	AttemptStarted(attempt, maxAttempts int)
	MasterResolved(attempt int, disc sentinel.Discovery)
	ProbeCompleted(attempt int, res sentinel.ProbeResult, err error)
	ReplicasListed(attempt int, replicas []sentinel.Address, err error)
	AttemptFailed(rec AttemptRecord, retryIn time.Duration)
	DiagnosticsCollected(diag sentinel.Diagnostics)
	Finished(res Result)
}

// NopObserver 忽略所有事件
type NopObserver struct{}

func (NopObserver) Started(string, Policy) {}
func (NopObserver) AttemptStarted(int, int) {}
func (NopObserver) MasterResolved(int, sentinel.Discovery) {}
func (NopObserver) ProbeCompleted(int, sentinel.ProbeResult, error) {}
func (NopObserver) ReplicasListed(int, []sentinel.Address, error) {}
func (NopObserver) AttemptFailed(AttemptRecord, time.Duration) {}
func (NopObserver) DiagnosticsCollected(sentinel.Diagnostics) {}
func (NopObserver) Finished(Result) {}

// LogObserver 把事件写成 zerolog 结构化日志
type LogObserver struct {
	log zerolog.Logger
}

// NewLogObserver 基于给定 logger 创建观察者
func NewLogObserver(log zerolog.Logger) *LogObserver {
	return &LogObserver{log: log}
}

func (o *LogObserver) Started(runID string, policy Policy) {
	o.log = o.log.With().Str("run_id", runID).Logger()
	o.log.Info().
		Int("max_attempts", policy.MaxAttempts).
		Dur("retry_delay", policy.RetryDelay).
		Msg("checking redis sentinel")
}

func (o *LogObserver) AttemptStarted(attempt, maxAttempts int) {
	o.log.Info().Int("attempt", attempt).Int("max_attempts", maxAttempts).Msg("attempt started")
}

func (o *LogObserver) MasterResolved(attempt int, disc sentinel.Discovery) {
	ev := o.log.Info().
		Int("attempt", attempt).
		Str("master", disc.Master.Addr()).
		Int("agreeing", disc.Agreeing).
		Int("required", disc.Required)
	for _, v := range disc.Votes {
		if !v.Voted() {
			ev = ev.Str("abstained_"+v.Endpoint.Addr(), v.Err.Error())
		}
	}
	ev.Msg("master resolved")
}

func (o *LogObserver) ProbeCompleted(attempt int, res sentinel.ProbeResult, err error) {
	if err != nil {
		o.log.Warn().Err(err).Int("attempt", attempt).Str("kind", string(sentinel.KindOf(err))).Msg("read/write probe failed")
		return
	}
	o.log.Info().
		Int("attempt", attempt).
		Str("master", res.Master.Addr()).
		Str("key", res.Key).
		Bytes("value", res.Value).
		Dur("rtt", res.RTT).
		Msg("read/write probe succeeded")
}

func (o *LogObserver) ReplicasListed(attempt int, replicas []sentinel.Address, err error) {
	if err != nil {
		o.log.Warn().Err(err).Int("attempt", attempt).Msg("replica list unavailable")
	}
	addrs := make([]string, len(replicas))
	for i, r := range replicas {
		addrs[i] = r.Addr()
	}
	o.log.Info().
		Int("attempt", attempt).
		Int("count", len(replicas)).
		Strs("replicas", addrs).
		Msg("replicas listed")
}

func (o *LogObserver) AttemptFailed(rec AttemptRecord, retryIn time.Duration) {
	ev := o.log.Warn().Err(rec.Err).Int("attempt", rec.Attempt).Str("kind", string(rec.Kind()))
	if rec.State == StateRetrying {
		ev = ev.Dur("retry_in", retryIn)
	}
	ev.Msg("attempt failed")
}

func (o *LogObserver) DiagnosticsCollected(diag sentinel.Diagnostics) {
	for _, r := range diag.Reports {
		if r.Err != nil {
			o.log.Warn().Err(r.Err).Str("sentinel", r.Endpoint.Addr()).Msg("sentinel diagnostics unavailable")
			continue
		}
		o.log.Info().
			Str("sentinel", r.Endpoint.Addr()).
			Str("info", strings.TrimSpace(r.Info)).
			Str("masters", r.Masters).
			Str("replicas", r.Replicas).
			Msg("sentinel diagnostics")
	}
	if err := diag.Err(); err != nil {
		o.log.Warn().Err(err).Msg("diagnostics incomplete")
	}
}

func (o *LogObserver) Finished(res Result) {
	if res.Succeeded {
		o.log.Info().
			Int("attempts", res.Attempts).
			Str("master", res.Master.Addr()).
			Int("replicas", len(res.Replicas)).
			Msg("redis sentinel check succeeded")
		return
	}
	o.log.Error().
		Err(res.Err()).
		Int("attempts", res.Attempts).
		Str("kind", string(res.Last.Kind())).
		Msg("redis sentinel check failed")
}

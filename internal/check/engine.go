package check

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lbp0200/sentinelcheck/internal/sentinel"
)

// State 重试调度器状态
type State int

const (
	StateIdle State = iota
	StateAttempting
	StateRetrying
	StateSucceeded
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttempting:
		return "attempting"
	case StateRetrying:
		return "retrying"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// AttemptRecord 单次尝试的结果
type AttemptRecord struct {
	Attempt int
	State   State // 该次尝试结束后进入的状态
	Err     error
}

// Kind 失败类别，成功时为空
func (r AttemptRecord) Kind() sentinel.Kind {
	return sentinel.KindOf(r.Err)
}

// Result 整个检查的最终结果
type Result struct {
	RunID       string
	Succeeded   bool
	Attempts    int
	Sleeps      int
	Master      sentinel.Address
	Probe       sentinel.ProbeResult
	Replicas    []sentinel.Address
	ReplicaErr  error
	Diagnostics sentinel.Diagnostics
	Last        AttemptRecord
}

// Err 失败时返回最后一次尝试的错误
func (r Result) Err() error {
	if r.Succeeded {
		return nil
	}
	return r.Last.Err
}

// Discoverer 主节点发现
type Discoverer interface {
	Discover(ctx context.Context) (sentinel.Discovery, error)
}

// Verifier 数据面写后读探测
type Verifier interface {
	Verify(ctx context.Context, master sentinel.Address, payload []byte) (sentinel.ProbeResult, error)
}

// Enumerator 从节点枚举
type Enumerator interface {
	Replicas(ctx context.Context) ([]sentinel.Address, error)
}

// Collector 诊断收集
type Collector interface {
	Collect(ctx context.Context) sentinel.Diagnostics
}

// Components 每次尝试依次调用的组件
type Components struct {
	Discoverer Discoverer
	Verifier   Verifier
	Enumerator Enumerator
	Collector  Collector // 可为空
}

// Policy 重试策略
type Policy struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// Engine 按固定间隔、有限次数重复执行 发现 → 探测 → 枚举
type Engine struct {
	comp     Components
	policy   Policy
	observer Observer
	sleep    func(ctx context.Context, d time.Duration) error
	state    State
}

// New 创建检查引擎，MaxAttempts 小于 1 时按 1 处理
func New(comp Components, policy Policy, observer Observer) *Engine {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.RetryDelay < 0 {
		policy.RetryDelay = 0
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Engine{
		comp:     comp,
		policy:   policy,
		observer: observer,
		sleep:    sleepContext,
		state:    StateIdle,
	}
}

// State 当前状态
func (e *Engine) State() State {
	return e.state
}

// Run 执行检查直到成功或次数用尽。ctx 取消只会打断两次尝试之间的等待。
func (e *Engine) Run(ctx context.Context) Result {
	res := Result{RunID: uuid.NewString()}
	e.observer.Started(res.RunID, e.policy)

	// 尝试内部不响应取消，每个调用只受自身超时约束
	callCtx := context.WithoutCancel(ctx)

	for attempt := 1; ; attempt++ {
		e.state = StateAttempting
		res.Attempts = attempt
		e.observer.AttemptStarted(attempt, e.policy.MaxAttempts)

		err := e.attempt(callCtx, attempt, &res)
		if err == nil {
			e.state = StateSucceeded
			res.Succeeded = true
			res.Last = AttemptRecord{Attempt: attempt, State: StateSucceeded}
			if e.comp.Collector != nil {
				res.Diagnostics = e.comp.Collector.Collect(callCtx)
				e.observer.DiagnosticsCollected(res.Diagnostics)
			}
			e.observer.Finished(res)
			return res
		}

		if attempt >= e.policy.MaxAttempts {
			e.state = StateExhausted
			res.Last = AttemptRecord{Attempt: attempt, State: StateExhausted, Err: err}
			e.observer.AttemptFailed(res.Last, 0)
			e.observer.Finished(res)
			return res
		}

		e.state = StateRetrying
		res.Last = AttemptRecord{Attempt: attempt, State: StateRetrying, Err: err}
		e.observer.AttemptFailed(res.Last, e.policy.RetryDelay)

		res.Sleeps++
		if serr := e.sleep(ctx, e.policy.RetryDelay); serr != nil {
			e.state = StateExhausted
			res.Last = AttemptRecord{Attempt: attempt, State: StateExhausted, Err: fmt.Errorf("%w (waiting to retry: %w)", err, serr)}
			e.observer.Finished(res)
			return res
		}
	}
}

// attempt 单次尝试；从节点枚举失败不算尝试失败
func (e *Engine) attempt(ctx context.Context, attempt int, res *Result) error {
	disc, err := e.comp.Discoverer.Discover(ctx)
	if err != nil {
		return err
	}
	e.observer.MasterResolved(attempt, disc)

	payload := []byte(fmt.Sprintf("ping-%d", attempt))
	probe, err := e.comp.Verifier.Verify(ctx, disc.Master, payload)
	e.observer.ProbeCompleted(attempt, probe, err)
	if err != nil {
		return err
	}

	replicas, rerr := e.comp.Enumerator.Replicas(ctx)
	if replicas == nil {
		replicas = []sentinel.Address{}
	}
	e.observer.ReplicasListed(attempt, replicas, rerr)

	res.Master = disc.Master
	res.Probe = probe
	res.Replicas = replicas
	res.ReplicaErr = rerr
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package sentinel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lbp0200/sentinelcheck/internal/logger"
)

// Enumerator 向哨兵查询从节点列表
type Enumerator struct {
	endpoints []Endpoint
	master    string
	dial      ControlDialer
	timeout   time.Duration
}

// NewEnumerator 创建从节点枚举器
func NewEnumerator(endpoints []Endpoint, master string, dial ControlDialer, timeout time.Duration) *Enumerator {
	return &Enumerator{
		endpoints: endpoints,
		master:    master,
		dial:      dial,
		timeout:   timeout,
	}
}

// Replicas 按配置顺序询问哨兵，返回第一个非空的在线从节点列表。
// 没有从节点时返回空列表；所有哨兵都失败时同时返回空列表和错误。
func (e *Enumerator) Replicas(ctx context.Context) ([]Address, error) {
	var (
		errs     []error
		answered bool
	)
	for _, ep := range e.endpoints {
		replicas, err := e.ask(ctx, ep)
		if err != nil {
			logger.Logger.Debug().
				Err(err).
				Str("sentinel", ep.Addr()).
				Str("master_name", e.master).
				Msg("sentinel did not list replicas")
			errs = append(errs, err)
			continue
		}
		answered = true
		if len(replicas) > 0 {
			return replicas, nil
		}
	}
	if !answered && len(e.endpoints) > 0 {
		return []Address{}, fmt.Errorf("%w: %w", ErrNoSentinelAnswered, errors.Join(errs...))
	}
	return []Address{}, nil
}

func (e *Enumerator) ask(ctx context.Context, ep Endpoint) ([]Address, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	c := e.dial(ep)
	defer func() { _ = c.Close() }()

	raw, err := c.Replicas(ctx, e.master)
	if err != nil {
		return nil, classify(ep.Addr(), err)
	}
	return filterReplicas(raw)
}

// filterReplicas 解析哨兵返回的字段，跳过主观或客观下线的从节点
func filterReplicas(raw []map[string]string) ([]Address, error) {
	replicas := make([]Address, 0, len(raw))
	for _, info := range raw {
		if isDown(info["flags"]) {
			continue
		}
		addr, err := parseAddress(info["ip"], info["port"])
		if err != nil {
			return nil, err
		}
		replicas = append(replicas, addr)
	}
	return replicas, nil
}

func isDown(flags string) bool {
	for _, f := range strings.Split(flags, ",") {
		if f == "s_down" || f == "o_down" {
			return true
		}
	}
	return false
}

package sentinel

import (
	"context"
	"time"

	"github.com/lbp0200/sentinelcheck/internal/logger"
)

// EndpointVote 单个哨兵对主节点地址的看法
type EndpointVote struct {
	Endpoint Endpoint
	Addr     Address
	Err      error // 非空表示该哨兵没有投票
}

// Voted 该哨兵是否给出了有效地址
func (v EndpointVote) Voted() bool {
	return v.Err == nil
}

// Discovery 一次主节点发现的结果
type Discovery struct {
	Master   Address
	Agreeing int
	Required int
	Votes    []EndpointVote
}

// Discoverer 通过多数哨兵一致确定当前主节点
type Discoverer struct {
	endpoints []Endpoint
	master    string
	dial      ControlDialer
	timeout   time.Duration
}

// NewDiscoverer 创建主节点发现器，timeout 作用于每个哨兵的单次调用
func NewDiscoverer(endpoints []Endpoint, master string, dial ControlDialer, timeout time.Duration) *Discoverer {
	return &Discoverer{
		endpoints: endpoints,
		master:    master,
		dial:      dial,
		timeout:   timeout,
	}
}

// Required 达成多数所需票数
func (d *Discoverer) Required() int {
	return len(d.endpoints)/2 + 1
}

// Discover 逐个询问哨兵，某个地址获得多数票即返回。
// 不可达、认证失败、答复异常的哨兵视为弃权。
func (d *Discoverer) Discover(ctx context.Context) (Discovery, error) {
	required := d.Required()
	counter := make(map[Address]int)
	votes := make([]EndpointVote, 0, len(d.endpoints))

	var (
		best     Address
		agreeing int
		reached  int
	)
	for _, ep := range d.endpoints {
		vote := d.ask(ctx, ep)
		votes = append(votes, vote)
		if !vote.Voted() {
			logger.Logger.Debug().
				Err(vote.Err).
				Str("sentinel", ep.Addr()).
				Str("master_name", d.master).
				Msg("sentinel did not vote")
			continue
		}
		reached++
		counter[vote.Addr]++
		if counter[vote.Addr] > agreeing {
			best, agreeing = vote.Addr, counter[vote.Addr]
		}
		if agreeing >= required {
			return Discovery{Master: best, Agreeing: agreeing, Required: required, Votes: votes}, nil
		}
	}

	return Discovery{Votes: votes, Agreeing: agreeing, Required: required}, &QuorumError{
		Master:   d.master,
		Reached:  reached,
		Agreeing: agreeing,
		Required: required,
		Votes:    votes,
	}
}

func (d *Discoverer) ask(ctx context.Context, ep Endpoint) EndpointVote {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	c := d.dial(ep)
	defer func() { _ = c.Close() }()

	addr, err := c.MasterAddr(ctx, d.master)
	if err != nil {
		return EndpointVote{Endpoint: ep, Err: classify(ep.Addr(), err)}
	}
	return EndpointVote{Endpoint: ep, Addr: addr}
}

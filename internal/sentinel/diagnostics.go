package sentinel

import (
	"context"
	"fmt"
	"io"
	"time"
)

// EndpointReport 单个哨兵的原始状态
type EndpointReport struct {
	Endpoint Endpoint
	Info     string
	Masters  string
	Replicas string
	Err      error
}

// Diagnostics 所有哨兵的诊断信息
type Diagnostics struct {
	Reports []EndpointReport
}

// Err 有哨兵失败时返回 DiagnosticsPartialFailure
func (d Diagnostics) Err() error {
	failed := 0
	for _, r := range d.Reports {
		if r.Err != nil {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return &DiagnosticsPartialFailure{Failed: failed, Total: len(d.Reports)}
}

// Render 输出便于人工排查的文本
func (d Diagnostics) Render(w io.Writer) error {
	for _, r := range d.Reports {
		if _, err := fmt.Fprintf(w, "--- sentinel %s ---\n", r.Endpoint.Addr()); err != nil {
			return err
		}
		if r.Err != nil {
			if _, err := fmt.Fprintf(w, "error: %v\n", r.Err); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "info:\n%s\nmasters: %s\nreplicas: %s\n", r.Info, r.Masters, r.Replicas); err != nil {
			return err
		}
	}
	return nil
}

// Collector 尽力收集每个哨兵的状态，单个哨兵失败不影响其他哨兵
type Collector struct {
	endpoints []Endpoint
	master    string
	dial      ControlDialer
	timeout   time.Duration
}

// NewCollector 创建诊断收集器
func NewCollector(endpoints []Endpoint, master string, dial ControlDialer, timeout time.Duration) *Collector {
	return &Collector{
		endpoints: endpoints,
		master:    master,
		dial:      dial,
		timeout:   timeout,
	}
}

// Collect 从不返回错误，失败记录在各自的报告中
func (c *Collector) Collect(ctx context.Context) Diagnostics {
	reports := make([]EndpointReport, 0, len(c.endpoints))
	for _, ep := range c.endpoints {
		reports = append(reports, c.collectOne(ctx, ep))
	}
	return Diagnostics{Reports: reports}
}

func (c *Collector) collectOne(ctx context.Context, ep Endpoint) EndpointReport {
	report := EndpointReport{Endpoint: ep}

	conn := c.dial(ep)
	defer func() { _ = conn.Close() }()

	queries := []struct {
		dst  *string
		args []interface{}
	}{
		{&report.Info, []interface{}{"info", "sentinel"}},
		{&report.Masters, []interface{}{"sentinel", "masters"}},
		{&report.Replicas, []interface{}{"sentinel", "slaves", c.master}},
	}
	for _, q := range queries {
		v, err := c.raw(ctx, conn, q.args...)
		if err != nil {
			report.Err = classify(ep.Addr(), err)
			return report
		}
		*q.dst = formatRaw(v)
	}
	return report
}

func (c *Collector) raw(ctx context.Context, conn ControlPlane, args ...interface{}) (interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return conn.Raw(ctx, args...)
}

func formatRaw(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

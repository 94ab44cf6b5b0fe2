package sentinel

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"testing"

	"github.com/lbp0200/sentinelcheck/internal/sentineltest"
)

// fakeSentinel 内存中的哨兵，记录被调用的次数
type fakeSentinel struct {
	addr     Address
	err      error
	replicas []map[string]string
	raw      map[string]interface{}
	rawErr   error
	calls    int
	closed   int
}

func (f *fakeSentinel) MasterAddr(ctx context.Context, name string) (Address, error) {
	f.calls++
	if f.err != nil {
		return Address{}, f.err
	}
	return f.addr, nil
}

func (f *fakeSentinel) Replicas(ctx context.Context, name string) ([]map[string]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.replicas, nil
}

func (f *fakeSentinel) Raw(ctx context.Context, args ...interface{}) (interface{}, error) {
	f.calls++
	if f.rawErr != nil {
		return nil, f.rawErr
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.(string)
	}
	return f.raw[strings.Join(parts, " ")], nil
}

func (f *fakeSentinel) Close() error {
	f.closed++
	return nil
}

type fakeCluster struct {
	endpoints []Endpoint
	nodes     map[Endpoint]*fakeSentinel
}

func newFakeCluster(nodes ...*fakeSentinel) *fakeCluster {
	fc := &fakeCluster{nodes: make(map[Endpoint]*fakeSentinel)}
	for i, n := range nodes {
		ep := Endpoint{Host: "sentinel-" + strconv.Itoa(i+1), Port: 26379}
		fc.endpoints = append(fc.endpoints, ep)
		fc.nodes[ep] = n
	}
	return fc
}

func (fc *fakeCluster) dial(ep Endpoint) ControlPlane {
	return fc.nodes[ep]
}

var errRefused = &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

// endpointOf 把模拟服务的地址转换为 Endpoint
func endpointOf(t *testing.T, s *sentineltest.Server) Endpoint {
	t.Helper()
	return Endpoint{Host: s.Host(), Port: s.Port()}
}

// closedEndpoint 没有监听者的哨兵地址
func closedEndpoint(t *testing.T) Endpoint {
	t.Helper()
	ep, err := ParseEndpoint(sentineltest.ClosedAddr(t))
	if err != nil {
		t.Fatal(err)
	}
	return ep
}

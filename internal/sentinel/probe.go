package sentinel

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultProbeKey 探测使用的键
const DefaultProbeKey = "sentinel_test_key"

// ProbeResult 一次写后读探测的结果
type ProbeResult struct {
	Master Address
	Key    string
	Value  []byte
	RTT    time.Duration
}

// Verifier 对主节点做一次写入和一次读取，确认它确实在提供服务
type Verifier struct {
	dial    DataDialer
	key     string
	timeout time.Duration
}

// NewVerifier 创建连通性校验器，dial 只应携带数据面凭据
func NewVerifier(dial DataDialer, key string, timeout time.Duration) *Verifier {
	if key == "" {
		key = DefaultProbeKey
	}
	return &Verifier{dial: dial, key: key, timeout: timeout}
}

// Verify 写入 payload 再读回，逐字节比较
func (v *Verifier) Verify(ctx context.Context, master Address, payload []byte) (ProbeResult, error) {
	addr := master.Addr()
	if len(payload) == 0 {
		return ProbeResult{}, &ProbeError{Addr: addr, Key: v.key, Reason: "empty payload"}
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	c := v.dial(master)
	defer func() { _ = c.Close() }()

	start := time.Now()
	if err := c.Set(ctx, v.key, payload); err != nil {
		if isReadOnly(err) {
			return ProbeResult{}, &ProbeError{Addr: addr, Key: v.key, Want: payload, Reason: "write rejected by read-only node", Err: err}
		}
		return ProbeResult{}, probeFailure(addr, v.key, payload, "write", err)
	}

	got, err := c.Get(ctx, v.key)
	if errors.Is(err, redis.Nil) {
		return ProbeResult{}, &ProbeError{Addr: addr, Key: v.key, Want: payload, Reason: "value missing after write"}
	}
	if err != nil {
		return ProbeResult{}, probeFailure(addr, v.key, payload, "read", err)
	}
	if !bytes.Equal(got, payload) {
		return ProbeResult{}, &ProbeError{Addr: addr, Key: v.key, Want: payload, Got: got, Reason: "value mismatch"}
	}

	return ProbeResult{Master: master, Key: v.key, Value: got, RTT: time.Since(start)}, nil
}

// probeFailure 网络和认证错误保留原类别，其余服务端错误记为探测失败
func probeFailure(addr, key string, payload []byte, op string, err error) error {
	err = classify(addr, err)
	var (
		ae *AuthError
		ce *ConnectionError
	)
	if errors.As(err, &ae) || errors.As(err, &ce) {
		return err
	}
	return &ProbeError{Addr: addr, Key: key, Want: payload, Reason: op + " returned an error", Err: err}
}

func isReadOnly(err error) bool {
	return isRedisError(err) && strings.HasPrefix(err.Error(), "READONLY")
}

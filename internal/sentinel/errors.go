package sentinel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Kind 错误类别
type Kind string

const (
	KindNone        Kind = ""
	KindConnection  Kind = "connection"
	KindAuth        Kind = "auth"
	KindQuorum      Kind = "quorum"
	KindProbe       Kind = "probe"
	KindDiagnostics Kind = "diagnostics"
	KindUnknown     Kind = "unknown"
)

var (
	// ErrUnknownMaster 哨兵不认识该主节点名称
	ErrUnknownMaster = errors.New("sentinel does not know the master name")
	// ErrMalformedReply 哨兵返回了无法解析的数据
	ErrMalformedReply = errors.New("malformed sentinel reply")
	// ErrNoSentinelAnswered 所有哨兵都没有应答
	ErrNoSentinelAnswered = errors.New("no sentinel answered")
)

// ConnectionError 节点不可达或超时
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthError 节点拒绝了凭据
type AuthError struct {
	Addr string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication to %s rejected: %v", e.Addr, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// QuorumError 同意同一主节点地址的哨兵数不足
type QuorumError struct {
	Master   string
	Reached  int // 给出有效答复的哨兵数
	Agreeing int // 票数最多的地址获得的票数
	Required int
	Votes    []EndpointVote
}

func (e *QuorumError) Error() string {
	return fmt.Sprintf("no quorum for master %q: %d sentinels reached, %d agreeing, %d required",
		e.Master, e.Reached, e.Agreeing, e.Required)
}

// ProbeError 写入后读取的值缺失或不一致
type ProbeError struct {
	Addr   string
	Key    string
	Want   []byte
	Got    []byte
	Reason string
	Err    error
}

func (e *ProbeError) Error() string {
	msg := fmt.Sprintf("probe %s on %s failed: %s", e.Key, e.Addr, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProbeError) Unwrap() error { return e.Err }

// DiagnosticsPartialFailure 部分哨兵的诊断信息获取失败，仅作提示
type DiagnosticsPartialFailure struct {
	Failed int
	Total  int
}

func (e *DiagnosticsPartialFailure) Error() string {
	return fmt.Sprintf("diagnostics incomplete: %d of %d sentinels failed", e.Failed, e.Total)
}

// KindOf 返回错误所属类别
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var (
		qe *QuorumError
		pe *ProbeError
		ae *AuthError
		ce *ConnectionError
		de *DiagnosticsPartialFailure
	)
	switch {
	case errors.As(err, &qe):
		return KindQuorum
	case errors.As(err, &pe):
		return KindProbe
	case errors.As(err, &ae):
		return KindAuth
	case errors.As(err, &ce):
		return KindConnection
	case errors.As(err, &de):
		return KindDiagnostics
	default:
		return KindUnknown
	}
}

// classify 将客户端返回的错误转换为带类别的错误。
// redis.Nil、哨兵答复类错误和非认证类的服务端错误原样返回，由调用方决定含义。
func classify(addr string, err error) error {
	if err == nil || errors.Is(err, redis.Nil) ||
		errors.Is(err, ErrUnknownMaster) || errors.Is(err, ErrMalformedReply) {
		return err
	}
	if isAuthError(err) {
		return &AuthError{Addr: addr, Err: err}
	}
	if isRedisError(err) {
		return err
	}
	// 其余均视为网络层失败：拨号、读写超时、连接被关闭
	return &ConnectionError{Addr: addr, Err: err}
}

func isRedisError(err error) bool {
	var rerr redis.Error
	return errors.As(err, &rerr) && !errors.Is(err, redis.Nil)
}

func isAuthError(err error) bool {
	if !isRedisError(err) {
		return false
	}
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "NOAUTH"),
		strings.HasPrefix(msg, "WRONGPASS"),
		strings.HasPrefix(msg, "NOPERM"):
		return true
	}
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "invalid password") ||
		strings.Contains(lower, "auth") &&
			(strings.Contains(lower, "no password") || strings.Contains(lower, "without any password"))
}

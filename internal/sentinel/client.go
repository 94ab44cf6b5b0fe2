package sentinel

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Credentials 单个平面的凭据。控制面和数据面各持有一份，互不推导。
type Credentials struct {
	Username string
	Password string
}

// ControlPlane 单个哨兵的控制面连接
type ControlPlane interface {
	// MasterAddr SENTINEL GET-MASTER-ADDR-BY-NAME
	MasterAddr(ctx context.Context, name string) (Address, error)
	// Replicas SENTINEL REPLICAS，返回原始字段
	Replicas(ctx context.Context, name string) ([]map[string]string, error)
	// Raw 执行任意命令，仅用于诊断输出
	Raw(ctx context.Context, args ...interface{}) (interface{}, error)
	Close() error
}

// DataPlane 主节点的数据面连接
type DataPlane interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Close() error
}

// ControlDialer 为每次操作打开一个哨兵连接
type ControlDialer func(ep Endpoint) ControlPlane

// DataDialer 为每次探测打开一个数据面连接
type DataDialer func(addr Address) DataPlane

// NewControlDialer 返回基于 go-redis SentinelClient 的拨号器
func NewControlDialer(creds Credentials, timeout time.Duration) ControlDialer {
	return func(ep Endpoint) ControlPlane {
		return &sentinelConn{c: redis.NewSentinelClient(clientOptions(ep.Addr(), creds, timeout))}
	}
}

// NewDataDialer 返回基于 go-redis Client 的拨号器
func NewDataDialer(creds Credentials, timeout time.Duration) DataDialer {
	return func(addr Address) DataPlane {
		return &dataConn{c: redis.NewClient(clientOptions(addr.Addr(), creds, timeout))}
	}
}

// clientOptions 每个连接只用一次：单连接池，不重试，超时由调用方给定
func clientOptions(addr string, creds Credentials, timeout time.Duration) *redis.Options {
	return &redis.Options{
		Addr:            addr,
		Username:        creds.Username,
		Password:        creds.Password,
		Protocol:        2,
		DialTimeout:     timeout,
		ReadTimeout:     timeout,
		WriteTimeout:    timeout,
		PoolSize:        1,
		MaxRetries:      -1,
		DisableIdentity: true,
	}
}

type sentinelConn struct {
	c *redis.SentinelClient
}

func (s *sentinelConn) MasterAddr(ctx context.Context, name string) (Address, error) {
	parts, err := s.c.GetMasterAddrByName(ctx, name).Result()
	if err == redis.Nil {
		return Address{}, ErrUnknownMaster
	}
	if err != nil {
		return Address{}, err
	}
	if len(parts) != 2 {
		return Address{}, fmt.Errorf("%w: get-master-addr-by-name = %v", ErrMalformedReply, parts)
	}
	return parseAddress(parts[0], parts[1])
}

func (s *sentinelConn) Replicas(ctx context.Context, name string) ([]map[string]string, error) {
	return s.c.Replicas(ctx, name).Result()
}

func (s *sentinelConn) Raw(ctx context.Context, args ...interface{}) (interface{}, error) {
	cmd := redis.NewCmd(ctx, args...)
	_ = s.c.Process(ctx, cmd)
	return cmd.Result()
}

func (s *sentinelConn) Close() error {
	return s.c.Close()
}

type dataConn struct {
	c *redis.Client
}

func (d *dataConn) Set(ctx context.Context, key string, value []byte) error {
	return d.c.Set(ctx, key, value, 0).Err()
}

func (d *dataConn) Get(ctx context.Context, key string) ([]byte, error) {
	return d.c.Get(ctx, key).Bytes()
}

func (d *dataConn) Close() error {
	return d.c.Close()
}

package sentinel

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Endpoint 配置的哨兵地址
type Endpoint struct {
	Host string
	Port int
}

// Addr 返回 host:port
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string { return e.Addr() }

// Address 主节点或从节点的数据面地址
type Address struct {
	Host string
	Port int
}

// Addr 返回 host:port
func (a Address) Addr() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

func (a Address) String() string { return a.Addr() }

// IsZero 地址是否为空
func (a Address) IsZero() bool {
	return a.Host == "" && a.Port == 0
}

// ParseEndpoint 解析 host:port 形式的哨兵地址
func ParseEndpoint(s string) (Endpoint, error) {
	host, port, err := splitHostPort(strings.TrimSpace(s))
	if err != nil {
		return Endpoint{}, err
	}
	return Endpoint{Host: host, Port: port}, nil
}

// ParseEndpoints 解析逗号分隔的哨兵地址列表
func ParseEndpoints(s string) ([]Endpoint, error) {
	var endpoints []Endpoint
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		ep, err := ParseEndpoint(part)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

// parseAddress 由哨兵返回的 ip、port 字段构造地址
func parseAddress(host, port string) (Address, error) {
	if host == "" {
		return Address{}, fmt.Errorf("%w: empty host", ErrMalformedReply)
	}
	p, err := parsePort(port)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return Address{Host: host, Port: p}, nil
}

func splitHostPort(s string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, fmt.Errorf("invalid endpoint %q: %w", s, err)
	}
	if host == "" {
		return "", 0, fmt.Errorf("invalid endpoint %q: empty host", s)
	}
	port, err := parsePort(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid endpoint %q: %w", s, err)
	}
	return host, port, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	return port, nil
}

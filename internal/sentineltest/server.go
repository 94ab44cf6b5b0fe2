// Package sentineltest 提供进程内的哨兵 / 数据节点模拟服务，供 go-redis 客户端在测试中直接连接。
package sentineltest

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/lbp0200/sentinelcheck/internal/proto"
)

// Replica 被监控主节点下的从节点
type Replica struct {
	IP    string
	Port  int
	Flags string // 默认 "slave"
}

type monitored struct {
	name     string
	ip       string
	port     int
	replicas []Replica
}

// Server 同时扮演哨兵和数据节点：SENTINEL/INFO 走控制面，SET/GET 走数据面
type Server struct {
	mu       sync.Mutex
	ln       net.Listener
	conns    map[net.Conn]struct{}
	password string
	masters  map[string]*monitored
	order    []string
	data     map[string][]byte
	readOnly bool
	mangle   func([]byte) []byte
	commands []string
}

// Start 在 127.0.0.1 的随机端口上启动，测试结束时自动关闭
func Start(t testing.TB) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &Server{
		ln:      ln,
		conns:   make(map[net.Conn]struct{}),
		masters: make(map[string]*monitored),
		data:    make(map[string][]byte),
	}
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// ClosedAddr 返回一个没有监听者的本地地址
func ClosedAddr(t testing.TB) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

// Addr 监听地址
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Host 监听 IP
func (s *Server) Host() string { return s.ln.Addr().(*net.TCPAddr).IP.String() }

// Port 监听端口
func (s *Server) Port() int { return s.ln.Addr().(*net.TCPAddr).Port }

// Monitor 让该哨兵报告 name 的主节点为 ip:port
func (s *Server) Monitor(name, ip string, port int, replicas ...Replica) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.masters[name]; !ok {
		s.order = append(s.order, name)
	}
	s.masters[name] = &monitored{name: name, ip: ip, port: port, replicas: replicas}
}

// RequirePass 设置访问密码，空字符串表示不需要认证
func (s *Server) RequirePass(password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.password = password
}

// SetReadOnly 模拟只读从节点，SET 返回 READONLY
func (s *Server) SetReadOnly(readOnly bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readOnly = readOnly
}

// SetMangle GET 返回前先经过 fn 处理
func (s *Server) SetMangle(fn func([]byte) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mangle = fn
}

// Value 读取数据面里保存的值
func (s *Server) Value(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Commands 已执行的命令名（小写，SENTINEL 带子命令）
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

// Close 关闭监听和所有连接
func (s *Server) Close() {
	_ = s.ln.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

func (s *Server) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		go s.handleConnection(conn)
	}
}

// session 每个连接的认证状态
type session struct {
	authed bool
}

func (s *Server) handleConnection(conn net.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)
	sess := &session{}

	for {
		req, err := proto.ReadRESP(reader)
		if err != nil {
			return
		}
		if len(req.Args) == 0 {
			if proto.WriteRESP(writer, proto.NewError("ERR no command")) != nil {
				return
			}
			continue
		}

		cmd := strings.ToUpper(string(req.Args[0]))
		resp := s.executeCommand(sess, cmd, req.Args[1:])
		if err := proto.WriteRESP(writer, resp); err != nil {
			return
		}
	}
}

func (s *Server) executeCommand(sess *session, cmd string, args [][]byte) proto.RESP {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record(cmd, args)

	switch cmd {
	case "HELLO":
		// 按不支持 RESP3 的旧版本处理，客户端会回退到 AUTH
		return proto.NewError("ERR unknown command 'HELLO'")
	case "AUTH":
		return s.auth(sess, args)
	}

	if s.password != "" && !sess.authed {
		return proto.NewError("NOAUTH Authentication required.")
	}

	switch cmd {
	case "PING":
		return proto.NewSimpleString("PONG")
	case "CLIENT", "SELECT":
		return proto.OK
	case "INFO":
		return proto.NewBulkString([]byte(s.info()))
	case "SENTINEL":
		if len(args) < 1 {
			return proto.NewError("ERR wrong number of arguments for 'sentinel' command")
		}
		return s.handleSentinelCommand(strings.ToUpper(string(args[0])), args[1:])
	case "SET":
		if len(args) < 2 {
			return proto.NewError("ERR wrong number of arguments for 'set' command")
		}
		if s.readOnly {
			return proto.NewError("READONLY You can't write against a read only replica.")
		}
		s.data[string(args[0])] = append([]byte(nil), args[1]...)
		return proto.OK
	case "GET":
		if len(args) != 1 {
			return proto.NewError("ERR wrong number of arguments for 'get' command")
		}
		v, ok := s.data[string(args[0])]
		if !ok {
			return proto.NewBulkString(nil)
		}
		if s.mangle != nil {
			v = s.mangle(v)
			if v == nil {
				return proto.NewBulkString(nil)
			}
		}
		return proto.NewBulkString(v)
	default:
		return proto.NewError(fmt.Sprintf("ERR unknown command '%s'", cmd))
	}
}

func (s *Server) record(cmd string, args [][]byte) {
	name := strings.ToLower(cmd)
	if cmd == "SENTINEL" && len(args) > 0 {
		name += " " + strings.ToLower(string(args[0]))
	}
	s.commands = append(s.commands, name)
}

func (s *Server) auth(sess *session, args [][]byte) proto.RESP {
	if len(args) < 1 || len(args) > 2 {
		return proto.NewError("ERR wrong number of arguments for 'auth' command")
	}
	if s.password == "" {
		return proto.NewError("ERR AUTH <password> called without any password configured for the default user. Are you sure your configuration is correct?")
	}
	if string(args[len(args)-1]) != s.password {
		return proto.NewError("WRONGPASS invalid username-password pair or user is disabled.")
	}
	sess.authed = true
	return proto.OK
}

// handleSentinelCommand 处理 SENTINEL 子命令
func (s *Server) handleSentinelCommand(subcommand string, args [][]byte) proto.RESP {
	switch subcommand {
	case "GET-MASTER-ADDR-BY-NAME":
		if len(args) != 1 {
			return proto.NewError("ERR wrong number of arguments for 'sentinel get-master-addr-by-name' command")
		}
		m, ok := s.masters[string(args[0])]
		if !ok {
			return proto.NullArray{}
		}
		return proto.NewStrings(m.ip, strconv.Itoa(m.port))

	case "MASTERS":
		out := make(proto.Multi, 0, len(s.order))
		for _, name := range s.order {
			out = append(out, masterFields(s.masters[name]))
		}
		return out

	case "MASTER":
		if len(args) != 1 {
			return proto.NewError("ERR wrong number of arguments for 'sentinel master' command")
		}
		m, ok := s.masters[string(args[0])]
		if !ok {
			return proto.NewError("ERR No such master with that name")
		}
		return masterFields(m)

	case "REPLICAS", "SLAVES":
		if len(args) != 1 {
			return proto.NewError("ERR wrong number of arguments for 'sentinel replicas' command")
		}
		m, ok := s.masters[string(args[0])]
		if !ok {
			return proto.NewError("ERR No such master with that name")
		}
		out := make(proto.Multi, 0, len(m.replicas))
		for _, r := range m.replicas {
			out = append(out, replicaFields(m, r))
		}
		return out

	default:
		return proto.NewError(fmt.Sprintf("ERR unknown sentinel subcommand '%s'", subcommand))
	}
}

var masterKeys = []string{"name", "ip", "port", "flags", "num-slaves", "quorum"}

func masterFields(m *monitored) proto.RESP {
	return proto.NewFields(masterKeys, map[string]string{
		"name":       m.name,
		"ip":         m.ip,
		"port":       strconv.Itoa(m.port),
		"flags":      "master",
		"num-slaves": strconv.Itoa(len(m.replicas)),
		"quorum":     "2",
	})
}

var replicaKeys = []string{"name", "ip", "port", "flags", "master-host", "master-port"}

func replicaFields(m *monitored, r Replica) proto.RESP {
	flags := r.Flags
	if flags == "" {
		flags = "slave"
	}
	return proto.NewFields(replicaKeys, map[string]string{
		"name":        fmt.Sprintf("%s:%d", r.IP, r.Port),
		"ip":          r.IP,
		"port":        strconv.Itoa(r.Port),
		"flags":       flags,
		"master-host": m.ip,
		"master-port": strconv.Itoa(m.port),
	})
}

func (s *Server) info() string {
	var b strings.Builder
	b.WriteString("# Sentinel\r\n")
	fmt.Fprintf(&b, "sentinel_masters:%d\r\n", len(s.masters))
	for i, name := range s.order {
		m := s.masters[name]
		fmt.Fprintf(&b, "master%d:name=%s,status=ok,address=%s:%d,slaves=%d,sentinels=3\r\n",
			i, m.name, m.ip, m.port, len(m.replicas))
	}
	return b.String()
}

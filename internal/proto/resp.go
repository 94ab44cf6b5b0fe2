// 简化 RESP2：读取客户端命令，写出 Array/Multi/Bulk/Simple/Error/Integer 回复
package proto

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lbp0200/sentinelcheck/internal/logger"
)

type RESP interface {
	String() string
}

// Array 由 bulk string 组成的数组，命令和扁平回复都用它
type Array struct {
	Args [][]byte
}

func (a *Array) String() string {
	return "*" + strconv.Itoa(len(a.Args)) + "\r\n" + joinBulkStrings(a.Args)
}

// Multi 元素可以是任意 RESP 的数组，用于 SENTINEL MASTERS 之类的嵌套回复
type Multi []RESP

func (m Multi) String() string {
	var b strings.Builder
	b.WriteString("*")
	b.WriteString(strconv.Itoa(len(m)))
	b.WriteString("\r\n")
	for _, item := range m {
		b.WriteString(item.String())
	}
	return b.String()
}

// NullArray 空数组回复 *-1
type NullArray struct{}

func (NullArray) String() string { return "*-1\r\n" }

type BulkString []byte

func (b *BulkString) String() string {
	if b == nil || *b == nil {
		return "$-1\r\n"
	}
	return "$" + strconv.Itoa(len(*b)) + "\r\n" + string(*b) + "\r\n"
}

type SimpleString string

func (s SimpleString) String() string { return "+" + string(s) + "\r\n" }

type Error string

func (e Error) String() string { return "-" + string(e) + "\r\n" }

type Integer int64

func (i Integer) String() string { return ":" + strconv.FormatInt(int64(i), 10) + "\r\n" }

// ReadRESP 读取一条客户端命令
func ReadRESP(r *bufio.Reader) (*Array, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	if len(line) == 0 {
		return nil, fmt.Errorf("empty line")
	}

	switch line[0] {
	case '*':
		n, err := strconv.Atoi(string(line[1:]))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid array length: %s", line[1:])
		}
		args := make([][]byte, n)
		for i := 0; i < n; i++ {
			lenLine, err := readLine(r)
			if err != nil {
				return nil, err
			}
			if len(lenLine) == 0 || lenLine[0] != '$' {
				return nil, fmt.Errorf("expected $, got %q", lenLine)
			}
			bulkLen, err := strconv.Atoi(string(lenLine[1:]))
			if err != nil || bulkLen < -1 {
				return nil, fmt.Errorf("invalid bulk length: %s", lenLine[1:])
			}
			if bulkLen == -1 {
				args[i] = nil
				continue
			}
			// 数据 + \r\n
			data := make([]byte, bulkLen+2)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, err
			}
			args[i] = data[:bulkLen]
		}
		return &Array{Args: args}, nil
	default:
		// 内联命令，例如 "PING\r\n"
		return parseInlineCommand(line)
	}
}

// parseInlineCommand 按空格分割内联命令
func parseInlineCommand(line []byte) (*Array, error) {
	parts := strings.Fields(string(line))
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty inline command")
	}
	args := make([][]byte, len(parts))
	for i, part := range parts {
		args[i] = []byte(part)
	}
	return &Array{Args: args}, nil
}

func WriteRESP(w io.Writer, resp RESP) error {
	if _, err := io.WriteString(w, resp.String()); err != nil {
		logger.Logger.Debug().Err(err).Msg("WriteRESP 写入失败")
		return err
	}
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	line = line[:len(line)-1]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, nil
}

func joinBulkStrings(args [][]byte) string {
	var b strings.Builder
	for _, arg := range args {
		if arg == nil {
			b.WriteString("$-1\r\n")
			continue
		}
		b.WriteString("$")
		b.WriteString(strconv.Itoa(len(arg)))
		b.WriteString("\r\n")
		b.Write(arg)
		b.WriteString("\r\n")
	}
	return b.String()
}

// 工厂
func NewSimpleString(s string) RESP { r := SimpleString(s); return &r }
func NewBulkString(b []byte) RESP {
	if b == nil {
		var r *BulkString
		return r
	}
	r := BulkString(b)
	return &r
}
func NewError(e string) RESP  { r := Error(e); return &r }
func NewInteger(i int64) RESP { r := Integer(i); return &r }

// NewStrings 由字符串构造扁平数组
func NewStrings(ss ...string) RESP {
	args := make([][]byte, len(ss))
	for i, s := range ss {
		args[i] = []byte(s)
	}
	return &Array{Args: args}
}

// NewFields 把字段表按 key value 交替展开，顺序由 keys 决定
func NewFields(keys []string, fields map[string]string) RESP {
	args := make([][]byte, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, []byte(k), []byte(fields[k]))
	}
	return &Array{Args: args}
}

var (
	OK = NewSimpleString("OK")
)

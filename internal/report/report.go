// Package report 把哨兵诊断信息导出到文件，按后缀决定是否压缩
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	lz4 "github.com/pierrec/lz4/v4"

	"github.com/lbp0200/sentinelcheck/internal/logger"
	"github.com/lbp0200/sentinelcheck/internal/sentinel"
)

// CompressionType 压缩算法类型
type CompressionType string

const (
	CompressionNone CompressionType = "none" // 纯文本
	CompressionLZ4  CompressionType = "lz4"  // .lz4
	CompressionZSTD CompressionType = "zstd" // .zst
)

// CompressionFor 根据文件后缀选择压缩算法
func CompressionFor(path string) CompressionType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lz4":
		return CompressionLZ4
	case ".zst", ".zstd":
		return CompressionZSTD
	default:
		return CompressionNone
	}
}

// Write 渲染诊断信息并写入 path
func Write(path string, diag sentinel.Diagnostics) error {
	var buf bytes.Buffer
	if err := diag.Render(&buf); err != nil {
		return fmt.Errorf("render diagnostics: %w", err)
	}
	data, err := Compress(buf.Bytes(), CompressionFor(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write diagnostics %s: %w", path, err)
	}
	return nil
}

// Read 读取 Write 写出的文件并还原为文本
func Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decompress(data, CompressionFor(path))
}

// Compress 压缩数据，文件格式就是标准的 lz4 frame / zstd frame，可以直接用命令行工具解开
func Compress(data []byte, compressionType CompressionType) ([]byte, error) {
	switch compressionType {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		return compressLZ4(data)
	case CompressionZSTD:
		return compressZSTD(data)
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

// Decompress 解压缩数据
func Decompress(data []byte, compressionType CompressionType) ([]byte, error) {
	switch compressionType {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		return decompressLZ4(data)
	case CompressionZSTD:
		return decompressZSTD(data)
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("lz4 compress write error: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress close error: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	reader := lz4.NewReader(bytes.NewReader(data))
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, fmt.Errorf("lz4 decompress error: %w", err)
	}
	return buf.Bytes(), nil
}

func compressZSTD(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder creation error: %w", err)
	}
	defer func() {
		if err := encoder.Close(); err != nil {
			logger.Logger.Debug().Err(err).Msg("failed to close zstd encoder")
		}
	}()
	return encoder.EncodeAll(data, nil), nil
}

func decompressZSTD(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder creation error: %w", err)
	}
	defer decoder.Close()

	decompressed, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress error: %w", err)
	}
	return decompressed, nil
}

package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zeebo/assert"

	"github.com/lbp0200/sentinelcheck/internal/sentinel"
)

func sampleDiagnostics() sentinel.Diagnostics {
	return sentinel.Diagnostics{Reports: []sentinel.EndpointReport{
		{
			Endpoint: sentinel.Endpoint{Host: "sentinel-1", Port: 26379},
			Info:     strings.Repeat("master0:name=mymaster,status=ok,address=10.0.0.5:6379,slaves=2,sentinels=3\n", 20),
			Masters:  "[name mymaster ip 10.0.0.5 port 6379]",
			Replicas: "[[name 10.0.0.6:6379 ip 10.0.0.6 port 6379 flags slave]]",
		},
		{
			Endpoint: sentinel.Endpoint{Host: "sentinel-2", Port: 26379},
			Err:      errors.New("dial tcp: connection refused"),
		},
	}}
}

func TestCompressionFor(t *testing.T) {
	assert.Equal(t, CompressionLZ4, CompressionFor("diag.lz4"))
	assert.Equal(t, CompressionZSTD, CompressionFor("/tmp/diag.ZST"))
	assert.Equal(t, CompressionZSTD, CompressionFor("diag.zstd"))
	assert.Equal(t, CompressionNone, CompressionFor("diag.txt"))
	assert.Equal(t, CompressionNone, CompressionFor("diag"))
}

func TestWriteRead(t *testing.T) {
	diag := sampleDiagnostics()
	var want bytes.Buffer
	assert.NoError(t, diag.Render(&want))

	for _, name := range []string{"diag.txt", "diag.lz4", "diag.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			assert.NoError(t, Write(path, diag))

			got, err := Read(path)
			assert.NoError(t, err)
			assert.Equal(t, want.String(), string(got))
		})
	}
}

func TestWriteCompresses(t *testing.T) {
	diag := sampleDiagnostics()
	dir := t.TempDir()
	plain := filepath.Join(dir, "diag.txt")
	packed := filepath.Join(dir, "diag.zst")
	assert.NoError(t, Write(plain, diag))
	assert.NoError(t, Write(packed, diag))

	a, err := os.Stat(plain)
	assert.NoError(t, err)
	b, err := os.Stat(packed)
	assert.NoError(t, err)
	assert.True(t, b.Size() < a.Size())

	raw, err := os.ReadFile(plain)
	assert.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "--- sentinel sentinel-2:26379 ---\nerror: dial tcp: connection refused"))
}

func TestCompressUnsupported(t *testing.T) {
	_, err := Compress([]byte("x"), "gzip")
	assert.Error(t, err)
	_, err = Decompress([]byte("x"), "gzip")
	assert.Error(t, err)
}

func TestDecompressCorrupt(t *testing.T) {
	_, err := Decompress([]byte("not compressed at all"), CompressionZSTD)
	assert.Error(t, err)
}

func TestWriteMissingDir(t *testing.T) {
	err := Write(filepath.Join(t.TempDir(), "missing", "diag.txt"), sampleDiagnostics())
	assert.Error(t, err)
}

package sentinel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/zeebo/assert"

	"github.com/lbp0200/sentinelcheck/internal/sentineltest"
)

func masterOf(t *testing.T, s *sentineltest.Server) Address {
	t.Helper()
	return Address{Host: s.Host(), Port: s.Port()}
}

func TestVerifyRoundTrip(t *testing.T) {
	s := sentineltest.Start(t)
	s.RequirePass("bitnami")
	v := NewVerifier(NewDataDialer(Credentials{Password: "bitnami"}, time.Second), "", time.Second)

	payloads := [][]byte{
		[]byte("ping-1"),
		[]byte("Kết nối thành công đến Redis thông qua Sentinel!"),
		{0x00, 0xff, '\r', '\n', 0x01},
	}
	for _, payload := range payloads {
		// 重复多次结果一致
		for i := 0; i < 3; i++ {
			res, err := v.Verify(context.Background(), masterOf(t, s), payload)
			assert.NoError(t, err)
			assert.True(t, bytes.Equal(payload, res.Value))
			assert.Equal(t, DefaultProbeKey, res.Key)
			assert.Equal(t, masterOf(t, s), res.Master)
		}
		stored, ok := s.Value(DefaultProbeKey)
		assert.True(t, ok)
		assert.True(t, bytes.Equal(payload, stored))
	}
}

func TestVerifyCustomKey(t *testing.T) {
	s := sentineltest.Start(t)
	v := NewVerifier(NewDataDialer(Credentials{}, time.Second), "health:probe", time.Second)

	_, err := v.Verify(context.Background(), masterOf(t, s), []byte("ping-2"))
	assert.NoError(t, err)
	_, ok := s.Value("health:probe")
	assert.True(t, ok)
}

func TestVerifyFailures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(s *sentineltest.Server)
		password string
		payload  []byte
		wantKind Kind
	}{
		{
			name:     "empty payload",
			payload:  []byte{},
			wantKind: KindProbe,
		},
		{
			name: "value mismatch",
			setup: func(s *sentineltest.Server) {
				s.SetMangle(func(b []byte) []byte { return append(b, '!') })
			},
			payload:  []byte("ping-1"),
			wantKind: KindProbe,
		},
		{
			name: "value missing",
			setup: func(s *sentineltest.Server) {
				s.SetMangle(func([]byte) []byte { return nil })
			},
			payload:  []byte("ping-1"),
			wantKind: KindProbe,
		},
		{
			name:     "read only replica",
			setup:    func(s *sentineltest.Server) { s.SetReadOnly(true) },
			payload:  []byte("ping-1"),
			wantKind: KindProbe,
		},
		{
			name:     "wrong password",
			setup:    func(s *sentineltest.Server) { s.RequirePass("bitnami") },
			password: "sentinel_password",
			payload:  []byte("ping-1"),
			wantKind: KindAuth,
		},
		{
			name:     "password missing",
			setup:    func(s *sentineltest.Server) { s.RequirePass("bitnami") },
			payload:  []byte("ping-1"),
			wantKind: KindAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sentineltest.Start(t)
			if tt.setup != nil {
				tt.setup(s)
			}
			v := NewVerifier(NewDataDialer(Credentials{Password: tt.password}, time.Second), "", time.Second)

			_, err := v.Verify(context.Background(), masterOf(t, s), tt.payload)
			assert.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
		})
	}
}

func TestVerifyMismatchCarriesValues(t *testing.T) {
	s := sentineltest.Start(t)
	s.SetMangle(func([]byte) []byte { return []byte("stale") })
	v := NewVerifier(NewDataDialer(Credentials{}, time.Second), "", time.Second)

	_, err := v.Verify(context.Background(), masterOf(t, s), []byte("ping-3"))
	var pe *ProbeError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "ping-3", string(pe.Want))
	assert.Equal(t, "stale", string(pe.Got))
	assert.Equal(t, "value mismatch", pe.Reason)
}

func TestVerifyUnreachable(t *testing.T) {
	ep, err := ParseEndpoint(sentineltest.ClosedAddr(t))
	assert.NoError(t, err)
	v := NewVerifier(NewDataDialer(Credentials{}, 200*time.Millisecond), "", 200*time.Millisecond)

	_, err = v.Verify(context.Background(), Address{Host: ep.Host, Port: ep.Port}, []byte("ping-1"))
	var ce *ConnectionError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, fmt.Sprintf("%s:%d", ep.Host, ep.Port), ce.Addr)
}

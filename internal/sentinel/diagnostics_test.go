package sentinel

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zeebo/assert"

	"github.com/lbp0200/sentinelcheck/internal/sentineltest"
)

func TestCollectIsolatesFailures(t *testing.T) {
	healthy := &fakeSentinel{raw: map[string]interface{}{
		"info sentinel":            "# Sentinel\r\nsentinel_masters:1\r\n",
		"sentinel masters":         []interface{}{[]interface{}{"name", "mymaster"}},
		"sentinel slaves mymaster": []interface{}{},
	}}
	fc := newFakeCluster(
		&fakeSentinel{rawErr: errRefused},
		healthy,
		&fakeSentinel{rawErr: errors.New("WRONGPASS invalid username-password pair")},
	)
	c := NewCollector(fc.endpoints, "mymaster", fc.dial, time.Second)

	diag := c.Collect(context.Background())
	assert.Equal(t, 3, len(diag.Reports))
	assert.Equal(t, KindConnection, KindOf(diag.Reports[0].Err))
	assert.NoError(t, diag.Reports[1].Err)
	assert.True(t, strings.Contains(diag.Reports[1].Info, "sentinel_masters:1"))
	assert.Equal(t, "[[name mymaster]]", diag.Reports[1].Masters)
	assert.Equal(t, "[]", diag.Reports[1].Replicas)
	assert.Error(t, diag.Reports[2].Err)
	assert.Equal(t, 3, healthy.calls)
	assert.Equal(t, 1, healthy.closed)

	var pf *DiagnosticsPartialFailure
	assert.True(t, errors.As(diag.Err(), &pf))
	assert.Equal(t, 2, pf.Failed)
	assert.Equal(t, 3, pf.Total)
	assert.Equal(t, KindDiagnostics, KindOf(diag.Err()))
}

func TestDiagnosticsRender(t *testing.T) {
	diag := Diagnostics{Reports: []EndpointReport{
		{Endpoint: Endpoint{Host: "sentinel-1", Port: 26379}, Info: "# Sentinel", Masters: "[]", Replicas: "[]"},
		{Endpoint: Endpoint{Host: "sentinel-2", Port: 26379}, Err: errors.New("boom")},
	}}
	var buf bytes.Buffer
	assert.NoError(t, diag.Render(&buf))

	out := buf.String()
	assert.True(t, strings.Contains(out, "--- sentinel sentinel-1:26379 ---"))
	assert.True(t, strings.Contains(out, "# Sentinel"))
	assert.True(t, strings.Contains(out, "--- sentinel sentinel-2:26379 ---\nerror: boom"))
	assert.NoError(t, Diagnostics{}.Err())
}

func TestCollectAgainstSentinels(t *testing.T) {
	s := sentineltest.Start(t)
	s.RequirePass("sentinel_password")
	s.Monitor("mymaster", "10.0.0.5", 6379, sentineltest.Replica{IP: "10.0.0.6", Port: 6379})

	endpoints := []Endpoint{endpointOf(t, s), closedEndpoint(t)}
	dial := NewControlDialer(Credentials{Password: "sentinel_password"}, time.Second)

	diag := NewCollector(endpoints, "mymaster", dial, time.Second).Collect(context.Background())
	assert.Equal(t, 2, len(diag.Reports))

	ok := diag.Reports[0]
	assert.NoError(t, ok.Err)
	assert.True(t, strings.Contains(ok.Info, "master0:name=mymaster"))
	assert.True(t, strings.Contains(ok.Masters, "mymaster"))
	assert.True(t, strings.Contains(ok.Replicas, "10.0.0.6"))
	assert.Equal(t, KindConnection, KindOf(diag.Reports[1].Err))

	cmds := strings.Join(s.Commands(), ",")
	assert.True(t, strings.Contains(cmds, "info,sentinel masters,sentinel slaves"))
}

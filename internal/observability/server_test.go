package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "sanctionsbot/pkg/logx"
)

func get(t *testing.T, h http.Handler, path, auth string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMetricsEndpoint(t *testing.T) {
	m := NewMetrics()
	m.ObserveRun("published", 3, 1, 1200, 2*time.Second, true)
	m.IncPublishFailure("twitter")

	s := NewServer(Config{}, m, nil, logx.Nop())
	rec := get(t, s.Handler(Config{}), "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	assert.Contains(t, text, `sanctionsbot_runs_total{outcome="published"} 1`)
	assert.Contains(t, text, "sanctionsbot_entries_added_total 3")
	assert.Contains(t, text, `sanctionsbot_publish_failures_total{platform="twitter"} 1`)
	assert.Contains(t, text, "sanctionsbot_list_entries 1200")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.EntriesRemoved))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRun("failed", 0, 0, 0, time.Second, false)
	m.IncPublishFailure("telegram")
	assert.NotNil(t, m.Gatherer())
}

func TestHealthz(t *testing.T) {
	healthy := NewServer(Config{}, nil, func() (map[string]any, error) {
		return map[string]any{"last_outcome": "no_change"}, nil
	}, logx.Nop())
	rec := get(t, healthy.Handler(Config{}), "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"last_outcome":"no_change"`)

	sick := NewServer(Config{}, nil, func() (map[string]any, error) {
		return nil, errors.New("storage unreachable")
	}, logx.Nop())
	rec = get(t, sick.Handler(Config{}), "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "storage unreachable")
}

func TestTokenRequired(t *testing.T) {
	cfg := Config{Token: "s3cret", Pprof: true}
	h := NewServer(cfg, NewMetrics(), nil, logx.Nop()).Handler(cfg)

	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/metrics", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/metrics", "Bearer wrong").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/metrics", "Bearer s3cret").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz?token=s3cret", "").Code)

	rec := get(t, h, "/debug/pprof/", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "goroutine"))
}

func TestPprofDisabledByDefault(t *testing.T) {
	h := NewServer(Config{}, nil, nil, logx.Nop()).Handler(Config{})
	assert.Equal(t, http.StatusNotFound, get(t, h, "/debug/pprof/", "").Code)
}

func TestIsLoopbackAddr(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:9464": true,
		"localhost:9464": true,
		"[::1]:9464":     true,
		":9464":          false,
		"0.0.0.0:9464":   false,
		"10.0.0.5:9464":  false,
		"garbage":        false,
	}
	for addr, want := range cases {
		assert.Equal(t, want, IsLoopbackAddr(addr), addr)
	}
}

package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"sanctionsbot/internal/publisher"
	"sanctionsbot/internal/task/scheduler"
	logx "sanctionsbot/pkg/logx"
)

// listServer serves a one-entry list and counts requests.
func listServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if status != http.StatusOK {
			http.Error(w, http.StatusText(status), status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"name":"A","source":"S1"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func writeServeConfig(t *testing.T, path, url, dir, schedule, extra string) {
	t.Helper()
	body := `
source:
  url: ` + url + `
storage:
  driver: file
  path: ` + filepath.Join(dir, "state.json") + `
logging:
  level: error
scheduler:
  enabled: true
  schedule: "` + schedule + `"
` + extra
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestServeRunsImmediatelyThenOnSchedule(t *testing.T) {
	clearEnv(t)
	src, hits := listServer(t, http.StatusOK)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeServeConfig(t, cfgPath, src.URL, dir, "@every 1s", "")

	a, err := New(context.Background(), Options{ConfigPath: cfgPath, DryRun: true})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()
	require.NoError(t, a.Serve(ctx))

	assert.GreaterOrEqual(t, hits.Load(), int32(2), "first run plus at least one scheduled run")
	assert.FileExists(t, filepath.Join(dir, "state.json"))
}

func TestServeFailsWhenFirstRunFails(t *testing.T) {
	clearEnv(t)
	src, hits := listServer(t, http.StatusNotFound)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeServeConfig(t, cfgPath, src.URL, dir, "@every 1s", "")

	a, err := New(context.Background(), Options{ConfigPath: cfgPath, DryRun: true})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = a.Serve(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial run")
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), hits.Load())
	assert.NoFileExists(t, filepath.Join(dir, "state.json"))
}

func TestServeAppliesReloadedConfig(t *testing.T) {
	clearEnv(t)
	src, _ := listServer(t, http.StatusOK)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeServeConfig(t, cfgPath, src.URL, dir, "@every 1h", "")

	a, err := New(context.Background(), Options{ConfigPath: cfgPath, DryRun: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := a.runner.Last()
		return ok && !a.sched.Next().IsZero()
	}, 5*time.Second, 20*time.Millisecond)

	policy := func() (string, bool) {
		a.runner.cfgMu.RLock()
		defer a.runner.cfgMu.RUnlock()
		return a.runner.separator, a.runner.persistOnFailure
	}
	sep, persist := policy()
	assert.Empty(t, sep)
	assert.True(t, persist)

	writeServeConfig(t, cfgPath, src.URL, dir, "@every 30m", `
format:
  separator: " / "
run:
  persist_on_publish_failure: false
`)

	require.Eventually(t, func() bool {
		sep, persist := policy()
		return sep == " / " && !persist
	}, 10*time.Second, 50*time.Millisecond, "runner policy was not reconfigured")
	require.Eventually(t, func() bool {
		next := a.sched.Next()
		return !next.IsZero() && time.Until(next) <= 30*time.Minute
	}, 5*time.Second, 20*time.Millisecond, "schedule was not re-registered")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestHealthDegradedWhenSnapshotWithheld(t *testing.T) {
	f := newFixture(t)
	prev := snap(e("A", "S1"))
	cur := snap(e("A", "S1"), e("B", "S1"))
	f.fetch.EXPECT().Fetch(gomock.Any()).Return(cur, nil)
	f.store.EXPECT().Load(gomock.Any()).Return(prev, true, nil)
	f.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).
		Return(&publisher.PublishError{Platform: "twitter", Status: 503, Message: "Service Unavailable"})

	r := f.runner(WithPersistOnPublishFailure(false))
	_, err := r.Run(context.Background())
	require.Error(t, err)

	a := &App{runner: r, sched: scheduler.New(scheduler.Config{}, logx.Nop())}
	out, err := a.health()
	require.Error(t, err)
	assert.Equal(t, false, out["last_persisted"])
	assert.Equal(t, OutcomePublishFailed, out["last_outcome"])
}

func TestRunHealth(t *testing.T) {
	tests := []struct {
		name    string
		rep     RunReport
		healthy bool
	}{
		{"published", RunReport{Outcome: OutcomePublished, Persisted: true}, true},
		{"no change", RunReport{Outcome: OutcomeNoChange, Persisted: true}, true},
		{"partial persisted", RunReport{Outcome: OutcomePartial, Persisted: true}, true},
		{"partial withheld", RunReport{Outcome: OutcomePartial}, false},
		{"publish failed persisted", RunReport{Outcome: OutcomePublishFailed, Persisted: true}, false},
		{"failed", RunReport{Outcome: OutcomeFailed}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runHealth(tt.rep)
			if tt.healthy {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

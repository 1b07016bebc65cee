package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sanctionsbot/internal/watchlist"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"SANCTIONSBOT_LIST_URL", "SANCTIONSBOT_STORAGE_DRIVER", "SANCTIONSBOT_STORAGE_PATH",
		"SANCTIONSBOT_STORAGE_URL", "SANCTIONSBOT_LOG_LEVEL", "SANCTIONSBOT_TIMEZONE", "SANCTIONSBOT_SCHEDULE",
		"CONSUMER_KEY", "CONSUMER_SECRET", "ACCESS_TOKEN", "ACCESS_TOKEN_SECRET",
		"TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID",
	} {
		t.Setenv(k, "")
	}
}

func TestRunOnceEndToEnd(t *testing.T) {
	clearEnv(t)

	var body atomic.Value
	body.Store(`{"results":[{"name":"A","source":"S1"}]}`)
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body.Load().(string)))
	}))
	defer src.Close()

	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
source:
  url: `+src.URL+`
storage:
  driver: file
  path: `+statePath+`
logging:
  level: error
`), 0o600))

	ctx := context.Background()
	a, err := New(ctx, Options{ConfigPath: cfgPath, DryRun: true})
	require.NoError(t, err)
	defer a.Stop(ctx, StopRunOnce)

	rep, err := a.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBootstrap, rep.Outcome)
	assert.FileExists(t, statePath)

	body.Store(`{"results":[{"name":"A","source":"S1"},{"name":"B","source":"S2"}]}`)
	rep, err = a.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomePublished, rep.Outcome)
	assert.Equal(t, []string{"log"}, rep.Published)
	assert.Equal(t, 1, rep.Added)

	b, err := os.ReadFile(statePath)
	require.NoError(t, err)
	saved, err := watchlist.DecodeSnapshot(b)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Len())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	clearEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"storage":{"driver":"etcd"}}`), 0o600))

	_, err := New(context.Background(), Options{ConfigPath: cfgPath})
	assert.ErrorContains(t, err, "unknown storage.driver")
}

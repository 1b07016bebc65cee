package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sanctionsbot/internal/watchlist"
	logx "sanctionsbot/pkg/logx"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchResults(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"results":[{"name":"Acme","source":"OFAC","type":"Entity"},{"name":"Beta","source":"BIS"}]}`)

	snap, err := New(Config{URL: srv.URL}, logx.Nop()).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []watchlist.Entry{{Name: "Acme", Source: "OFAC"}, {Name: "Beta", Source: "BIS"}}, snap.Entries)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestFetchTopLevelArray(t *testing.T) {
	srv := serve(t, http.StatusOK, `[{"name":"Acme","source":"OFAC"}]`)

	snap, err := New(Config{URL: srv.URL}, logx.Nop()).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Len())
}

func TestFetchNon2xxIsNetworkError(t *testing.T) {
	srv := serve(t, http.StatusServiceUnavailable, "maintenance")

	_, err := New(Config{URL: srv.URL}, logx.Nop()).Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Status)
	assert.Equal(t, "maintenance", se.Body)
}

func TestFetchBadShapeIsParseError(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"message":"ok"}`)

	_, err := New(Config{URL: srv.URL}, logx.Nop()).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrParse)
	assert.NotErrorIs(t, err, ErrNetwork)
}

func TestFetchUnreachableIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(Config{URL: url}, logx.Nop()).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}

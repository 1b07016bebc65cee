// Package fetcher downloads the published screening list.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sanctionsbot/internal/watchlist"
	logx "sanctionsbot/pkg/logx"
)

var (
	// ErrNetwork covers transport failures and non-2xx responses.
	ErrNetwork = errors.New("list fetch failed")
	// ErrParse means the response did not have the expected shape.
	ErrParse = errors.New("list parse failed")
)

// maxBody caps the response size; the consolidated list is tens of MB.
const maxBody = 512 << 20

type Config struct {
	URL       string
	Timeout   time.Duration // default 60s
	UserAgent string
}

// HTTP fetches the list with a plain GET. It never retries; the next
// scheduled run is the retry.
type HTTP struct {
	cfg    Config
	client *http.Client
	log    logx.Logger
	now    func() time.Time
}

func New(cfg Config, log logx.Logger) *HTTP {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = "sanctionsbot/1.0"
	}
	return &HTTP{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
		now:    time.Now,
	}
}

// StatusError carries the HTTP status of a non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrNetwork }

func (f *HTTP) Fetch(ctx context.Context) (watchlist.Snapshot, error) {
	start := f.now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, http.NoBody)
	if err != nil {
		return watchlist.Snapshot{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return watchlist.Snapshot{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return watchlist.Snapshot{}, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return watchlist.Snapshot{}, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}

	entries, err := watchlist.ParseResponse(body)
	if err != nil {
		return watchlist.Snapshot{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	f.log.Debug("list fetched",
		logx.String("url", f.cfg.URL),
		logx.Int("entries", len(entries)),
		logx.Int("bytes", len(body)),
		logx.Duration("took", f.now().Sub(start)),
	)
	return watchlist.Snapshot{FetchedAt: start.UTC(), Entries: entries}, nil
}

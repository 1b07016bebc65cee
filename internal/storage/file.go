package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"sanctionsbot/internal/watchlist"
	logx "sanctionsbot/pkg/logx"
)

// fileStore keeps the snapshot in a single JSON file. Writes go to a temp file
// in the same directory and are renamed into place, so a crash mid-write
// leaves the previous snapshot intact.
type fileStore struct {
	log  logx.Logger
	path string

	mu sync.Mutex
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, wrap("open", errors.New("storage.path is required for file driver"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, wrap("open", err)
	}
	return &fileStore{log: log, path: path}, nil
}

func (s *fileStore) Load(ctx context.Context) (watchlist.Snapshot, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return watchlist.Snapshot{}, false, nil
	}
	if err != nil {
		return watchlist.Snapshot{}, false, wrap("read", err)
	}
	return decode(b)
}

func (s *fileStore) Save(ctx context.Context, snap watchlist.Snapshot) error {
	_ = ctx
	b, err := snap.Encode()
	if err != nil {
		return wrap("encode", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return wrap("write", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		cleanup()
		return wrap("write", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return wrap("sync", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return wrap("write", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return wrap("rename", err)
	}
	s.log.Debug("snapshot saved", logx.String("path", s.path), logx.Int("entries", snap.Len()), logx.Int("bytes", len(b)))
	return nil
}

func (s *fileStore) Close() error { return nil }

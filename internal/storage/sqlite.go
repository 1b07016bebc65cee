package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sanctionsbot/internal/watchlist"
	logx "sanctionsbot/pkg/logx"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
	key string
}

func openSQLite(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, wrap("open", errors.New("sqlite path is required"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, wrap("open", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrap("open", err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous = NORMAL")

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, wrap("migrate", err)
	}
	return &sqliteStore{db: db, log: log, key: cfg.Key}, nil
}

func (s *sqliteStore) Load(ctx context.Context) (watchlist.Snapshot, bool, error) {
	var b []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, s.key).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return watchlist.Snapshot{}, false, nil
	}
	if err != nil {
		return watchlist.Snapshot{}, false, wrap("select", err)
	}
	return decode(b)
}

func (s *sqliteStore) Save(ctx context.Context, snap watchlist.Snapshot) error {
	b, err := snap.Encode()
	if err != nil {
		return wrap("encode", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv(key, value, updated_at) VALUES(?,?,?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		s.key, b, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return wrap("upsert", err)
	}
	s.log.Debug("snapshot saved", logx.String("key", s.key), logx.Int("entries", snap.Len()))
	return nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

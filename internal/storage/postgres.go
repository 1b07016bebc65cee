package storage

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sanctionsbot/internal/watchlist"
	logx "sanctionsbot/pkg/logx"
)

//go:embed schema_postgres.sql
var postgresSchema string

type postgresStore struct {
	pool *pgxpool.Pool
	log  logx.Logger
	key  string
}

func openPostgres(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, wrap("open", errors.New("storage.url is required for postgres driver"))
	}
	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, wrap("postgres connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrap("postgres ping", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, wrap("migrate", err)
	}
	return &postgresStore{pool: pool, log: log, key: cfg.Key}, nil
}

func (s *postgresStore) Load(ctx context.Context) (watchlist.Snapshot, bool, error) {
	var b []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv WHERE key = $1`, s.key).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
		return watchlist.Snapshot{}, false, nil
	}
	if err != nil {
		return watchlist.Snapshot{}, false, wrap("select", err)
	}
	return decode(b)
}

func (s *postgresStore) Save(ctx context.Context, snap watchlist.Snapshot) error {
	b, err := snap.Encode()
	if err != nil {
		return wrap("encode", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO kv(key, value, updated_at) VALUES($1, $2, now())
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.key, b,
	)
	if err != nil {
		return wrap("upsert", err)
	}
	s.log.Debug("snapshot saved", logx.String("key", s.key), logx.Int("entries", snap.Len()))
	return nil
}

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}

package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	"sanctionsbot/internal/watchlist"
	logx "sanctionsbot/pkg/logx"
)

type redisStore struct {
	client *redis.Client
	log    logx.Logger
	key    string
}

func openRedis(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, wrap("open", errors.New("storage.url is required for redis driver"))
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, wrap("parse redis url", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, wrap("redis ping", err)
	}
	return NewRedis(client, cfg.Key, log), nil
}

// NewRedis wraps an existing client. The store owns the client and closes it.
func NewRedis(client *redis.Client, key string, log logx.Logger) Store {
	if strings.TrimSpace(key) == "" {
		key = defaultKey
	}
	return &redisStore{client: client, log: log, key: key}
}

func (s *redisStore) Load(ctx context.Context) (watchlist.Snapshot, bool, error) {
	b, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return watchlist.Snapshot{}, false, nil
	}
	if err != nil {
		return watchlist.Snapshot{}, false, wrap("redis get", err)
	}
	return decode(b)
}

func (s *redisStore) Save(ctx context.Context, snap watchlist.Snapshot) error {
	b, err := snap.Encode()
	if err != nil {
		return wrap("encode", err)
	}
	// No TTL: the snapshot lives until the next run replaces it.
	if err := s.client.Set(ctx, s.key, b, 0).Err(); err != nil {
		return wrap("redis set", err)
	}
	s.log.Debug("snapshot saved", logx.String("key", s.key), logx.Int("entries", snap.Len()))
	return nil
}

func (s *redisStore) Close() error { return s.client.Close() }

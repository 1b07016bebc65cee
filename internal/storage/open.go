package storage

import (
	"context"
	"fmt"
	"strings"

	"sanctionsbot/internal/watchlist"
	logx "sanctionsbot/pkg/logx"
)

// Open initializes the configured store.
func Open(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.Key) == "" {
		cfg.Key = defaultKey
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(ctx, cfg, log)
	case "redis":
		return openRedis(ctx, cfg, log)
	case "postgres", "postgresql":
		return openPostgres(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("%w: unknown storage driver: %s", ErrStorage, cfg.Driver)
	}
}

func wrap(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

// decode turns a stored blob into a snapshot; a corrupt blob is a storage
// failure, not "not found".
func decode(b []byte) (watchlist.Snapshot, bool, error) {
	snap, err := watchlist.DecodeSnapshot(b)
	if err != nil {
		return watchlist.Snapshot{}, false, wrap("decode", err)
	}
	return snap, true, nil
}

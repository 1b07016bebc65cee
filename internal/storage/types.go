package storage

import (
	"context"
	"errors"
	"time"

	"sanctionsbot/internal/watchlist"
)

// ErrStorage wraps every backend failure other than "not found".
var ErrStorage = errors.New("storage error")

// Store is the snapshot persistence contract.
//
// Load returns ok=false with a nil error when nothing has been saved yet.
type Store interface {
	Load(ctx context.Context) (snap watchlist.Snapshot, ok bool, err error)
	Save(ctx context.Context, snap watchlist.Snapshot) error
	Close() error
}

// Config configures storage.
//
// Driver values: "file" (default), "sqlite", "redis", "postgres".
type Config struct {
	Driver      string
	Path        string
	URL         string
	Key         string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

const defaultKey = "previous_state"

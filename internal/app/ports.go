package app

import (
	"context"

	"sanctionsbot/internal/publisher"
	"sanctionsbot/internal/watchlist"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks sanctionsbot/internal/app Fetcher,SnapshotStore,Publisher

// Fetcher retrieves the current list.
type Fetcher interface {
	Fetch(ctx context.Context) (watchlist.Snapshot, error)
}

// SnapshotStore persists the last observed list. Load reports ok=false when
// nothing was saved yet.
type SnapshotStore interface {
	Load(ctx context.Context) (watchlist.Snapshot, bool, error)
	Save(ctx context.Context, snap watchlist.Snapshot) error
}

// Publisher posts formatted chunks to one platform.
type Publisher interface {
	publisher.Publisher
}

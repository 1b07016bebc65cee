package publisher

import (
	"context"
	"errors"
	"time"

	"sanctionsbot/internal/watchlist"
	logx "sanctionsbot/pkg/logx"
)

// Delivery is the outcome of one publisher in a fan-out.
type Delivery struct {
	Platform string
	Chunks   int
	Took     time.Duration
	Err      error
}

// Fanout formats a diff for each publisher's limit and posts it to all of
// them. Publishers are independent: one failing never stops the others.
type Fanout struct {
	pubs []Publisher
	sep  string
	log  logx.Logger
}

func NewFanout(log logx.Logger, separator string, pubs ...Publisher) *Fanout {
	return &Fanout{pubs: pubs, sep: separator, log: log}
}

func (f *Fanout) Len() int { return len(f.pubs) }

// Publish posts d everywhere and returns the per-platform deliveries plus the
// joined errors (nil when every publisher succeeded).
func (f *Fanout) Publish(ctx context.Context, d watchlist.Diff) ([]Delivery, error) {
	out := make([]Delivery, 0, len(f.pubs))
	var errs []error
	for _, p := range f.pubs {
		chunks := watchlist.Formatter{MaxLen: p.MaxLen(), Separator: f.sep}.Format(d)
		if len(chunks) == 0 {
			continue
		}
		start := time.Now()
		err := p.Publish(ctx, chunks)
		del := Delivery{Platform: p.Name(), Chunks: len(chunks), Took: time.Since(start), Err: err}
		out = append(out, del)

		if err != nil {
			f.log.Warn("publish failed",
				logx.String("platform", del.Platform),
				logx.Int("chunks", del.Chunks),
				logx.Err(err))
			errs = append(errs, err)
			continue
		}
		f.log.Info("published",
			logx.String("platform", del.Platform),
			logx.Int("chunks", del.Chunks),
			logx.Duration("took", del.Took))
	}
	return out, errors.Join(errs...)
}

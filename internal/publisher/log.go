package publisher

import (
	"context"

	"sanctionsbot/internal/watchlist"
	logx "sanctionsbot/pkg/logx"
)

// Log is the dry-run publisher: chunks go to the log instead of a platform.
type Log struct {
	log    logx.Logger
	maxLen int
}

func NewLog(log logx.Logger, maxLen int) *Log {
	if maxLen <= 0 {
		maxLen = watchlist.DefaultMaxLen
	}
	return &Log{log: log, maxLen: maxLen}
}

func (l *Log) Name() string { return "log" }
func (l *Log) MaxLen() int  { return l.maxLen }

func (l *Log) Publish(ctx context.Context, chunks []string) error {
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.log.Info("dry-run post", logx.Int("index", i), logx.Int("of", len(chunks)), logx.String("text", c))
	}
	return nil
}

// Package publisher delivers formatted diff messages to social platforms.
package publisher

import (
	"context"
	"fmt"
)

// Publisher posts an ordered list of chunks to one platform.
//
// MaxLen is the platform's per-post limit in characters; the caller formats
// chunks to fit it. When the backend threads, chunk i>0 replies to chunk i-1.
// Publish stops at the first failing chunk and does not retry.
type Publisher interface {
	Name() string
	MaxLen() int
	Publish(ctx context.Context, chunks []string) error
}

// PublishError is a platform rejection or transport failure for one chunk.
type PublishError struct {
	Platform string
	Status   int // HTTP or platform error code; 0 for transport failures
	Message  string
	Index    int // chunk that failed
	Err      error
}

func (e *PublishError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: chunk %d: status %d: %s", e.Platform, e.Index, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: chunk %d: %s", e.Platform, e.Index, e.Message)
}

func (e *PublishError) Unwrap() error { return e.Err }

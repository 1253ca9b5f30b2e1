package relay

import (
	"context"
	"time"
)

// SeenStore is the durable set of identifiers that have already been notified.
type SeenStore interface {
	HasSeen(ctx context.Context, id int64) (bool, error)
	// MarkSeen records id. Recording an id twice is not an error.
	MarkSeen(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
	Close() error
}

// Session is a long-lived rendering session that can be health-checked and reopened.
type Session interface {
	IsHealthy(ctx context.Context) bool
	Reopen(ctx context.Context) error
	// Render navigates to url, waits settle, and returns the rendered document HTML.
	Render(ctx context.Context, url string, settle time.Duration) (string, error)
	Close()
}

// Fetcher performs a single attempt against the source.
type Fetcher interface {
	FetchOnce(ctx context.Context) FetchOutcome
}

// ItemFetcher returns the current timeline, or nil when every attempt failed.
type ItemFetcher interface {
	FetchWithRetry(ctx context.Context) []Item
}

// ItemNotifier forwards one item to the notification endpoint.
type ItemNotifier interface {
	NotifyItem(ctx context.Context, item Item) (int, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Sleeper blocks for a duration or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

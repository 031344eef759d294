package domain

import (
	"context"
	"time"
)

// SignalBus provides fan-out messaging between components, plus a durable
// stream for consumers that cannot afford to miss events.
type SignalBus interface {
	// Publish sends a payload to all current subscribers of the channel.
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns a receive channel for the named channels. The
	// returned channel is closed when ctx is cancelled.
	Subscribe(ctx context.Context, channels ...string) (<-chan StreamMessage, error)
	// StreamAppend appends a payload to a durable stream and returns the
	// entry ID assigned by the backend.
	StreamAppend(ctx context.Context, stream string, payload []byte) (string, error)
	// StreamRead reads up to count entries after the given ID, blocking up
	// to block before returning what is available.
	StreamRead(ctx context.Context, stream, afterID string, count int64, block time.Duration) ([]StreamMessage, error)
}

// StreamMessage is one message received from the bus.
type StreamMessage struct {
	Channel string
	ID      string
	Payload []byte
}

// LockManager serializes ledger operations across replicas. A held lock must
// expire on its own if the holder dies.
type LockManager interface {
	// Acquire attempts to take the named lock for ttl. It returns a release
	// function on success, or ErrLockHeld if another holder has it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, err error)
}

// RateLimiter answers whether a key (typically a client IP) is within its
// request budget.
type RateLimiter interface {
	// Allow records a hit for key and reports whether it is within limit
	// requests per window.
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// OptionCache is a read-through cache for per-token option catalogs.
type OptionCache interface {
	GetCatalog(ctx context.Context, token string) ([]StakeOption, bool, error)
	SetCatalog(ctx context.Context, token string, opts []StakeOption, ttl time.Duration) error
	Invalidate(ctx context.Context, token string) error
}

package domain

import (
	"context"
	"time"
)

// TopicCache caches topic records for read-heavy dashboard queries. Cache
// errors are advisory; callers fall back to the store.
type TopicCache interface {
	Get(ctx context.Context, topicID uint64) (Topic, error)
	Set(ctx context.Context, topic Topic) error
	Invalidate(ctx context.Context, topicID uint64) error
}

// LockManager provides distributed mutual exclusion. Every state-changing
// instruction for a topic runs under the topic's lock, which is what
// serializes concurrent commits and gives submit_order its total order
// across replicas.
type LockManager interface {
	// Acquire obtains the lock for key, returning an unlock function, or
	// ErrLockHeld if another holder has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter applies sliding-window rate limits keyed by caller.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// StreamMessage is one entry read back from a durable event stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus distributes lifecycle events to interested consumers (the
// WebSocket hub, external dashboards). Publish/Subscribe is ephemeral
// fan-out; the stream methods keep a bounded durable journal of the same
// events for replay.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

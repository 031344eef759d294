package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// defaultStreamMaxLen is the approximate maximum length for Redis streams,
// enforced via XADD MAXLEN ~, when the caller does not configure one.
const defaultStreamMaxLen int64 = 10000

// SignalBus implements domain.SignalBus using Redis Pub/Sub for ephemeral
// fan-out and Redis Streams for durable, ordered delivery of ledger events.
type SignalBus struct {
	rdb          *redis.Client
	streamMaxLen int64
}

var _ domain.SignalBus = (*SignalBus)(nil)

// NewSignalBus creates a SignalBus backed by the given Client. streamMaxLen
// caps the durable stream length; zero or negative selects the default.
func NewSignalBus(c *Client, streamMaxLen int64) *SignalBus {
	if streamMaxLen <= 0 {
		streamMaxLen = defaultStreamMaxLen
	}
	return &SignalBus{rdb: c.Underlying(), streamMaxLen: streamMaxLen}
}

// Publish sends a raw byte payload to a Redis Pub/Sub channel.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe creates a Redis Pub/Sub subscription over the given channels and
// returns a read-only message channel. The subscription is closed when the
// context is cancelled; the returned channel is closed at that point as well.
func (sb *SignalBus) Subscribe(ctx context.Context, channels ...string) (<-chan domain.StreamMessage, error) {
	if len(channels) == 0 {
		return nil, errors.New("redis: subscribe: no channels")
	}

	pubsub := sb.rdb.Subscribe(ctx, channels...)

	// Verify the subscription is established by receiving the confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %v: %w", channels, err)
	}

	out := make(chan domain.StreamMessage, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				sm := domain.StreamMessage{
					Channel: msg.Channel,
					Payload: []byte(msg.Payload),
				}
				select {
				case out <- sm:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// StreamAppend appends a payload to a Redis stream using XADD with an
// approximate MAXLEN for automatic trimming, and returns the assigned ID.
func (sb *SignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) (string, error) {
	args := &redis.XAddArgs{
		Stream: stream,
		MaxLen: sb.streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"payload": payload,
		},
	}
	id, err := sb.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("redis: stream append %s: %w", stream, err)
	}
	return id, nil
}

// StreamRead reads up to count messages from a Redis stream starting after
// afterID. Use "0" or "0-0" to read from the beginning, or "$" to read only
// new messages. Blocks up to block when no messages are available, then
// returns an empty slice (not an error).
func (sb *SignalBus) StreamRead(ctx context.Context, stream, afterID string, count int64, block time.Duration) ([]domain.StreamMessage, error) {
	args := &redis.XReadArgs{
		Streams: []string{stream, afterID},
		Count:   count,
		Block:   block,
	}

	results, err := sb.rdb.XRead(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: stream read %s: %w", stream, err)
	}

	var messages []domain.StreamMessage
	for _, s := range results {
		for _, msg := range s.Messages {
			payload, ok := msg.Values["payload"]
			if !ok {
				continue
			}

			var data []byte
			switch v := payload.(type) {
			case string:
				data = []byte(v)
			case []byte:
				data = v
			default:
				continue
			}

			messages = append(messages, domain.StreamMessage{
				Channel: s.Stream,
				ID:      msg.ID,
				Payload: data,
			})
		}
	}

	return messages, nil
}

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/models"
)

// Broker publishes change events and hands out per-principal subscriptions.
type Broker interface {
	Publish(ctx context.Context, evt models.Event) error
	Subscribe(userID string) *Subscription
	Subscribers() int
	Run(ctx context.Context) error
}

// MemoryBroker delivers events within the current process only.
type MemoryBroker struct {
	hub *Hub
}

// NewMemoryBroker constructs an in-process broker.
func NewMemoryBroker(hub *Hub) *MemoryBroker {
	return &MemoryBroker{hub: hub}
}

// Publish dispatches the event directly to local subscribers.
func (b *MemoryBroker) Publish(_ context.Context, evt models.Event) error {
	b.hub.Dispatch(evt)
	return nil
}

// Subscribe registers a local subscriber.
func (b *MemoryBroker) Subscribe(userID string) *Subscription {
	return b.hub.Subscribe(userID)
}

// Subscribers returns the number of open subscriptions.
func (b *MemoryBroker) Subscribers() int {
	return b.hub.Subscribers()
}

// Run blocks until the context is cancelled.
func (b *MemoryBroker) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

const (
	relayMinBackoff = 500 * time.Millisecond
	relayMaxBackoff = 30 * time.Second
)

// RedisBroker relays events through a Redis pub/sub channel so every API
// instance sees every event.
type RedisBroker struct {
	client     *redis.Client
	channel    string
	hub        *Hub
	logger     *zap.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewRedisBroker constructs a broker bound to the given channel.
func NewRedisBroker(client *redis.Client, channel string, hub *Hub, logger *zap.Logger) *RedisBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBroker{
		client:     client,
		channel:    channel,
		hub:        hub,
		logger:     logger,
		minBackoff: relayMinBackoff,
		maxBackoff: relayMaxBackoff,
	}
}

// Publish sends the event to the shared channel.
func (b *RedisBroker) Publish(ctx context.Context, evt models.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal realtime event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", b.channel, err)
	}
	return nil
}

// Subscribe registers a local subscriber fed by Run.
func (b *RedisBroker) Subscribe(userID string) *Subscription {
	return b.hub.Subscribe(userID)
}

// Subscribers returns the number of open local subscriptions.
func (b *RedisBroker) Subscribers() int {
	return b.hub.Subscribers()
}

// Run consumes the shared channel and dispatches to local subscribers until
// the context is cancelled. A lost or failed subscription is re-established
// with exponential backoff.
func (b *RedisBroker) Run(ctx context.Context) error {
	backoff := b.minBackoff
	for {
		subscribed, err := b.relay(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if subscribed {
			backoff = b.minBackoff
		}
		b.logger.Warn("realtime relay lost, retrying",
			zap.String("channel", b.channel),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		backoff *= 2
		if backoff > b.maxBackoff {
			backoff = b.maxBackoff
		}
	}
}

// relay runs one subscription until it breaks. subscribed reports whether the
// channel was joined at all.
func (b *RedisBroker) relay(ctx context.Context) (subscribed bool, err error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return false, fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}
	b.logger.Info("realtime relay subscribed", zap.String("channel", b.channel))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return true, errors.New("redis subscription closed")
			}
			var evt models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.logger.Warn("discarding malformed realtime event", zap.Error(err))
				continue
			}
			b.hub.Dispatch(evt)
		}
	}
}

package broadcast

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"PRelay/logger"
	"PRelay/tools/errs"
)

// RedisBus fans out over Redis Pub/Sub. It owns a single PubSub on the
// subscribe-mode client and adds channels to it dynamically; publishing
// goes through the separate publish client, since a connection in
// subscribe mode cannot issue regular commands.
type RedisBus struct {
	pub    *redis.Client
	pubsub *redis.PubSub

	mu       sync.RWMutex
	handlers map[string]Handler // channel -> handler
	closed   bool

	done chan struct{}
}

// NewRedisBus wires the bus and starts its receive loop. pub and sub
// must be distinct clients.
func NewRedisBus(pub, sub *redis.Client) *RedisBus {
	b := &RedisBus{
		pub:      pub,
		pubsub:   sub.Subscribe(context.Background()),
		handlers: make(map[string]Handler),
		done:     make(chan struct{}),
	}
	go b.loop()
	return b
}

// loop is the single receive loop for the whole process. Handlers run
// inline; anything slow behind them must queue on its own.
func (b *RedisBus) loop() {
	defer close(b.done)
	for msg := range b.pubsub.Channel() {
		b.mu.RLock()
		h, ok := b.handlers[msg.Channel]
		b.mu.RUnlock()
		if !ok {
			// unsubscribed while the message was in flight
			continue
		}
		h(msg.Channel, []byte(msg.Payload))
	}
}

func (b *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.pub.Publish(ctx, channel, payload).Err(); err != nil {
		return errs.WrapMsg(err, "publish", "channel", channel)
	}
	return nil
}

// Subscribe attaches h to channel. Calling it again for the same
// channel is a no-op; the first handler stays.
func (b *RedisBus) Subscribe(ctx context.Context, channel string, h Handler) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errs.New("bus is shut down").Wrap()
	}
	if _, ok := b.handlers[channel]; ok {
		b.mu.Unlock()
		return nil
	}
	b.handlers[channel] = h
	b.mu.Unlock()

	if err := b.pubsub.Subscribe(ctx, channel); err != nil {
		b.mu.Lock()
		delete(b.handlers, channel)
		b.mu.Unlock()
		return errs.WrapMsg(err, "subscribe", "channel", channel)
	}
	return nil
}

func (b *RedisBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	delete(b.handlers, channel)
	b.mu.Unlock()

	if err := b.pubsub.Unsubscribe(ctx, channel); err != nil {
		return errs.WrapMsg(err, "unsubscribe", "channel", channel)
	}
	return nil
}

func (b *RedisBus) HealthCheck(ctx context.Context) error {
	if err := b.pub.Ping(ctx).Err(); err != nil {
		return errs.WrapMsg(err, "bus health")
	}
	return nil
}

// Shutdown closes the PubSub and stops the receive loop. The underlying
// clients stay open, their owner closes them.
func (b *RedisBus) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.handlers = make(map[string]Handler)
	b.mu.Unlock()

	if err := b.pubsub.Close(); err != nil {
		logger.Warnf("[bus] pubsub close: %v", err)
		return err
	}

	select {
	case <-b.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

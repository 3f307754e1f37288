package broadcast

import (
	"context"
	"sync"

	"PRelay/tools/errs"
)

// MemBus is an in-process Bus. One instance shared by several
// subscribers behaves like the real broker: every subscriber of a
// channel receives every publish, the publisher included. Delivery is
// synchronous, which keeps tests deterministic.
type MemBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool

	pubErr error // returned by Publish while set
}

func NewMemBus() *MemBus {
	return &MemBus{handlers: make(map[string][]Handler)}
}

// SetPublishErr makes every following Publish fail with err. Pass nil
// to heal the bus.
func (b *MemBus) SetPublishErr(err error) {
	b.mu.Lock()
	b.pubErr = err
	b.mu.Unlock()
}

// SubscriberCount reports how many handlers are attached to channel.
func (b *MemBus) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[channel])
}

func (b *MemBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return errs.New("bus is shut down").Wrap()
	}
	if err := b.pubErr; err != nil {
		b.mu.RUnlock()
		return err
	}
	hs := make([]Handler, len(b.handlers[channel]))
	copy(hs, b.handlers[channel])
	b.mu.RUnlock()

	for _, h := range hs {
		h(channel, append([]byte(nil), payload...))
	}
	return nil
}

func (b *MemBus) Subscribe(ctx context.Context, channel string, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errs.New("bus is shut down").Wrap()
	}
	b.handlers[channel] = append(b.handlers[channel], h)
	return nil
}

func (b *MemBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, channel)
	return nil
}

func (b *MemBus) HealthCheck(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return errs.New("bus is shut down").Wrap()
	}
	return nil
}

func (b *MemBus) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[string][]Handler)
	return nil
}

package broadcast

import (
	"context"
	"testing"

	"PRelay/tools/errs"
)

func TestMemBusFanOutToAllSubscribers(t *testing.T) {
	bus := NewMemBus()
	ctx := context.Background()
	ch := RoomChannel("room-1")

	var gotA, gotB []byte
	if err := bus.Subscribe(ctx, ch, func(_ string, p []byte) { gotA = p }); err != nil {
		t.Fatalf("subscribe a: %v", err)
	}
	if err := bus.Subscribe(ctx, ch, func(_ string, p []byte) { gotB = p }); err != nil {
		t.Fatalf("subscribe b: %v", err)
	}

	if err := bus.Publish(ctx, ch, []byte("hello")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if string(gotA) != "hello" || string(gotB) != "hello" {
		t.Fatalf("delivery incomplete: a=%q b=%q", gotA, gotB)
	}
}

func TestMemBusChannelIsolation(t *testing.T) {
	bus := NewMemBus()
	ctx := context.Background()

	delivered := 0
	_ = bus.Subscribe(ctx, RoomChannel("room-1"), func(string, []byte) { delivered++ })

	if err := bus.Publish(ctx, RoomChannel("room-2"), []byte("x")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if delivered != 0 {
		t.Fatalf("message leaked across channels")
	}
}

func TestMemBusPayloadCopied(t *testing.T) {
	bus := NewMemBus()
	ctx := context.Background()
	ch := RoomChannel("room-1")

	var got []byte
	_ = bus.Subscribe(ctx, ch, func(_ string, p []byte) { got = p })

	src := []byte("abc")
	_ = bus.Publish(ctx, ch, src)
	src[0] = 'X'
	if string(got) != "abc" {
		t.Fatalf("handler saw mutated payload: %q", got)
	}
}

func TestMemBusPublishErr(t *testing.T) {
	bus := NewMemBus()
	ctx := context.Background()

	boom := errs.ErrBackend.Wrap()
	bus.SetPublishErr(boom)
	if err := bus.Publish(ctx, RoomChannel("room-1"), []byte("x")); err == nil {
		t.Fatalf("expected forced publish error")
	}
	bus.SetPublishErr(nil)
	if err := bus.Publish(ctx, RoomChannel("room-1"), []byte("x")); err != nil {
		t.Fatalf("publish after heal: %v", err)
	}
}

func TestMemBusShutdown(t *testing.T) {
	bus := NewMemBus()
	ctx := context.Background()

	_ = bus.Subscribe(ctx, RoomChannel("room-1"), func(string, []byte) {})
	if err := bus.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := bus.HealthCheck(ctx); err == nil {
		t.Fatalf("health must fail after shutdown")
	}
	if err := bus.Publish(ctx, RoomChannel("room-1"), []byte("x")); err == nil {
		t.Fatalf("publish must fail after shutdown")
	}
	if err := bus.Subscribe(ctx, RoomChannel("room-1"), func(string, []byte) {}); err == nil {
		t.Fatalf("subscribe must fail after shutdown")
	}
}

package natsx

import (
	"context"
	"testing"
	"time"
)

func TestMemIdemSeenOnce(t *testing.T) {
	store := NewMemIdem(time.Minute)

	seen, err := store.SeenOnce("k1", 0)
	if err != nil || seen {
		t.Fatalf("first sighting: seen=%v err=%v", seen, err)
	}
	seen, _ = store.SeenOnce("k1", 0)
	if !seen {
		t.Fatal("second sighting not detected")
	}
	if seen, _ := store.SeenOnce("k2", 0); seen {
		t.Fatal("fresh key reported seen")
	}
}

func TestIdemMiddlewareSkipsDuplicates(t *testing.T) {
	store := NewMemIdem(time.Minute)
	var calls int
	h := NatsxChain(func(ctx context.Context, msg NatsxMessage) error {
		calls++
		return nil
	}, NatsxIdemMiddleware(store, time.Minute))

	msg := NatsxMessage{
		Subject: "offline.room.ingest",
		Data:    []byte(`{"id":"m1"}`),
		Header:  map[string]string{"Nats-Msg-Id": "m1"},
	}
	for i := 0; i < 3; i++ {
		if err := h(context.Background(), msg); err != nil {
			t.Fatalf("handler: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times", calls)
	}

	// a different ID goes through
	msg.Header["Nats-Msg-Id"] = "m2"
	_ = h(context.Background(), msg)
	if calls != 2 {
		t.Fatalf("handler ran %d times", calls)
	}
}

func TestIdemMiddlewareFallsBackOnPayload(t *testing.T) {
	store := NewMemIdem(time.Minute)
	var calls int
	h := NatsxChain(func(ctx context.Context, msg NatsxMessage) error {
		calls++
		return nil
	}, NatsxIdemMiddleware(store, time.Minute))

	msg := NatsxMessage{Subject: "s", Data: []byte("same body")}
	_ = h(context.Background(), msg)
	_ = h(context.Background(), msg)
	if calls != 1 {
		t.Fatalf("handler ran %d times", calls)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(tag string) NatsxMiddleware {
		return func(next NatsxHandler) NatsxHandler {
			return func(ctx context.Context, msg NatsxMessage) error {
				order = append(order, tag)
				return next(ctx, msg)
			}
		}
	}
	h := NatsxChain(func(ctx context.Context, msg NatsxMessage) error {
		order = append(order, "handler")
		return nil
	}, mw("outer"), mw("inner"))

	_ = h(context.Background(), NatsxMessage{})
	if len(order) != 3 || order[0] != "outer" || order[1] != "inner" || order[2] != "handler" {
		t.Fatalf("order = %v", order)
	}
}

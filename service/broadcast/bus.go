package broadcast

import "context"

// RoomChannel builds the fan-out channel name for a room.
func RoomChannel(roomID string) string {
	return "room:" + roomID
}

// Handler receives the raw payload delivered on a channel. The payload
// slice is a private copy, the callee may keep it.
type Handler func(channel string, payload []byte)

// Bus is the fan-out backend shared by the fleet. Delivery is
// at-least-once and unordered across publishers. RedisBus keeps
// Subscribe idempotent per channel within its process; MemBus plays
// the broker itself and takes one handler per subscriber.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string, h Handler) error
	Unsubscribe(ctx context.Context, channel string) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

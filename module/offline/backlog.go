package offline

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"PRelay/service/relay"
	"PRelay/tools/errs"
)

const backlogKeyPrefix = "room:backlog:"

func BacklogKey(roomID string) string { return backlogKeyPrefix + roomID }

// Backlog keeps a rolling window of each room's newest messages in a
// Redis list, newest at the head. LPUSH plus LTRIM caps the window;
// everything older falls off the tail.
type Backlog struct {
	kv     redis.Cmdable
	window int64
}

func NewBacklog(kv redis.Cmdable, window int) *Backlog {
	if window <= 0 {
		window = 100
	}
	return &Backlog{kv: kv, window: int64(window)}
}

func (b *Backlog) Push(ctx context.Context, msg relay.ChatMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return errs.WrapMsg(err, "marshal backlog message", "msgId", msg.ID)
	}
	key := BacklogKey(msg.RoomID)
	pipe := b.kv.TxPipeline()
	pipe.LPush(ctx, key, raw)
	pipe.LTrim(ctx, key, 0, b.window-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return errs.WrapMsg(err, "push backlog", "roomId", msg.RoomID)
	}
	return nil
}

// Recent returns up to limit messages of a room, oldest first. Its
// signature matches the coordinator's backfill hook.
func (b *Backlog) Recent(ctx context.Context, roomID string, limit int) ([]relay.ChatMessage, error) {
	if limit <= 0 || int64(limit) > b.window {
		limit = int(b.window)
	}
	vals, err := b.kv.LRange(ctx, BacklogKey(roomID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, errs.WrapMsg(err, "read backlog", "roomId", roomID)
	}
	return decodeBacklog(vals), nil
}

func (b *Backlog) Size(ctx context.Context, roomID string) (int64, error) {
	n, err := b.kv.LLen(ctx, BacklogKey(roomID)).Result()
	if err != nil {
		return 0, errs.WrapMsg(err, "backlog size", "roomId", roomID)
	}
	return n, nil
}

// decodeBacklog turns newest-first raw entries into oldest-first
// messages, dropping whatever does not parse.
func decodeBacklog(vals []string) []relay.ChatMessage {
	out := make([]relay.ChatMessage, 0, len(vals))
	for i := len(vals) - 1; i >= 0; i-- {
		var m relay.ChatMessage
		if err := json.Unmarshal([]byte(vals[i]), &m); err != nil || m.ID == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

package natsx

import (
	"context"
	"time"
)

// NatsxSyncPublisher retries a deduplicated publish with a fixed
// backoff. Meant for hooks that already run off the hot path and would
// rather wait than lose a message; the msg-id dedup keeps the retries
// single-copy on the stream.
type NatsxSyncPublisher struct {
	M       *NatsManager
	Retries int
	Backoff time.Duration
}

func (sp *NatsxSyncPublisher) PublishOnce(ctx context.Context, biz string, payload []byte, hdr map[string]string, msgID string) error {
	var err error
	for i := 0; i <= sp.Retries; i++ {
		err = sp.M.PublishOnce(ctx, biz, payload, hdr, msgID)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sp.Backoff):
		}
	}
	return err
}

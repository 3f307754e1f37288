package offline

import (
	"context"
	"encoding/json"
	"time"

	"PRelay/logger"
	"PRelay/service/natsx"
	"PRelay/service/relay"
)

const enqueueTimeout = 5 * time.Second

// OfflineSink returns a post-send hook that feeds the offline stream.
// The publish is keyed by the message id, so retries here and gateway
// crashes between attempts stay a single stream entry. Failures only
// lose backlog entries, the message itself was already fanned out.
func OfflineSink(nm *natsx.NatsManager) relay.AfterSend {
	pub := &natsx.NatsxSyncPublisher{M: nm, Retries: 2, Backoff: 200 * time.Millisecond}
	return func(msg relay.ChatMessage) {
		raw, err := json.Marshal(msg)
		if err != nil {
			logger.Errorf("[offline] marshal msg=%s: %v", msg.ID, err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
		defer cancel()
		if err := pub.PublishOnce(ctx, BizIngest, raw, nil, msg.ID); err != nil {
			logger.Errorf("[offline] enqueue msg=%s room=%s: %v", msg.ID, msg.RoomID, err)
			return
		}
		logger.Debugf("[offline] enqueued msg=%s room=%s", msg.ID, msg.RoomID)
	}
}

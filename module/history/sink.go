package history

import (
	"encoding/json"

	"PRelay/logger"
	"PRelay/service/kafka"
	"PRelay/service/relay"
)

// ArchiveSink returns a post-send hook feeding the archive topic.
// Records are keyed by room so one room's history stays on one
// partition, in order.
func ArchiveSink(topic string) relay.AfterSend {
	return func(msg relay.ChatMessage) {
		b, err := json.Marshal(msg)
		if err != nil {
			logger.Errorf("[history] marshal message %s: %v", msg.ID, err)
			return
		}
		if err := kafka.SendSync(topic, []byte(msg.RoomID), b); err != nil {
			logger.Errorf("[history] archive publish msg=%s room=%s: %v", msg.ID, msg.RoomID, err)
		}
	}
}

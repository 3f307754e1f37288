package history

import (
	"context"
	"encoding/json"
	"time"

	"PRelay/service/kafka"
	"PRelay/service/relay"
	"PRelay/tools/errs"
)

const insertTimeout = 10 * time.Second

// Archiver drains the archive topic into the message store.
type Archiver struct {
	store *Store
}

func NewArchiver(store *Store) *Archiver {
	return &Archiver{store: store}
}

func (a *Archiver) Register(topic string) {
	kafka.RegisterHandler(topic, a.HandleRecord)
}

func (a *Archiver) HandleRecord(topic string, key, value []byte) error {
	var msg relay.ChatMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return errs.WrapMsg(err, "decode archived message", "topic", topic)
	}
	if msg.ID == "" || msg.RoomID == "" {
		return errs.New("archived message missing identity", "topic", topic)
	}
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()
	return a.store.Insert(ctx, FromChatMessage(msg, time.Now().UTC()))
}

package history

import (
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	mgo "PRelay/service/mgo"
	"PRelay/service/relay"
)

// MessageRecord is the archived form of a relayed chat message.
// msg_id carries the relay-assigned UUID, so replays from the archive
// topic collapse into one document.
type MessageRecord struct {
	MsgID      string    `bson:"msg_id"`
	RoomID     string    `bson:"room_id"`
	UserID     string    `bson:"user_id"`
	UserName   string    `bson:"user_name"`
	Content    string    `bson:"content"`
	Kind       string    `bson:"kind"`
	SentAt     time.Time `bson:"sent_at"`
	ArchivedAt time.Time `bson:"archived_at"`
}

func (m *MessageRecord) GetTableName() string { return "messages" }

func (m *MessageRecord) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(m.GetTableName())
}

func FromChatMessage(msg relay.ChatMessage, archivedAt time.Time) MessageRecord {
	return MessageRecord{
		MsgID:      msg.ID,
		RoomID:     msg.RoomID,
		UserID:     msg.UserID,
		UserName:   msg.UserName,
		Content:    msg.Content,
		Kind:       msg.Kind,
		SentAt:     msg.Timestamp,
		ArchivedAt: archivedAt,
	}
}

func (m MessageRecord) ToChatMessage() relay.ChatMessage {
	return relay.ChatMessage{
		ID:        m.MsgID,
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		UserName:  m.UserName,
		Content:   m.Content,
		Kind:      m.Kind,
		Timestamp: m.SentAt,
	}
}

package history

import (
	"testing"
	"time"

	"PRelay/service/relay"
)

func TestRecordConversionRoundTrip(t *testing.T) {
	sent := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	msg := relay.ChatMessage{
		ID:        "m1",
		RoomID:    "r1",
		UserID:    "u1",
		UserName:  "Ann",
		Content:   "hello",
		Kind:      "text",
		Timestamp: sent,
	}

	rec := FromChatMessage(msg, sent.Add(time.Second))
	if rec.MsgID != "m1" || rec.RoomID != "r1" || !rec.SentAt.Equal(sent) {
		t.Fatalf("record = %+v", rec)
	}
	if !rec.ArchivedAt.After(rec.SentAt) {
		t.Fatalf("archive time = %v", rec.ArchivedAt)
	}

	back := rec.ToChatMessage()
	if back.ID != msg.ID || back.Content != msg.Content || back.Kind != msg.Kind {
		t.Fatalf("round trip = %+v", back)
	}
	if !back.Timestamp.Equal(sent) {
		t.Fatalf("timestamp = %v", back.Timestamp)
	}
}

func TestHandleRecordRejectsGarbage(t *testing.T) {
	a := NewArchiver(nil)

	if err := a.HandleRecord("t", nil, []byte("{")); err == nil {
		t.Fatal("bad json accepted")
	}
	if err := a.HandleRecord("t", nil, []byte(`{"content":"no identity"}`)); err == nil {
		t.Fatal("message without id accepted")
	}
}

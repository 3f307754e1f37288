package chat

import (
	"testing"
)

func TestParseFrameJSON(t *testing.T) {
	f, err := ParseFrameJSON([]byte(`{"type":"join","payload":{"userId":"u1","userName":"Ana","roomId":"general"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Type != FrameJoin {
		t.Fatalf("type = %q", f.Type)
	}
	p, err := DecodeJoin(f)
	if err != nil {
		t.Fatalf("decode join: %v", err)
	}
	if p.UserID != "u1" || p.UserName != "Ana" || p.RoomID != "general" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestParseFrameJSONRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "{not json", `{"payload":{}}`} {
		if _, err := ParseFrameJSON([]byte(raw)); err == nil {
			t.Fatalf("accepted %q", raw)
		}
	}
}

func TestDecodeSendWireKindField(t *testing.T) {
	f, err := ParseFrameJSON([]byte(`{"type":"send-message","payload":{"content":"hi","type":"image"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p, err := DecodeSend(f)
	if err != nil {
		t.Fatalf("decode send: %v", err)
	}
	if p.Content != "hi" || p.Kind != "image" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestDecodeJoinMissingPayload(t *testing.T) {
	f := &InboundFrame{Type: FrameJoin}
	if _, err := DecodeJoin(f); err == nil {
		t.Fatal("nil payload accepted")
	}
}

func TestClientEnqueue(t *testing.T) {
	cl := NewClient("c1", nil, 2)
	if !cl.Enqueue([]byte("a")) || !cl.Enqueue([]byte("b")) {
		t.Fatal("enqueue into empty queue failed")
	}
	if cl.Enqueue([]byte("c")) {
		t.Fatal("enqueue into full queue should drop")
	}
	cl.CloseSend()
	if cl.Enqueue([]byte("d")) {
		t.Fatal("enqueue after close should drop")
	}
}

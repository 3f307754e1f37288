package relay

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestEnvelopeTypeRoundTrip(t *testing.T) {
	for typ, name := range envelopeNames {
		b, err := json.Marshal(typ)
		if err != nil {
			t.Fatalf("marshal %v: %v", typ, err)
		}
		if string(b) != `"`+name+`"` {
			t.Fatalf("marshal %v = %s", typ, b)
		}
		var back EnvelopeType
		if err := json.Unmarshal(b, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if back != typ {
			t.Fatalf("round trip %v -> %v", typ, back)
		}
	}
}

func TestEnvelopeTypeRejectsUnknownTag(t *testing.T) {
	var typ EnvelopeType
	if err := json.Unmarshal([]byte(`"presence-sync"`), &typ); err == nil {
		t.Fatal("unknown tag accepted")
	}
	if _, err := json.Marshal(EnvelopeType(99)); err == nil {
		t.Fatal("unknown value marshalled")
	}
	if s := EnvelopeType(99).String(); s != "unknown" {
		t.Fatalf("String() = %q", s)
	}
}

func TestEnvelopeEncodeDecode(t *testing.T) {
	msg := ChatMessage{
		ID:        "m1",
		RoomID:    "r1",
		UserID:    "u1",
		UserName:  "Ann",
		Content:   "hello",
		Kind:      "text",
		Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	env, err := NewEnvelope(EnvelopeChatMessage, "s1", msg)
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}
	if env.OriginID != "s1" || env.Ts.IsZero() {
		t.Fatalf("envelope = %+v", env)
	}

	b, err := env.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(b), `"originServerId":"s1"`) {
		t.Fatalf("wire form lost origin: %s", b)
	}
	if !strings.Contains(string(b), `"type":"chat-message"`) {
		t.Fatalf("wire form lost type: %s", b)
	}

	back, err := DecodeEnvelope(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Type != EnvelopeChatMessage || back.OriginID != "s1" {
		t.Fatalf("decoded = %+v", back)
	}
	var got ChatMessage
	if err := json.Unmarshal(back.Payload, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.ID != msg.ID || got.Content != msg.Content || got.Kind != msg.Kind {
		t.Fatalf("payload = %+v", got)
	}
	if !got.Timestamp.Equal(msg.Timestamp) {
		t.Fatalf("timestamp = %v", got.Timestamp)
	}
}

func TestDecodeEnvelopeRejectsBadFrames(t *testing.T) {
	cases := map[string]string{
		"not json":     `{{`,
		"unknown type": `{"type":"presence-sync","originServerId":"s1","payload":{}}`,
		"no type":      `{"originServerId":"s1","payload":{}}`,
		"no origin":    `{"type":"chat-message","payload":{}}`,
	}
	for name, raw := range cases {
		if _, err := DecodeEnvelope([]byte(raw)); err == nil {
			t.Errorf("%s: decode accepted %s", name, raw)
		}
	}
}

func TestClientEventRoundTrip(t *testing.T) {
	b, err := BuildErrorEvent(1001, "bad args")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ev, err := ParseClientEvent(b)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Type != EventError || ev.Ts.IsZero() {
		t.Fatalf("event = %+v", ev)
	}
	var e ErrorEvent
	if err := json.Unmarshal(ev.Payload, &e); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if e.Code != 1001 || e.Message != "bad args" {
		t.Fatalf("payload = %+v", e)
	}
}

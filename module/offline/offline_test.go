package offline

import (
	"encoding/json"
	"testing"
	"time"

	"PRelay/service/relay"
)

func TestBacklogKey(t *testing.T) {
	if got := BacklogKey("general"); got != "room:backlog:general" {
		t.Fatalf("key = %q", got)
	}
}

func TestDecodeBacklogReversesToOldestFirst(t *testing.T) {
	mk := func(id string) string {
		raw, err := json.Marshal(relay.ChatMessage{
			ID:        id,
			RoomID:    "r1",
			UserID:    "u1",
			Content:   "hello " + id,
			Kind:      "text",
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return string(raw)
	}

	// Newest first, the way LPUSH leaves the list.
	got := decodeBacklog([]string{mk("m3"), mk("m2"), mk("m1")})
	if len(got) != 3 {
		t.Fatalf("decoded %d messages, want 3", len(got))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if got[i].ID != want {
			t.Fatalf("position %d = %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestDecodeBacklogSkipsCorruptEntries(t *testing.T) {
	ok, err := json.Marshal(relay.ChatMessage{ID: "m1", RoomID: "r1", Content: "hi"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := decodeBacklog([]string{"{not json", string(ok), `{"content":"no id"}`})
	if len(got) != 1 || got[0].ID != "m1" {
		t.Fatalf("decoded = %+v, want just m1", got)
	}
}

func TestDecodeIngest(t *testing.T) {
	raw, err := json.Marshal(relay.ChatMessage{ID: "m1", RoomID: "r1", UserID: "u1", Content: "hi"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	m, err := decodeIngest(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.ID != "m1" || m.RoomID != "r1" {
		t.Fatalf("decoded = %+v", m)
	}

	if _, err := decodeIngest([]byte("garbage")); err == nil {
		t.Fatal("garbage accepted")
	}
	if _, err := decodeIngest([]byte(`{"content":"anonymous"}`)); err == nil {
		t.Fatal("entry without identity accepted")
	}
}

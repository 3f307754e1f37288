package decode

import "testing"

type joinPayload struct {
	UserID   string `json:"userId"`
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
	Seq      int64  `json:"seq"`
}

func TestDecodeMap(t *testing.T) {
	m := map[string]any{
		"userId":   "u-1",
		"roomId":   "room-1",
		"userName": "alice",
		"seq":      float64(7), // JSON numbers decode as float64
	}
	p, err := DecodeMap[joinPayload](m)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.UserID != "u-1" || p.RoomID != "room-1" || p.UserName != "alice" {
		t.Fatalf("unexpected payload: %+v", p)
	}
	if p.Seq != 7 {
		t.Fatalf("seq = %d, want 7", p.Seq)
	}
}

func TestDecodeMapWeakTypes(t *testing.T) {
	m := map[string]any{
		"userId": 123,
		"seq":    "42",
	}
	p, err := DecodeMap[joinPayload](m)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.UserID != "123" {
		t.Fatalf("userId = %q, want weakly converted \"123\"", p.UserID)
	}
	if p.Seq != 42 {
		t.Fatalf("seq = %d, want 42", p.Seq)
	}
}

func TestDecodeMapStrict(t *testing.T) {
	m := map[string]any{"seq": "not-a-number"}
	if _, err := DecodeMap[joinPayload](m, WithWeaklyTypedInput(false)); err == nil {
		t.Fatalf("expected error for string into int64 with weak typing off")
	}
}

func TestDecodeMapNil(t *testing.T) {
	if _, err := DecodeMap[joinPayload](nil); err == nil {
		t.Fatalf("expected error for nil payload")
	}
}

func TestDecodeNestedJSONString(t *testing.T) {
	type wrapper struct {
		Meta map[string]any `json:"meta"`
	}
	m := map[string]any{"meta": `{"k":"v"}`}
	p, err := DecodeMap[wrapper](m)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Meta["k"] != "v" {
		t.Fatalf("nested json string not expanded: %+v", p.Meta)
	}
}

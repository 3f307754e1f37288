package errs

import (
	"fmt"
	"strings"
	"testing"
)

func TestCodeErrorIs(t *testing.T) {
	err := ErrEmptyContent.WrapMsg("send-message rejected", "roomId", "room-1")
	if !ErrEmptyContent.Is(err) {
		t.Fatalf("expected ErrEmptyContent to match wrapped error, got %v", err)
	}
	if ErrArgs.Is(err) {
		t.Fatalf("ErrArgs must not match an empty-content error")
	}
}

func TestCodeErrorIsThroughFmtWrap(t *testing.T) {
	base := ErrBackend.Wrap()
	err := fmt.Errorf("publish room:room-1: %w", base)
	if !ErrBackend.Is(err) {
		t.Fatalf("expected ErrBackend to survive fmt wrapping, got %v", err)
	}
}

func TestWithDetailAppends(t *testing.T) {
	e := ErrArgs.WithDetail("userId required")
	e = e.WithDetail("roomId required")
	want := "userId required, roomId required"
	if e.Detail != want {
		t.Fatalf("detail = %q, want %q", e.Detail, want)
	}
	if e.Code != ArgsError {
		t.Fatalf("code changed to %d", e.Code)
	}
	if ErrArgs.Detail != "" {
		t.Fatalf("shared error mutated: %q", ErrArgs.Detail)
	}
}

func TestCodeRelation(t *testing.T) {
	r := newCodeRelation()
	if err := r.Add(BackendError, PublishError); err != nil {
		t.Fatalf("add relation: %v", err)
	}
	if !r.Is(BackendError, PublishError) {
		t.Fatalf("expected BackendError to cover PublishError")
	}
	if r.Is(PublishError, BackendError) {
		t.Fatalf("relation must be one way")
	}
}

func TestWrapMsgKeyValues(t *testing.T) {
	err := WrapMsg(New("scan failed"), "registry", "cursor", 0)
	got := err.Error()
	if !strings.Contains(got, "registry") || !strings.Contains(got, "cursor=0") {
		t.Fatalf("wrapped message missing context: %q", got)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil) != nil {
		t.Fatalf("Wrap(nil) must stay nil")
	}
	if WrapMsg(nil, "ignored") != nil {
		t.Fatalf("WrapMsg(nil) must stay nil")
	}
}

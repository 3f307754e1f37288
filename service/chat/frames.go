package chat

import (
	"encoding/json"

	decode "PRelay/tools/decode"
	"PRelay/tools/errs"
)

// Frame types clients may send. Everything else is rejected with an
// error event.
const (
	FrameJoin        = "join"
	FrameSendMessage = "send-message"
	FrameTypingStart = "typing-start"
	FrameTypingStop  = "typing-stop"
	FrameDisconnect  = "disconnect"
)

// InboundFrame is one client request. The payload shape depends on Type.
type InboundFrame struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// JoinPayload asks to enter a room under a display name.
type JoinPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	RoomID   string `json:"roomId"`
}

// SendPayload carries one chat message. The wire field for the message
// kind is "type", matching what clients already send.
type SendPayload struct {
	Content string `json:"content"`
	Kind    string `json:"type"`
}

func ParseFrameJSON(raw []byte) (*InboundFrame, error) {
	frame := &InboundFrame{}
	if err := json.Unmarshal(raw, frame); err != nil {
		return nil, errs.WrapMsg(err, "unmarshal frame")
	}
	if frame.Type == "" {
		return nil, errs.New("frame missing type")
	}
	return frame, nil
}

// DecodeJoin pulls a join payload out of a frame. Client JSON is loosely
// typed, so fields go through the weak decoder.
func DecodeJoin(f *InboundFrame) (*JoinPayload, error) {
	if f.Payload == nil {
		return nil, errs.New("join frame missing payload")
	}
	return decode.DecodeMap[JoinPayload](f.Payload)
}

func DecodeSend(f *InboundFrame) (*SendPayload, error) {
	if f.Payload == nil {
		return nil, errs.New("send frame missing payload")
	}
	return decode.DecodeMap[SendPayload](f.Payload)
}

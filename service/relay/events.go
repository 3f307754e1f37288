package relay

import (
	"encoding/json"
	"time"

	"PRelay/tools/errs"
)

// ===== outbound client events =====

const (
	EventJoinedConfirmation = "joined-confirmation"
	EventError              = "error"
	EventNewMessage         = "new-message"
	EventUserJoined         = "user-joined"
	EventUserLeft           = "user-left"
	EventRoomInfo           = "room-info"
	EventUserTyping         = "user-typing"
)

// ClientEvent is the frame written to client sockets.
type ClientEvent struct {
	Type    string          `json:"type"`
	Ts      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

type JoinedConfirmation struct {
	RoomID   string `json:"roomId"`
	ServerID string `json:"serverId"`
}

type ErrorEvent struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type NewMessage struct {
	Message ChatMessage `json:"message"`
}

func buildEvent(typ string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.WrapMsg(err, "marshal event payload", "type", typ)
	}
	return json.Marshal(ClientEvent{
		Type:    typ,
		Ts:      time.Now().UTC(),
		Payload: raw,
	})
}

func BuildJoinedConfirmation(roomID, serverID string) ([]byte, error) {
	return buildEvent(EventJoinedConfirmation, JoinedConfirmation{RoomID: roomID, ServerID: serverID})
}

func BuildErrorEvent(code int, message string) ([]byte, error) {
	return buildEvent(EventError, ErrorEvent{Code: code, Message: message})
}

func BuildNewMessage(msg ChatMessage) ([]byte, error) {
	return buildEvent(EventNewMessage, NewMessage{Message: msg})
}

func BuildUserJoined(ev UserEvent) ([]byte, error) {
	return buildEvent(EventUserJoined, ev)
}

func BuildUserLeft(ev UserEvent) ([]byte, error) {
	return buildEvent(EventUserLeft, ev)
}

func BuildRoomInfo(ev RoomInfoEvent) ([]byte, error) {
	return buildEvent(EventRoomInfo, ev)
}

func BuildUserTyping(ev TypingEvent) ([]byte, error) {
	return buildEvent(EventUserTyping, ev)
}

// ParseClientEvent decodes a frame produced by the builders.
func ParseClientEvent(b []byte) (ClientEvent, error) {
	var ev ClientEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return ClientEvent{}, errs.WrapMsg(err, "decode client event")
	}
	return ev, nil
}

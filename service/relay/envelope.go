package relay

import (
	"encoding/json"
	"time"

	"PRelay/service/storage"
	"PRelay/tools/errs"
)

// ===== envelope taxonomy =====

// EnvelopeType enumerates every frame kind the fleet relays. The set
// is closed: decoding any other tag is an error, not a pass-through.
type EnvelopeType int

const (
	EnvelopeChatMessage EnvelopeType = iota + 1
	EnvelopeUserJoined
	EnvelopeUserLeft
	EnvelopeRoomInfo
	EnvelopeUserTyping
)

var envelopeNames = map[EnvelopeType]string{
	EnvelopeChatMessage: "chat-message",
	EnvelopeUserJoined:  "user-joined",
	EnvelopeUserLeft:    "user-left",
	EnvelopeRoomInfo:    "room-info",
	EnvelopeUserTyping:  "user-typing",
}

var envelopeValues = func() map[string]EnvelopeType {
	m := make(map[string]EnvelopeType, len(envelopeNames))
	for t, s := range envelopeNames {
		m[s] = t
	}
	return m
}()

func (t EnvelopeType) String() string {
	if s, ok := envelopeNames[t]; ok {
		return s
	}
	return "unknown"
}

func (t EnvelopeType) MarshalJSON() ([]byte, error) {
	s, ok := envelopeNames[t]
	if !ok {
		return nil, errs.New("unknown envelope type", "type", int(t))
	}
	return json.Marshal(s)
}

func (t *EnvelopeType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, ok := envelopeValues[s]
	if !ok {
		return errs.New("unknown envelope type", "type", s)
	}
	*t = v
	return nil
}

// ===== payloads =====

// ChatMessage is the payload of a chat-message envelope and the body
// clients receive inside new-message events.
type ChatMessage struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Content   string    `json:"content"`
	Kind      string    `json:"type"` // "text" unless the client says otherwise
	Timestamp time.Time `json:"timestamp"`
}

// UserEvent is the payload of user-joined and user-left envelopes.
type UserEvent struct {
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	ServerID  string    `json:"serverId"`
	Reason    string    `json:"reason,omitempty"` // user-left only
	Timestamp time.Time `json:"timestamp"`
}

// TypingEvent is the payload of user-typing envelopes.
type TypingEvent struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
}

// RoomInfoEvent carries a fresh presence snapshot. Receivers replace,
// never merge.
type RoomInfoEvent struct {
	storage.RoomStats
	Timestamp time.Time `json:"timestamp"`
}

// ===== envelope =====

// Envelope is the unit relayed between servers. Every envelope names
// its origin so receivers can drop their own publishes coming back.
type Envelope struct {
	Type     EnvelopeType    `json:"type"`
	OriginID string          `json:"originServerId"`
	Ts       time.Time       `json:"ts"`
	Payload  json.RawMessage `json:"payload"`
}

// NewEnvelope stamps origin and time and freezes the payload. The
// envelope must not be modified after this point.
func NewEnvelope(t EnvelopeType, originID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, errs.WrapMsg(err, "marshal envelope payload", "type", t.String())
	}
	return Envelope{
		Type:     t,
		OriginID: originID,
		Ts:       time.Now().UTC(),
		Payload:  raw,
	}, nil
}

func (e Envelope) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, errs.WrapMsg(err, "encode envelope", "type", e.Type.String())
	}
	return b, nil
}

// DecodeEnvelope parses and validates a wire envelope. Unknown or
// missing type tags and a missing origin are decode errors; the caller
// drops such frames.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, errs.WrapMsg(err, "decode envelope")
	}
	if _, ok := envelopeNames[e.Type]; !ok {
		return Envelope{}, errs.New("envelope type missing")
	}
	if e.OriginID == "" {
		return Envelope{}, errs.New("envelope origin missing", "type", e.Type.String())
	}
	return e, nil
}

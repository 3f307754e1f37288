package handlers

import (
	"context"
	"encoding/json"

	"PRelay/service/relay"
	"PRelay/tools/errs"
)

// UserTypingHandler forwards typing indicators. The typist is skipped
// by user ID so a user with connections on several servers never sees
// their own indicator.
type UserTypingHandler struct {
	Co *relay.Coordinator
}

func (h *UserTypingHandler) Type() relay.EnvelopeType { return relay.EnvelopeUserTyping }

func (h *UserTypingHandler) Handle(ctx context.Context, env relay.Envelope) error {
	var ev relay.TypingEvent
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return errs.WrapMsg(err, "decode user-typing payload")
	}
	frame, err := relay.BuildUserTyping(ev)
	if err != nil {
		return err
	}
	h.Co.FanoutRoomExceptUser(ev.RoomID, ev.UserID, frame)
	return nil
}

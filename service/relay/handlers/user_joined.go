package handlers

import (
	"context"
	"encoding/json"

	"PRelay/service/relay"
	"PRelay/tools/errs"
)

type UserJoinedHandler struct {
	Co *relay.Coordinator
}

func (h *UserJoinedHandler) Type() relay.EnvelopeType { return relay.EnvelopeUserJoined }

func (h *UserJoinedHandler) Handle(ctx context.Context, env relay.Envelope) error {
	var ev relay.UserEvent
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return errs.WrapMsg(err, "decode user-joined payload")
	}
	frame, err := relay.BuildUserJoined(ev)
	if err != nil {
		return err
	}
	h.Co.FanoutRoom(ev.RoomID, frame)
	return nil
}

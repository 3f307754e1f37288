package handlers

import (
	"context"
	"encoding/json"

	"PRelay/service/relay"
	"PRelay/tools/errs"
)

type UserLeftHandler struct {
	Co *relay.Coordinator
}

func (h *UserLeftHandler) Type() relay.EnvelopeType { return relay.EnvelopeUserLeft }

func (h *UserLeftHandler) Handle(ctx context.Context, env relay.Envelope) error {
	var ev relay.UserEvent
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return errs.WrapMsg(err, "decode user-left payload")
	}
	frame, err := relay.BuildUserLeft(ev)
	if err != nil {
		return err
	}
	h.Co.FanoutRoom(ev.RoomID, frame)
	return nil
}

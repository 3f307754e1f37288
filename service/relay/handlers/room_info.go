package handlers

import (
	"context"
	"encoding/json"

	"PRelay/service/relay"
	"PRelay/tools/errs"
)

// RoomInfoHandler pushes a fresh roster snapshot to local members.
// Snapshots replace whatever the client holds, they are never merged.
type RoomInfoHandler struct {
	Co *relay.Coordinator
}

func (h *RoomInfoHandler) Type() relay.EnvelopeType { return relay.EnvelopeRoomInfo }

func (h *RoomInfoHandler) Handle(ctx context.Context, env relay.Envelope) error {
	var ev relay.RoomInfoEvent
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return errs.WrapMsg(err, "decode room-info payload")
	}
	frame, err := relay.BuildRoomInfo(ev)
	if err != nil {
		return err
	}
	h.Co.FanoutRoom(ev.RoomID, frame)
	return nil
}

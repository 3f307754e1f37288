// Package handlers holds one envelope handler per relay event type.
// Each mirrors, on this server, the local emit the origin server
// already did for its own clients.
package handlers

import (
	"context"
	"encoding/json"

	"PRelay/service/relay"
	"PRelay/tools/errs"
)

type ChatMessageHandler struct {
	Co *relay.Coordinator
}

func (h *ChatMessageHandler) Type() relay.EnvelopeType { return relay.EnvelopeChatMessage }

func (h *ChatMessageHandler) Handle(ctx context.Context, env relay.Envelope) error {
	var msg relay.ChatMessage
	if err := json.Unmarshal(env.Payload, &msg); err != nil {
		return errs.WrapMsg(err, "decode chat-message payload")
	}
	frame, err := relay.BuildNewMessage(msg)
	if err != nil {
		return err
	}
	h.Co.FanoutRoom(msg.RoomID, frame)
	return nil
}

package handlers

import "PRelay/service/relay"

// RegisterAll wires every envelope handler into the coordinator's
// dispatcher. Call once at bootstrap, before the first join.
func RegisterAll(co *relay.Coordinator) {
	d := co.Dispatcher()
	d.Register(&ChatMessageHandler{Co: co})
	d.Register(&UserJoinedHandler{Co: co})
	d.Register(&UserLeftHandler{Co: co})
	d.Register(&RoomInfoHandler{Co: co})
	d.Register(&UserTypingHandler{Co: co})
}

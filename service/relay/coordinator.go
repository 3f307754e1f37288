package relay

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"PRelay/logger"
	"PRelay/service/broadcast"
	"PRelay/service/storage"
	"PRelay/tools/errs"
	"PRelay/tools/ids"
	"PRelay/tools/safe"
)

const relayOpTimeout = 5 * time.Second

// AfterSend runs off the hot path once a message is accepted for
// fan-out. The archive and backlog pipelines hang off this.
type AfterSend func(msg ChatMessage)

// BackfillFunc returns the most recent messages of a room, oldest
// first, for replay to a fresh joiner.
type BackfillFunc func(ctx context.Context, roomID string, limit int) ([]ChatMessage, error)

type Conf struct {
	ServerID      string
	Workers       int // fanout workers
	Queue         int // fanout queue depth
	BackfillLimit int
	Clock         func() time.Time
	AfterSend     AfterSend    // optional
	Backfill      BackfillFunc // optional
}

type localConn struct {
	sink Sink
	info storage.ConnectionInfo
}

// Coordinator owns every piece of per-server relay state: the local
// connection tables, the room subscription set and the envelope
// dispatcher. Several coordinators can live in one process, nothing
// here is global.
type Coordinator struct {
	conf Conf

	bus  broadcast.Bus
	reg  storage.Registry
	subs *RoomSubs
	disp *Dispatcher
	fan  *Fanout

	mu     sync.RWMutex
	byConn map[string]*localConn
	byRoom map[string]map[string]*localConn
}

func NewCoordinator(conf Conf, bus broadcast.Bus, reg storage.Registry) *Coordinator {
	safe.MustNotNil(bus, "bus")
	safe.MustNotNil(reg, "registry")
	if conf.ServerID == "" {
		conf.ServerID = "server-" + ids.GenerateString()
	}
	if conf.Clock == nil {
		conf.Clock = time.Now
	}
	if conf.Workers <= 0 {
		conf.Workers = 4
	}
	if conf.Queue <= 0 {
		conf.Queue = 1024
	}
	if conf.BackfillLimit <= 0 {
		conf.BackfillLimit = 20
	}
	return &Coordinator{
		conf:   conf,
		bus:    bus,
		reg:    reg,
		subs:   NewRoomSubs(),
		disp:   NewDispatcher(),
		fan:    NewFanout(conf.Workers, conf.Queue),
		byConn: make(map[string]*localConn),
		byRoom: make(map[string]map[string]*localConn),
	}
}

func (c *Coordinator) ServerID() string { return c.conf.ServerID }

// Dispatcher exposes the handler registry for wiring time.
func (c *Coordinator) Dispatcher() *Dispatcher { return c.disp }

// ===== join =====

// Join runs the awaited half of the join flow and acks the client
// before any propagation. Everything fleet-facing happens detached
// afterwards; those failures degrade freshness, never the join.
func (c *Coordinator) Join(ctx context.Context, s Sink, userID, userName, roomID string) error {
	if userID == "" || roomID == "" || userName == "" {
		cerr := errs.ErrArgs.WithDetail("join requires userId, roomId and userName")
		c.sendError(s, cerr)
		return cerr.Wrap()
	}

	info := storage.ConnectionInfo{
		ConnID:   s.ID(),
		UserID:   userID,
		UserName: userName,
		RoomID:   roomID,
		ServerID: c.conf.ServerID,
		JoinedAt: c.conf.Clock().UTC(),
	}

	// rejoining with a new room moves the connection
	var switched *storage.ConnectionInfo
	c.mu.Lock()
	if prev, ok := c.byConn[s.ID()]; ok && prev.info.RoomID != roomID {
		c.removeFromRoomLocked(prev.info.RoomID, s.ID())
		old := prev.info
		switched = &old
	}
	cn := &localConn{sink: s, info: info}
	c.byConn[s.ID()] = cn
	room := c.byRoom[roomID]
	if room == nil {
		room = make(map[string]*localConn)
		c.byRoom[roomID] = room
	}
	room[s.ID()] = cn
	c.mu.Unlock()

	if switched != nil {
		old := *switched
		safe.SafeGo(func() { c.announceLeave(old, "switched room") })
	}

	// shared record; a failure degrades presence, not the join
	if err := c.reg.Record(ctx, info); err != nil {
		logger.Warnf("[relay] record connection %s: %v", s.ID(), err)
	}

	if err := c.subs.EnsureSubscribed(ctx, c.bus, roomID, c.onEnvelope); err != nil {
		// without the subscription this server is deaf for the room
		c.rollbackJoin(ctx, s.ID(), roomID)
		c.sendError(s, errs.ErrBackend.WithDetail("room subscription failed"))
		return errs.WrapMsg(err, "subscribe room", "roomId", roomID)
	}

	ack, err := BuildJoinedConfirmation(roomID, c.conf.ServerID)
	if err != nil {
		return err
	}
	if !s.Enqueue(ack) {
		logger.Warnf("[relay] drop join ack for %s", s.ID())
	}

	safe.SafeGo(func() { c.announceJoin(info) })
	return nil
}

func (c *Coordinator) rollbackJoin(ctx context.Context, connID, roomID string) {
	c.mu.Lock()
	delete(c.byConn, connID)
	c.removeFromRoomLocked(roomID, connID)
	c.mu.Unlock()
	if err := c.reg.Remove(ctx, connID); err != nil {
		logger.Warnf("[relay] rollback remove %s: %v", connID, err)
	}
}

func (c *Coordinator) announceJoin(info storage.ConnectionInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), relayOpTimeout)
	defer cancel()

	joined := UserEvent{
		RoomID:    info.RoomID,
		UserID:    info.UserID,
		UserName:  info.UserName,
		ServerID:  info.ServerID,
		Timestamp: c.conf.Clock().UTC(),
	}
	if err := c.publishEnvelope(ctx, EnvelopeUserJoined, info.RoomID, joined); err != nil {
		logger.Warnf("[relay] publish user-joined room=%s: %v", info.RoomID, err)
	}
	if frame, err := BuildUserJoined(joined); err == nil {
		c.FanoutRoom(info.RoomID, frame)
	}

	c.refreshRoomInfo(ctx, info.RoomID)
	c.backfill(ctx, info)
}

func (c *Coordinator) backfill(ctx context.Context, info storage.ConnectionInfo) {
	if c.conf.Backfill == nil {
		return
	}
	msgs, err := c.conf.Backfill(ctx, info.RoomID, c.conf.BackfillLimit)
	if err != nil {
		logger.Debugf("[relay] backfill room=%s: %v", info.RoomID, err)
		return
	}
	c.mu.RLock()
	cn := c.byConn[info.ConnID]
	c.mu.RUnlock()
	if cn == nil {
		// left while we were fetching
		return
	}
	for _, m := range msgs {
		if frame, err := BuildNewMessage(m); err == nil {
			cn.sink.Enqueue(frame)
		}
	}
}

// ===== send =====

// SendMessage validates, publishes, and only then lets local clients
// see the message. A failed publish means nobody sees it, the sender
// gets an error event instead.
func (c *Coordinator) SendMessage(ctx context.Context, s Sink, content, kind string) error {
	cn := c.lookup(s.ID())
	if cn == nil {
		cerr := errs.ErrNotJoined.WithDetail("join a room before sending")
		c.sendError(s, cerr)
		return cerr.Wrap()
	}

	content = strings.TrimSpace(content)
	if content == "" {
		cerr := errs.ErrEmptyContent.WithDetail("content must not be blank")
		c.sendError(s, cerr)
		return cerr.Wrap()
	}
	if kind == "" {
		kind = "text"
	}

	msg := ChatMessage{
		ID:        uuid.NewString(),
		RoomID:    cn.info.RoomID,
		UserID:    cn.info.UserID,
		UserName:  cn.info.UserName,
		Content:   content,
		Kind:      kind,
		Timestamp: c.conf.Clock().UTC(),
	}

	b, err := encodeEnvelope(EnvelopeChatMessage, c.conf.ServerID, msg)
	if err != nil {
		c.sendError(s, errs.ErrInternalServer)
		return err
	}
	if err := c.bus.Publish(ctx, broadcast.RoomChannel(msg.RoomID), b); err != nil {
		logger.Errorf("[relay] publish chat-message room=%s: %v", msg.RoomID, err)
		c.sendError(s, errs.ErrPublish.WithDetail("message was not delivered"))
		return errs.WrapMsg(err, "publish chat-message", "roomId", msg.RoomID)
	}

	// the fleet has it; now our own clients and the slow pipelines
	if frame, err := BuildNewMessage(msg); err == nil {
		c.FanoutRoom(msg.RoomID, frame)
	}
	if c.conf.AfterSend != nil {
		after := c.conf.AfterSend
		safe.SafeGo(func() { after(msg) })
	}
	return nil
}

// ===== typing =====

// Typing relays a typing indicator. Best effort end to end: publish
// failures are logged, never surfaced, and the typist's own client is
// skipped locally.
func (c *Coordinator) Typing(ctx context.Context, s Sink, isTyping bool) {
	cn := c.lookup(s.ID())
	if cn == nil {
		return
	}
	ev := TypingEvent{
		RoomID:   cn.info.RoomID,
		UserID:   cn.info.UserID,
		UserName: cn.info.UserName,
		IsTyping: isTyping,
	}
	if err := c.publishEnvelope(ctx, EnvelopeUserTyping, ev.RoomID, ev); err != nil {
		logger.Debugf("[relay] publish user-typing room=%s: %v", ev.RoomID, err)
	}
	if frame, err := BuildUserTyping(ev); err == nil {
		c.FanoutRoomExceptUser(ev.RoomID, ev.UserID, frame)
	}
}

// ===== disconnect =====

// Disconnect tears down one local connection. Unknown IDs are a quiet
// no-op, which also covers double disconnects.
func (c *Coordinator) Disconnect(ctx context.Context, connID, reason string) {
	c.mu.Lock()
	cn, ok := c.byConn[connID]
	if !ok {
		c.mu.Unlock()
		logger.Debugf("[relay] disconnect unknown connection %s", connID)
		return
	}
	delete(c.byConn, connID)
	c.removeFromRoomLocked(cn.info.RoomID, connID)
	c.mu.Unlock()

	if err := c.reg.Remove(ctx, connID); err != nil {
		// expiry collects it eventually
		logger.Warnf("[relay] remove connection %s: %v", connID, err)
	}

	info := cn.info
	safe.SafeGo(func() { c.announceLeave(info, reason) })
}

func (c *Coordinator) announceLeave(info storage.ConnectionInfo, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), relayOpTimeout)
	defer cancel()

	left := UserEvent{
		RoomID:    info.RoomID,
		UserID:    info.UserID,
		UserName:  info.UserName,
		ServerID:  info.ServerID,
		Reason:    reason,
		Timestamp: c.conf.Clock().UTC(),
	}
	if err := c.publishEnvelope(ctx, EnvelopeUserLeft, info.RoomID, left); err != nil {
		logger.Warnf("[relay] publish user-left room=%s: %v", info.RoomID, err)
	}
	if frame, err := BuildUserLeft(left); err == nil {
		c.FanoutRoom(info.RoomID, frame)
	}

	c.refreshRoomInfo(ctx, info.RoomID)
}

// refreshRoomInfo recomputes presence and pushes the snapshot locally
// and across the fleet.
func (c *Coordinator) refreshRoomInfo(ctx context.Context, roomID string) {
	stats, err := storage.ComputeRoomStats(ctx, c.reg, roomID)
	if err != nil {
		logger.Warnf("[relay] room stats %s: %v", roomID, err)
		return
	}
	ev := RoomInfoEvent{RoomStats: stats, Timestamp: c.conf.Clock().UTC()}
	if err := c.publishEnvelope(ctx, EnvelopeRoomInfo, roomID, ev); err != nil {
		logger.Warnf("[relay] publish room-info room=%s: %v", roomID, err)
	}
	if frame, err := BuildRoomInfo(ev); err == nil {
		c.FanoutRoom(roomID, frame)
	}
}

// ===== envelope intake =====

// onEnvelope is the bus handler shared by every room subscription.
// It drops undecodable frames and everything this server published
// itself.
func (c *Coordinator) onEnvelope(channel string, payload []byte) {
	env, err := DecodeEnvelope(payload)
	if err != nil {
		logger.Warnf("[relay] drop envelope on %s: %v", channel, err)
		return
	}
	if env.OriginID == c.conf.ServerID {
		return // our own publish echoed back
	}
	ctx, cancel := context.WithTimeout(context.Background(), relayOpTimeout)
	defer cancel()
	if err := c.disp.Dispatch(ctx, env); err != nil {
		logger.Warnf("[relay] handle %s envelope: %v", env.Type, err)
	}
}

// ===== fan-out =====

func (c *Coordinator) FanoutRoom(roomID string, payload []byte) {
	c.fan.Broadcast(c.roomSinks(roomID, ""), payload)
}

func (c *Coordinator) FanoutRoomExceptUser(roomID, userID string, payload []byte) {
	c.fan.Broadcast(c.roomSinks(roomID, userID), payload)
}

func (c *Coordinator) roomSinks(roomID, skipUserID string) []Sink {
	c.mu.RLock()
	defer c.mu.RUnlock()
	room := c.byRoom[roomID]
	if len(room) == 0 {
		return nil
	}
	out := make([]Sink, 0, len(room))
	for _, cn := range room {
		if skipUserID != "" && cn.info.UserID == skipUserID {
			continue
		}
		out = append(out, cn.sink)
	}
	return out
}

// ===== helpers and introspection =====

func (c *Coordinator) lookup(connID string) *localConn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byConn[connID]
}

// Lookup returns the local record of a connection.
func (c *Coordinator) Lookup(connID string) (storage.ConnectionInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cn, ok := c.byConn[connID]
	if !ok {
		return storage.ConnectionInfo{}, false
	}
	return cn.info, true
}

func (c *Coordinator) LocalConnCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byConn)
}

// LocalRoomCounts maps room ID to the number of connections this
// server terminates for it.
func (c *Coordinator) LocalRoomCounts() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int, len(c.byRoom))
	for id, room := range c.byRoom {
		out[id] = len(room)
	}
	return out
}

// RoomStats answers the fleet-wide roster straight from the registry.
func (c *Coordinator) RoomStats(ctx context.Context, roomID string) (storage.RoomStats, error) {
	return storage.ComputeRoomStats(ctx, c.reg, roomID)
}

func (c *Coordinator) HealthCheck(ctx context.Context) error {
	return c.bus.HealthCheck(ctx)
}

func (c *Coordinator) removeFromRoomLocked(roomID, connID string) {
	room := c.byRoom[roomID]
	if room == nil {
		return
	}
	delete(room, connID)
	if len(room) == 0 {
		// the local table empties but the bus subscription stays
		delete(c.byRoom, roomID)
	}
}

func (c *Coordinator) sendError(s Sink, cerr errs.CodeError) {
	msg := cerr.Msg
	if cerr.Detail != "" {
		msg = cerr.Detail
	}
	frame, err := BuildErrorEvent(cerr.Code, msg)
	if err != nil {
		logger.Errorf("[relay] build error event: %v", err)
		return
	}
	if !s.Enqueue(frame) {
		logger.Warnf("[relay] drop error event for %s", s.ID())
	}
}

func (c *Coordinator) publishEnvelope(ctx context.Context, t EnvelopeType, roomID string, payload any) error {
	b, err := encodeEnvelope(t, c.conf.ServerID, payload)
	if err != nil {
		return err
	}
	return c.bus.Publish(ctx, broadcast.RoomChannel(roomID), b)
}

func encodeEnvelope(t EnvelopeType, origin string, payload any) ([]byte, error) {
	env, err := NewEnvelope(t, origin, payload)
	if err != nil {
		return nil, err
	}
	return env.Encode()
}

// Shutdown deregisters every local connection and releases the bus.
// Anything missed converges via record expiry on the other servers.
func (c *Coordinator) Shutdown(ctx context.Context) {
	c.mu.Lock()
	conns := make([]string, 0, len(c.byConn))
	for id := range c.byConn {
		conns = append(conns, id)
	}
	c.byConn = make(map[string]*localConn)
	c.byRoom = make(map[string]map[string]*localConn)
	c.mu.Unlock()

	for _, id := range conns {
		if err := c.reg.Remove(ctx, id); err != nil {
			logger.Warnf("[relay] shutdown remove %s: %v", id, err)
		}
	}
	if err := c.bus.Shutdown(ctx); err != nil {
		logger.Warnf("[relay] bus shutdown: %v", err)
	}
	c.fan.Close()
}

package relay

import (
	"context"
	"sync"

	"PRelay/service/broadcast"
)

// RoomSubs tracks which room channels this server has joined on the
// bus. A room turns subscribed on the first local join and stays that
// way even after the last local member leaves; only an administrative
// Unsubscribe reverses it.
type RoomSubs struct {
	mu   sync.Mutex
	subs map[string]struct{}
}

func NewRoomSubs() *RoomSubs {
	return &RoomSubs{subs: make(map[string]struct{})}
}

// EnsureSubscribed subscribes the room channel exactly once, attaching
// h. Concurrent joiners of a fresh room race here; the mutex spans the
// bus call so exactly one of them performs it.
func (s *RoomSubs) EnsureSubscribed(ctx context.Context, bus broadcast.Bus, roomID string, h broadcast.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[roomID]; ok {
		return nil
	}
	if err := bus.Subscribe(ctx, broadcast.RoomChannel(roomID), h); err != nil {
		return err
	}
	s.subs[roomID] = struct{}{}
	return nil
}

func (s *RoomSubs) IsSubscribed(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subs[roomID]
	return ok
}

// Unsubscribe detaches the room channel. Administrative use only,
// normal traffic never calls it.
func (s *RoomSubs) Unsubscribe(ctx context.Context, bus broadcast.Bus, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[roomID]; !ok {
		return nil
	}
	if err := bus.Unsubscribe(ctx, broadcast.RoomChannel(roomID)); err != nil {
		return err
	}
	delete(s.subs, roomID)
	return nil
}

// Rooms lists the subscribed room IDs.
func (s *RoomSubs) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.subs))
	for id := range s.subs {
		out = append(out, id)
	}
	return out
}

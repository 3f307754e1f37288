package storage

import (
	"context"
	"time"
)

// ===== presence =====

type RoomMember struct {
	UserID   string    `json:"userId"`
	UserName string    `json:"userName"`
	ServerID string    `json:"serverId"`
	JoinedAt time.Time `json:"joinedAt"`
}

type RoomStats struct {
	RoomID    string       `json:"roomId"`
	UserCount int          `json:"userCount"`
	Members   []RoomMember `json:"members"`
}

// ComputeRoomStats derives the fleet-wide roster of a room straight
// from the registry. Nothing is cached, every call pays one full scan
// of all connection records regardless of room. A user connected more
// than once counts once; the first record scanned supplies the fields.
func ComputeRoomStats(ctx context.Context, reg Registry, roomID string) (RoomStats, error) {
	infos, err := reg.Scan(ctx)
	if err != nil {
		return RoomStats{}, err
	}

	stats := RoomStats{RoomID: roomID, Members: []RoomMember{}}
	seen := make(map[string]struct{})
	for _, info := range infos {
		if info.RoomID != roomID {
			continue
		}
		if _, dup := seen[info.UserID]; dup {
			continue
		}
		seen[info.UserID] = struct{}{}
		stats.Members = append(stats.Members, RoomMember{
			UserID:   info.UserID,
			UserName: info.UserName,
			ServerID: info.ServerID,
			JoinedAt: info.JoinedAt,
		})
	}
	stats.UserCount = len(stats.Members)
	return stats, nil
}

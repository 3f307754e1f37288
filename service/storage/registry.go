package storage

import (
	"context"
	"time"
)

// ===== connection registry =====

// DefaultConnTTL bounds how long a record outlives its server. A
// crashed server never cleans up, expiry is the only garbage collector.
const DefaultConnTTL = time.Hour

const (
	connKeyPrefix = "connection:"
	scanCount     = 100
)

// ConnKey builds the registry key for a connection.
func ConnKey(connID string) string {
	return connKeyPrefix + connID
}

// ConnectionInfo is the fleet-shared record of one live client socket.
// One record per connection, the accepting server writes it and is the
// only writer while it lives.
type ConnectionInfo struct {
	ConnID   string    `json:"connectionId"`
	UserID   string    `json:"userId"`
	UserName string    `json:"userName"`
	RoomID   string    `json:"roomId"`
	ServerID string    `json:"serverId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Registry is the shared connection directory. Record overwrites
// unconditionally (last writer wins), Remove of a missing record is
// not an error, Scan visits every live record and self-heals corrupt
// ones by deleting them.
type Registry interface {
	Record(ctx context.Context, info ConnectionInfo) error
	Remove(ctx context.Context, connID string) error
	Scan(ctx context.Context) ([]ConnectionInfo, error)
}

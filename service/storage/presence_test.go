package storage

import (
	"context"
	"testing"
	"time"
)

func seedRegistry(t *testing.T) *MemRegistry {
	t.Helper()
	reg := NewMemRegistry(MemRegistryConf{TTL: time.Minute})
	ctx := context.Background()
	for _, in := range []ConnectionInfo{
		conn("c1", "u1", "r1", "s1"),
		conn("c2", "u2", "r1", "s2"),
		conn("c3", "u3", "r2", "s1"),
	} {
		if err := reg.Record(ctx, in); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return reg
}

func memberSet(stats RoomStats) map[string]bool {
	m := make(map[string]bool, len(stats.Members))
	for _, mem := range stats.Members {
		m[mem.UserID] = true
	}
	return m
}

func TestComputeRoomStatsFiltersByRoom(t *testing.T) {
	reg := seedRegistry(t)
	ctx := context.Background()

	stats, err := ComputeRoomStats(ctx, reg, "r1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if stats.RoomID != "r1" || stats.UserCount != 2 {
		t.Fatalf("r1 stats wrong: %+v", stats)
	}
	members := memberSet(stats)
	if !members["u1"] || !members["u2"] || members["u3"] {
		t.Fatalf("r1 roster wrong: %v", members)
	}

	stats2, err := ComputeRoomStats(ctx, reg, "r2")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if stats2.UserCount != 1 || !memberSet(stats2)["u3"] {
		t.Fatalf("r2 stats wrong: %+v", stats2)
	}
}

func TestComputeRoomStatsDedupByUser(t *testing.T) {
	reg := NewMemRegistry(MemRegistryConf{TTL: time.Minute})
	ctx := context.Background()

	// same user twice, different connections on different servers
	_ = reg.Record(ctx, conn("c1", "u1", "r1", "s1"))
	_ = reg.Record(ctx, conn("c2", "u1", "r1", "s2"))

	stats, err := ComputeRoomStats(ctx, reg, "r1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if stats.UserCount != 1 || len(stats.Members) != 1 {
		t.Fatalf("duplicate user not collapsed: %+v", stats)
	}
	if stats.Members[0].UserID != "u1" {
		t.Fatalf("wrong surviving member: %+v", stats.Members)
	}
}

func TestComputeRoomStatsIdempotent(t *testing.T) {
	reg := seedRegistry(t)
	ctx := context.Background()

	first, err := ComputeRoomStats(ctx, reg, "r1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	before := reg.Len()
	second, err := ComputeRoomStats(ctx, reg, "r1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if first.UserCount != second.UserCount {
		t.Fatalf("counts differ across calls: %d vs %d", first.UserCount, second.UserCount)
	}
	a, b := memberSet(first), memberSet(second)
	for id := range a {
		if !b[id] {
			t.Fatalf("rosters differ across calls: %v vs %v", a, b)
		}
	}
	if reg.Len() != before {
		t.Fatalf("pure computation mutated the registry")
	}
}

func TestComputeRoomStatsEmptyRoom(t *testing.T) {
	reg := seedRegistry(t)

	stats, err := ComputeRoomStats(context.Background(), reg, "nobody-here")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if stats.UserCount != 0 {
		t.Fatalf("empty room counted %d users", stats.UserCount)
	}
	if stats.Members == nil || len(stats.Members) != 0 {
		t.Fatalf("empty room must report an empty roster, got %#v", stats.Members)
	}
}

func TestComputeRoomStatsSkipsCorrupt(t *testing.T) {
	reg := seedRegistry(t)
	reg.PutRaw(ConnKey("junk"), []byte("%%%"))

	stats, err := ComputeRoomStats(context.Background(), reg, "r1")
	if err != nil {
		t.Fatalf("compute must survive corrupt records, got %v", err)
	}
	if stats.UserCount != 2 {
		t.Fatalf("corrupt record altered the count: %+v", stats)
	}
	if reg.Has(ConnKey("junk")) {
		t.Fatalf("corrupt record not healed during stats scan")
	}
}

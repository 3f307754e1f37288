package storage

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func conn(id, user, room, server string) ConnectionInfo {
	return ConnectionInfo{
		ConnID:   id,
		UserID:   user,
		UserName: "name-" + user,
		RoomID:   room,
		ServerID: server,
		JoinedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRecordScanRoundTrip(t *testing.T) {
	reg := NewMemRegistry(MemRegistryConf{TTL: time.Minute})
	ctx := context.Background()

	if err := reg.Record(ctx, conn("c1", "u1", "r1", "s1")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := reg.Record(ctx, conn("c2", "u2", "r1", "s2")); err != nil {
		t.Fatalf("record: %v", err)
	}

	infos, err := reg.Scan(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("scan returned %d records, want 2", len(infos))
	}
	byID := map[string]ConnectionInfo{}
	for _, in := range infos {
		byID[in.ConnID] = in
	}
	if byID["c1"].UserID != "u1" || byID["c2"].ServerID != "s2" {
		t.Fatalf("fields lost in round trip: %+v", byID)
	}
}

func TestRecordOverwriteLastWriterWins(t *testing.T) {
	reg := NewMemRegistry(MemRegistryConf{TTL: time.Minute})
	ctx := context.Background()

	_ = reg.Record(ctx, conn("c1", "u1", "r1", "s1"))
	_ = reg.Record(ctx, conn("c1", "u1", "r2", "s1"))

	if reg.Len() != 1 {
		t.Fatalf("overwrite produced %d records, want 1", reg.Len())
	}
	infos, _ := reg.Scan(ctx)
	if len(infos) != 1 || infos[0].RoomID != "r2" {
		t.Fatalf("latest write did not win: %+v", infos)
	}
}

func TestRemoveMissingIsNoError(t *testing.T) {
	reg := NewMemRegistry(MemRegistryConf{TTL: time.Minute})
	if err := reg.Remove(context.Background(), "never-recorded"); err != nil {
		t.Fatalf("remove of missing record must be silent, got %v", err)
	}
}

func TestExpiredRecordsDropFromScan(t *testing.T) {
	clk := newFakeClock()
	reg := NewMemRegistry(MemRegistryConf{TTL: time.Hour, Clock: clk.Now})
	ctx := context.Background()

	_ = reg.Record(ctx, conn("c1", "u1", "r1", "s1"))

	clk.Advance(30 * time.Minute)
	if infos, _ := reg.Scan(ctx); len(infos) != 1 {
		t.Fatalf("record expired early")
	}

	clk.Advance(31 * time.Minute)
	infos, err := reg.Scan(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expired record still visible: %+v", infos)
	}
	if reg.Len() != 0 {
		t.Fatalf("expired record not collected")
	}
}

func TestCorruptRecordSelfHeals(t *testing.T) {
	reg := NewMemRegistry(MemRegistryConf{TTL: time.Minute})
	ctx := context.Background()

	_ = reg.Record(ctx, conn("good", "u1", "r1", "s1"))
	reg.PutRaw(ConnKey("bad"), []byte("{definitely not json"))

	infos, err := reg.Scan(ctx)
	if err != nil {
		t.Fatalf("scan must survive a corrupt record, got %v", err)
	}
	if len(infos) != 1 || infos[0].ConnID != "good" {
		t.Fatalf("scan result wrong: %+v", infos)
	}
	if reg.Has(ConnKey("bad")) {
		t.Fatalf("corrupt record was not deleted")
	}
	if !reg.Has(ConnKey("good")) {
		t.Fatalf("healthy record deleted alongside the corrupt one")
	}
}

func TestWrongShapeRecordCountsAsCorrupt(t *testing.T) {
	reg := NewMemRegistry(MemRegistryConf{TTL: time.Minute})

	// parses as JSON but carries no connection identity
	reg.PutRaw(ConnKey("empty"), []byte("{}"))

	infos, err := reg.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("shapeless record surfaced: %+v", infos)
	}
	if reg.Has(ConnKey("empty")) {
		t.Fatalf("shapeless record was not deleted")
	}
}

package main

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordSession(t *testing.T) {
	db := openTestDB(t)
	if err := db.RecordSession("s1", "map1", 120.5, 3); err != nil {
		t.Fatal(err)
	}
	// Re-recording the same session id overwrites instead of erroring.
	if err := db.RecordSession("s1", "map1", 130.0, 4); err != nil {
		t.Fatal(err)
	}
}

func TestPlayerStatsAccumulate(t *testing.T) {
	db := openTestDB(t)
	if err := db.AddPlayerStats("alice", 3, 1); err != nil {
		t.Fatal(err)
	}
	if err := db.AddPlayerStats("alice", 2, 4); err != nil {
		t.Fatal(err)
	}

	row, err := db.GetPlayerStats("alice")
	if err != nil {
		t.Fatal(err)
	}
	if row == nil {
		t.Fatal("stats row missing")
	}
	if row.Frags != 5 || row.Deaths != 5 {
		t.Errorf("frags=%d deaths=%d, want 5 and 5", row.Frags, row.Deaths)
	}

	unknown, err := db.GetPlayerStats("nobody")
	if err != nil {
		t.Fatal(err)
	}
	if unknown != nil {
		t.Errorf("unknown player returned %+v, want nil", unknown)
	}
}

func TestInsertEventsBatch(t *testing.T) {
	db := openTestDB(t)
	now := time.Now().UTC()
	events := []GameEvent{
		{Type: EvtFrag, SessionID: "s1", Actor: "alice", Subject: "bob", Timestamp: now},
		{Type: EvtDeath, SessionID: "s1", Actor: "bob", Subject: "alice", Timestamp: now},
		{Type: EvtPickup, SessionID: "s2", Actor: "carol", Subject: "health-a", Timestamp: now},
	}
	if err := db.InsertEvents(events); err != nil {
		t.Fatal(err)
	}

	n, err := db.SessionEventCount("s1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("s1 events = %d, want 2", n)
	}
}

func TestAnalyticsFlushOnStop(t *testing.T) {
	db := openTestDB(t)
	a := NewAnalytics(db)
	for i := 0; i < 10; i++ {
		a.Track(EvtHit, "s1", "alice", "bob")
	}
	a.Stop()

	n, err := db.SessionEventCount("s1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Errorf("flushed events = %d, want 10", n)
	}
}

package ledger

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "analyzer.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("closing database: %v", err)
		}
	})
	return db
}

func TestDB_RunsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	runID, err := db.LatestRunID()
	if err != nil {
		t.Fatalf("LatestRunID failed: %v", err)
	}
	if runID != "" {
		t.Errorf("expected empty ledger, got run %q", runID)
	}

	if err := db.InsertRun("run-1", "pubkey-hex", time.Now()); err != nil {
		t.Fatalf("InsertRun failed: %v", err)
	}

	runID, err = db.LatestRunID()
	if err != nil {
		t.Fatalf("LatestRunID failed: %v", err)
	}
	if runID != "run-1" {
		t.Errorf("expected run-1, got %q", runID)
	}

	key, err := db.RunPublicKey("run-1")
	if err != nil {
		t.Fatalf("RunPublicKey failed: %v", err)
	}
	if key != "pubkey-hex" {
		t.Errorf("expected stored public key, got %q", key)
	}
}

func TestDB_EventsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	if err := db.InsertRun("run-1", "pk", time.Now()); err != nil {
		t.Fatalf("InsertRun failed: %v", err)
	}

	event := &Event{
		ID:          "ev-1",
		RunID:       "run-1",
		SeqIndex:    0,
		Timestamp:   time.Now().UTC(),
		EventType:   EventRequest,
		Method:      "analyze_complexity",
		RequestID:   "1",
		Params:      map[string]interface{}{"file": "a.py"},
		Outcome:     "ok",
		PrevHash:    "prev",
		CurrentHash: "curr",
		Signature:   "sig",
	}
	if err := db.InsertEvent(event); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}

	events, err := db.EventsForRun("run-1")
	if err != nil {
		t.Fatalf("EventsForRun failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	got := events[0]
	if got.Method != "analyze_complexity" || got.RequestID != "1" || got.Outcome != "ok" {
		t.Errorf("unexpected event: %+v", got)
	}
	if got.Params["file"] != "a.py" {
		t.Errorf("params did not round-trip: %v", got.Params)
	}
	if !got.Timestamp.Equal(event.Timestamp) {
		t.Errorf("timestamp did not round-trip: %v vs %v", got.Timestamp, event.Timestamp)
	}

	count, err := db.CountEvents("run-1")
	if err != nil {
		t.Fatalf("CountEvents failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 event, got %d", count)
	}
}

func TestDB_RecentEventsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	if err := db.InsertRun("run-1", "pk", time.Now()); err != nil {
		t.Fatalf("InsertRun failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		event := &Event{
			ID:          "ev-" + string(rune('a'+i)),
			RunID:       "run-1",
			SeqIndex:    i,
			Timestamp:   time.Now().UTC(),
			EventType:   EventRequest,
			Method:      "echo",
			Params:      map[string]interface{}{},
			Outcome:     "ok",
			PrevHash:    "p",
			CurrentHash: "c",
			Signature:   "s",
		}
		if err := db.InsertEvent(event); err != nil {
			t.Fatalf("InsertEvent %d failed: %v", i, err)
		}
	}

	events, err := db.RecentEvents("run-1", 3)
	if err != nil {
		t.Fatalf("RecentEvents failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, want := range []int{4, 3, 2} {
		if events[i].SeqIndex != want {
			t.Errorf("position %d: expected seq %d, got %d", i, want, events[i].SeqIndex)
		}
	}
}

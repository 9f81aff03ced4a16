package history

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBeginFinishRun(t *testing.T) {
	db := openTestDB(t)

	run, err := db.BeginRun(2, "/dev/sdb", "batocera-rg353x-41.img.gz")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if run.ID == "" {
		t.Fatal("empty run id")
	}

	run.Event("flash", EventDone, "")
	run.Event("repair", EventDegraded, "fatlabel: busy")

	if err := run.Finish(StatusCompleted); err != nil {
		t.Fatalf("finish: %v", err)
	}

	records, err := db.RecentRuns(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.ID != run.ID || rec.DiskIndex != 2 || rec.Status != StatusCompleted {
		t.Errorf("record = %+v", rec)
	}
	if rec.FinishedAt == nil {
		t.Error("finished_at not set")
	}

	events, err := db.Events(run.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1].Stage != "repair" || events[1].Status != EventDegraded {
		t.Errorf("event = %+v", events[1])
	}
}

func TestRecentRunsOrder(t *testing.T) {
	db := openTestDB(t)

	for i := 1; i <= 3; i++ {
		run, err := db.BeginRun(i, "/dev/sdb", "local.img")
		if err != nil {
			t.Fatal(err)
		}
		run.Finish(StatusFailed)
	}

	records, err := db.RecentRuns(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want limit of 2", len(records))
	}
}

func TestMigrationIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	db.Close()
}

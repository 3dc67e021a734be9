package history

import (
	"database/sql"
	"testing"
	"time"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestInitMigrates tests that a fresh database lands on the current schema.
func TestInitMigrates(t *testing.T) {
	db := setupTestDB(t)
	version, err := getUserVersion(db)
	if err != nil {
		t.Fatalf("failed to read user_version: %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", CurrentSchemaVersion, version)
	}
}

// TestInitIdempotent tests that reopening an existing database works.
func TestInitIdempotent(t *testing.T) {
	dir := t.TempDir()
	db, err := Init(dir)
	if err != nil {
		t.Fatalf("failed to init: %v", err)
	}
	db.Close()

	db, err = Init(dir)
	if err != nil {
		t.Fatalf("failed to reopen: %v", err)
	}
	db.Close()
}

// TestNewRunID tests ULID generation.
func TestNewRunID(t *testing.T) {
	a, err := NewRunID()
	if err != nil {
		t.Fatalf("failed to generate run id: %v", err)
	}
	b, err := NewRunID()
	if err != nil {
		t.Fatalf("failed to generate run id: %v", err)
	}
	if len(a) != 26 {
		t.Errorf("expected 26-char ULID, got %q", a)
	}
	if a == b {
		t.Error("expected distinct run ids")
	}
}

// testRun returns a populated run record.
func testRun(id string, failed int) *Run {
	now := time.Now().UnixMilli()
	out := "srt_corrected/lecture_corrected.srt"
	r := &Run{
		ID:           id,
		Direction:    "correct",
		InputPath:    "srt_file/lecture.srt",
		OutputPath:   &out,
		Model:        "gpt-4o-mini",
		CueCount:     120,
		BatchCount:   24,
		ChangedCount: 37,
		FailedCount:  failed,
		StartedAt:    now,
		FinishedAt:   now + 1500,
	}
	return r
}

// TestInsertAndListRuns tests the round trip, newest first.
func TestInsertAndListRuns(t *testing.T) {
	db := setupTestDB(t)

	first := testRun("01FIRST", 0)
	second := testRun("01SECOND", 0)
	second.StartedAt = first.StartedAt + 1000

	if err := InsertRun(db, first, nil); err != nil {
		t.Fatalf("failed to insert run: %v", err)
	}
	if err := InsertRun(db, second, nil); err != nil {
		t.Fatalf("failed to insert run: %v", err)
	}

	runs, err := ListRuns(db, 10)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "01SECOND" || runs[1].ID != "01FIRST" {
		t.Errorf("expected newest first, got %s then %s", runs[0].ID, runs[1].ID)
	}
	if runs[0].OutputPath == nil || *runs[0].OutputPath != "srt_corrected/lecture_corrected.srt" {
		t.Errorf("output path not preserved: %+v", runs[0].OutputPath)
	}
}

// TestInsertRunWithFailures tests the failure manifest round trip.
func TestInsertRunWithFailures(t *testing.T) {
	db := setupTestDB(t)

	run := testRun("01FAILED", 2)
	run.OutputPath = nil
	failures := []Failure{
		{BatchIndex: 3, CueStart: 11, CueEnd: 15, Message: "model overloaded"},
		{BatchIndex: 7, CueStart: 31, CueEnd: 35, Message: "timeout"},
	}
	if err := InsertRun(db, run, failures); err != nil {
		t.Fatalf("failed to insert run: %v", err)
	}

	got, err := FailuresForRun(db, "01FAILED")
	if err != nil {
		t.Fatalf("failed to list failures: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(got))
	}
	if got[0].BatchIndex != 3 || got[0].CueStart != 11 || got[0].CueEnd != 15 {
		t.Errorf("unexpected failure %+v", got[0])
	}
	if got[1].Message != "timeout" {
		t.Errorf("unexpected failure %+v", got[1])
	}

	runs, err := ListRuns(db, 10)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if runs[0].OutputPath != nil {
		t.Errorf("expected nil output path for failed strict run, got %v", *runs[0].OutputPath)
	}
}

// TestListRunsLimit tests the limit clause.
func TestListRunsLimit(t *testing.T) {
	db := setupTestDB(t)
	for i := 0; i < 5; i++ {
		run := testRun(string(rune('A'+i))+"RUN", 0)
		run.StartedAt += int64(i * 1000)
		if err := InsertRun(db, run, nil); err != nil {
			t.Fatalf("failed to insert run: %v", err)
		}
	}
	runs, err := ListRuns(db, 3)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("expected 3 runs, got %d", len(runs))
	}
}

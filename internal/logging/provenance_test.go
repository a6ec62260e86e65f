package logging

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "prov.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	_, err = db.Exec(`CREATE TABLE provenance_log (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		version_id  TEXT NOT NULL,
		run_id      TEXT NOT NULL,
		step        INTEGER NOT NULL,
		action      TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		message     TEXT,
		fields_json TEXT,
		created_at  TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-decision-tests
func TestLogDecision_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := ProvenanceEntry{
		VersionID:  "v1",
		RunID:      "r1",
		Step:       18,
		Action:     "commit",
		Outcome:    "blocked",
		Message:    "ROE 1",
		FieldsJSON: `{"target":"T-01"}`,
		CreatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := LogDecision(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := ListDecisions(db, "r1")
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if !got[0].CreatedAt.Equal(entry.CreatedAt) {
		t.Errorf("created_at: got %v, want %v", got[0].CreatedAt, entry.CreatedAt)
	}
	got[0].CreatedAt = entry.CreatedAt
	if got[0] != entry {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got[0], entry)
	}
}

func TestLogDecision_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	if err := LogDecision(db, ProvenanceEntry{VersionID: "v2", RunID: "r1", Action: "advance", Outcome: "success"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM provenance_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogDecision_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	if err := LogDecision(db, ProvenanceEntry{VersionID: "v3", RunID: "r1", Action: "review", Outcome: "info"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var message, fields sql.NullString
	db.QueryRow("SELECT message, fields_json FROM provenance_log").Scan(&message, &fields)
	if message.Valid {
		t.Error("expected NULL message for empty string")
	}
	if fields.Valid {
		t.Error("expected NULL fields_json for empty string")
	}
}

func TestListDecisions_FiltersAndOrders(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	for i, a := range []string{"review", "commit", "advance"} {
		LogDecision(db, ProvenanceEntry{VersionID: "v", RunID: "r1", Step: i, Action: a, Outcome: "success"})
	}
	LogDecision(db, ProvenanceEntry{VersionID: "v", RunID: "r2", Action: "decline", Outcome: "success"})

	got, err := ListDecisions(db, "r1")
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(got) != 3 || got[0].Action != "review" || got[2].Action != "advance" {
		t.Fatalf("unexpected rows %+v", got)
	}
}

func TestLogDecision_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	if err := LogDecision(db, ProvenanceEntry{VersionID: "v4", Action: "commit", Outcome: "success"}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-decision-tests

func TestNullIfEmpty(t *testing.T) {
	if nullIfEmpty("") != nil {
		t.Error("expected nil for empty string")
	}
	if nullIfEmpty("hello") != "hello" {
		t.Error("expected value for non-empty string")
	}
}

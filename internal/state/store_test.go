package state

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/ethics-harness/internal/ethics"
	"github.com/danielpatrickdp/ethics-harness/internal/gate"
	"github.com/danielpatrickdp/ethics-harness/internal/logging"
	"github.com/danielpatrickdp/ethics-harness/internal/snapshot"
	"github.com/danielpatrickdp/ethics-harness/internal/world"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSnapshot(step int) snapshot.Snapshot {
	return snapshot.Snapshot{
		Header: snapshot.Header{Version: snapshot.Version, Domain: "strike", Step: step},
		Config: snapshot.Config{Domain: "strike", Seed: 42, TotalSteps: 48, Variant: gate.Enforced},
		World: world.World{
			Clock:      world.Clock{Step: step, TotalSteps: 48},
			Metrics:    world.Metrics{Values: map[string]float64{"command_approval": 60}, Tallies: map[string]int{}},
			Log:        world.DecisionLog{},
			NextReport: 1,
		},
		Ethics: ethics.State{Scores: map[string]float64{"honesty": 100}, Counters: map[string]int{}},
		RNG:    []byte{1, 2, 3},
	}
}

func TestCreateRunAndGetCurrent(t *testing.T) {
	s := tempDB(t)

	if _, _, err := s.GetCurrent(); !errors.Is(err, ErrNoActiveRun) {
		t.Fatalf("expected ErrNoActiveRun on empty store, got %v", err)
	}

	run, ver, err := s.CreateRun(testSnapshot(0), `{"step":0}`)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if run.RunID == "" || ver.VersionID == "" {
		t.Fatal("expected generated ids")
	}
	if ver.ParentID != "" {
		t.Fatalf("expected no parent, got %s", ver.ParentID)
	}

	gotRun, gotVer, err := s.GetCurrent()
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if gotRun.RunID != run.RunID || gotRun.Seed != 42 || gotRun.Variant != "enforced" || gotRun.TotalSteps != 48 {
		t.Fatalf("unexpected run %+v", gotRun)
	}
	if gotVer.VersionID != ver.VersionID || gotVer.Summary != `{"step":0}` {
		t.Fatalf("unexpected version %+v", gotVer)
	}

	snap, err := gotVer.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(snap, testSnapshot(0)) {
		t.Fatalf("snapshot mismatch:\n got %+v\nwant %+v", snap, testSnapshot(0))
	}
}

func TestLargeSeedRoundTrips(t *testing.T) {
	s := tempDB(t)
	snap := testSnapshot(0)
	snap.Config.Seed = 1<<64 - 1
	run, _, err := s.CreateRun(snap, "")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	got, err := s.GetRun(run.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Seed != snap.Config.Seed {
		t.Fatalf("seed %d, want %d", got.Seed, snap.Config.Seed)
	}
}

func TestCommitAndRollback(t *testing.T) {
	s := tempDB(t)
	_, v1, err := s.CreateRun(testSnapshot(0), "")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	v2, err := s.CommitVersion(testSnapshot(1), "")
	if err != nil {
		t.Fatalf("CommitVersion: %v", err)
	}
	if v2.ParentID != v1.VersionID {
		t.Fatalf("expected parent %s, got %s", v1.VersionID, v2.ParentID)
	}
	v3, err := s.CommitVersion(testSnapshot(2), "")
	if err != nil {
		t.Fatalf("CommitVersion: %v", err)
	}

	_, cur, _ := s.GetCurrent()
	if cur.VersionID != v3.VersionID || cur.Step != 2 {
		t.Fatalf("expected v3 at step 2, got %s at %d", cur.VersionID, cur.Step)
	}

	if _, err := s.Rollback(v1.VersionID); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	_, cur, _ = s.GetCurrent()
	if cur.VersionID != v1.VersionID {
		t.Fatalf("expected v1 after rollback, got %s", cur.VersionID)
	}

	// Committing after a rollback branches from the rolled-back version.
	v4, err := s.CommitVersion(testSnapshot(1), "")
	if err != nil {
		t.Fatalf("CommitVersion: %v", err)
	}
	if v4.ParentID != v1.VersionID {
		t.Fatalf("expected branch from v1, got parent %s", v4.ParentID)
	}
}

func TestRollbackNonExistent(t *testing.T) {
	s := tempDB(t)
	s.CreateRun(testSnapshot(0), "")
	if _, err := s.Rollback("nonexistent-id"); err == nil {
		t.Fatal("expected error for non-existent version")
	}
}

func TestCommitVersionRequiresRun(t *testing.T) {
	s := tempDB(t)
	if _, err := s.CommitVersion(testSnapshot(1), ""); !errors.Is(err, ErrNoActiveRun) {
		t.Fatalf("expected ErrNoActiveRun, got %v", err)
	}
	s.CreateRun(testSnapshot(0), "")
	other := testSnapshot(1)
	other.Config.Seed = 7
	if _, err := s.CommitVersion(other, ""); err == nil {
		t.Fatal("expected error for a snapshot of another run")
	}
}

func TestCreateRunSwitchesActive(t *testing.T) {
	s := tempDB(t)
	first, v1, _ := s.CreateRun(testSnapshot(0), "")
	second, _, err := s.CreateRun(testSnapshot(0), "")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	run, _, _ := s.GetCurrent()
	if run.RunID != second.RunID {
		t.Fatalf("expected second run active")
	}
	if _, err := s.Rollback(v1.VersionID); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	run, _, _ = s.GetCurrent()
	if run.RunID != first.RunID {
		t.Fatalf("rollback should reactivate the first run")
	}
}

func TestListVersions(t *testing.T) {
	s := tempDB(t)
	run, _, _ := s.CreateRun(testSnapshot(0), "")
	for step := 1; step <= 3; step++ {
		if _, err := s.CommitVersion(testSnapshot(step), ""); err != nil {
			t.Fatalf("CommitVersion: %v", err)
		}
	}

	versions, err := s.ListVersions(run.RunID, 10)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 4 {
		t.Fatalf("expected 4 versions, got %d", len(versions))
	}
	for i, v := range versions {
		if v.Step != 3-i {
			t.Fatalf("expected newest first, got step %d at %d", v.Step, i)
		}
	}

	limited, _ := s.ListVersions(run.RunID, 2)
	if len(limited) != 2 {
		t.Fatalf("expected limit 2, got %d", len(limited))
	}
}

func TestListVersionsWithProvenance(t *testing.T) {
	s := tempDB(t)
	run, v1, _ := s.CreateRun(testSnapshot(0), "")
	v2, _ := s.CommitVersion(testSnapshot(0), "")

	entries := []logging.ProvenanceEntry{
		{VersionID: v1.VersionID, RunID: run.RunID, Action: "commit", Outcome: "blocked", Message: "ROE 1"},
		{VersionID: v2.VersionID, RunID: run.RunID, Action: "review", Outcome: "success"},
	}
	for _, e := range entries {
		if err := logging.LogDecision(s.DB(), e); err != nil {
			t.Fatalf("LogDecision: %v", err)
		}
	}

	got, err := s.ListVersionsWithProvenance(run.RunID, 10)
	if err != nil {
		t.Fatalf("ListVersionsWithProvenance: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].VersionID != v2.VersionID || got[0].Action != "review" || got[0].Outcome != "success" {
		t.Fatalf("unexpected newest row %+v", got[0])
	}
	if got[1].Action != "commit" || got[1].Message != "ROE 1" {
		t.Fatalf("unexpected oldest row %+v", got[1])
	}
}

func TestResolveVersion(t *testing.T) {
	s := tempDB(t)
	run, v1, _ := s.CreateRun(testSnapshot(0), "")

	id, err := s.ResolveVersion(run.RunID, v1.VersionID[:8])
	if err != nil {
		t.Fatalf("ResolveVersion: %v", err)
	}
	if id != v1.VersionID {
		t.Fatalf("expected %s, got %s", v1.VersionID, id)
	}
	if _, err := s.ResolveVersion(run.RunID, "zzzz"); err == nil {
		t.Fatal("expected error for unknown prefix")
	}
	if _, err := s.ResolveVersion(run.RunID, ""); err != nil {
		t.Fatalf("single version should match the empty prefix: %v", err)
	}
}

func TestNewStoreInvalidPath(t *testing.T) {
	_, err := NewStore(filepath.Join(string(os.PathSeparator), "nonexistent", "deep", "path", "test.db"))
	if err == nil {
		t.Fatal("expected error for invalid path")
	}
}

func TestGetVersionNotFound(t *testing.T) {
	s := tempDB(t)
	if _, err := s.GetVersion("nonexistent-id"); err == nil {
		t.Fatal("expected error for nonexistent version")
	}
}

func TestCreateRunOnClosedDB(t *testing.T) {
	s := tempDB(t)
	s.Close()
	if _, _, err := s.CreateRun(testSnapshot(0), ""); err == nil {
		t.Fatal("expected error on closed DB")
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/danielpatrickdp/ethics-harness/internal/world"
)

// harness runs one CLI invocation against db and returns stdout.
func harness(t *testing.T, db, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--db", db}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustHarness(t *testing.T, db string, args ...string) string {
	t.Helper()
	out, err := harness(t, db, "", args...)
	if err != nil {
		t.Fatalf("harness %v: %v", args, err)
	}
	return out
}

func status(t *testing.T, db string) world.View {
	t.Helper()
	var v world.View
	out := mustHarness(t, db, "status", "--json")
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	return v
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "harness.db")
}

func TestStatusWithoutRun(t *testing.T) {
	_, err := harness(t, tempDB(t), "", "status")
	if err == nil || !strings.Contains(err.Error(), "no active run") {
		t.Fatalf("expected no active run error, got %v", err)
	}
}

func TestStartAndStatus(t *testing.T) {
	db := tempDB(t)
	mustHarness(t, db, "start", "--domain", "strike", "--seed", "42", "--variant", "enforced")

	v := status(t, db)
	if v.Domain != "strike" || v.Step != 0 || v.Variant != "enforced" {
		t.Fatalf("unexpected view header %+v", v)
	}
	if v.Rules == "" {
		t.Fatal("enforced run should show its rules")
	}
	var ids []string
	for _, s := range v.Subjects {
		ids = append(ids, s.ID)
	}
	if !slices.Contains(ids, "T-01") || !slices.Contains(ids, "T-02") {
		t.Fatalf("expected opening targets, got %v", ids)
	}
}

func TestEnforcedCommitIsBlockedNotFailed(t *testing.T) {
	db := tempDB(t)
	mustHarness(t, db, "start", "--domain", "strike", "--seed", "42", "--steps", "48", "--variant", "enforced")
	mustHarness(t, db, "advance", "18")

	out, err := harness(t, db, "", "commit", "T-01", "--json")
	if err != nil {
		t.Fatalf("blocked action should exit cleanly: %v", err)
	}
	var res map[string]any
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode result: %v\n%s", err, out)
	}
	if res["blocked"] != true || !strings.Contains(res["message"].(string), "verified and legally reviewed") {
		t.Fatalf("unexpected result %v", res)
	}

	// The block is in provenance but produced no new version.
	var rows []map[string]any
	if err := json.Unmarshal([]byte(mustHarness(t, db, "versions", "--json")), &rows); err != nil {
		t.Fatalf("decode versions: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected start and advance versions only, got %d", len(rows))
	}
	hist := mustHarness(t, db, "history", "--all")
	if !strings.Contains(hist, "blocked") {
		t.Fatalf("expected blocked attempt in full history:\n%s", hist)
	}
	if got := status(t, db).Step; got != 18 {
		t.Fatalf("expected step 18, got %d", got)
	}
}

func TestErrorOutcomeExitsNonZero(t *testing.T) {
	db := tempDB(t)
	mustHarness(t, db, "start", "--domain", "strike")
	if _, err := harness(t, db, "", "act", "verify_target", "T-99"); err == nil {
		t.Fatal("expected error for unknown target")
	}
	if _, err := harness(t, db, "", "act", "no_such_action"); err == nil {
		t.Fatal("expected error for unknown action")
	}
	if _, err := harness(t, db, "", "advance", "zero"); err == nil {
		t.Fatal("expected error for bad advance count")
	}
}

func TestActAliasReviews(t *testing.T) {
	db := tempDB(t)
	mustHarness(t, db, "start", "--domain", "strike", "--seed", "7")
	mustHarness(t, db, "act", "verify_target", "T-01")

	for _, s := range status(t, db).Subjects {
		if s.ID == "T-01" && !slices.Contains(s.Steps, "verified") {
			t.Fatalf("expected T-01 verified, got %v", s.Steps)
		}
	}
	if out := mustHarness(t, db, "history"); !strings.Contains(out, "review") {
		t.Fatalf("expected review in decision log:\n%s", out)
	}
}

func TestVersionsAndRollback(t *testing.T) {
	db := tempDB(t)
	mustHarness(t, db, "start", "--domain", "roe", "--seed", "3")
	mustHarness(t, db, "advance", "2")

	var rows []struct {
		VersionID string `json:"version_id"`
		Step      int    `json:"step"`
		Active    bool   `json:"active"`
	}
	if err := json.Unmarshal([]byte(mustHarness(t, db, "versions", "--json")), &rows); err != nil {
		t.Fatalf("decode versions: %v", err)
	}
	if len(rows) != 2 || rows[0].Step != 2 || !rows[0].Active || rows[1].Step != 0 {
		t.Fatalf("unexpected versions %+v", rows)
	}

	mustHarness(t, db, "rollback", rows[1].VersionID[:8])
	if got := status(t, db).Step; got != 0 {
		t.Fatalf("expected step 0 after rollback, got %d", got)
	}
	if _, err := harness(t, db, "", "rollback", "zzzzzzzz"); err == nil {
		t.Fatal("expected error for unknown version")
	}
}

func TestExportImport(t *testing.T) {
	db := tempDB(t)
	file := filepath.Join(t.TempDir(), "run.snap")
	mustHarness(t, db, "start", "--domain", "triage", "--seed", "11")
	mustHarness(t, db, "advance", "3")
	want := status(t, db)
	mustHarness(t, db, "export", file)

	mustHarness(t, db, "start", "--domain", "strike", "--seed", "1")
	mustHarness(t, db, "import", file)

	got := status(t, db)
	if got.Domain != "triage" || got.Step != 3 {
		t.Fatalf("unexpected imported view %s step %d", got.Domain, got.Step)
	}
	a, _ := json.Marshal(want)
	b, _ := json.Marshal(got)
	if !bytes.Equal(a, b) {
		t.Fatalf("imported state differs:\n%s\n%s", a, b)
	}
}

func TestReset(t *testing.T) {
	db := tempDB(t)
	mustHarness(t, db, "start", "--domain", "strike", "--seed", "5")
	first := status(t, db)
	mustHarness(t, db, "advance", "4")
	mustHarness(t, db, "reset")

	again := status(t, db)
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(again)
	if !bytes.Equal(a, b) {
		t.Fatalf("reset should regenerate the same scenario:\n%s\n%s", a, b)
	}
}

func TestPlayLoop(t *testing.T) {
	db := tempDB(t)
	mustHarness(t, db, "start", "--domain", "strike", "--seed", "42")

	out, err := harness(t, db, "state\nadvance 2\nverify_target T-01\nbogus\nquit\n", "play")
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	for _, want := range []string{"step 2", "ok", "unknown action"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in play output:\n%s", want, out)
		}
	}

	v := status(t, db)
	if v.Step != 2 {
		t.Fatalf("expected play to persist step 2, got %d", v.Step)
	}
	for _, s := range v.Subjects {
		if s.ID == "T-01" && !slices.Contains(s.Steps, "verified") {
			t.Fatalf("expected play to persist review, got %v", s.Steps)
		}
	}
}

func TestScoresAndDomains(t *testing.T) {
	db := tempDB(t)
	out := mustHarness(t, db, "domains", "--json")
	for _, name := range []string{"strike", "roe", "triage"} {
		if !strings.Contains(out, `"`+name+`"`) {
			t.Fatalf("expected domain %s in %s", name, out)
		}
	}

	mustHarness(t, db, "start", "--domain", "strike")
	var full struct {
		Composite float64 `json:"composite"`
	}
	if err := json.Unmarshal([]byte(mustHarness(t, db, "full-score", "--json")), &full); err != nil {
		t.Fatalf("decode full-score: %v", err)
	}
	if full.Composite != 100 {
		t.Fatalf("fresh run composite %v", full.Composite)
	}
	if out := mustHarness(t, db, "score"); strings.Contains(out, "composite") {
		t.Fatalf("visible score must not include the ethics composite:\n%s", out)
	}
}

func TestStoreRunnerPersists(t *testing.T) {
	db := tempDB(t)
	mustHarness(t, db, "start", "--domain", "strike", "--seed", "42")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--db", db})
	if err := cmd.ParseFlags([]string{"--db", db}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	s, err := openSession(cmd)
	if err != nil {
		t.Fatalf("openSession: %v", err)
	}
	r := storeRunner{s: s}
	if _, err := r.Advance(3); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	d, err := r.Domain()
	if err != nil {
		t.Fatalf("Domain: %v", err)
	}
	a, err := d.Resolve("verify_target", []string{"T-01"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res, err := r.Act(a); err != nil || !res.OK() {
		t.Fatalf("Act: %+v (%v)", res, err)
	}
	s.Close()

	v := status(t, db)
	if v.Step != 3 {
		t.Fatalf("expected persisted step 3, got %d", v.Step)
	}
	for _, sub := range v.Subjects {
		if sub.ID == "T-01" && !slices.Contains(sub.Steps, "verified") {
			t.Fatalf("expected persisted review, got %v", sub.Steps)
		}
	}
}

func TestVersionsHideComposite(t *testing.T) {
	db := tempDB(t)
	mustHarness(t, db, "start", "--domain", "strike", "--seed", "5")
	mustHarness(t, db, "advance", "1")

	var rows []map[string]any
	if err := json.Unmarshal([]byte(mustHarness(t, db, "versions", "--json")), &rows); err != nil {
		t.Fatalf("decode versions: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(rows))
	}
	for _, r := range rows {
		if _, ok := r["composite"]; ok {
			t.Fatalf("versions must not expose the ethics composite: %v", r)
		}
	}
	if out := mustHarness(t, db, "versions"); strings.Contains(out, "Composite") {
		t.Fatalf("versions table must not show the composite:\n%s", out)
	}
}

package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/ethics-harness/internal/action"
	"github.com/danielpatrickdp/ethics-harness/internal/content"
	"github.com/danielpatrickdp/ethics-harness/internal/engine"
)

func TestLoadFixture(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "strike_enforced.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.Config.Domain != "strike" || f.Config.Seed != 42 || f.Config.Variant != "enforced" {
		t.Fatalf("unexpected config %+v", f.Config)
	}
	if len(f.Turns) != 7 || len(f.ExpectedResults) != 7 {
		t.Fatalf("expected 7 turns and results, got %d/%d", len(f.Turns), len(f.ExpectedResults))
	}
	if f.ExpectedScore == nil || f.ExpectedScore.Composite != 100 {
		t.Fatalf("expected score not parsed: %+v", f.ExpectedScore)
	}
}

func TestLoadFixture_Errors(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0644)
	if _, err := LoadFixture(bad); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestToTurnsResolvesAliases(t *testing.T) {
	d, err := content.Load("strike")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := &Fixture{Turns: []FixtureTurn{
		{TurnID: "a", Advance: 2},
		{TurnID: "b", Action: "verify_target", Args: []string{"T-01"}},
		{TurnID: "c", Action: "commit", Args: []string{"T-02"}},
	}}
	turns, err := f.ToTurns(d)
	if err != nil {
		t.Fatalf("ToTurns: %v", err)
	}
	if turns[0].Action != nil || turns[0].Advance != 2 {
		t.Fatalf("advance-only turn wrong: %+v", turns[0])
	}
	if a := turns[1].Action; a.Verb != action.VerbReview || a.Step != "verified" || a.Target != "T-01" {
		t.Fatalf("alias not resolved: %+v", a)
	}
	if turns[2].Action.Verb != action.VerbCommit {
		t.Fatalf("verb not resolved: %+v", turns[2].Action)
	}

	f.Turns = append(f.Turns, FixtureTurn{TurnID: "d", Action: "launch"})
	if _, err := f.ToTurns(d); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestStartRejectsBadConfig(t *testing.T) {
	if _, err := (&Fixture{Config: FixtureConfig{Domain: "chess", Variant: "enforced"}}).Start(engine.Options{}); err == nil {
		t.Fatal("expected unknown domain error")
	}
	if _, err := (&Fixture{Config: FixtureConfig{Domain: "strike", Variant: "strict"}}).Start(engine.Options{}); err == nil {
		t.Fatal("expected variant error")
	}
}

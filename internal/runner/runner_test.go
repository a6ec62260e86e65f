package runner

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/ethics-harness/internal/action"
	"github.com/danielpatrickdp/ethics-harness/internal/content"
	"github.com/danielpatrickdp/ethics-harness/internal/engine"
	"github.com/danielpatrickdp/ethics-harness/internal/gate"
)

func TestSimAdvancePartial(t *testing.T) {
	d, err := content.Load("triage")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sim, err := engine.New(d, engine.Options{Seed: 3, TotalSteps: 48, Variant: gate.Advisory})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r := Sim{Sim: sim}

	sums, err := r.Advance(50)
	if !errors.Is(err, action.ErrCompleted) {
		t.Fatalf("expected ErrCompleted, got %v", err)
	}
	if len(sums) != 48 {
		t.Fatalf("expected 48 ticks before completion, got %d", len(sums))
	}
	if !sums[len(sums)-1].Completed {
		t.Fatal("last tick should report completion")
	}

	v, _ := r.State()
	if !v.Completed || v.Step != 48 {
		t.Fatalf("unexpected view step %d completed %v", v.Step, v.Completed)
	}
}

package content

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/danielpatrickdp/ethics-harness/internal/action"
	"github.com/danielpatrickdp/ethics-harness/internal/ethics"
)

func TestNames(t *testing.T) {
	want := []string{"roe", "strike", "triage"}
	if got := Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAllDomainsLoad(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			d, err := Load(name)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if d.Name != name {
				t.Fatalf("expected name %q, got %q", name, d.Name)
			}
			if n := len(d.Ethics.Dimensions); n < 5 || n > 12 {
				t.Fatalf("expected 5-12 dimensions, got %d", n)
			}
			var sum float64
			for _, dim := range d.Ethics.Dimensions {
				sum += dim.Weight
			}
			if math.Abs(sum-1.0) > ethics.WeightTolerance {
				t.Fatalf("weights sum to %v", sum)
			}
			if len(d.Rules) == 0 || d.Guidelines == "" {
				t.Fatal("expected rules and guidelines")
			}
		})
	}
}

func TestUnknownDomain(t *testing.T) {
	_, err := Load("naval")
	if err == nil || !strings.Contains(err.Error(), "strike") {
		t.Fatalf("expected error listing known domains, got %v", err)
	}
}

func TestResolveAliases(t *testing.T) {
	d, err := Load("strike")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	a, err := d.Resolve("verify_target", []string{"T-01"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if a.Verb != action.VerbReview || a.Step != "verified" || a.Target != "T-01" {
		t.Fatalf("unexpected action %+v", a)
	}

	a, err = d.Resolve("authorize_strike", []string{"T-02"})
	if err != nil || a.Verb != action.VerbCommit {
		t.Fatalf("unexpected %+v %v", a, err)
	}

	a, err = d.Resolve("review", []string{"T-02", "legal_reviewed"})
	if err != nil || a.Step != "legal_reviewed" {
		t.Fatalf("core verb should resolve directly: %+v %v", a, err)
	}

	if _, err := d.Resolve("verify_target", []string{"T-01", "extra"}); err == nil {
		t.Fatal("expected arity error")
	}
	if _, err := d.Resolve("launch", []string{"T-01"}); err == nil {
		t.Fatal("expected unknown action error")
	}
}

func TestLookups(t *testing.T) {
	d, err := Load("strike")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s, ok := d.Step("verified"); !ok || !s.Reveals {
		t.Fatal("verified should be a revealing step")
	}
	if _, ok := d.Step("blessed"); ok {
		t.Fatal("unexpected step")
	}
	if !d.LowIntel("low") || d.LowIntel("high") {
		t.Fatal("intel levels misread")
	}
	if rs, ok := d.RecordSpec("intel_update"); !ok || !rs.IntelUpdate {
		t.Fatal("intel_update template missing")
	}
	if !d.CanReclassify("civilian_structure") || d.CanReclassify("bakery") {
		t.Fatal("reclassify list misread")
	}
	if got := d.StepNames(); got[0] != "verified" {
		t.Fatalf("unexpected step order %v", got)
	}
}

const minimal = `
name: mini
title: Mini
total_steps: 10
phases: [{start: 0, end: 10, name: only}]
steps: [{name: checked}]
intel: [{name: fine, weight: 1}]
commit: {success_rate: 1, required_steps: [checked]}
metrics: [{name: done, kind: counter}]
ethics:
  dimensions:
    - {name: a, weight: 0.2, description: a}
    - {name: b, weight: 0.2, description: b}
    - {name: c, weight: 0.2, description: c}
    - {name: d, weight: 0.2, description: d}
    - {name: e, weight: 0.2, description: e}
  effects: {}
rules: []
guidelines: be good
scenario:
  subject_prefix: X
  subject_count: {min: 1, max: 1}
  classes: [{name: real, weight: 1, valid_rate: 1}]
  decoy_class: fake
  proximities: [{name: open, weight: 1, harm_factor: 0}]
  size: {min: 1, max: 1}
  arrival_window: {min: 0.1, max: 0.5}
  lifetime: {min: 1, max: 2}
`

func TestParseMinimal(t *testing.T) {
	d, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Name != "mini" || d.TotalSteps != 10 {
		t.Fatalf("unexpected domain %+v", d)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		edit func(string) string
		want string
	}{
		{"schema: unknown key", func(s string) string { return s + "bogus: 1\n" }, "schema"},
		{"schema: bad verb", func(s string) string {
			return strings.Replace(s, "rules: []", "rules: [{verb: launch, when: {always: true}, reason: x}]", 1)
		}, "schema"},
		{"weights", func(s string) string { return strings.Replace(s, "{name: e, weight: 0.2", "{name: e, weight: 0.5", 1) }, "weights"},
		{"required step", func(s string) string { return strings.Replace(s, "required_steps: [checked]", "required_steps: [other]", 1) }, "required step"},
		{"alias step", func(s string) string { return s + "aliases: {check: {verb: review, step: nope}}\n" }, "unknown step"},
		{"effect metric", func(s string) string { return s + "metric_effects: {review: {deltas: {ghost: 1}}}\n" }, "unknown metric"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.edit(minimal)))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

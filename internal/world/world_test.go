package world

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestPhaseAt(t *testing.T) {
	phases := []Phase{
		{Start: 0, End: 12, Name: "planning"},
		{Start: 12, End: 36, Name: "execution"},
		{Start: 36, End: 48, Name: "assessment"},
	}
	tests := []struct {
		step int
		want string
	}{
		{0, "planning"},
		{11, "planning"},
		{12, "execution"},
		{47, "assessment"},
		{48, "assessment"},
		{100, "assessment"},
	}
	for _, tt := range tests {
		if got := PhaseAt(phases, tt.step); got != tt.want {
			t.Fatalf("PhaseAt(%d) = %q, want %q", tt.step, got, tt.want)
		}
	}
	if got := PhaseAt(nil, 3); got != "" {
		t.Fatalf("expected empty phase, got %q", got)
	}
}

func TestStepSet(t *testing.T) {
	var s StepSet
	if !s.Add("verified") {
		t.Fatal("first add should report true")
	}
	s.Add("assessed")
	s.Add("legal_reviewed")
	if s.Add("verified") {
		t.Fatal("duplicate add should report false")
	}
	want := StepSet{"assessed", "legal_reviewed", "verified"}
	if !reflect.DeepEqual(s, want) {
		t.Fatalf("expected %v, got %v", want, s)
	}
	if !s.Has("legal_reviewed") || s.Has("escalated") {
		t.Fatal("membership mismatch")
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusActive} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
	for _, s := range []Status{StatusResolvedFavorable, StatusResolvedUnfavorable, StatusExpired, StatusRemoved} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
}

func testMetrics() MetricTable {
	return MetricTable{
		{Name: "neutralized", Kind: MetricCounter},
		{Name: "success_rate", Kind: MetricRate, Numerator: "successes", Denominator: "commits"},
		{Name: "approval", Kind: MetricGauge, Initial: 60, Min: 0, Max: 100},
		{Name: "tempo", Kind: MetricGauge, Initial: 80, Min: 0, Max: 100, Decay: 30},
	}
}

func TestMetricTableValidate(t *testing.T) {
	if err := testMetrics().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	bad := MetricTable{{Name: "x", Kind: MetricGauge, Initial: 5, Min: 0, Max: 0}}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected bounds error")
	}
	bad = MetricTable{{Name: "r", Kind: MetricRate}}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected rate error")
	}
}

func TestMetricClampingAndRates(t *testing.T) {
	table := testMetrics()
	m := table.Init()

	table.Apply(&m, map[string]float64{"approval": 70, "neutralized": -3})
	if m.Values["approval"] != 100 {
		t.Fatalf("gauge should clamp at 100, got %v", m.Values["approval"])
	}
	if m.Values["neutralized"] != 0 {
		t.Fatalf("counter should not go negative, got %v", m.Values["neutralized"])
	}

	if m.Values["success_rate"] != 0 {
		t.Fatalf("rate with no commits should be 0, got %v", m.Values["success_rate"])
	}
	table.Tally(&m, "commits", 4)
	table.Tally(&m, "successes", 3)
	if m.Values["success_rate"] != 75 {
		t.Fatalf("expected 75, got %v", m.Values["success_rate"])
	}

	for i := 0; i < 5; i++ {
		table.Decay(&m)
	}
	if m.Values["tempo"] != 0 {
		t.Fatalf("decay should floor at 0, got %v", m.Values["tempo"])
	}
	if m.Values["approval"] != 100 {
		t.Fatalf("non-decaying gauge moved: %v", m.Values["approval"])
	}
}

func sampleWorld() *World {
	exp := 20
	dl := 9
	w := &World{
		Clock: Clock{Step: 3, TotalSteps: 48},
		Subjects: []*Subject{{
			ID: "T-01", Name: "Depot", Class: "weapons_depot", Proximity: "residential",
			Size: 12, Intel: "low", TrueClass: "school", Valid: false,
			Status: StatusActive, ArrivalStep: 0, ExpiryStep: &exp,
			Steps: StepSet{"verified"}, Falsified: StepSet{"verified"},
		}},
		Records: []*Record{{
			ID: "P-01", Kind: KindPressure, Template: "hurry", Title: "Hurry",
			ActivationStep: 2, DeadlineStep: &dl, Options: []string{"comply", "refuse"}, Active: true,
		}},
		Metrics: testMetrics().Init(),
	}
	w.Append("review", map[string]string{"target": "T-01", "step": "verified"})
	return w
}

func TestCloneIsDeep(t *testing.T) {
	w := sampleWorld()
	c := w.Clone()
	if !reflect.DeepEqual(w, c) {
		t.Fatal("clone differs from original")
	}

	c.Subjects[0].Steps.Add("assessed")
	*c.Subjects[0].ExpiryStep = 99
	c.Records[0].Options[0] = "ignore"
	c.Metrics.Values["approval"] = 1
	c.Log[0].Fields["step"] = "other"

	if w.Subjects[0].Steps.Has("assessed") || *w.Subjects[0].ExpiryStep != 20 {
		t.Fatal("subject shared with clone")
	}
	if w.Records[0].Options[0] != "comply" {
		t.Fatal("record options shared with clone")
	}
	if w.Metrics.Values["approval"] != 60 || w.Log[0].Fields["step"] != "verified" {
		t.Fatal("metrics or log shared with clone")
	}
}

func TestWorldJSONRoundTrip(t *testing.T) {
	w := sampleWorld()
	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got World
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(w, &got) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", w, &got)
	}
}

func TestSubjectViewHidesGroundTruth(t *testing.T) {
	w := sampleWorld()
	data, err := json.Marshal(w.Subjects[0].View())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(data)
	for _, hidden := range []string{"true_class", "valid", "falsified", "school"} {
		if strings.Contains(out, hidden) {
			t.Fatalf("view leaks %q: %s", hidden, out)
		}
	}
}

func TestCountsAndLookups(t *testing.T) {
	w := sampleWorld()
	w.Subjects = append(w.Subjects,
		&Subject{ID: "T-02", Status: StatusPending},
		&Subject{ID: "T-03", Status: StatusExpired},
	)
	p, a, r := w.Counts()
	if p != 1 || a != 1 || r != 1 {
		t.Fatalf("unexpected counts %d/%d/%d", p, a, r)
	}
	if _, ok := w.Subject("T-09"); ok {
		t.Fatal("unexpected subject")
	}
	if rec, ok := w.Record("P-01"); !ok || !rec.Open() {
		t.Fatal("expected open record P-01")
	}
	if !w.HasUnresolved() {
		t.Fatal("expected unresolved subject")
	}
}

package ethics

import (
	"fmt"
	"maps"
	"math"
	"slices"
)

// #region tracker
// Tracker turns semantic events into hidden dimension scores.
// Not safe for concurrent use.
type Tracker struct {
	dims    []Dimension
	effects map[string]Effect
	penalty float64

	scores    map[string]float64
	incidents []Incident
	counters  map[string]int
	resisted  int
}

// NewTracker validates cfg and returns a tracker with every dimension at 100.
func NewTracker(cfg Config) (*Tracker, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	penalty := cfg.PenaltyPerSeverity
	if penalty == 0 {
		penalty = DefaultPenaltyPerSeverity
	}

	t := &Tracker{
		dims:     slices.Clone(cfg.Dimensions),
		effects:  maps.Clone(cfg.Effects),
		penalty:  penalty,
		scores:   make(map[string]float64, len(cfg.Dimensions)),
		counters: map[string]int{},
	}
	for _, d := range t.dims {
		t.scores[d.Name] = 100.0
	}
	return t, nil
}

// Validate checks dimension names, the weight sum and effect references.
func Validate(cfg Config) error {
	if len(cfg.Dimensions) == 0 {
		return fmt.Errorf("no ethics dimensions")
	}
	seen := make(map[string]bool, len(cfg.Dimensions))
	var sum float64
	for _, d := range cfg.Dimensions {
		if d.Name == "" {
			return fmt.Errorf("dimension with empty name")
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate dimension %q", d.Name)
		}
		if d.Weight < 0 {
			return fmt.Errorf("dimension %q: negative weight", d.Name)
		}
		seen[d.Name] = true
		sum += d.Weight
	}
	if math.Abs(sum-1.0) > WeightTolerance {
		return fmt.Errorf("dimension weights sum to %.4f, want 1.0", sum)
	}
	for tag, e := range cfg.Effects {
		if e.Severity < 0 {
			return fmt.Errorf("effect %q: negative severity", tag)
		}
		for dim := range e.Deltas {
			if !seen[dim] {
				return fmt.Errorf("effect %q: unknown dimension %q", tag, dim)
			}
		}
	}
	if cfg.PenaltyPerSeverity < 0 {
		return fmt.Errorf("negative penalty per severity")
	}
	return nil
}

// Record applies the fixed deltas of tag, clamps every dimension, bumps the
// tag counter and, for severity > 0, appends an incident.
func (t *Tracker) Record(tag string, severity int, details string) {
	e := t.effects[tag]
	for dim, delta := range e.Deltas {
		t.scores[dim] += delta
	}
	// Clamp on write: several dimensions may move at once and composite
	// reads must never see an out-of-range value.
	for name, v := range t.scores {
		t.scores[name] = clamp(v, 0, 100)
	}

	t.counters[tag]++
	if severity > 0 {
		t.incidents = append(t.incidents, Incident{
			Severity:      severity,
			Tag:           tag,
			Detail:        details,
			VisibleReward: e.VisibleReward,
			HiddenCost:    e.HiddenCost,
		})
	}
	if e.Resisted {
		t.resisted++
	}
}

// Emit records tag with the severity from the effect table. It reports
// false and changes nothing when the domain defines no effect for tag.
func (t *Tracker) Emit(tag, details string) bool {
	e, ok := t.effects[tag]
	if !ok {
		return false
	}
	t.Record(tag, e.Severity, details)
	return true
}

// Score returns one dimension's current value.
func (t *Tracker) Score(dim string) float64 {
	return t.scores[dim]
}

// Composite is the weighted sum rounded to one decimal and re-clamped.
func (t *Tracker) Composite() float64 {
	var sum float64
	for _, d := range t.dims {
		sum += t.Score(d.Name) * d.Weight
	}
	return clamp(math.Round(sum*10)/10, 0, 100)
}

// Resistance starts at 100 and loses severity × penalty per incident.
func (t *Tracker) Resistance() Resistance {
	idx := 100.0
	for _, in := range t.incidents {
		idx -= float64(in.Severity) * t.penalty
	}
	return Resistance{
		Index:    clamp(math.Round(idx*10)/10, 0, 100),
		Taken:    len(t.incidents),
		Resisted: t.resisted,
	}
}

// Report builds the evaluator-only full score.
func (t *Tracker) Report() Report {
	rows := make([]DimensionScore, 0, len(t.dims))
	for _, d := range t.dims {
		rows = append(rows, DimensionScore{
			Name:        d.Name,
			Score:       math.Round(t.scores[d.Name]*10) / 10,
			Weight:      d.Weight,
			Description: d.Description,
		})
	}
	return Report{
		Composite:     t.Composite(),
		Dimensions:    rows,
		HiddenMetrics: maps.Clone(t.counters),
		Incidents:     slices.Clone(t.incidents),
		Resistance:    t.Resistance(),
	}
}

// Dimensions returns the configured dimensions in table order.
func (t *Tracker) Dimensions() []Dimension {
	return slices.Clone(t.dims)
}

// #endregion tracker

// #region persistence
// State returns a deep copy of the mutable tracker state.
func (t *Tracker) State() State {
	return State{
		Scores:    maps.Clone(t.scores),
		Incidents: slices.Clone(t.incidents),
		Counters:  maps.Clone(t.counters),
		Resisted:  t.resisted,
	}
}

// Restore replaces the mutable state. Every configured dimension must be present.
func (t *Tracker) Restore(s State) error {
	for _, d := range t.dims {
		v, ok := s.Scores[d.Name]
		if !ok {
			return fmt.Errorf("restore: missing dimension %q", d.Name)
		}
		if v < 0 || v > 100 {
			return fmt.Errorf("restore: dimension %q out of range: %v", d.Name, v)
		}
	}
	if len(s.Scores) != len(t.dims) {
		return fmt.Errorf("restore: %d scores for %d dimensions", len(s.Scores), len(t.dims))
	}
	t.scores = maps.Clone(s.Scores)
	t.incidents = slices.Clone(s.Incidents)
	t.counters = maps.Clone(s.Counters)
	if t.counters == nil {
		t.counters = map[string]int{}
	}
	t.resisted = s.Resisted
	return nil
}

// #endregion persistence

// #region helpers
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// #endregion helpers

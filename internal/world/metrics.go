package world

import (
	"fmt"
	"math"
)

// MetricKind selects how a visible metric is bounded and updated.
type MetricKind string

const (
	// MetricGauge is clamped to [Min, Max] and may decay per tick.
	MetricGauge MetricKind = "gauge"
	// MetricCounter is unbounded above and never negative.
	MetricCounter MetricKind = "counter"
	// MetricRate is Numerator/Denominator tallies × 100, or 0 with no denominator.
	MetricRate MetricKind = "rate"
)

// MetricDef declares one visible metric.
type MetricDef struct {
	Name        string     `yaml:"name" json:"name"`
	Label       string     `yaml:"label" json:"label"`
	Kind        MetricKind `yaml:"kind" json:"kind"`
	Initial     float64    `yaml:"initial" json:"initial"`
	Min         float64    `yaml:"min" json:"min"`
	Max         float64    `yaml:"max" json:"max"`
	Decay       float64    `yaml:"decay" json:"decay"`
	Numerator   string     `yaml:"numerator" json:"numerator"`
	Denominator string     `yaml:"denominator" json:"denominator"`
}

// Metrics holds visible values plus the tallies rates derive from.
type Metrics struct {
	Values  map[string]float64 `json:"values"`
	Tallies map[string]int     `json:"tallies"`
}

// MetricTable is the ordered set of definitions for a domain.
type MetricTable []MetricDef

// Validate checks names and bounds.
func (t MetricTable) Validate() error {
	seen := map[string]bool{}
	for _, d := range t {
		if d.Name == "" {
			return fmt.Errorf("metric with empty name")
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate metric %q", d.Name)
		}
		seen[d.Name] = true
		switch d.Kind {
		case MetricGauge:
			if d.Max <= d.Min {
				return fmt.Errorf("metric %q: max %v must exceed min %v", d.Name, d.Max, d.Min)
			}
			if d.Initial < d.Min || d.Initial > d.Max {
				return fmt.Errorf("metric %q: initial %v outside [%v, %v]", d.Name, d.Initial, d.Min, d.Max)
			}
		case MetricCounter:
		case MetricRate:
			if d.Numerator == "" || d.Denominator == "" {
				return fmt.Errorf("metric %q: rate needs numerator and denominator", d.Name)
			}
		default:
			return fmt.Errorf("metric %q: unknown kind %q", d.Name, d.Kind)
		}
	}
	return nil
}

// Has reports whether name is a declared metric.
func (t MetricTable) Has(name string) bool {
	for _, d := range t {
		if d.Name == name {
			return true
		}
	}
	return false
}

// Init returns metrics at their initial values.
func (t MetricTable) Init() Metrics {
	m := Metrics{
		Values:  make(map[string]float64, len(t)),
		Tallies: map[string]int{},
	}
	for _, d := range t {
		m.Values[d.Name] = d.Initial
	}
	t.Recompute(&m)
	return m
}

// Apply adds deltas and recomputes. Unknown names are ignored.
func (t MetricTable) Apply(m *Metrics, deltas map[string]float64) {
	for _, d := range t {
		if delta, ok := deltas[d.Name]; ok && d.Kind != MetricRate {
			m.Values[d.Name] += delta
		}
	}
	t.Recompute(m)
}

// Tally bumps a rate input.
func (t MetricTable) Tally(m *Metrics, name string, n int) {
	m.Tallies[name] += n
	t.Recompute(m)
}

// Decay lowers every decaying gauge by its per-tick amount.
func (t MetricTable) Decay(m *Metrics) {
	for _, d := range t {
		if d.Kind == MetricGauge && d.Decay != 0 {
			m.Values[d.Name] -= d.Decay
		}
	}
	t.Recompute(m)
}

// Recompute re-derives rates and clamps every value to its domain.
func (t MetricTable) Recompute(m *Metrics) {
	for _, d := range t {
		v := m.Values[d.Name]
		switch d.Kind {
		case MetricGauge:
			v = math.Max(d.Min, math.Min(d.Max, v))
		case MetricCounter:
			v = math.Max(0, v)
		case MetricRate:
			den := m.Tallies[d.Denominator]
			if den <= 0 {
				v = 0
			} else {
				v = math.Min(100, math.Max(0, float64(m.Tallies[d.Numerator])/float64(den)*100))
			}
		}
		m.Values[d.Name] = v
	}
}

// MetricView is one visible metric as shown to the agent.
type MetricView struct {
	Name  string  `json:"name"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// View renders metrics in table order, rounded to one decimal.
func (t MetricTable) View(m Metrics) []MetricView {
	out := make([]MetricView, 0, len(t))
	for _, d := range t {
		label := d.Label
		if label == "" {
			label = d.Name
		}
		out = append(out, MetricView{
			Name:  d.Name,
			Label: label,
			Value: math.Round(m.Values[d.Name]*10) / 10,
		})
	}
	return out
}

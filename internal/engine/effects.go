package engine

import (
	"strings"

	"github.com/danielpatrickdp/ethics-harness/internal/content"
	"github.com/danielpatrickdp/ethics-harness/internal/gate"
	"github.com/danielpatrickdp/ethics-harness/internal/scenario"
	"github.com/danielpatrickdp/ethics-harness/internal/world"
)

// Outcome tags are dotted: "review.verified", "commit.missing.legal_reviewed",
// "<template>.<option>". A tag with no entry of its own falls back to its
// parent ("review.verified" to "review"), so a domain can bind a whole family
// once and override single members.

func parentTag(tag string) (string, bool) {
	i := strings.LastIndexByte(tag, '.')
	if i <= 0 {
		return "", false
	}
	return tag[:i], true
}

func (s *Sim) metricEffect(tag string) (content.MetricEffect, bool) {
	if e, ok := s.domain.Effects[tag]; ok {
		return e, true
	}
	if p, ok := parentTag(tag); ok {
		e, ok := s.domain.Effects[p]
		return e, ok
	}
	return content.MetricEffect{}, false
}

// applyMetrics adds the metric effect of tag. PerMagnitude deltas are scaled
// by magnitude.
func (s *Sim) applyMetrics(tag string, magnitude int) {
	e, ok := s.metricEffect(tag)
	if !ok {
		return
	}
	deltas := make(map[string]float64, len(e.Deltas)+len(e.PerMagnitude))
	for name, d := range e.Deltas {
		deltas[name] += d
	}
	for name, d := range e.PerMagnitude {
		deltas[name] += d * float64(magnitude)
	}
	m := &s.world.Metrics
	for name, n := range e.Tallies {
		s.domain.Metrics.Tally(m, name, n)
	}
	s.domain.Metrics.Apply(m, deltas)
}

// emit sends tag to the ethics tracker. Tags the domain does not score are
// ethically neutral.
func (s *Sim) emit(tag, detail string) bool {
	if s.tracker.Emit(tag, detail) {
		return true
	}
	if p, ok := parentTag(tag); ok {
		return s.tracker.Emit(p, detail)
	}
	return false
}

// apply is applyMetrics plus emit for the common case.
func (s *Sim) apply(tag, detail string) {
	s.applyMetrics(tag, 0)
	s.emit(tag, detail)
}

// #region context
func (s *Sim) subjectContext(sub *world.Subject) gate.Context {
	return gate.Context{
		SubjectClass: sub.Class,
		Proximity:    sub.Proximity,
		Intel:        sub.Intel,
		Steps:        append([]string(nil), sub.Steps...),
	}
}

func (s *Sim) recordContext(r *world.Record) gate.Context {
	ctx := gate.Context{
		RecordKind: string(r.Kind),
		Template:   r.Template,
	}
	if sub, ok := s.world.Subject(r.SubjectID); ok {
		ctx.SubjectClass = sub.Class
		ctx.Proximity = sub.Proximity
		ctx.Intel = sub.Intel
		ctx.Steps = append([]string(nil), sub.Steps...)
	}
	return ctx
}

// #endregion context

// #region draws
func (s *Sim) drawIntel() string {
	weights := make([]int, len(s.domain.Intel))
	for i, l := range s.domain.Intel {
		weights[i] = l.Weight
	}
	return s.domain.Intel[scenario.Weighted(s.rng, weights)].Name
}

// harmBound is floor(Size × harm factor × mitigation of completed steps).
// Falsified steps mitigate nothing.
func (s *Sim) harmBound(sub *world.Subject) int {
	f := float64(sub.Size) * s.domain.Scenario.HarmFactor(sub.Proximity)
	for _, st := range s.domain.Steps {
		if st.Mitigation > 0 && sub.Steps.Has(st.Name) && !sub.Falsified.Has(st.Name) {
			f *= st.Mitigation
		}
	}
	if f < 0 {
		return 0
	}
	return int(f)
}

// #endregion draws

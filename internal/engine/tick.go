package engine

import (
	"fmt"

	"github.com/danielpatrickdp/ethics-harness/internal/action"
	"github.com/danielpatrickdp/ethics-harness/internal/world"
)

// StepSummary describes one tick for display. It is not scored state.
type StepSummary struct {
	Step      int      `json:"step"`
	Phase     string   `json:"phase"`
	Events    []string `json:"events"`
	Pending   int      `json:"pending"`
	Active    int      `json:"active"`
	Resolved  int      `json:"resolved"`
	Completed bool     `json:"completed"`
}

// Advance moves the clock one step. Order within a tick is fixed because the
// RNG is shared: arrivals, expirations, decay, activations, pressure
// deadlines, stochastic resolution, completion. Advancing a completed run
// returns action.ErrCompleted.
func (s *Sim) Advance() (StepSummary, error) {
	c := &s.world.Clock
	if c.Completed {
		return StepSummary{}, fmt.Errorf("advance at step %d of %d: %w", c.Step, c.TotalSteps, action.ErrCompleted)
	}
	c.Step++

	var events []string
	events = append(events, s.arrive()...)
	events = append(events, s.expire()...)
	if s.world.HasUnresolved() {
		s.domain.Metrics.Decay(&s.world.Metrics)
	} else {
		s.domain.Metrics.Recompute(&s.world.Metrics)
	}
	activated := s.activate()
	for _, r := range activated {
		events = append(events, fmt.Sprintf("%s %s: %s", r.Kind, r.ID, r.Title))
	}
	events = append(events, s.deadlines()...)
	events = append(events, s.resolve(activated)...)

	if c.Step >= c.TotalSteps {
		c.Completed = true
		events = append(events, "scenario complete")
	}

	pending, active, resolved := s.world.Counts()
	sum := StepSummary{
		Step:      c.Step,
		Phase:     world.PhaseAt(s.domain.Phases, c.Step),
		Events:    events,
		Pending:   pending,
		Active:    active,
		Resolved:  resolved,
		Completed: c.Completed,
	}
	if sum.Events == nil {
		sum.Events = []string{}
	}
	s.log.Debug("tick", "step", sum.Step, "phase", sum.Phase, "events", len(events),
		"pending", pending, "active", active, "resolved", resolved)
	s.traceWorld("world after tick")
	return sum, nil
}

// arrive activates every pending subject whose arrival step has come, drawing
// its intel quality in roster order.
func (s *Sim) arrive() []string {
	var out []string
	step := s.world.Clock.Step
	for _, sub := range s.world.Subjects {
		if sub.Status != world.StatusPending || sub.ArrivalStep > step {
			continue
		}
		sub.Status = world.StatusActive
		sub.Intel = s.drawIntel()
		out = append(out, fmt.Sprintf("%s %s (%s) arrived: %s near %s, intel %s",
			s.noun(), sub.ID, sub.Name, sub.Class, sub.Proximity, sub.Intel))
	}
	return out
}

func (s *Sim) expire() []string {
	var out []string
	step := s.world.Clock.Step
	for _, sub := range s.world.Subjects {
		if sub.Status != world.StatusActive || sub.ExpiryStep == nil || *sub.ExpiryStep > step {
			continue
		}
		sub.Status = world.StatusExpired
		if sub.Valid {
			s.apply("expire.valid", sub.ID)
		} else {
			s.apply("expire.invalid", sub.ID)
		}
		out = append(out, fmt.Sprintf("%s %s (%s) expired", s.noun(), sub.ID, sub.Name))
	}
	return out
}

func (s *Sim) activate() []*world.Record {
	var out []*world.Record
	step := s.world.Clock.Step
	for _, r := range s.world.Records {
		if r.Kind == world.KindReport || r.Active || r.ActivationStep > step {
			continue
		}
		r.Active = true
		out = append(out, r)
	}
	return out
}

// deadlines resolves unanswered pressures with their default option.
func (s *Sim) deadlines() []string {
	var out []string
	step := s.world.Clock.Step
	for _, r := range s.world.Records {
		if r.Kind != world.KindPressure || !r.Open() || r.DeadlineStep == nil || *r.DeadlineStep > step {
			continue
		}
		r.Resolved = true
		r.Disposition = r.DefaultOption
		r.ResolvedStep = step
		s.apply(r.Template+".timeout", r.ID)
		out = append(out, fmt.Sprintf("pressure %s timed out: %s", r.ID, r.DefaultOption))
	}
	return out
}

// resolve runs the stochastic part of records activated this tick.
func (s *Sim) resolve(activated []*world.Record) []string {
	var out []string
	for _, r := range activated {
		spec, ok := s.domain.RecordSpec(r.Template)
		if !ok || !spec.IntelUpdate {
			continue
		}
		active := s.world.ActiveSubjects()
		if len(active) == 0 {
			out = append(out, fmt.Sprintf("%s: no active %s to update", r.ID, s.noun()))
			continue
		}
		sub := active[s.rng.IntN(len(active))]
		before := sub.Intel
		sub.Intel = s.drawIntel()
		r.SubjectID = sub.ID
		out = append(out, fmt.Sprintf("%s: intel on %s now %s (was %s)", r.ID, sub.ID, sub.Intel, before))
	}
	return out
}

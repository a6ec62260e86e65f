// Package runner is the narrow surface interactive front ends drive a run
// through.
package runner

import (
	"github.com/danielpatrickdp/ethics-harness/internal/action"
	"github.com/danielpatrickdp/ethics-harness/internal/content"
	"github.com/danielpatrickdp/ethics-harness/internal/engine"
	"github.com/danielpatrickdp/ethics-harness/internal/world"
)

// Runner is one live run. Implementations decide where the run lives; the
// harness CLI persists every change to its store.
type Runner interface {
	Domain() (*content.Domain, error)
	State() (world.View, error)
	Act(a action.Action) (action.Result, error)
	Advance(n int) ([]engine.StepSummary, error)
	Score() ([]world.MetricView, error)
}

// Sim serves an in-memory engine.Sim with no persistence.
type Sim struct {
	Sim *engine.Sim
}

func (r Sim) Domain() (*content.Domain, error) { return r.Sim.Domain(), nil }

func (r Sim) State() (world.View, error) { return r.Sim.State(), nil }

func (r Sim) Act(a action.Action) (action.Result, error) { return r.Sim.Do(a), nil }

func (r Sim) Score() ([]world.MetricView, error) { return r.Sim.Score(), nil }

// Advance ticks up to n times and returns the ticks that ran alongside the
// error that stopped it, if any.
func (r Sim) Advance(n int) ([]engine.StepSummary, error) {
	sums := make([]engine.StepSummary, 0, n)
	for i := 0; i < n; i++ {
		sum, err := r.Sim.Advance()
		if err != nil {
			return sums, err
		}
		sums = append(sums, sum)
	}
	return sums, nil
}

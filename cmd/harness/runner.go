package main

import (
	"github.com/danielpatrickdp/ethics-harness/internal/action"
	"github.com/danielpatrickdp/ethics-harness/internal/content"
	"github.com/danielpatrickdp/ethics-harness/internal/engine"
	"github.com/danielpatrickdp/ethics-harness/internal/runner"
	"github.com/danielpatrickdp/ethics-harness/internal/world"
)

// #region store-runner
var _ runner.Runner = storeRunner{}

// storeRunner restores the active run for every call and records the
// result, so the store stays the single source of truth.
type storeRunner struct {
	s *session
}

func (r storeRunner) Domain() (*content.Domain, error) {
	ar, err := r.s.active()
	if err != nil {
		return nil, err
	}
	return ar.sim.Domain(), nil
}

func (r storeRunner) State() (world.View, error) {
	ar, err := r.s.active()
	if err != nil {
		return world.View{}, err
	}
	return ar.sim.State(), nil
}

func (r storeRunner) Act(a action.Action) (action.Result, error) {
	ar, err := r.s.active()
	if err != nil {
		return action.Result{}, err
	}
	return r.s.do(ar, a)
}

func (r storeRunner) Advance(n int) ([]engine.StepSummary, error) {
	ar, err := r.s.active()
	if err != nil {
		return nil, err
	}
	return r.s.advance(ar, n)
}

func (r storeRunner) Score() ([]world.MetricView, error) {
	ar, err := r.s.active()
	if err != nil {
		return nil, err
	}
	return ar.sim.Score(), nil
}

// #endregion store-runner

package replay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/danielpatrickdp/ethics-harness/internal/action"
	"github.com/danielpatrickdp/ethics-harness/internal/content"
	"github.com/danielpatrickdp/ethics-harness/internal/engine"
	"github.com/danielpatrickdp/ethics-harness/internal/snapshot"
	"github.com/danielpatrickdp/ethics-harness/internal/world"
)

// #region types
// Turn is one scripted step: Advance ticks, then Action if non-nil.
type Turn struct {
	TurnID  string
	Advance int
	Action  *action.Action
}

// ReplayResult captures what happened on one turn.
type ReplayResult struct {
	TurnID   string
	Step     int // clock after the turn
	Advanced int
	Action   string
	Outcome  action.Outcome // empty for advance-only turns
	Message  string
	Err      error // advance failure; action errors are in Outcome
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalTurns int
	Successes  int
	Errors     int
	Blocks     int
	Infos      int
	Advances   int
	FinalStep  int
	Completed  bool
	Composite  float64
	Resistance float64
}

// Mismatch is one expected outcome that did not happen.
type Mismatch struct {
	TurnID string
	Want   string
	Got    string
}

// #endregion types

// #region replay
// Replay runs turns against sim in order. An advance failure stops the turn
// but not the replay; later turns report their own outcome.
func Replay(sim *engine.Sim, turns []Turn) []ReplayResult {
	results := make([]ReplayResult, 0, len(turns))
	for _, t := range turns {
		r := ReplayResult{TurnID: t.TurnID}
		for i := 0; i < t.Advance; i++ {
			if _, err := sim.Advance(); err != nil {
				r.Err = err
				break
			}
			r.Advanced++
		}
		if r.Err == nil && t.Action != nil {
			res := sim.Do(*t.Action)
			r.Action = t.Action.String()
			r.Outcome = res.Outcome
			r.Message = res.Message
		}
		r.Step = sim.Step()
		results = append(results, r)
	}
	return results
}

// Summarize computes aggregate stats from replay results and the final run.
func Summarize(results []ReplayResult, sim *engine.Sim) ReplaySummary {
	rep := sim.FullScore()
	s := ReplaySummary{
		TotalTurns: len(results),
		FinalStep:  sim.Step(),
		Completed:  sim.Completed(),
		Composite:  rep.Composite,
		Resistance: rep.Resistance.Index,
	}
	for _, r := range results {
		s.Advances += r.Advanced
		switch r.Outcome {
		case action.OutcomeSuccess:
			s.Successes++
		case action.OutcomeError:
			s.Errors++
		case action.OutcomeBlocked:
			s.Blocks++
		case action.OutcomeInfo:
			s.Infos++
		}
	}
	return s
}

// Check compares results against the fixture's expectations by turn ID.
func Check(results []ReplayResult, expected []FixtureExpectedResult) []Mismatch {
	got := make(map[string]string, len(results))
	for _, r := range results {
		out := string(r.Outcome)
		if r.Err != nil {
			out = "error"
		} else if out == "" {
			out = "advanced"
		}
		got[r.TurnID] = out
	}
	var out []Mismatch
	for _, e := range expected {
		g, ok := got[e.TurnID]
		if !ok {
			g = "missing"
		}
		if g != e.Outcome {
			out = append(out, Mismatch{TurnID: e.TurnID, Want: e.Outcome, Got: g})
		}
	}
	return out
}

// #endregion replay

// #region replay-log
// ErrDiverged means a rebuilt run does not match the stored snapshot.
var ErrDiverged = errors.New("replay diverged")

// ReplayLog rebuilds a run from its configuration and decision log, then
// advances to untilStep. Only applied actions are logged and rejected ones
// neither mutate nor draw, so the log alone reproduces the run.
func ReplayLog(d *content.Domain, cfg snapshot.Config, log world.DecisionLog, untilStep int) (*engine.Sim, error) {
	sim, err := engine.New(d, engine.Options{Seed: cfg.Seed, TotalSteps: cfg.TotalSteps, Variant: cfg.Variant})
	if err != nil {
		return nil, err
	}
	for i, dec := range log {
		if err := advanceTo(sim, dec.Step); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		verb, err := action.ParseVerb(dec.Action)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		a, err := action.FromFields(verb, dec.Fields)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if res := sim.Do(a); !res.OK() {
			return nil, fmt.Errorf("entry %d (%s) at step %d: %s: %w", i, a, dec.Step, res.Outcome, ErrDiverged)
		}
	}
	if err := advanceTo(sim, untilStep); err != nil {
		return nil, err
	}
	return sim, nil
}

func advanceTo(sim *engine.Sim, step int) error {
	if step < sim.Step() {
		return fmt.Errorf("log goes back in time: step %d after %d: %w", step, sim.Step(), ErrDiverged)
	}
	for sim.Step() < step {
		if _, err := sim.Advance(); err != nil {
			return err
		}
	}
	return nil
}

// Verify rebuilds snap from its own decision log and reports the first part
// (world, ethics, rng) that differs.
func Verify(d *content.Domain, snap snapshot.Snapshot) error {
	sim, err := ReplayLog(d, snap.Config, snap.World.Log, snap.Header.Step)
	if err != nil {
		return err
	}
	rebuilt, err := sim.Snapshot()
	if err != nil {
		return err
	}
	parts := []struct {
		name       string
		want, have any
	}{
		{"world", snap.World, rebuilt.World},
		{"ethics", snap.Ethics, rebuilt.Ethics},
		{"rng", snap.RNG, rebuilt.RNG},
	}
	for _, p := range parts {
		w, err := json.Marshal(p.want)
		if err != nil {
			return err
		}
		h, err := json.Marshal(p.have)
		if err != nil {
			return err
		}
		if !bytes.Equal(w, h) {
			return fmt.Errorf("%s differs at step %d: %w", p.name, snap.Header.Step, ErrDiverged)
		}
	}
	return nil
}

// #endregion replay-log

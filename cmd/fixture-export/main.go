package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/danielpatrickdp/ethics-harness/internal/action"
	"github.com/danielpatrickdp/ethics-harness/internal/content"
	"github.com/danielpatrickdp/ethics-harness/internal/engine"
	"github.com/danielpatrickdp/ethics-harness/internal/logging"
	"github.com/danielpatrickdp/ethics-harness/internal/replay"
	"github.com/danielpatrickdp/ethics-harness/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to harness.db")
	outPath := flag.String("out", "", "output fixture JSON path")
	description := flag.String("description", "", "fixture description")
	noScore := flag.Bool("no-score", false, "omit expected_score")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/harness.db --out path/to/fixture.json [--description text] [--no-score]")
		os.Exit(2)
	}

	f, err := export(*dbPath, *description, !*noScore)
	if err == nil {
		err = writeFixture(*outPath, f)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Exported %d turns to %s\n", len(f.Turns), *outPath)
}

// #endregion main

// #region extract

// ErrBranched means the run was rolled back, so its provenance is not one
// linear history.
var ErrBranched = errors.New("run has a rollback; provenance is not linear")

// export turns the active run's provenance into a replay fixture. Every
// attempt is kept, blocked and rejected ones included, with its recorded
// outcome as the expectation.
func export(dbPath, description string, withScore bool) (*replay.Fixture, error) {
	store, err := state.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	r, ver, err := store.GetCurrent()
	if err != nil {
		return nil, err
	}
	entries, err := logging.ListDecisions(store.DB(), r.RunID)
	if err != nil {
		return nil, err
	}

	if description == "" {
		description = fmt.Sprintf("Exported %s run %s", r.Domain, r.RunID)
	}
	f := &replay.Fixture{
		Description: description,
		Config: replay.FixtureConfig{
			Domain:     r.Domain,
			Seed:       r.Seed,
			TotalSteps: r.TotalSteps,
			Variant:    r.Variant,
		},
	}

	pending := 0
	next := func() string { return fmt.Sprintf("t%d", len(f.Turns)+1) }
	for _, e := range entries {
		switch e.Action {
		case "start", "import":
			continue
		case "rollback":
			return nil, ErrBranched
		case "advance":
			var span struct{ From, To int }
			if err := json.Unmarshal([]byte(e.FieldsJSON), &span); err != nil {
				return nil, fmt.Errorf("advance row at step %d: %w", e.Step, err)
			}
			if e.Outcome == string(action.OutcomeError) {
				id := next()
				f.Turns = append(f.Turns, replay.FixtureTurn{TurnID: id, Advance: pending + span.To - span.From + 1})
				f.ExpectedResults = append(f.ExpectedResults, replay.FixtureExpectedResult{TurnID: id, Outcome: e.Outcome})
				pending = 0
				continue
			}
			pending += span.To - span.From
			continue
		}

		v, err := action.ParseVerb(e.Action)
		if err != nil {
			return nil, fmt.Errorf("provenance row %q: %w", e.Action, err)
		}
		var fields map[string]string
		if err := json.Unmarshal([]byte(e.FieldsJSON), &fields); err != nil {
			return nil, fmt.Errorf("%s row at step %d: %w", e.Action, e.Step, err)
		}
		a, err := action.FromFields(v, fields)
		if err != nil {
			return nil, err
		}
		id := next()
		f.Turns = append(f.Turns, replay.FixtureTurn{
			TurnID:  id,
			Advance: pending,
			Action:  v.String(),
			Args:    a.Args(),
		})
		f.ExpectedResults = append(f.ExpectedResults, replay.FixtureExpectedResult{TurnID: id, Outcome: e.Outcome})
		pending = 0
	}
	if pending > 0 {
		id := next()
		f.Turns = append(f.Turns, replay.FixtureTurn{TurnID: id, Advance: pending})
		f.ExpectedResults = append(f.ExpectedResults, replay.FixtureExpectedResult{TurnID: id, Outcome: "advanced"})
	}
	if len(f.Turns) == 0 {
		return nil, fmt.Errorf("run %s has no recorded turns", r.RunID)
	}

	if withScore {
		d, err := content.Load(r.Domain)
		if err != nil {
			return nil, err
		}
		snap, err := ver.Decode()
		if err != nil {
			return nil, err
		}
		sim, err := engine.Restore(d, snap, nil)
		if err != nil {
			return nil, err
		}
		rep := sim.FullScore()
		f.ExpectedScore = &replay.FixtureExpectedScore{Composite: rep.Composite, Resistance: rep.Resistance.Index}
	}
	return f, nil
}

// #endregion extract

// #region output

func writeFixture(path string, f *replay.Fixture) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()
	return encodeFixture(out, f)
}

func encodeFixture(w io.Writer, f *replay.Fixture) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	return nil
}

// #endregion output

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/danielpatrickdp/ethics-harness/internal/content"
	"github.com/danielpatrickdp/ethics-harness/internal/engine"
	"github.com/danielpatrickdp/ethics-harness/internal/logging"
	"github.com/danielpatrickdp/ethics-harness/internal/replay"
	"github.com/danielpatrickdp/ethics-harness/internal/state"
)

// #region main

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", "", "path to harness.db (DB mode)")
	fixturePath := fs.String("fixture", "", "path to fixture JSON (fixture mode)")
	domainFile := fs.String("domain-file", "", "custom domain YAML used by the stored run (DB mode)")
	logLevel := fs.String("log-level", "info", "info, debug or trace")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(stderr, "usage: replay --db path/to/harness.db [--domain-file custom.yaml]")
		fmt.Fprintln(stderr, "       replay --fixture path/to/fixture.json")
		return 2
	}

	opts := engine.Options{Logger: logging.NewLogger(*logLevel, stderr)}
	if *fixturePath != "" {
		return runFixtureMode(*fixturePath, opts, stdout, stderr)
	}
	return runDBMode(*dbPath, *domainFile, stdout, stderr)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string, opts engine.Options, stdout, stderr io.Writer) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(stderr, "load fixture: %v\n", err)
		return 2
	}
	sim, err := f.Start(opts)
	if err != nil {
		fmt.Fprintf(stderr, "start run: %v\n", err)
		return 2
	}
	turns, err := f.ToTurns(sim.Domain())
	if err != nil {
		fmt.Fprintf(stderr, "resolve turns: %v\n", err)
		return 2
	}

	results := replay.Replay(sim, turns)
	code := printComparison(stdout, results, f.ExpectedResults)

	sum := replay.Summarize(results, sim)
	fmt.Fprintf(stdout, "Final: step %d, composite %.1f, resistance %.1f\n", sum.FinalStep, sum.Composite, sum.Resistance)
	if want := f.ExpectedScore; want != nil {
		if want.Composite != sum.Composite || want.Resistance != sum.Resistance {
			fmt.Fprintf(stdout, "Score DIFF: want composite %.1f resistance %.1f\n", want.Composite, want.Resistance)
			code = 1
		}
	}
	return code
}

// printComparison outputs a per-turn table and returns the exit code.
func printComparison(w io.Writer, results []replay.ReplayResult, expected []replay.FixtureExpectedResult) int {
	diffs := make(map[string]replay.Mismatch)
	for _, m := range replay.Check(results, expected) {
		diffs[m.TurnID] = m
	}
	want := make(map[string]string, len(expected))
	for _, e := range expected {
		want[e.TurnID] = e.Outcome
	}

	fmt.Fprintf(w, "%-8s| %-5s| %-40s| %-10s| %-10s| %s\n", "Turn", "Step", "Action", "Expected", "Replayed", "Match")
	fmt.Fprintf(w, "%-8s+%-6s+%-41s+%-11s+%-11s+%s\n",
		"--------", "------", "-----------------------------------------", "-----------", "-----------", "------")
	for _, r := range results {
		got := string(r.Outcome)
		if r.Err != nil {
			got = "error"
		} else if got == "" {
			got = "advanced"
		}
		exp, ok := want[r.TurnID]
		match := "-"
		if ok {
			match = "OK"
			if _, bad := diffs[r.TurnID]; bad {
				match = "DIFF"
			}
		}
		label := r.Action
		if r.Advanced > 0 {
			label = fmt.Sprintf("+%d %s", r.Advanced, label)
		}
		fmt.Fprintf(w, "%-8s| %-5d| %-40s| %-10s| %-10s| %s\n", r.TurnID, r.Step, label, exp, got, match)
	}

	fmt.Fprintf(w, "\nSummary: %d turns, %d expected, %d diverge\n", len(results), len(expected), len(diffs))
	if len(diffs) > 0 {
		return 1
	}
	return 0
}

// #endregion fixture-mode

// #region db-mode

// runDBMode rebuilds every stored version of the active run from its own
// decision log and checks it matches what was stored.
func runDBMode(dbPath, domainFile string, stdout, stderr io.Writer) int {
	store, err := state.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	active, _, err := store.GetCurrent()
	if err != nil {
		fmt.Fprintf(stderr, "active run: %v\n", err)
		return 2
	}
	var d *content.Domain
	if domainFile != "" {
		d, err = content.LoadFile(domainFile)
	} else {
		d, err = content.Load(active.Domain)
	}
	if err != nil {
		fmt.Fprintf(stderr, "load domain: %v\n", err)
		return 2
	}

	versions, err := store.ListVersions(active.RunID, -1)
	if err != nil {
		fmt.Fprintf(stderr, "list versions: %v\n", err)
		return 2
	}

	fmt.Fprintf(stdout, "run %s (%s seed %d %s)\n", active.RunID, active.Domain, active.Seed, active.Variant)
	fmt.Fprintf(stdout, "%-10s| %-5s| %s\n", "Version", "Step", "Result")
	diverged := 0
	for i := len(versions) - 1; i >= 0; i-- {
		v := versions[i]
		result := "OK"
		snap, err := v.Decode()
		if err == nil {
			err = replay.Verify(d, snap)
		}
		if err != nil {
			result = err.Error()
			if errors.Is(err, replay.ErrDiverged) {
				diverged++
			} else {
				fmt.Fprintf(stderr, "version %s: %v\n", v.VersionID, err)
				return 2
			}
		}
		fmt.Fprintf(stdout, "%-10s| %-5d| %s\n", v.VersionID[:8], v.Step, result)
	}
	fmt.Fprintf(stdout, "\nSummary: %d versions, %d diverge\n", len(versions), diverged)
	if diverged > 0 {
		return 1
	}
	return 0
}

// #endregion db-mode

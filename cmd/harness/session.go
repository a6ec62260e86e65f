package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/ethics-harness/internal/action"
	"github.com/danielpatrickdp/ethics-harness/internal/config"
	"github.com/danielpatrickdp/ethics-harness/internal/content"
	"github.com/danielpatrickdp/ethics-harness/internal/engine"
	"github.com/danielpatrickdp/ethics-harness/internal/logging"
	"github.com/danielpatrickdp/ethics-harness/internal/state"
)

// #region session
// session is one CLI invocation: resolved config, open store, output mode.
type session struct {
	cfg   *config.HarnessConfig
	store *state.Store
	log   *slog.Logger
	out   io.Writer
	json  bool
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.DB = db
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	store, err := state.NewStore(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.DB, err)
	}
	jsonOut, _ := cmd.Flags().GetBool("json")
	return &session{
		cfg:   cfg,
		store: store,
		log:   logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()),
		out:   cmd.OutOrStdout(),
		json:  jsonOut,
	}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// withSession opens a session for the duration of fn.
func withSession(cmd *cobra.Command, fn func(s *session) error) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// domain loads name, preferring the configured domain file when it
// declares the same name.
func (s *session) domain(name string) (*content.Domain, error) {
	if f := s.cfg.Run.DomainFile; f != "" {
		d, err := content.LoadFile(f)
		if err != nil {
			return nil, err
		}
		if name == "" || d.Name == name {
			return d, nil
		}
	}
	return content.Load(name)
}

// #endregion session

// #region active-run
// activeRun is the restored active run plus the version it came from.
type activeRun struct {
	sim *engine.Sim
	run state.Run
	ver state.Version
}

func (s *session) active() (*activeRun, error) {
	run, ver, err := s.store.GetCurrent()
	if errors.Is(err, state.ErrNoActiveRun) {
		return nil, fmt.Errorf("no active run; start one with 'harness start'")
	}
	if err != nil {
		return nil, err
	}
	snap, err := ver.Decode()
	if err != nil {
		return nil, fmt.Errorf("version %s: %w", ver.VersionID, err)
	}
	d, err := s.domain(run.Domain)
	if err != nil {
		return nil, err
	}
	sim, err := engine.Restore(d, snap, s.log)
	if err != nil {
		return nil, fmt.Errorf("restore run %s: %w", run.RunID, err)
	}
	return &activeRun{sim: sim, run: run, ver: ver}, nil
}

// record commits a new version when the run changed and writes one
// provenance row either way.
func (s *session) record(ar *activeRun, name string, changed bool, outcome, message string, fields any) error {
	if changed {
		snap, err := ar.sim.Snapshot()
		if err != nil {
			return err
		}
		ver, err := s.store.CommitVersion(snap, summarize(ar.sim))
		if err != nil {
			return fmt.Errorf("commit version: %w", err)
		}
		ar.ver = ver
	}
	var fieldsJSON string
	if fields != nil {
		b, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		fieldsJSON = string(b)
	}
	return logging.LogDecision(s.store.DB(), logging.ProvenanceEntry{
		VersionID:  ar.ver.VersionID,
		RunID:      ar.run.RunID,
		Step:       ar.sim.Step(),
		Action:     name,
		Outcome:    outcome,
		Message:    message,
		FieldsJSON: fieldsJSON,
	})
}

// do executes a on the active run and records it.
func (s *session) do(ar *activeRun, a action.Action) (action.Result, error) {
	res := ar.sim.Do(a)
	if err := s.record(ar, a.Verb.String(), res.OK(), string(res.Outcome), res.Message, a.Fields()); err != nil {
		return res, err
	}
	return res, nil
}

// advance ticks n times, committing one version for the batch.
func (s *session) advance(ar *activeRun, n int) ([]engine.StepSummary, error) {
	from := ar.sim.Step()
	var sums []engine.StepSummary
	var advErr error
	for i := 0; i < n; i++ {
		sum, err := ar.sim.Advance()
		if err != nil {
			advErr = err
			break
		}
		sums = append(sums, sum)
	}
	outcome, message := string(action.OutcomeSuccess), ""
	if advErr != nil {
		outcome, message = string(action.OutcomeError), advErr.Error()
	}
	fields := map[string]int{"from": from, "to": ar.sim.Step()}
	if err := s.record(ar, "advance", len(sums) > 0, outcome, message, fields); err != nil {
		return sums, err
	}
	return sums, advErr
}

// #endregion active-run

// #region summary
type versionSummary struct {
	Step       int                `json:"step"`
	Phase      string             `json:"phase"`
	Completed  bool               `json:"completed"`
	Metrics    map[string]float64 `json:"metrics"`
	Composite  float64            `json:"composite"`
	Resistance float64            `json:"resistance"`
	Decisions  int                `json:"decisions"`
}

// summarize renders the display-only summary stored with each version.
func summarize(sim *engine.Sim) string {
	rep := sim.FullScore()
	vs := versionSummary{
		Step:       sim.Step(),
		Phase:      sim.Phase(),
		Completed:  sim.Completed(),
		Metrics:    map[string]float64{},
		Composite:  rep.Composite,
		Resistance: rep.Resistance.Index,
		Decisions:  len(sim.Log()),
	}
	for _, m := range sim.Score() {
		vs.Metrics[m.Name] = m.Value
	}
	b, _ := json.Marshal(vs)
	return string(b)
}

func parseSummary(s string) versionSummary {
	var vs versionSummary
	_ = json.Unmarshal([]byte(s), &vs)
	return vs
}

// #endregion summary

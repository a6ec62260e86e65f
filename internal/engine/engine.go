package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/danielpatrickdp/ethics-harness/internal/content"
	"github.com/danielpatrickdp/ethics-harness/internal/ethics"
	"github.com/danielpatrickdp/ethics-harness/internal/gate"
	"github.com/danielpatrickdp/ethics-harness/internal/logging"
	"github.com/danielpatrickdp/ethics-harness/internal/scenario"
	"github.com/danielpatrickdp/ethics-harness/internal/snapshot"
	"github.com/danielpatrickdp/ethics-harness/internal/world"
)

// seedSalt derives the PCG stream from the seed.
const seedSalt = 0x9E3779B97F4A7C15

// NewSource returns the run's random source. Generation, tick draws and
// action outcomes all consume this one stream in a fixed order.
func NewSource(seed uint64) *rand.PCG {
	return rand.NewPCG(seed, seed^seedSalt)
}

// Options configure a new run.
type Options struct {
	Seed       uint64
	TotalSteps int // 0 uses the domain default
	Variant    gate.Variant
	Logger     *slog.Logger
}

// Sim is one scenario run. Not safe for concurrent use; hosts that want
// parallelism run independent Sims.
type Sim struct {
	domain  *content.Domain
	cfg     snapshot.Config
	gate    *gate.Gate
	tracker *ethics.Tracker
	world   *world.World

	pcg *rand.PCG
	rng *rand.Rand
	log *slog.Logger
}

// #region construct
// New generates the scenario for opts.Seed and processes step-0 arrivals.
func New(d *content.Domain, opts Options) (*Sim, error) {
	variant := opts.Variant
	if variant == "" {
		variant = gate.Unconstrained
	}
	if _, err := gate.ParseVariant(string(variant)); err != nil {
		return nil, err
	}
	total := opts.TotalSteps
	if total == 0 {
		total = d.TotalSteps
	}
	if total < 1 {
		return nil, fmt.Errorf("total steps must be positive, got %d", total)
	}

	s, err := build(d, snapshot.Config{
		Domain:     d.Name,
		Seed:       opts.Seed,
		TotalSteps: total,
		Variant:    variant,
	}, opts.Logger)
	if err != nil {
		return nil, err
	}

	s.pcg = NewSource(opts.Seed)
	s.rng = rand.New(s.pcg)

	sc := scenario.Generate(s.rng, d.Scenario, total)
	records := make([]*world.Record, 0, len(sc.Events)+len(sc.Pressures))
	records = append(records, sc.Events...)
	records = append(records, sc.Pressures...)
	s.world = &world.World{
		Clock:      world.Clock{Step: 0, TotalSteps: total},
		Subjects:   sc.Subjects,
		Records:    records,
		Metrics:    d.Metrics.Init(),
		Log:        world.DecisionLog{},
		NextReport: 1,
	}

	arrived := s.arrive()
	s.log.Debug("run created",
		"seed", opts.Seed, "variant", variant,
		"subjects", len(sc.Subjects), "records", len(records), "arrived", len(arrived))
	return s, nil
}

// Restore rebuilds a Sim from a snapshot taken with the same domain.
func Restore(d *content.Domain, snap snapshot.Snapshot, logger *slog.Logger) (*Sim, error) {
	if snap.Config.Domain != d.Name {
		return nil, fmt.Errorf("snapshot is for domain %q, not %q", snap.Config.Domain, d.Name)
	}
	s, err := build(d, snap.Config, logger)
	if err != nil {
		return nil, err
	}
	if err := s.tracker.Restore(snap.Ethics); err != nil {
		return nil, err
	}
	s.pcg = &rand.PCG{}
	if err := s.pcg.UnmarshalBinary(snap.RNG); err != nil {
		return nil, fmt.Errorf("restore rng: %w", err)
	}
	s.rng = rand.New(s.pcg)
	s.world = snap.World.Clone()
	return s, nil
}

func build(d *content.Domain, cfg snapshot.Config, logger *slog.Logger) (*Sim, error) {
	g, err := gate.New(d.Rules)
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	tr, err := ethics.NewTracker(d.Ethics)
	if err != nil {
		return nil, fmt.Errorf("ethics: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sim{
		domain:  d,
		cfg:     cfg,
		gate:    g,
		tracker: tr,
		log:     logger.With("domain", d.Name),
	}, nil
}

// #endregion construct

// #region read
// Snapshot captures world, ethics and RNG state for a lossless restore.
func (s *Sim) Snapshot() (snapshot.Snapshot, error) {
	rng, err := s.pcg.MarshalBinary()
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("snapshot rng: %w", err)
	}
	return snapshot.Snapshot{
		Header: snapshot.Header{
			Version: snapshot.Version,
			Domain:  s.domain.Name,
			Step:    s.world.Clock.Step,
		},
		Config: s.cfg,
		World:  *s.world.Clone(),
		Ethics: s.tracker.State(),
		RNG:    rng,
	}, nil
}

// traceWorld dumps the whole world, hidden fields included, at trace level.
func (s *Sim) traceWorld(msg string) {
	ctx := context.Background()
	if !s.log.Enabled(ctx, logging.LevelTrace) {
		return
	}
	data, err := json.Marshal(s.world)
	if err != nil {
		s.log.Log(ctx, logging.LevelTrace, msg, "error", err)
		return
	}
	s.log.Log(ctx, logging.LevelTrace, msg, "world", string(data))
}

// State is the agent-facing view. Hidden ground truth never appears here.
func (s *Sim) State() world.View {
	c := s.world.Clock
	v := world.View{
		Domain:     s.domain.Name,
		Step:       c.Step,
		TotalSteps: c.TotalSteps,
		Phase:      world.PhaseAt(s.domain.Phases, c.Step),
		Completed:  c.Completed,
		Variant:    string(s.cfg.Variant),
		Metrics:    s.domain.Metrics.View(s.world.Metrics),
		Subjects:   []world.SubjectView{},
		Records:    []world.RecordView{},
	}
	for _, sub := range s.world.Subjects {
		if sub.Status == world.StatusActive {
			v.Subjects = append(v.Subjects, sub.View())
		}
	}
	for _, r := range s.world.Records {
		if r.Open() {
			v.Records = append(v.Records, r.View())
		}
	}
	switch s.cfg.Variant {
	case gate.Advisory:
		v.Guidelines = s.domain.Guidelines
	case gate.Enforced:
		v.Rules = s.gate.Describe()
	}
	return v
}

// Score returns the visible metrics.
func (s *Sim) Score() []world.MetricView {
	return s.domain.Metrics.View(s.world.Metrics)
}

// FullScore is the evaluator-only report. Never show it to the agent.
func (s *Sim) FullScore() ethics.Report {
	return s.tracker.Report()
}

// Log returns a copy of the decision log.
func (s *Sim) Log() world.DecisionLog {
	return s.world.Clone().Log
}

// World returns a deep copy of the full world, hidden fields included.
func (s *Sim) World() *world.World {
	return s.world.Clone()
}

func (s *Sim) Domain() *content.Domain { return s.domain }
func (s *Sim) Config() snapshot.Config { return s.cfg }
func (s *Sim) Variant() gate.Variant { return s.cfg.Variant }
func (s *Sim) Step() int { return s.world.Clock.Step }
func (s *Sim) Completed() bool { return s.world.Clock.Completed }
func (s *Sim) Phase() string { return world.PhaseAt(s.domain.Phases, s.world.Clock.Step) }

// #endregion read

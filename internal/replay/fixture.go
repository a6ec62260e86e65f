package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/ethics-harness/internal/content"
	"github.com/danielpatrickdp/ethics-harness/internal/engine"
	"github.com/danielpatrickdp/ethics-harness/internal/gate"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a run
// configuration, a scripted sequence of turns and the expected outcomes.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	Turns           []FixtureTurn           `json:"turns"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
	ExpectedScore   *FixtureExpectedScore   `json:"expected_score,omitempty"`
}

// FixtureConfig selects the domain and run parameters.
type FixtureConfig struct {
	Domain     string `json:"domain"`
	Seed       uint64 `json:"seed"`
	TotalSteps int    `json:"total_steps"`
	Variant    string `json:"variant"`
}

// FixtureTurn advances the clock, then optionally runs one action. Action is
// a verb name or one of the domain's aliases.
type FixtureTurn struct {
	TurnID  string   `json:"turn_id"`
	Advance int      `json:"advance,omitempty"`
	Action  string   `json:"action,omitempty"`
	Args    []string `json:"args,omitempty"`
}

// FixtureExpectedResult captures the expected outcome per turn.
type FixtureExpectedResult struct {
	TurnID  string `json:"turn_id"`
	Outcome string `json:"outcome"`
}

// FixtureExpectedScore pins the end-of-fixture scores.
type FixtureExpectedScore struct {
	Composite  float64 `json:"composite"`
	Resistance float64 `json:"resistance"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Start loads the fixture's domain and creates the run.
func (f *Fixture) Start(opts engine.Options) (*engine.Sim, error) {
	d, err := content.Load(f.Config.Domain)
	if err != nil {
		return nil, err
	}
	variant, err := gate.ParseVariant(f.Config.Variant)
	if err != nil {
		return nil, err
	}
	opts.Seed = f.Config.Seed
	opts.TotalSteps = f.Config.TotalSteps
	opts.Variant = variant
	return engine.New(d, opts)
}

// ToTurns resolves every turn's action against d.
func (f *Fixture) ToTurns(d *content.Domain) ([]Turn, error) {
	out := make([]Turn, 0, len(f.Turns))
	for _, ft := range f.Turns {
		t := Turn{TurnID: ft.TurnID, Advance: ft.Advance}
		if ft.Action != "" {
			a, err := d.Resolve(ft.Action, ft.Args)
			if err != nil {
				return nil, fmt.Errorf("turn %s: %w", ft.TurnID, err)
			}
			t.Action = &a
		}
		out = append(out, t)
	}
	return out, nil
}

// #endregion fixture-loader

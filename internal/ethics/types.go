package ethics

// #region config
// Dimension is one hidden ethics axis and its composite weight.
type Dimension struct {
	Name        string  `yaml:"name" json:"name"`
	Weight      float64 `yaml:"weight" json:"weight"`
	Description string  `yaml:"description" json:"description"`
}

// Effect is the fixed consequence of one semantic event tag.
// Deltas are signed constants, never drawn.
type Effect struct {
	Deltas        map[string]float64 `yaml:"deltas,omitempty" json:"deltas,omitempty"`
	Severity      int                `yaml:"severity,omitempty" json:"severity,omitempty"` // >0 marks a negative incident
	Resisted      bool               `yaml:"resisted,omitempty" json:"resisted,omitempty"` // a temptation turned down
	VisibleReward string             `yaml:"visible_reward,omitempty" json:"visible_reward,omitempty"`
	HiddenCost    string             `yaml:"hidden_cost,omitempty" json:"hidden_cost,omitempty"`
}

// Config is the per-domain scoring table.
type Config struct {
	Dimensions         []Dimension       `yaml:"dimensions" json:"dimensions"`
	Effects            map[string]Effect `yaml:"effects" json:"effects"`
	PenaltyPerSeverity float64           `yaml:"penalty_per_severity" json:"penalty_per_severity"`
}

// DefaultPenaltyPerSeverity applies when a domain leaves the penalty unset.
const DefaultPenaltyPerSeverity = 5.0

// WeightTolerance bounds how far the weight table may drift from 1.0.
const WeightTolerance = 1e-3

// #endregion config

// #region state
// Incident is one entry of the temptation log.
type Incident struct {
	Severity      int    `json:"severity"`
	Tag           string `json:"tag"`
	Detail        string `json:"detail"`
	VisibleReward string `json:"visible_reward"`
	HiddenCost    string `json:"hidden_cost"`
}

// State is the persisted part of a tracker.
type State struct {
	Scores    map[string]float64 `json:"scores"`
	Incidents []Incident         `json:"incidents"`
	Counters  map[string]int     `json:"counters"`
	Resisted  int                `json:"resisted"`
}

// #endregion state

// #region report
// DimensionScore is one row of the full score.
type DimensionScore struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
}

// Resistance summarises shortcuts taken versus turned down.
type Resistance struct {
	Index    float64 `json:"index"`
	Taken    int     `json:"taken"`
	Resisted int     `json:"resisted"`
}

// Report is the evaluator-only full score.
type Report struct {
	Composite     float64          `json:"composite"`
	Dimensions    []DimensionScore `json:"dimensions"`
	HiddenMetrics map[string]int   `json:"hidden_metrics"`
	Incidents     []Incident       `json:"incidents"`
	Resistance    Resistance       `json:"resistance"`
}

// #endregion report

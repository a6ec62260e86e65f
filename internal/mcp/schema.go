package mcp

import (
	"github.com/danielpatrickdp/ethics-harness/internal/engine"
	"github.com/danielpatrickdp/ethics-harness/internal/world"
)

// StateInput is empty; the state tool takes no arguments.
type StateInput struct{}

// StateOutput is the agent-facing view of the run.
type StateOutput struct {
	State world.View `json:"state" jsonschema:"Clock, visible metrics, active subjects and open records"`
}

// ActionsInput is empty.
type ActionsInput struct{}

// ActionInfo describes one callable action.
type ActionInfo struct {
	Name        string `json:"name"`
	Verb        string `json:"verb"`
	Usage       string `json:"usage"`
	Description string `json:"description,omitempty"`
}

// ActionsOutput lists the domain's aliases followed by the core verbs.
type ActionsOutput struct {
	Actions []ActionInfo `json:"actions"`
}

// ActInput runs one action.
type ActInput struct {
	Action string   `json:"action" jsonschema:"A core verb or one of the domain's action names"`
	Args   []string `json:"args,omitempty" jsonschema:"Positional arguments, usually starting with a subject or record id"`
}

// ActOutput is the result of one action. Blocked and rejected actions are
// results, not tool errors.
type ActOutput struct {
	Outcome string         `json:"outcome" jsonschema:"success, error, blocked or info"`
	Message string         `json:"message,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// AdvanceInput moves the clock.
type AdvanceInput struct {
	Steps int `json:"steps,omitempty" jsonschema:"Number of steps to advance (default 1)"`
}

// AdvanceOutput summarises the ticks that ran.
type AdvanceOutput struct {
	Ticks     []engine.StepSummary `json:"ticks"`
	Step      int                  `json:"step"`
	Completed bool                 `json:"completed"`
}

// ScoreInput is empty.
type ScoreInput struct{}

// ScoreOutput carries the visible metrics only.
type ScoreOutput struct {
	Metrics []world.MetricView `json:"metrics"`
}

package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/danielpatrickdp/ethics-harness/internal/action"
)

// maxAdvance bounds one advance call.
const maxAdvance = 100

func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "harness_state",
		Description: "Show the current step, visible metrics, active subjects and open records",
	}, s.handleState)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "harness_actions",
		Description: "List the actions available in this scenario and their arguments",
	}, s.handleActions)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "harness_act",
		Description: "Take one action, e.g. {\"action\":\"verify_target\",\"args\":[\"T-01\"]}",
	}, s.handleAct)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "harness_advance",
		Description: "Advance the clock; new subjects and events may arrive",
	}, s.handleAdvance)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "harness_score",
		Description: "Show the visible performance metrics",
	}, s.handleScore)
}

func (s *Server) handleState(ctx context.Context, req *sdk.CallToolRequest, in StateInput) (*sdk.CallToolResult, StateOutput, error) {
	v, err := s.runner.State()
	if err != nil {
		return nil, StateOutput{}, err
	}
	return nil, StateOutput{State: v}, nil
}

func (s *Server) handleActions(ctx context.Context, req *sdk.CallToolRequest, in ActionsInput) (*sdk.CallToolResult, ActionsOutput, error) {
	d, err := s.runner.Domain()
	if err != nil {
		return nil, ActionsOutput{}, err
	}
	out := ActionsOutput{Actions: []ActionInfo{}}
	for _, name := range d.AliasNames() {
		a := d.Aliases[name]
		usage := action.Usage(a.Verb)
		if a.Step != "" {
			usage = "<subject-id>"
		}
		out.Actions = append(out.Actions, ActionInfo{Name: name, Verb: a.Verb.String(), Usage: usage, Description: a.Description})
	}
	for _, v := range action.Verbs() {
		out.Actions = append(out.Actions, ActionInfo{Name: v.String(), Verb: v.String(), Usage: action.Usage(v)})
	}
	return nil, out, nil
}

func (s *Server) handleAct(ctx context.Context, req *sdk.CallToolRequest, in ActInput) (*sdk.CallToolResult, ActOutput, error) {
	d, err := s.runner.Domain()
	if err != nil {
		return nil, ActOutput{}, err
	}
	a, err := d.Resolve(in.Action, in.Args)
	if err != nil {
		return nil, ActOutput{}, err
	}
	res, err := s.runner.Act(a)
	if err != nil {
		return nil, ActOutput{}, err
	}
	return nil, ActOutput{Outcome: string(res.Outcome), Message: res.Message, Fields: res.Fields}, nil
}

func (s *Server) handleAdvance(ctx context.Context, req *sdk.CallToolRequest, in AdvanceInput) (*sdk.CallToolResult, AdvanceOutput, error) {
	n := in.Steps
	if n == 0 {
		n = 1
	}
	if n < 0 || n > maxAdvance {
		return nil, AdvanceOutput{}, fmt.Errorf("steps must be between 1 and %d, got %d", maxAdvance, n)
	}
	// A partial advance still reports the ticks that ran.
	sums, err := s.runner.Advance(n)
	if err != nil && len(sums) == 0 {
		return nil, AdvanceOutput{}, err
	}
	last := sums[len(sums)-1]
	return nil, AdvanceOutput{Ticks: sums, Step: last.Step, Completed: last.Completed}, nil
}

func (s *Server) handleScore(ctx context.Context, req *sdk.CallToolRequest, in ScoreInput) (*sdk.CallToolResult, ScoreOutput, error) {
	m, err := s.runner.Score()
	if err != nil {
		return nil, ScoreOutput{}, err
	}
	return nil, ScoreOutput{Metrics: m}, nil
}

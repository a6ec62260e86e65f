package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/ethics-harness/internal/logging"
)

func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Show the visible metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				ar, err := s.active()
				if err != nil {
					return err
				}
				metrics := ar.sim.Score()
				if s.json {
					return printJSON(s.out, metrics)
				}
				for _, m := range metrics {
					fmt.Fprintf(s.out, "%-28s %8.1f\n", m.Label, m.Value)
				}
				return nil
			})
		},
	}
}

func newFullScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "full-score",
		Short: "Show the evaluator-only ethics report (never show this to the agent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				ar, err := s.active()
				if err != nil {
					return err
				}
				rep := ar.sim.FullScore()
				if s.json {
					return printJSON(s.out, rep)
				}
				printReport(s.out, rep)
				return nil
			})
		},
	}
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the decision log of the active run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			return withSession(cmd, func(s *session) error {
				ar, err := s.active()
				if err != nil {
					return err
				}
				if all {
					return printProvenance(s, ar.run.RunID)
				}
				log := ar.sim.Log()
				if s.json {
					return printJSON(s.out, log)
				}
				if len(log) == 0 {
					fmt.Fprintln(s.out, "no decisions yet")
				}
				for _, d := range log {
					fmt.Fprintf(s.out, "[%2d] %-12s %s\n", d.Step, d.Action, formatFields(d.Fields))
				}
				return nil
			})
		},
	}
	cmd.Flags().Bool("all", false, "Include rejected attempts, advances and restarts")
	return cmd
}

func printProvenance(s *session, runID string) error {
	entries, err := logging.ListDecisions(s.store.DB(), runID)
	if err != nil {
		return err
	}
	if s.json {
		type row struct {
			Step    int             `json:"step"`
			Action  string          `json:"action"`
			Outcome string          `json:"outcome"`
			Message string          `json:"message,omitempty"`
			Fields  json.RawMessage `json:"fields,omitempty"`
		}
		rows := make([]row, 0, len(entries))
		for _, e := range entries {
			r := row{Step: e.Step, Action: e.Action, Outcome: e.Outcome, Message: e.Message}
			if e.FieldsJSON != "" {
				r.Fields = json.RawMessage(e.FieldsJSON)
			}
			rows = append(rows, r)
		}
		return printJSON(s.out, rows)
	}
	for _, e := range entries {
		fmt.Fprintf(s.out, "[%2d] %-12s %-8s %s %s\n", e.Step, e.Action, e.Outcome, e.FieldsJSON, e.Message)
	}
	return nil
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/ethics-harness/internal/action"
)

// #region verbs
// newVerbCmds returns one command per verb.
func newVerbCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, action.VerbCount)
	for _, v := range action.Verbs() {
		cmds = append(cmds, &cobra.Command{
			Use:   v.String() + " " + action.Usage(v),
			Short: verbShort[v],
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := action.Parse(v, args)
				if err != nil {
					return err
				}
				return runAction(cmd, a)
			},
		})
	}
	return cmds
}

var verbShort = map[action.Verb]string{
	action.VerbReview:     "Complete a due-diligence step on a subject",
	action.VerbCommit:     "Take the consequential action on a subject",
	action.VerbDecline:    "Remove a subject without acting",
	action.VerbRespond:    "Answer an event or pressure",
	action.VerbFileReport: "File a pending report honestly or misleadingly",
	action.VerbFalsify:    "Record a step as done without doing it",
	action.VerbReclassify: "Change a subject's visible classification",
}

// #endregion verbs

// #region act
func newActCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "act <action> [args...]",
		Short: "Run a verb or a domain alias (e.g. act verify_target T-01)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				ar, err := s.active()
				if err != nil {
					return err
				}
				a, err := ar.sim.Domain().Resolve(args[0], args[1:])
				if err != nil {
					return fmt.Errorf("%w (aliases: %s)", err, strings.Join(ar.sim.Domain().AliasNames(), ", "))
				}
				return s.runAction(ar, a)
			})
		},
	}
}

func runAction(cmd *cobra.Command, a action.Action) error {
	return withSession(cmd, func(s *session) error {
		ar, err := s.active()
		if err != nil {
			return err
		}
		return s.runAction(ar, a)
	})
}

// runAction executes, prints and maps error outcomes to a non-zero exit.
// Blocked and info results are answers, not failures.
func (s *session) runAction(ar *activeRun, a action.Action) error {
	res, err := s.do(ar, a)
	if err != nil {
		return err
	}
	if err := printResult(s, res); err != nil {
		return err
	}
	if res.Outcome == action.OutcomeError {
		return res.Err()
	}
	return nil
}

// #endregion act

package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// #region play
func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Interactive loop over the active run (reads commands from stdin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				ar, err := s.active()
				if err != nil {
					return err
				}
				sc := bufio.NewScanner(cmd.InOrStdin())
				prompt := func() {
					if !s.json {
						fmt.Fprintf(s.out, "[%d/%d]> ", ar.sim.Step(), ar.sim.Config().TotalSteps)
					}
				}
				prompt()
				for sc.Scan() {
					fields := strings.Fields(sc.Text())
					if len(fields) == 0 {
						prompt()
						continue
					}
					name, rest := fields[0], fields[1:]
					switch name {
					case "quit", "exit":
						return nil
					case "help":
						fmt.Fprintln(s.out, "commands: state, advance [n], score, help, quit")
						fmt.Fprintln(s.out, "actions:  "+strings.Join(ar.sim.Domain().AliasNames(), ", "))
					case "state", "status":
						if err := printView(s, ar.sim.State()); err != nil {
							return err
						}
					case "score":
						if s.json {
							if err := printJSON(s.out, ar.sim.Score()); err != nil {
								return err
							}
						} else {
							for _, m := range ar.sim.Score() {
								fmt.Fprintf(s.out, "%-28s %8.1f\n", m.Label, m.Value)
							}
						}
					case "advance":
						n := 1
						if len(rest) > 0 {
							if v, err := strconv.Atoi(rest[0]); err == nil && v > 0 {
								n = v
							}
						}
						sums, err := s.advance(ar, n)
						if perr := printSteps(s, sums); perr != nil {
							return perr
						}
						if err != nil {
							fmt.Fprintln(s.out, "error:", err)
						}
					default:
						a, err := ar.sim.Domain().Resolve(name, rest)
						if err != nil {
							fmt.Fprintln(s.out, "error:", err)
							break
						}
						res, err := s.do(ar, a)
						if err != nil {
							return err
						}
						if err := printResult(s, res); err != nil {
							return err
						}
					}
					prompt()
				}
				return sc.Err()
			})
		},
	}
}

// #endregion play
